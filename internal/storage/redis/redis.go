// Package redis stores cart snapshots in Redis, one string value per cart.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/denim-store/internal/cart"
)

var (
	_ cart.Storage = (*Storage)(nil)
	_ cart.Pinger  = (*Storage)(nil)
)

// Storage implements cart.Storage on a Redis client. A positive TTL expires
// abandoned carts; it is refreshed on every save.
type Storage struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New returns a Storage using client.
func New(client redis.UniversalClient, ttl time.Duration) *Storage {
	return &Storage{client: client, ttl: ttl}
}

// Options configures NewClient. URL, when set, takes precedence over the
// other fields.
type Options struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// NewClient dials Redis and verifies the connection.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	ro := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		ro = parsed
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", ro.Addr)
	}
	return client, nil
}

// Load implements cart.Storage.
func (s *Storage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get %q", key)
	}
	return data, nil
}

// Save implements cart.Storage.
func (s *Storage) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
