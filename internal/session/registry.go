// Package session maps signed cart tokens to live carts and checkout flows
// and serializes access to each of them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/denim-store/internal/cart"
	"github.com/xenking/denim-store/internal/domain/checkout"
)

// ErrUnavailable is returned when a cart cannot be read from storage. The
// session stays unhydrated and the next request retries the read.
var ErrUnavailable = errors.New("cart storage unavailable")

// Session is the per-visitor state: one cart and one checkout flow. Fields
// may only be used inside Registry.Do.
type Session struct {
	ID       string
	Token    string
	Cart     *cart.Store
	Checkout *checkout.Flow

	mu       sync.Mutex
	lastUsed time.Time
	evicted  bool
}

// Config holds the registry settings.
type Config struct {
	// IdleTTL is how long an unused session stays in memory.
	IdleTTL time.Duration
}

// Registry holds the live sessions.
type Registry struct {
	cfg     Config
	signer  *Signer
	storage cart.Storage
	metrics *cart.Metrics
	lg      *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a Registry whose carts persist to storage.
func NewRegistry(cfg Config, signer *Signer, storage cart.Storage, metrics *cart.Metrics, lg *zap.Logger) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &Registry{
		cfg:      cfg,
		signer:   signer,
		storage:  storage,
		metrics:  metrics,
		lg:       lg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Do runs fn with exclusive access to the session identified by token. An
// empty, malformed or forged token starts a new cart. The session passed to
// fn carries the token to hand back to the client.
func (r *Registry) Do(ctx context.Context, token string, fn func(ctx context.Context, s *Session) error) error {
	s, release, err := r.Acquire(ctx, token)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, s)
}

// Acquire locks the session identified by token and rehydrates its cart on
// first use. The caller must call release exactly once.
func (r *Registry) Acquire(ctx context.Context, token string) (s *Session, release func(), err error) {
	cartID, err := r.resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	for {
		s = r.lookup(cartID)
		s.mu.Lock()
		if !s.evicted {
			break
		}
		// Swept between lookup and lock.
		s.mu.Unlock()
	}

	if err := r.rehydrate(ctx, s); err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}

	return s, func() {
		s.lastUsed = r.now()
		s.mu.Unlock()
	}, nil
}

func (r *Registry) resolve(ctx context.Context, token string) (string, error) {
	if token != "" {
		id, err := r.signer.Verify(token)
		if err == nil {
			return id, nil
		}
		zctx.From(ctx).Debug("Rejected cart token, issuing a new cart", zap.Error(err))
	}
	_, id := r.signer.Issue()
	return id, nil
}

func (r *Registry) lookup(cartID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[cartID]
	if !ok {
		s = &Session{
			ID:    cartID,
			Token: r.signer.Sign(cartID),
			Cart: cart.NewStore(cart.StorageKey(cartID), r.storage,
				cart.WithLogger(r.lg.Named("cart")),
				cart.WithMetrics(r.metrics),
			),
			Checkout: checkout.NewFlow(),
			lastUsed: r.now(),
		}
		r.sessions[cartID] = s
	}
	return s
}

func (r *Registry) rehydrate(ctx context.Context, s *Session) error {
	if s.Cart.Hydrated() {
		return nil
	}
	err := s.Cart.Rehydrate(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cart.ErrMalformedSnapshot):
		zctx.From(ctx).Warn("Discarded malformed cart snapshot",
			zap.String("cart_id", s.ID),
			zap.Error(err),
		)
		return nil
	default:
		return errors.Wrapf(ErrUnavailable, "rehydrate %s: %v", s.ID, err)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than IdleTTL. Sessions in use are
// skipped. Carts are persisted on every mutation, so a dropped session is
// restored from storage on its next request; only the checkout form is lost.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for id, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if now.Sub(s.lastUsed) >= r.cfg.IdleTTL {
			s.evicted = true
			delete(r.sessions, id)
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.lg.Debug("Evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
