package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// KeyPrefix namespaces cart snapshots in a shared backend.
const KeyPrefix = "denim-store-cart"

// ErrNotFound is returned by Storage.Load when no snapshot exists.
var ErrNotFound = errors.New("cart snapshot not found")

// StorageKey returns the storage entry name for a cart.
func StorageKey(cartID string) string {
	return KeyPrefix + ":" + cartID
}

// Storage is durable storage for serialized cart snapshots. Each entry
// holds the full cart; Save replaces it.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Pinger is implemented by storages that can report backend availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
