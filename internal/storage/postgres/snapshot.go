package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/denim-store/internal/cart"
)

var (
	_ cart.Storage = (*SnapshotRepository)(nil)
	_ cart.Pinger  = (*SnapshotRepository)(nil)
)

// SnapshotRepository stores cart snapshots in the cart_snapshots table.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository returns a SnapshotRepository that uses the given pool.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Load returns the snapshot stored under key, or cart.ErrNotFound.
func (r *SnapshotRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM cart_snapshots WHERE key = $1`, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("loading cart snapshot %q: %w", key, err)
	}
	return []byte(payload), nil
}

// Save upserts the snapshot stored under key.
func (r *SnapshotRepository) Save(ctx context.Context, key string, data []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_snapshots (key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving cart snapshot %q: %w", key, err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
