// Package cart implements the cart store: the single mutable authority over
// one cart's line items, synchronized with durable storage.
package cart

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/denim-store/internal/domain/product"
)

// ErrInvalidQuantity is returned by AddItem for a quantity below one.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Mutation names an operation that changed the cart.
type Mutation string

const (
	MutationAdd    Mutation = "add"
	MutationRemove Mutation = "remove"
	MutationUpdate Mutation = "update"
	MutationClear  Mutation = "clear"
)

// Store owns the items of one cart. It is not safe for concurrent use; the
// caller serializes access (see session.Registry).
//
// Writes are suppressed until Rehydrate has completed, so an empty initial
// state never overwrites a saved cart.
type Store struct {
	key     string
	storage Storage
	lg      *zap.Logger
	metrics *Metrics

	items    []LineItem
	open     bool
	hydrated bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence events.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// WithMetrics enables mutation counters.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an empty, not yet hydrated store persisted under key.
func NewStore(key string, storage Storage, opts ...Option) *Store {
	s := &Store{
		key:     key,
		storage: storage,
		lg:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key returns the storage key of the cart.
func (s *Store) Key() string { return s.key }

// Hydrated reports whether the initial read has completed.
func (s *Store) Hydrated() bool { return s.hydrated }

// Rehydrate performs the initial read from storage. It is a no-op once the
// store is hydrated.
//
// A missing snapshot yields an empty cart. A snapshot that fails to parse is
// discarded: the cart starts empty, the store becomes hydrated, and an error
// wrapping ErrMalformedSnapshot is returned for the caller to log. Any other
// storage error leaves the store unhydrated.
func (s *Store) Rehydrate(ctx context.Context) error {
	if s.hydrated {
		return nil
	}

	data, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
		s.items = nil
		s.hydrated = true
		return nil
	case err != nil:
		return errors.Wrap(err, "load cart")
	}

	items, err := DecodeSnapshot(data)
	s.hydrated = true
	if err != nil {
		s.items = nil
		return err
	}
	s.items = items
	return nil
}

// AddItem adds quantity units of p in the given size and color. An existing
// line with the same key grows in place; otherwise a line is appended. The
// preview panel is opened.
func (s *Store) AddItem(ctx context.Context, p product.Product, size int, color string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	k := Key{ProductID: p.ID, Size: size, Color: color}
	if i := s.index(k); i >= 0 {
		s.items[i].Quantity += quantity
	} else {
		s.items = append(s.items, LineItem{Product: p, Size: size, Color: color, Quantity: quantity})
	}
	s.open = true

	return s.persist(ctx, MutationAdd)
}

// RemoveItem deletes the line with the given key. An absent key is a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID string, size int, color string) error {
	k := Key{ProductID: productID, Size: size, Color: color}
	if i := s.index(k); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
	return s.persist(ctx, MutationRemove)
}

// UpdateQuantity sets the quantity of the line with the given key, keeping
// its position. A quantity of zero or less removes the line. An absent key is
// a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, size int, color string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID, size, color)
	}

	k := Key{ProductID: productID, Size: size, Color: color}
	if i := s.index(k); i >= 0 {
		s.items[i].Quantity = quantity
	}
	return s.persist(ctx, MutationUpdate)
}

// ClearCart removes every line.
func (s *Store) ClearCart(ctx context.Context) error {
	s.items = nil
	return s.persist(ctx, MutationClear)
}

// SetOpen sets the preview panel flag. It is not persisted.
func (s *Store) SetOpen(open bool) { s.open = open }

// IsOpen reports whether the preview panel is open.
func (s *Store) IsOpen() bool { return s.open }

// Items returns a copy of the current lines in order.
func (s *Store) Items() []LineItem { return slices.Clone(s.items) }

// Len returns the number of distinct lines.
func (s *Store) Len() int { return len(s.items) }

// TotalItems returns the sum of quantities.
func (s *Store) TotalItems() int { return TotalItems(s.items) }

// TotalPrice returns the sum of price × quantity.
func (s *Store) TotalPrice() decimal.Decimal { return TotalPrice(s.items) }

func (s *Store) index(k Key) int {
	return slices.IndexFunc(s.items, func(it LineItem) bool { return it.Key() == k })
}

// persist writes the full snapshot. The in-memory change is kept even when
// the write fails; the next successful write carries it.
func (s *Store) persist(ctx context.Context, m Mutation) error {
	s.metrics.mutation(ctx, m)

	if !s.hydrated {
		s.lg.Debug("Skipping write before rehydration", zap.String("key", s.key), zap.String("op", string(m)))
		return nil
	}

	if err := s.storage.Save(ctx, s.key, EncodeSnapshot(s.items)); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}
