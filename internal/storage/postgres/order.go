package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/denim-store/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order lines are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders (
			id, cart_id, email, lines,
			subtotal, discount, shipping, tax, total,
			shipping_method, promo_code, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.CartID, o.Email, linesJSON,
		o.Subtotal, o.Discount, o.Shipping, o.Tax, o.Total,
		o.ShippingMethod, o.PromoCode, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

type orderRow struct {
	ID             string          `db:"id"`
	CartID         string          `db:"cart_id"`
	Email          string          `db:"email"`
	Lines          []byte          `db:"lines"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	Discount       decimal.Decimal `db:"discount"`
	Shipping       decimal.Decimal `db:"shipping"`
	Tax            decimal.Decimal `db:"tax"`
	Total          decimal.Decimal `db:"total"`
	ShippingMethod string          `db:"shipping_method"`
	PromoCode      string          `db:"promo_code"`
	CreatedAt      time.Time       `db:"created_at"`
}

// GetByID returns the order with the given id, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, cart_id, email, lines,
		       subtotal, discount, shipping, tax, total,
		       shipping_method, promo_code, created_at
		FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("querying order %q: %w", id, err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[orderRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("scanning order %q: %w", id, err)
	}

	o := &order.Order{
		ID:             row.ID,
		CartID:         row.CartID,
		Email:          row.Email,
		Subtotal:       row.Subtotal,
		Discount:       row.Discount,
		Shipping:       row.Shipping,
		Tax:            row.Tax,
		Total:          row.Total,
		ShippingMethod: row.ShippingMethod,
		PromoCode:      row.PromoCode,
		CreatedAt:      row.CreatedAt,
	}
	if err := json.Unmarshal(row.Lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	return o, nil
}
