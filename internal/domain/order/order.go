package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is the receipt recorded when checkout completes. No payment is taken.
type Order struct {
	ID             string
	CartID         string
	Email          string
	Lines          []Line
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Shipping       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	ShippingMethod string
	PromoCode      string
	CreatedAt      time.Time
}

// Line is a purchased cart line, priced as it was in the cart.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Size      int             `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
