package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/denim-store/internal/domain/product"
)

// Key identifies a cart line. Two lines of the same product with a
// different size or color are distinct.
type Key struct {
	ProductID string
	Size      int
	Color     string
}

// LineItem is one (product, size, color) entry with its quantity. Product is
// a copy taken when the line was added; prices are not refreshed.
type LineItem struct {
	Product  product.Product
	Size     int
	Color    string
	Quantity int
}

// Key returns the identity of the line.
func (l LineItem) Key() Key {
	return Key{ProductID: l.Product.ID, Size: l.Size, Color: l.Color}
}

// LineTotal returns price × quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// TotalItems returns the sum of quantities over items.
func TotalItems(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// TotalPrice returns the sum of line totals over items.
func TotalPrice(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
