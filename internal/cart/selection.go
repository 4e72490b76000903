package cart

import (
	"github.com/go-faster/errors"

	"github.com/xenking/denim-store/internal/domain/product"
)

var (
	// ErrSizeRequired is returned when no size was chosen.
	ErrSizeRequired = errors.New("please select a size")
	// ErrUnknownSize is returned for a size the product is not offered in.
	ErrUnknownSize = errors.New("size not available")
	// ErrUnknownColor is returned for a color the product is not offered in.
	ErrUnknownColor = errors.New("color not available")
)

// Select validates a size and color choice for p. An empty color selects the
// product's first color.
func Select(p product.Product, size int, color string) (string, error) {
	if size == 0 {
		return "", ErrSizeRequired
	}
	if !p.HasSize(size) {
		return "", errors.Wrapf(ErrUnknownSize, "%s in size %d", p.Name, size)
	}
	if color == "" {
		return p.DefaultColor(), nil
	}
	if !p.HasColor(color) {
		return "", errors.Wrapf(ErrUnknownColor, "%s in %q", p.Name, color)
	}
	return color, nil
}
