// Package pricing computes order totals. Every surface that shows a total
// (cart page, cart preview, checkout) goes through Quote or Summarize.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ShippingMethod is the delivery speed chosen at checkout.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// ErrUnknownShippingMethod is returned by ParseShippingMethod.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

// ParseShippingMethod validates s. An empty string selects standard shipping.
func ParseShippingMethod(s string) (ShippingMethod, error) {
	switch ShippingMethod(s) {
	case "", ShippingStandard:
		return ShippingStandard, nil
	case ShippingExpress:
		return ShippingExpress, nil
	default:
		return "", errors.Wrapf(ErrUnknownShippingMethod, "%q", s)
	}
}

// Policy constants.
var (
	FreeShippingThreshold = decimal.NewFromInt(100)
	StandardFee           = decimal.RequireFromString("9.99")
	ExpressFee            = decimal.RequireFromString("19.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

// Totals is the breakdown of an order amount.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ShippingCost returns the fee for method at the given subtotal. Orders at or
// above the free shipping threshold ship free regardless of method.
func ShippingCost(subtotal decimal.Decimal, method ShippingMethod) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	if method == ShippingExpress {
		return ExpressFee
	}
	return StandardFee
}

// Tax returns the flat-rate tax on subtotal rounded to cents.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}

// Quote computes shipping, tax and total for subtotal.
func Quote(subtotal decimal.Decimal, method ShippingMethod) Totals {
	shipping := ShippingCost(subtotal, method)
	tax := Tax(subtotal)
	return Totals{
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Summarize applies a promo discount to subtotal, floored at zero, and quotes
// the discounted amount. Shipping and tax are computed on the discounted
// subtotal.
func Summarize(subtotal, discount decimal.Decimal, method ShippingMethod) Totals {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	discount = discount.Round(2)

	t := Quote(subtotal.Sub(discount), method)
	t.Subtotal = subtotal
	t.Discount = discount
	return t
}

// FreeShippingRemaining returns how much more must be spent to reach free
// shipping, or zero once the threshold is met.
func FreeShippingRemaining(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FreeShippingThreshold.Sub(subtotal)
}
