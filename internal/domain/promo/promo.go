// Package promo validates promotional codes and computes the discount they
// grant on a cart.
package promo

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promo discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeLowest makes one unit of the cheapest item free.
	DiscountFreeLowest DiscountType = "free_lowest"
)

// ParseDiscountType validates s as a known discount type.
func ParseDiscountType(s string) (DiscountType, error) {
	switch t := DiscountType(s); t {
	case DiscountPercentage, DiscountFixed, DiscountFreeLowest:
		return t, nil
	default:
		return "", errors.Errorf("unsupported discount type: %q", s)
	}
}

var (
	// ErrInvalidCode is returned when a code is unknown, inactive, or the
	// cart does not meet its minimum item count.
	ErrInvalidCode = errors.New("invalid promo code")
	// ErrExpired is returned outside a code's validity window.
	ErrExpired = errors.New("promo code expired")
	// ErrUsageLimitReached is returned when a code has no uses left.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
)

// Rule defines a code's discount and eligibility constraints. A zero
// MaxUses means unlimited; a zero MaxDiscount means uncapped.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinItems     int
	Description  string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	MaxUses      int
	Uses         int
	MaxDiscount  decimal.Decimal
}

// Discount is the computed reduction and its description.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Item is a cart line reduced to what discount rules need.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides lookup and usage accounting of promo rules. Codes
// passed to it are already normalized.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}

// NormalizeCode canonicalizes a user-entered code. Codes are matched
// case-insensitively.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
