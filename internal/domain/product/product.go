package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Fit is the cut/silhouette facet of a product.
type Fit string

const (
	FitSlim    Fit = "slim"
	FitRegular Fit = "regular"
	FitRelaxed Fit = "relaxed"
	FitWideLeg Fit = "wide-leg"
)

// Fits lists every fit in display order.
var Fits = []Fit{FitSlim, FitRegular, FitRelaxed, FitWideLeg}

// ParseFit validates s as a known fit.
func ParseFit(s string) (Fit, error) {
	for _, f := range Fits {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown fit %q", s)
}

// Wash is the dye/finish facet of a product.
type Wash string

const (
	WashLight  Wash = "light"
	WashMedium Wash = "medium"
	WashDark   Wash = "dark"
	WashBlack  Wash = "black"
)

// Washes lists every wash in display order.
var Washes = []Wash{WashLight, WashMedium, WashDark, WashBlack}

// ParseWash validates s as a known wash.
func ParseWash(s string) (Wash, error) {
	for _, w := range Washes {
		if string(w) == s {
			return w, nil
		}
	}
	return "", errors.Errorf("unknown wash %q", s)
}

// Flag names one of the independent merchandising flags of a product.
type Flag string

const (
	FlagFeatured   Flag = "featured"
	FlagNew        Flag = "new"
	FlagBestseller Flag = "bestseller"
)

// Color is a named color variant with its display value.
type Color struct {
	Name string
	Hex  string
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID            string
	Name          string
	Slug          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Fit           Fit
	Wash          Wash
	Sizes         []int
	Colors        []Color
	Images        []string
	Featured      bool
	New           bool
	Bestseller    bool
}

// Has reports whether the named flag is set.
func (p Product) Has(f Flag) bool {
	switch f {
	case FlagFeatured:
		return p.Featured
	case FlagNew:
		return p.New
	case FlagBestseller:
		return p.Bestseller
	default:
		return false
	}
}

// OnSale reports whether the product carries a markdown.
func (p Product) OnSale() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}

// Savings returns the markdown amount, or zero when not on sale.
func (p Product) Savings() decimal.Decimal {
	if !p.OnSale() {
		return decimal.Zero
	}
	return p.OriginalPrice.Decimal.Sub(p.Price)
}

// HasSize reports whether size is offered.
func (p Product) HasSize(size int) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// HasColor reports whether a color with the given name is offered.
func (p Product) HasColor(name string) bool {
	for _, c := range p.Colors {
		if c.Name == name {
			return true
		}
	}
	return false
}

// DefaultColor returns the first listed color name.
func (p Product) DefaultColor() string {
	if len(p.Colors) == 0 {
		return ""
	}
	return p.Colors[0].Name
}

// CoverImage returns the primary image reference.
func (p Product) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
