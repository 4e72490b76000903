// Package browse implements the catalog filter and sort pipeline used by the
// shop listing.
package browse

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/denim-store/internal/domain/product"
)

// SortKey selects the ordering of a browse result.
type SortKey string

const (
	SortFeatured   SortKey = "featured"
	SortNewest     SortKey = "newest"
	SortBestseller SortKey = "bestseller"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
)

// SortKeys lists every supported sort key in menu order.
var SortKeys = []SortKey{SortFeatured, SortNewest, SortBestseller, SortPriceLow, SortPriceHigh}

// ErrUnknownSort is returned by ParseSortKey for unsupported keys.
var ErrUnknownSort = errors.New("unknown sort key")

// ParseSortKey validates s. An empty string selects SortFeatured.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortFeatured, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownSort, "%q", s)
}

// PriceRange is an inclusive price interval.
type PriceRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Contains reports whether price lies within the range, bounds included.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

// Criteria are the conjunctive filters of a browse request. An empty set
// places no constraint on its dimension; Price always applies.
type Criteria struct {
	Fits    map[product.Fit]struct{}
	Washes  map[product.Wash]struct{}
	Sizes   map[int]struct{}
	Price   PriceRange
	NewOnly bool
}

var (
	defaultMinPrice = decimal.Zero
	defaultMaxPrice = decimal.NewFromInt(200)
)

// DefaultCriteria returns criteria that let every catalog product through:
// no facet constraints and the full [0, 200] price slider.
func DefaultCriteria() Criteria {
	return Criteria{
		Fits:   map[product.Fit]struct{}{},
		Washes: map[product.Wash]struct{}{},
		Sizes:  map[int]struct{}{},
		Price:  PriceRange{Min: defaultMinPrice, Max: defaultMaxPrice},
	}
}

// Match reports whether p passes every criterion.
func (c Criteria) Match(p product.Product) bool {
	if len(c.Fits) > 0 {
		if _, ok := c.Fits[p.Fit]; !ok {
			return false
		}
	}
	if len(c.Washes) > 0 {
		if _, ok := c.Washes[p.Wash]; !ok {
			return false
		}
	}
	if len(c.Sizes) > 0 && !slices.ContainsFunc(p.Sizes, func(s int) bool {
		_, ok := c.Sizes[s]
		return ok
	}) {
		return false
	}
	if !c.Price.Contains(p.Price) {
		return false
	}
	if c.NewOnly && !p.New {
		return false
	}
	return true
}

// Apply filters products by c and orders the result by key. The input is
// never modified. Ordering is stable: products comparing equal keep their
// input order.
func Apply(products []product.Product, c Criteria, key SortKey) []product.Product {
	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		if c.Match(p) {
			out = append(out, p)
		}
	}

	switch key {
	case SortNewest:
		slices.SortStableFunc(out, flagFirst(product.FlagNew))
	case SortBestseller:
		slices.SortStableFunc(out, flagFirst(product.FlagBestseller))
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return b.Price.Cmp(a.Price)
		})
	}
	return out
}

func flagFirst(f product.Flag) func(a, b product.Product) int {
	return func(a, b product.Product) int {
		switch ha, hb := a.Has(f), b.Has(f); {
		case ha == hb:
			return 0
		case ha:
			return -1
		default:
			return 1
		}
	}
}

// Facets lists the options offered by the filter sidebar.
type Facets struct {
	Fits     []product.Fit
	Washes   []product.Wash
	Sizes    []int
	Price    PriceRange
	SortKeys []SortKey
}

var facetSizes = []int{26, 27, 28, 29, 30, 31, 32, 33, 34, 36, 38, 40}

// FacetOptions returns the fixed filter options.
func FacetOptions() Facets {
	return Facets{
		Fits:     slices.Clone(product.Fits),
		Washes:   slices.Clone(product.Washes),
		Sizes:    slices.Clone(facetSizes),
		Price:    PriceRange{Min: defaultMinPrice, Max: defaultMaxPrice},
		SortKeys: slices.Clone(SortKeys),
	}
}
