package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/denim-store/internal/browse"
	"github.com/xenking/denim-store/internal/domain/product"
)

type colorDTO struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

type productDTO struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Description   string       `json:"description"`
	Price         json.Number  `json:"price"`
	OriginalPrice *json.Number `json:"originalPrice,omitempty"`
	OnSale        bool         `json:"onSale"`
	Savings       json.Number  `json:"savings"`
	Fit           product.Fit  `json:"fit"`
	Wash          product.Wash `json:"wash"`
	Sizes         []int        `json:"sizes"`
	Colors        []colorDTO   `json:"colors"`
	Images        []string     `json:"images"`
	Featured      bool         `json:"featured"`
	New           bool         `json:"new"`
	Bestseller    bool         `json:"bestseller"`
}

func toProductDTO(p product.Product) productDTO {
	dto := productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       money(p.Price),
		OnSale:      p.OnSale(),
		Savings:     money(p.Savings()),
		Fit:         p.Fit,
		Wash:        p.Wash,
		Sizes:       p.Sizes,
		Colors:      make([]colorDTO, len(p.Colors)),
		Images:      p.Images,
		Featured:    p.Featured,
		New:         p.New,
		Bestseller:  p.Bestseller,
	}
	if p.OriginalPrice.Valid {
		orig := money(p.OriginalPrice.Decimal)
		dto.OriginalPrice = &orig
	}
	for i, c := range p.Colors {
		dto.Colors[i] = colorDTO{Name: c.Name, Hex: c.Hex}
	}
	return dto
}

type productListResponse struct {
	Products []productDTO `json:"products"`
	Total    int          `json:"total"`
}

func toProductList(products []product.Product) productListResponse {
	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = toProductDTO(p)
	}
	return productListResponse{Products: out, Total: len(out)}
}

// ListProducts runs the filter and sort pipeline over the catalog.
//
// Query: fit, wash, size (repeatable or comma separated), min_price,
// max_price, new=true, sort.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	criteria, key, err := parseBrowseQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductList(browse.Apply(h.catalog.List(), criteria, key)))
}

func (h *Handler) listFlag(flag product.Flag) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, toProductList(h.catalog.FilterByFlag(flag)))
	}
}

// GetProduct returns a product by slug.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.FindBySlug(r.PathValue("slug"))
	if !ok {
		writeError(w, r, errors.Wrapf(product.ErrNotFound, "%q", r.PathValue("slug")))
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// RelatedProducts returns products sharing the fit or wash of a product.
func (h *Handler) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.FindBySlug(r.PathValue("slug"))
	if !ok {
		writeError(w, r, errors.Wrapf(product.ErrNotFound, "%q", r.PathValue("slug")))
		return
	}

	limit := h.cfg.RelatedLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errInvalidQuery))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, toProductList(h.catalog.FindRelated(p, limit)))
}

type priceRangeDTO struct {
	Min json.Number `json:"min"`
	Max json.Number `json:"max"`
}

type filtersResponse struct {
	Fits     []product.Fit    `json:"fits"`
	Washes   []product.Wash   `json:"washes"`
	Sizes    []int            `json:"sizes"`
	Price    priceRangeDTO    `json:"price"`
	SortKeys []browse.SortKey `json:"sortKeys"`
}

// Filters returns the options of the filter sidebar.
func (h *Handler) Filters(w http.ResponseWriter, _ *http.Request) {
	f := browse.FacetOptions()
	writeJSON(w, http.StatusOK, filtersResponse{
		Fits:     f.Fits,
		Washes:   f.Washes,
		Sizes:    f.Sizes,
		Price:    priceRangeDTO{Min: money(f.Price.Min), Max: money(f.Price.Max)},
		SortKeys: f.SortKeys,
	})
}

// listValues accepts both repeated keys and comma separated values.
func listValues(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseBrowseQuery(q url.Values) (browse.Criteria, browse.SortKey, error) {
	c := browse.DefaultCriteria()
	invalid := func(field string, err error) error {
		return fmt.Errorf("%w: %s: %v", errInvalidQuery, field, err)
	}

	for _, s := range listValues(q, "fit") {
		f, err := product.ParseFit(s)
		if err != nil {
			return c, "", invalid("fit", err)
		}
		c.Fits[f] = struct{}{}
	}
	for _, s := range listValues(q, "wash") {
		wash, err := product.ParseWash(s)
		if err != nil {
			return c, "", invalid("wash", err)
		}
		c.Washes[wash] = struct{}{}
	}
	for _, s := range listValues(q, "size") {
		n, err := strconv.Atoi(s)
		if err != nil {
			return c, "", invalid("size", err)
		}
		c.Sizes[n] = struct{}{}
	}
	if s := q.Get("min_price"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return c, "", invalid("min_price", err)
		}
		c.Price.Min = d
	}
	if s := q.Get("max_price"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return c, "", invalid("max_price", err)
		}
		c.Price.Max = d
	}
	if s := q.Get("new"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return c, "", invalid("new", err)
		}
		c.NewOnly = b
	}

	key, err := browse.ParseSortKey(q.Get("sort"))
	if err != nil {
		return c, "", err
	}
	return c, key, nil
}
