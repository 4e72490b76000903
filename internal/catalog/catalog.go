// Package catalog provides read-only access to the fixed product set.
package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/denim-store/internal/domain/product"
)

// Catalog is an immutable, ordered list of products. All query methods are
// side-effect free and safe for concurrent use.
type Catalog struct {
	products []product.Product
	bySlug   map[string]int
	byID     map[string]int
}

// New builds a Catalog from products after validating them. The slice is
// copied; later changes to it do not affect the catalog.
func New(products []product.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]product.Product, len(products)),
		bySlug:   make(map[string]int, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	copy(c.products, products)

	for i, p := range c.products {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, errors.Errorf("duplicate product slug %q", p.Slug)
		}
		c.byID[p.ID] = i
		c.bySlug[p.Slug] = i
	}

	return c, nil
}

// Load parses a JSON array of products and builds a Catalog from it.
func Load(data []byte) (*Catalog, error) {
	var products []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := p.Decode(d); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	return New(products)
}

func validate(p product.Product) error {
	switch {
	case p.ID == "":
		return errors.New("product id is empty")
	case p.Slug == "":
		return errors.Errorf("product %s: slug is empty", p.ID)
	case p.Price.IsNegative():
		return errors.Errorf("product %s: negative price", p.ID)
	case len(p.Sizes) == 0:
		return errors.Errorf("product %s: no sizes", p.ID)
	case len(p.Colors) == 0:
		return errors.Errorf("product %s: no colors", p.ID)
	case len(p.Images) == 0:
		return errors.Errorf("product %s: no images", p.ID)
	}

	for i, s := range p.Sizes {
		if s <= 0 {
			return errors.Errorf("product %s: size %d is not positive", p.ID, s)
		}
		if i > 0 && s <= p.Sizes[i-1] {
			return errors.Errorf("product %s: sizes must be ascending and distinct", p.ID)
		}
	}

	names := make(map[string]struct{}, len(p.Colors))
	for _, c := range p.Colors {
		if _, dup := names[c.Name]; dup {
			return errors.Errorf("product %s: duplicate color %q", p.ID, c.Name)
		}
		names[c.Name] = struct{}{}
	}
	return nil
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// List returns every product in catalog order.
func (c *Catalog) List() []product.Product {
	out := make([]product.Product, len(c.products))
	copy(out, c.products)
	return out
}

// FindBySlug returns the product with the given slug.
func (c *Catalog) FindBySlug(slug string) (product.Product, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return product.Product{}, false
	}
	return c.products[i], true
}

// FindByID returns the product with the given id.
func (c *Catalog) FindByID(id string) (product.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return product.Product{}, false
	}
	return c.products[i], true
}

// FilterByFlag returns all products with the named flag set, in catalog order.
func (c *Catalog) FilterByFlag(flag product.Flag) []product.Product {
	var out []product.Product
	for _, p := range c.products {
		if p.Has(flag) {
			out = append(out, p)
		}
	}
	return out
}

// FindRelated returns up to limit other products sharing the fit or the wash
// of p, in catalog order.
func (c *Catalog) FindRelated(p product.Product, limit int) []product.Product {
	if limit <= 0 {
		return nil
	}
	var out []product.Product
	for _, other := range c.products {
		if other.ID == p.ID {
			continue
		}
		if other.Fit != p.Fit && other.Wash != p.Wash {
			continue
		}
		out = append(out, other)
		if len(out) == limit {
			break
		}
	}
	return out
}
