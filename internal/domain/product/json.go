package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes p as a JSON object using the storefront field names.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	if p.OriginalPrice.Valid {
		e.FieldStart("originalPrice")
		encodeDecimal(e, p.OriginalPrice.Decimal)
	}
	e.FieldStart("fit")
	e.Str(string(p.Fit))
	e.FieldStart("wash")
	e.Str(string(p.Wash))
	e.FieldStart("sizes")
	e.ArrStart()
	for _, s := range p.Sizes {
		e.Int(s)
	}
	e.ArrEnd()
	e.FieldStart("colors")
	e.ArrStart()
	for _, c := range p.Colors {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(c.Name)
		e.FieldStart("hex")
		e.Str(c.Hex)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(img)
	}
	e.ArrEnd()
	e.FieldStart("featured")
	e.Bool(p.Featured)
	e.FieldStart("new")
	e.Bool(p.New)
	e.FieldStart("bestseller")
	e.Bool(p.Bestseller)
	e.ObjEnd()
}

// Decode reads a JSON product object. Unknown fields are skipped; a missing
// id, slug or price, or a wrongly typed field, is an error.
func (p *Product) Decode(d *jx.Decoder) error {
	var seen struct{ id, slug, price bool }

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
			seen.id = true
		case "name":
			p.Name, err = d.Str()
		case "slug":
			p.Slug, err = d.Str()
			seen.slug = true
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
			seen.price = true
		case "originalPrice":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			p.OriginalPrice = decimal.NewNullDecimal(v)
		case "fit":
			var s string
			if s, err = d.Str(); err == nil {
				p.Fit, err = ParseFit(s)
			}
		case "wash":
			var s string
			if s, err = d.Str(); err == nil {
				p.Wash, err = ParseWash(s)
			}
		case "sizes":
			p.Sizes = p.Sizes[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := d.Int()
				if err != nil {
					return err
				}
				p.Sizes = append(p.Sizes, v)
				return nil
			})
		case "colors":
			p.Colors = p.Colors[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				var c Color
				if err := c.decode(d); err != nil {
					return err
				}
				p.Colors = append(p.Colors, c)
				return nil
			})
		case "images":
			p.Images = p.Images[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				p.Images = append(p.Images, v)
				return nil
			})
		case "featured":
			p.Featured, err = d.Bool()
		case "new":
			p.New, err = d.Bool()
		case "bestseller":
			p.Bestseller, err = d.Bool()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "decode product")
	}

	switch {
	case !seen.id:
		return errors.New("decode product: missing id")
	case !seen.slug:
		return errors.Errorf("decode product %s: missing slug", p.ID)
	case !seen.price:
		return errors.Errorf("decode product %s: missing price", p.ID)
	}
	return nil
}

func (c *Color) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "hex":
			c.Hex, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	})
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}
