package cart

import (
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/denim-store/internal/domain/product"
)

// ErrMalformedSnapshot is returned when a stored snapshot cannot be parsed.
var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

// EncodeSnapshot serializes items as a JSON array of
// {"product":{...},"size":N,"color":"...","quantity":N} records.
func EncodeSnapshot(items []LineItem) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("product")
		it.Product.Encode(e)
		e.FieldStart("size")
		e.Int(it.Size)
		e.FieldStart("color")
		e.Str(it.Color)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())
	return out
}

// DecodeSnapshot parses a snapshot written by EncodeSnapshot. Any structural
// mismatch, trailing data, a non-positive quantity, or a repeated line key is
// reported as ErrMalformedSnapshot.
func DecodeSnapshot(data []byte) ([]LineItem, error) {
	var items []LineItem
	seen := make(map[Key]struct{})

	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeLine(d)
		if err != nil {
			return err
		}
		if it.Quantity < 1 {
			return errors.Errorf("line %s: quantity %d", it.Product.ID, it.Quantity)
		}
		if _, dup := seen[it.Key()]; dup {
			return errors.Errorf("line %s: duplicate key", it.Product.ID)
		}
		seen[it.Key()] = struct{}{}
		items = append(items, it)
		return nil
	})
	if err == nil {
		// Only whitespace may follow the array.
		if skipErr := d.Skip(); skipErr != io.EOF {
			err = errors.New("trailing data after array")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return items, nil
}

func decodeLine(d *jx.Decoder) (LineItem, error) {
	var (
		it   LineItem
		seen struct{ product, size, color, quantity bool }
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product":
			var p product.Product
			err = p.Decode(d)
			it.Product = p
			seen.product = true
		case "size":
			it.Size, err = d.Int()
			seen.size = true
		case "color":
			it.Color, err = d.Str()
			seen.color = true
		case "quantity":
			it.Quantity, err = d.Int()
			seen.quantity = true
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return LineItem{}, err
	}
	if !seen.product || !seen.size || !seen.color || !seen.quantity {
		return LineItem{}, errors.New("incomplete line item")
	}
	return it, nil
}
