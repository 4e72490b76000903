package promo

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DecodeRules parses a JSON array of promo rules:
//
//	[{"code":"DENIM15","type":"percentage","value":15,"minItems":0,
//	  "description":"...","validUntil":"2027-01-01T00:00:00Z","maxUses":100}]
//
// Codes are normalized. Usage counts are never read from seed data.
func DecodeRules(data []byte) ([]Rule, error) {
	var rules []Rule
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var r Rule
		if err := r.decode(d); err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse promo rules")
	}
	return rules, nil
}

func (r *Rule) decode(d *jx.Decoder) error {
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			var s string
			s, err = d.Str()
			r.Code = NormalizeCode(s)
		case "type":
			var s string
			if s, err = d.Str(); err == nil {
				r.DiscountType, err = ParseDiscountType(s)
			}
		case "value":
			r.Value, err = decodeDecimal(d)
		case "maxDiscount":
			r.MaxDiscount, err = decodeDecimal(d)
		case "minItems":
			r.MinItems, err = d.Int()
		case "maxUses":
			r.MaxUses, err = d.Int()
		case "description":
			r.Description, err = d.Str()
		case "validFrom":
			r.ValidFrom, err = decodeTime(d)
		case "validUntil":
			r.ValidUntil, err = decodeTime(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "decode promo rule")
	}
	switch {
	case r.Code == "":
		return errors.New("decode promo rule: missing code")
	case r.DiscountType == "":
		return errors.Errorf("decode promo rule %s: missing type", r.Code)
	}
	return nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}

func decodeTime(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
