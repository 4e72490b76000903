package promoingest

import (
	"context"
	"log/slog"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/denim-store/internal/domain/promo"
)

// KnownRules maps codes with a dedicated discount to their rule. Every other
// valid code gets DefaultRule.
var KnownRules = map[string]promo.Rule{
	"DENIMDAY": {
		DiscountType: promo.DiscountPercentage,
		Value:        decimal.NewFromInt(20),
		Description:  "Denim day: 20% off",
	},
	"PAIRUP22": {
		DiscountType: promo.DiscountFreeLowest,
		MinItems:     2,
		Description:  "Lowest priced pair free (buy 2+)",
	},
	"RAWHEM25": {
		DiscountType: promo.DiscountFixed,
		Value:        decimal.NewFromInt(25),
		MinItems:     1,
		Description:  "$25 off your order",
	},
}

// DefaultRule applies to valid codes without a dedicated rule.
var DefaultRule = promo.Rule{
	DiscountType: promo.DiscountPercentage,
	Value:        decimal.NewFromInt(10),
	Description:  "Valid promo code: 10% off",
}

// RuleFor returns the rule stored for code.
func RuleFor(code string) promo.Rule {
	code = promo.NormalizeCode(code)
	r, ok := KnownRules[code]
	if !ok {
		r = DefaultRule
	}
	r.Code = code
	return r
}

// Writer persists promo rules.
type Writer interface {
	Upsert(ctx context.Context, rule promo.Rule) error
}

// Write upserts the rule of every code.
func Write(ctx context.Context, w Writer, codes []string, lg *slog.Logger) error {
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	lg.Info("writing promo codes", slog.Int("count", len(codes)))

	for i, code := range codes {
		if err := w.Upsert(ctx, RuleFor(code)); err != nil {
			return errors.Wrapf(err, "upsert promo %s", code)
		}
		if (i+1)%100 == 0 || i+1 == len(codes) {
			lg.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}
	return nil
}
