package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		rule        *Rule
		items       []Item
		wantAmount  decimal.Decimal
		wantErr     error
		wantErrText string
	}{
		{
			name:       "percentage off subtotal",
			rule:       &Rule{Code: "DENIM15", DiscountType: DiscountPercentage, Value: d("15")},
			items:      []Item{{ProductID: "1", Price: d("89.99"), Quantity: 2}},
			wantAmount: d("27.00"),
		},
		{
			name: "percentage capped by max discount",
			rule: &Rule{
				Code:         "HALF",
				DiscountType: DiscountPercentage,
				Value:        d("50"),
				MaxDiscount:  d("40"),
			},
			items:      []Item{{ProductID: "8", Price: d("149.99"), Quantity: 1}},
			wantAmount: d("40"),
		},
		{
			name:       "fixed amount",
			rule:       &Rule{Code: "TENOFF", DiscountType: DiscountFixed, Value: d("10")},
			items:      []Item{{ProductID: "3", Price: d("79.99"), Quantity: 1}},
			wantAmount: d("10"),
		},
		{
			name:       "fixed amount capped at subtotal",
			rule:       &Rule{Code: "BIG", DiscountType: DiscountFixed, Value: d("500")},
			items:      []Item{{ProductID: "3", Price: d("79.99"), Quantity: 1}},
			wantAmount: d("79.99"),
		},
		{
			name: "free lowest takes one unit of the cheapest line",
			rule: &Rule{Code: "FREEPAIR", DiscountType: DiscountFreeLowest, MinItems: 3},
			items: []Item{
				{ProductID: "2", Price: d("109.99"), Quantity: 1},
				{ProductID: "7", Price: d("84.99"), Quantity: 2},
			},
			wantAmount: d("84.99"),
		},
		{
			name:    "min items not met",
			rule:    &Rule{Code: "FREEPAIR", DiscountType: DiscountFreeLowest, MinItems: 3},
			items:   []Item{{ProductID: "2", Price: d("109.99"), Quantity: 2}},
			wantErr: ErrInvalidCode,
		},
		{
			name:       "free lowest on empty cart",
			rule:       &Rule{Code: "FREEPAIR", DiscountType: DiscountFreeLowest},
			wantAmount: d("0"),
		},
		{
			name:        "unsupported type",
			rule:        &Rule{Code: "BOGO", DiscountType: "bogo"},
			items:       []Item{{ProductID: "1", Price: d("10"), Quantity: 1}},
			wantErrText: "unsupported discount type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.rule, tt.items)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				return
			case tt.wantErrText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrText)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.rule.Code, got.Code)
			assert.True(t, tt.wantAmount.Equal(got.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}

func TestParseDiscountType(t *testing.T) {
	got, err := ParseDiscountType("free_lowest")
	require.NoError(t, err)
	assert.Equal(t, DiscountFreeLowest, got)

	_, err = ParseDiscountType("bogo")
	require.Error(t, err)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "DENIM15", NormalizeCode("  denim15 "))
	assert.Equal(t, "", NormalizeCode("   "))
}
