package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/denim-store/internal/domain/promo"
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

type promoRow struct {
	Code         string          `db:"code"`
	DiscountType string          `db:"discount_type"`
	Value        decimal.Decimal `db:"value"`
	MinItems     int32           `db:"min_items"`
	Description  string          `db:"description"`
	ValidFrom    *time.Time      `db:"valid_from"`
	ValidUntil   *time.Time      `db:"valid_until"`
	MaxUses      int32           `db:"max_uses"`
	Uses         int32           `db:"uses"`
	MaxDiscount  decimal.Decimal `db:"max_discount"`
}

// FindByCode looks up an active promo code. Returns promo.ErrInvalidCode
// when no matching active code exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, discount_type, value, min_items, description,
		       valid_from, valid_until, max_uses, uses, max_discount
		FROM promo_codes
		WHERE code = UPPER($1) AND active`, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[promoRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrInvalidCode
		}
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}

	return &promo.Rule{
		Code:         row.Code,
		DiscountType: promo.DiscountType(row.DiscountType),
		Value:        row.Value,
		MinItems:     int(row.MinItems),
		Description:  row.Description,
		ValidFrom:    row.ValidFrom,
		ValidUntil:   row.ValidUntil,
		MaxUses:      int(row.MaxUses),
		Uses:         int(row.Uses),
		MaxDiscount:  row.MaxDiscount,
	}, nil
}

// IncrementUses records one redemption of code.
func (r *PromoRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE promo_codes SET uses = uses + 1 WHERE code = UPPER($1)`, code)
	if err != nil {
		return fmt.Errorf("incrementing promo uses %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrInvalidCode
	}
	return nil
}

// Upsert inserts or replaces a promo rule. Existing usage counts are kept.
func (r *PromoRepository) Upsert(ctx context.Context, rule promo.Rule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO promo_codes (
			code, discount_type, value, min_items, description,
			valid_from, valid_until, max_uses, max_discount, active
		) VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value         = EXCLUDED.value,
			min_items     = EXCLUDED.min_items,
			description   = EXCLUDED.description,
			valid_from    = EXCLUDED.valid_from,
			valid_until   = EXCLUDED.valid_until,
			max_uses      = EXCLUDED.max_uses,
			max_discount  = EXCLUDED.max_discount,
			active        = TRUE`,
		rule.Code, string(rule.DiscountType), rule.Value, rule.MinItems, rule.Description,
		rule.ValidFrom, rule.ValidUntil, rule.MaxUses, rule.MaxDiscount,
	)
	if err != nil {
		return fmt.Errorf("upserting promo code %q: %w", rule.Code, err)
	}
	return nil
}
