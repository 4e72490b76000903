package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator checks a code against cart items. Validate has no side effects
// so it can back a summary preview; Redeem records one use and is called
// once the order is placed.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
	Redeem(ctx context.Context, code string) error
}

// RepoValidator implements Validator on top of a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by repo.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for code, checks its validity window and usage
// limit, and applies it to items.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup promo code")
	}

	now := v.now()
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return nil, ErrUsageLimitReached
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Redeem increments the usage counter of code.
func (v *RepoValidator) Redeem(ctx context.Context, code string) error {
	if err := v.repo.IncrementUses(ctx, NormalizeCode(code)); err != nil {
		return errors.Wrap(err, "increment promo uses")
	}
	return nil
}
