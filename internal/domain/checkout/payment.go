package checkout

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidCardNumber is returned for a malformed or checksum-failing
	// card number.
	ErrInvalidCardNumber = errors.New("invalid card number")
	// ErrInvalidExpiry is returned for a malformed or past expiry date.
	ErrInvalidExpiry = errors.New("invalid expiry date")
	// ErrInvalidCVV is returned for a CVV that is not 3 or 4 digits.
	ErrInvalidCVV = errors.New("invalid cvv")
)

// PaymentValidator checks card details before an order is placed.
type PaymentValidator interface {
	ValidatePayment(p Payment) error
}

// PresenceValidator accepts any non-blank card details.
type PresenceValidator struct{}

// ValidatePayment implements PaymentValidator.
func (PresenceValidator) ValidatePayment(p Payment) error {
	f := Flow{form: Form{Payment: p}}
	if missing := f.Missing(StepPayment); len(missing) > 0 {
		return &MissingFieldsError{Step: StepPayment, Fields: missing}
	}
	return nil
}

// LuhnValidator checks the card number checksum, an MM/YY expiry that has
// not passed, and a 3 or 4 digit CVV.
type LuhnValidator struct {
	Now func() time.Time
}

// ValidatePayment implements PaymentValidator.
func (v LuhnValidator) ValidatePayment(p Payment) error {
	if err := (PresenceValidator{}).ValidatePayment(p); err != nil {
		return err
	}

	digits := strings.NewReplacer(" ", "", "-", "").Replace(p.CardNumber)
	if len(digits) < 12 || len(digits) > 19 || !isDigits(digits) || !luhn(digits) {
		return ErrInvalidCardNumber
	}

	if err := v.checkExpiry(strings.TrimSpace(p.ExpiryDate)); err != nil {
		return err
	}

	cvv := strings.TrimSpace(p.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || !isDigits(cvv) {
		return ErrInvalidCVV
	}
	return nil
}

func (v LuhnValidator) checkExpiry(s string) error {
	mm, yy, ok := strings.Cut(s, "/")
	if !ok || len(mm) != 2 || len(yy) != 2 || !isDigits(mm) || !isDigits(yy) {
		return ErrInvalidExpiry
	}
	month, _ := strconv.Atoi(mm)
	year, _ := strconv.Atoi(yy)
	if month < 1 || month > 12 {
		return ErrInvalidExpiry
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	// Cards are valid through the last day of the expiry month.
	expires := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now().UTC().Before(expires) {
		return ErrInvalidExpiry
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
