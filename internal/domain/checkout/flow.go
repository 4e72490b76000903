// Package checkout implements the three-step checkout flow and order
// placement.
package checkout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/denim-store/internal/domain/pricing"
)

// Step is a checkout stage. Steps advance and retreat one at a time.
type Step int

const (
	StepInformation Step = iota + 1
	StepShipping
	StepPayment
)

var stepNames = map[Step]string{
	StepInformation: "information",
	StepShipping:    "shipping",
	StepPayment:     "payment",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "step(" + strconv.Itoa(int(s)) + ")"
}

// ParseStep accepts a step name or its number.
func ParseStep(s string) (Step, error) {
	for step, name := range stepNames {
		if strings.EqualFold(s, name) || s == strconv.Itoa(int(step)) {
			return step, nil
		}
	}
	return 0, errors.Errorf("unknown checkout step %q", s)
}

// DefaultCountry is preselected in the shipping step.
const DefaultCountry = "United States"

// Information is the contact step.
type Information struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// Shipping is the delivery step.
type Shipping struct {
	Address string
	City    string
	State   string
	Zip     string
	Country string
	Method  pricing.ShippingMethod
}

// Payment is the card step. Values are opaque strings unless a
// PaymentValidator checks them.
type Payment struct {
	CardName   string
	CardNumber string
	ExpiryDate string
	CVV        string
}

// Form holds all checkout fields.
type Form struct {
	Information Information
	Shipping    Shipping
	Payment     Payment
}

// MissingFieldsError lists required fields of a step that are blank.
type MissingFieldsError struct {
	Step   Step
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Step, strings.Join(e.Fields, ", "))
}

// TransitionError reports an action that is not allowed from the current
// step.
type TransitionError struct {
	From   Step
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from %s step", e.Action, e.From)
}

// Flow is the checkout state of one cart.
type Flow struct {
	step Step
	form Form
}

// NewFlow returns a flow at the information step with defaults filled in.
func NewFlow() *Flow {
	f := &Flow{}
	f.Reset()
	return f
}

// Reset returns the flow to its initial state.
func (f *Flow) Reset() {
	f.step = StepInformation
	f.form = Form{
		Shipping: Shipping{Country: DefaultCountry, Method: pricing.ShippingStandard},
	}
}

// Step returns the current step.
func (f *Flow) Step() Step { return f.step }

// Form returns a copy of the entered fields.
func (f *Flow) Form() Form { return f.form }

// SetInformation replaces the contact fields.
func (f *Flow) SetInformation(v Information) error {
	return f.set(StepInformation, func() { f.form.Information = v })
}

// SetShipping replaces the delivery fields. An empty country or method keeps
// the default.
func (f *Flow) SetShipping(v Shipping) error {
	if v.Country == "" {
		v.Country = DefaultCountry
	}
	if v.Method == "" {
		v.Method = pricing.ShippingStandard
	}
	if _, err := pricing.ParseShippingMethod(string(v.Method)); err != nil {
		return err
	}
	return f.set(StepShipping, func() { f.form.Shipping = v })
}

// SetPayment replaces the card fields.
func (f *Flow) SetPayment(v Payment) error {
	return f.set(StepPayment, func() { f.form.Payment = v })
}

// Fields of steps not reached yet cannot be set.
func (f *Flow) set(step Step, apply func()) error {
	if step > f.step {
		return &TransitionError{From: f.step, Action: "edit " + step.String()}
	}
	apply()
	return nil
}

// Continue advances one step once the current step's required fields are
// present.
func (f *Flow) Continue() error {
	if f.step == StepPayment {
		return &TransitionError{From: f.step, Action: "continue"}
	}
	if err := f.validate(f.step); err != nil {
		return err
	}
	f.step++
	return nil
}

// Back retreats one step.
func (f *Flow) Back() error {
	if f.step == StepInformation {
		return &TransitionError{From: f.step, Action: "go back"}
	}
	f.step--
	return nil
}

// Missing returns the blank required fields of step.
func (f *Flow) Missing(step Step) []string {
	var (
		missing []string
		check   = func(name, v string) {
			if strings.TrimSpace(v) == "" {
				missing = append(missing, name)
			}
		}
	)

	switch step {
	case StepInformation:
		in := f.form.Information
		check("email", in.Email)
		check("firstName", in.FirstName)
		check("lastName", in.LastName)
	case StepShipping:
		sh := f.form.Shipping
		check("address", sh.Address)
		check("city", sh.City)
		check("state", sh.State)
		check("zip", sh.Zip)
		check("country", sh.Country)
	case StepPayment:
		p := f.form.Payment
		check("cardName", p.CardName)
		check("cardNumber", p.CardNumber)
		check("expiryDate", p.ExpiryDate)
		check("cvv", p.CVV)
	}
	return missing
}

func (f *Flow) validate(step Step) error {
	if missing := f.Missing(step); len(missing) > 0 {
		return &MissingFieldsError{Step: step, Fields: missing}
	}
	return nil
}
