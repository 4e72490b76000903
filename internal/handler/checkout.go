package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/denim-store/internal/domain/checkout"
	"github.com/xenking/denim-store/internal/domain/order"
	"github.com/xenking/denim-store/internal/domain/pricing"
	"github.com/xenking/denim-store/internal/session"
)

type informationDTO struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type shippingDTO struct {
	Address string                 `json:"address"`
	City    string                 `json:"city"`
	State   string                 `json:"state"`
	Zip     string                 `json:"zip"`
	Country string                 `json:"country"`
	Method  pricing.ShippingMethod `json:"method"`
}

type paymentDTO struct {
	CardName   string `json:"cardName"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv,omitempty"`
}

type formDTO struct {
	Information informationDTO `json:"information"`
	Shipping    shippingDTO    `json:"shipping"`
	Payment     paymentDTO     `json:"payment"`
}

type checkoutResponse struct {
	Step     int      `json:"step"`
	StepName string   `json:"stepName"`
	Form     formDTO  `json:"form"`
	Missing  []string `json:"missing"`
}

// maskCard keeps the last four digits of a card number.
func maskCard(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 {
		return digits
	}
	return "**** " + digits[len(digits)-4:]
}

func toCheckoutResponse(f *checkout.Flow) checkoutResponse {
	form := f.Form()
	missing := f.Missing(f.Step())
	if missing == nil {
		missing = []string{}
	}
	return checkoutResponse{
		Step:     int(f.Step()),
		StepName: f.Step().String(),
		Form: formDTO{
			Information: informationDTO(form.Information),
			Shipping:    shippingDTO(form.Shipping),
			Payment: paymentDTO{
				CardName:   form.Payment.CardName,
				CardNumber: maskCard(form.Payment.CardNumber),
				ExpiryDate: form.Payment.ExpiryDate,
			},
		},
		Missing: missing,
	}
}

// GetCheckout returns the checkout step and entered fields. Card numbers are
// masked and the CVV is never returned.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(_ context.Context, s *session.Session) error {
		writeJSON(w, http.StatusOK, toCheckoutResponse(s.Checkout))
		return nil
	})
}

// SetCheckoutStep replaces the fields of one step. Steps ahead of the
// current one cannot be edited.
func (h *Handler) SetCheckoutStep(w http.ResponseWriter, r *http.Request) {
	step, err := checkout.ParseStep(r.PathValue("step"))
	if err != nil {
		writeError(w, r, errors.Wrap(errInvalidQuery, err.Error()))
		return
	}

	var apply func(f *checkout.Flow) error
	switch step {
	case checkout.StepInformation:
		var req informationDTO
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		apply = func(f *checkout.Flow) error { return f.SetInformation(checkout.Information(req)) }
	case checkout.StepShipping:
		var req shippingDTO
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		apply = func(f *checkout.Flow) error { return f.SetShipping(checkout.Shipping(req)) }
	case checkout.StepPayment:
		var req paymentDTO
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		apply = func(f *checkout.Flow) error { return f.SetPayment(checkout.Payment(req)) }
	}

	h.withSession(w, r, func(_ context.Context, s *session.Session) error {
		if err := apply(s.Checkout); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, toCheckoutResponse(s.Checkout))
		return nil
	})
}

// ContinueCheckout advances to the next step.
func (h *Handler) ContinueCheckout(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(_ context.Context, s *session.Session) error {
		if err := s.Checkout.Continue(); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, toCheckoutResponse(s.Checkout))
		return nil
	})
}

// BackCheckout returns to the previous step.
func (h *Handler) BackCheckout(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(_ context.Context, s *session.Session) error {
		if err := s.Checkout.Back(); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, toCheckoutResponse(s.Checkout))
		return nil
	})
}

type orderLineDTO struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Size      int         `json:"size"`
	Color     string      `json:"color"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
}

type orderResponse struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Lines          []orderLineDTO `json:"lines"`
	Subtotal       json.Number    `json:"subtotal"`
	Discount       json.Number    `json:"discount"`
	Shipping       json.Number    `json:"shipping"`
	Tax            json.Number    `json:"tax"`
	Total          json.Number    `json:"total"`
	ShippingMethod string         `json:"shippingMethod"`
	PromoCode      string         `json:"promoCode,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]orderLineDTO, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
		}
	}
	return orderResponse{
		ID:             o.ID,
		Email:          o.Email,
		Lines:          lines,
		Subtotal:       money(o.Subtotal),
		Discount:       money(o.Discount),
		Shipping:       money(o.Shipping),
		Tax:            money(o.Tax),
		Total:          money(o.Total),
		ShippingMethod: o.ShippingMethod,
		PromoCode:      o.PromoCode,
		CreatedAt:      o.CreatedAt,
	}
}

// PlaceOrder completes checkout. The body may carry a promo code.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PromoCode string `json:"promoCode"`
	}
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, err)
		return
	}

	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		o, err := h.checkout.PlaceOrder(ctx, checkout.PlaceOrderRequest{
			CartID:    s.ID,
			Cart:      s.Cart,
			Flow:      s.Checkout,
			PromoCode: req.PromoCode,
		})
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, toOrderResponse(o))
		return nil
	})
}

// GetOrder returns a receipt placed from the caller's cart.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		o, err := h.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.CartID != s.ID {
			return errors.Wrapf(order.ErrNotFound, "%q", id)
		}
		writeJSON(w, http.StatusOK, toOrderResponse(o))
		return nil
	})
}
