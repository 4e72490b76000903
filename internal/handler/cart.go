package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/denim-store/internal/cart"
	"github.com/xenking/denim-store/internal/domain/checkout"
	"github.com/xenking/denim-store/internal/domain/pricing"
	"github.com/xenking/denim-store/internal/domain/product"
	"github.com/xenking/denim-store/internal/session"
)

type lineDTO struct {
	Product   productDTO  `json:"product"`
	Size      int         `json:"size"`
	Color     string      `json:"color"`
	Quantity  int         `json:"quantity"`
	LineTotal json.Number `json:"lineTotal"`
}

type promoDTO struct {
	Code        string      `json:"code"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

type summaryDTO struct {
	Subtotal              json.Number            `json:"subtotal"`
	Discount              json.Number            `json:"discount"`
	Shipping              json.Number            `json:"shipping"`
	Tax                   json.Number            `json:"tax"`
	Total                 json.Number            `json:"total"`
	ShippingMethod        pricing.ShippingMethod `json:"shippingMethod"`
	FreeShippingRemaining json.Number            `json:"freeShippingRemaining"`
	Promo                 *promoDTO              `json:"promo,omitempty"`
}

type cartResponse struct {
	Items      []lineDTO   `json:"items"`
	TotalItems int         `json:"totalItems"`
	TotalPrice json.Number `json:"totalPrice"`
	IsOpen     bool        `json:"isOpen"`
	Summary    summaryDTO  `json:"summary"`
}

func toSummaryDTO(s *checkout.Summary, method pricing.ShippingMethod) summaryDTO {
	dto := summaryDTO{
		Subtotal:              money(s.Totals.Subtotal),
		Discount:              money(s.Totals.Discount),
		Shipping:              money(s.Totals.Shipping),
		Tax:                   money(s.Totals.Tax),
		Total:                 money(s.Totals.Total),
		ShippingMethod:        method,
		FreeShippingRemaining: money(s.FreeShippingRemaining),
	}
	if s.Promo != nil {
		dto.Promo = &promoDTO{
			Code:        s.Promo.Code,
			Amount:      money(s.Promo.Amount),
			Description: s.Promo.Description,
		}
	}
	return dto
}

// cartView prices the session cart with the shipping method chosen in
// checkout, so every surface shows the same totals.
func (h *Handler) cartView(ctx context.Context, s *session.Session) (cartResponse, error) {
	items := s.Cart.Items()
	method := s.Checkout.Form().Shipping.Method

	summary, err := h.checkout.Summarize(ctx, items, "", method)
	if err != nil {
		return cartResponse{}, err
	}

	lines := make([]lineDTO, len(items))
	for i, it := range items {
		lines[i] = lineDTO{
			Product:   toProductDTO(it.Product),
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			LineTotal: money(it.LineTotal()),
		}
	}
	return cartResponse{
		Items:      lines,
		TotalItems: s.Cart.TotalItems(),
		TotalPrice: money(s.Cart.TotalPrice()),
		IsOpen:     s.Cart.IsOpen(),
		Summary:    toSummaryDTO(summary, method),
	}, nil
}

func (h *Handler) respondCart(ctx context.Context, w http.ResponseWriter, s *session.Session) error {
	view, err := h.cartView(ctx, s)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, view)
	return nil
}

// GetCart returns the caller's cart, issuing a new one when needed.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		return h.respondCart(ctx, w, s)
	})
}

type lineRequest struct {
	ProductID string `json:"productId"`
	Size      int    `json:"size"`
	Color     string `json:"color"`
	Quantity  *int   `json:"quantity,omitempty"`
}

func (h *Handler) findProduct(id string) (product.Product, error) {
	p, ok := h.catalog.FindByID(id)
	if !ok {
		return product.Product{}, errors.Wrapf(product.ErrNotFound, "%q", id)
	}
	return p, nil
}

// AddItem adds a product selection to the cart. Quantity defaults to one.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		p, err := h.findProduct(req.ProductID)
		if err != nil {
			return err
		}
		color, err := cart.Select(p, req.Size, req.Color)
		if err != nil {
			return err
		}
		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		if err := s.Cart.AddItem(ctx, p, req.Size, color, qty); err != nil {
			return err
		}
		return h.respondCart(ctx, w, s)
	})
}

// UpdateItem sets the quantity of a line. Zero or less removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity == nil {
		writeError(w, r, errors.Wrap(errInvalidBody, "quantity is required"))
		return
	}

	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		if err := s.Cart.UpdateQuantity(ctx, req.ProductID, req.Size, req.Color, *req.Quantity); err != nil {
			return err
		}
		return h.respondCart(ctx, w, s)
	})
}

// RemoveItem deletes a line identified by the productId, size and color
// query parameters. Removing an absent line is not an error.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil {
		writeError(w, r, errors.Wrap(errInvalidQuery, "size"))
		return
	}

	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		if err := s.Cart.RemoveItem(ctx, q.Get("productId"), size, q.Get("color")); err != nil {
			return err
		}
		return h.respondCart(ctx, w, s)
	})
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		if err := s.Cart.ClearCart(ctx); err != nil {
			return err
		}
		return h.respondCart(ctx, w, s)
	})
}

// SetCartOpen shows or hides the cart preview panel.
func (h *Handler) SetCartOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Open bool `json:"open"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		s.Cart.SetOpen(req.Open)
		return h.respondCart(ctx, w, s)
	})
}

// CartSummary prices the cart with an optional shipping method and promo
// code. Previewing a code does not consume a use.
func (h *Handler) CartSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	h.withSession(w, r, func(ctx context.Context, s *session.Session) error {
		method := s.Checkout.Form().Shipping.Method
		if v := q.Get("shipping"); v != "" {
			m, err := pricing.ParseShippingMethod(v)
			if err != nil {
				return err
			}
			method = m
		}

		summary, err := h.checkout.Summarize(ctx, s.Cart.Items(), q.Get("promo"), method)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, toSummaryDTO(summary, method))
		return nil
	})
}
