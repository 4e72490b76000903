// Package handler exposes the storefront over HTTP: catalog browsing, the
// session cart and checkout.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/xenking/denim-store/internal/catalog"
	"github.com/xenking/denim-store/internal/domain/checkout"
	"github.com/xenking/denim-store/internal/domain/order"
	"github.com/xenking/denim-store/internal/domain/product"
	"github.com/xenking/denim-store/internal/session"
)

// TokenHeader carries the cart token on requests and responses.
const TokenHeader = "X-Cart-Token"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// CookieName is the cookie that mirrors the cart token for browsers.
	CookieName string
	// SecureCookie marks the cart cookie Secure.
	SecureCookie bool
	// CookieMaxAge is the lifetime of the cart cookie.
	CookieMaxAge time.Duration
	// RelatedLimit is the default number of related products.
	RelatedLimit int
}

// Handler serves the storefront API.
type Handler struct {
	catalog  *catalog.Catalog
	sessions *session.Registry
	checkout *checkout.Service
	orders   order.Repository
	cfg      Config
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	catalog *catalog.Catalog,
	sessions *session.Registry,
	checkoutSvc *checkout.Service,
	orders order.Repository,
) *Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "cart"
	}
	if cfg.RelatedLimit <= 0 {
		cfg.RelatedLimit = 4
	}
	return &Handler{
		catalog:  catalog,
		sessions: sessions,
		checkout: checkoutSvc,
		orders:   orders,
		cfg:      cfg,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/featured", h.listFlag(product.FlagFeatured))
	mux.HandleFunc("GET /api/products/new", h.listFlag(product.FlagNew))
	mux.HandleFunc("GET /api/products/bestsellers", h.listFlag(product.FlagBestseller))
	mux.HandleFunc("GET /api/products/{slug}", h.GetProduct)
	mux.HandleFunc("GET /api/products/{slug}/related", h.RelatedProducts)
	mux.HandleFunc("GET /api/filters", h.Filters)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PATCH /api/cart/items", h.UpdateItem)
	mux.HandleFunc("DELETE /api/cart/items", h.RemoveItem)
	mux.HandleFunc("PUT /api/cart/open", h.SetCartOpen)
	mux.HandleFunc("GET /api/cart/summary", h.CartSummary)

	mux.HandleFunc("GET /api/checkout", h.GetCheckout)
	mux.HandleFunc("PUT /api/checkout/{step}", h.SetCheckoutStep)
	mux.HandleFunc("POST /api/checkout/continue", h.ContinueCheckout)
	mux.HandleFunc("POST /api/checkout/back", h.BackCheckout)
	mux.HandleFunc("POST /api/checkout/place", h.PlaceOrder)

	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
}

// cartToken reads the token from the header, falling back to the cookie.
func (h *Handler) cartToken(r *http.Request) string {
	if t := r.Header.Get(TokenHeader); t != "" {
		return t
	}
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) setToken(w http.ResponseWriter, token string) {
	w.Header().Set(TokenHeader, token)
	c := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.CookieMaxAge > 0 {
		c.MaxAge = int(h.cfg.CookieMaxAge.Seconds())
	}
	http.SetCookie(w, c)
}

// withSession runs fn with exclusive access to the caller's session and
// echoes its token. Errors returned by fn are written as JSON.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, s *session.Session) error) {
	err := h.sessions.Do(r.Context(), h.cartToken(r), func(ctx context.Context, s *session.Session) error {
		h.setToken(w, s.Token)
		return fn(ctx, s)
	})
	if err != nil {
		writeError(w, r, err)
	}
}
