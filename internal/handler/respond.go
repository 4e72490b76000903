package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/denim-store/internal/browse"
	"github.com/xenking/denim-store/internal/cart"
	"github.com/xenking/denim-store/internal/domain/checkout"
	"github.com/xenking/denim-store/internal/domain/order"
	"github.com/xenking/denim-store/internal/domain/pricing"
	"github.com/xenking/denim-store/internal/domain/product"
	"github.com/xenking/denim-store/internal/domain/promo"
	"github.com/xenking/denim-store/internal/session"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidBody  = errors.New("invalid request body")
	errInvalidQuery = errors.New("invalid query")
)

type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// money renders an amount with two decimals as a JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already written; a failure here means the client left.
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	d := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	d.DisallowUnknownFields()
	if err := d.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}

// writeError maps err to a status code and writes it as JSON. Unexpected
// errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := mapError(err)
	lg := zctx.From(r.Context())
	switch {
	case resp.Code == http.StatusServiceUnavailable:
		lg.Warn("Cart storage unavailable", zap.Error(err))
	case resp.Code >= http.StatusInternalServerError:
		lg.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, resp.Code, resp)
}

// mapError converts domain errors to API error responses.
func mapError(err error) errorResponse {
	var missing *checkout.MissingFieldsError
	if errors.As(err, &missing) {
		return errorResponse{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
			Fields:  missing.Fields,
		}
	}

	var transition *checkout.TransitionError
	if errors.As(err, &transition) {
		return errorResponse{Code: http.StatusConflict, Message: transition.Error()}
	}

	switch {
	case errors.Is(err, cart.ErrSizeRequired):
		return errorResponse{Code: http.StatusBadRequest, Message: cart.ErrSizeRequired.Error()}
	case errors.Is(err, cart.ErrUnknownSize),
		errors.Is(err, cart.ErrUnknownColor),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrUnknownShippingMethod),
		errors.Is(err, browse.ErrUnknownSort),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidQuery):
		return errorResponse{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return errorResponse{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, promo.ErrInvalidCode):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: "invalid promo code"}
	case errors.Is(err, promo.ErrExpired):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: "promo code expired"}
	case errors.Is(err, promo.ErrUsageLimitReached):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: "promo code usage limit reached"}
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidCardNumber),
		errors.Is(err, checkout.ErrInvalidExpiry),
		errors.Is(err, checkout.ErrInvalidCVV):
		return errorResponse{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.Is(err, session.ErrUnavailable):
		return errorResponse{Code: http.StatusServiceUnavailable, Message: "cart temporarily unavailable"}
	}

	return errorResponse{Code: http.StatusInternalServerError, Message: "internal server error"}
}
