package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/denim-store/internal/cart"
	"github.com/xenking/denim-store/internal/domain/order"
	"github.com/xenking/denim-store/internal/domain/pricing"
	"github.com/xenking/denim-store/internal/domain/promo"
)

// ErrEmptyCart is returned when placing an order for an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// Summary is the priced view of a cart.
type Summary struct {
	Totals                pricing.Totals
	Promo                 *promo.Discount
	FreeShippingRemaining decimal.Decimal
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	CartID    string
	Cart      *cart.Store
	Flow      *Flow
	PromoCode string
}

// Service prices carts and places orders.
type Service struct {
	orders   order.Repository
	promos   promo.Validator
	payments PaymentValidator
	now      func() time.Time

	placed metric.Int64Counter
}

// NewService creates a checkout Service with the required domain
// dependencies.
func NewService(
	orders order.Repository,
	promos promo.Validator,
	payments PaymentValidator,
	mp metric.MeterProvider,
) (*Service, error) {
	placed, err := mp.Meter("github.com/xenking/denim-store/internal/domain/checkout").
		Int64Counter("checkout.orders",
			metric.WithDescription("Number of placed orders"),
		)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout.orders counter")
	}
	return &Service{
		orders:   orders,
		promos:   promos,
		payments: payments,
		now:      time.Now,
		placed:   placed,
	}, nil
}

// Summarize prices items with an optional promo code.
func (s *Service) Summarize(ctx context.Context, items []cart.LineItem, promoCode string, method pricing.ShippingMethod) (*Summary, error) {
	subtotal := cart.TotalPrice(items)

	var discount *promo.Discount
	if promo.NormalizeCode(promoCode) != "" {
		d, err := s.promos.Validate(ctx, promoCode, promoItems(items))
		if err != nil {
			return nil, errors.Wrap(err, "validate promo")
		}
		discount = d
	}

	amount := decimal.Zero
	if discount != nil {
		amount = discount.Amount
	}
	totals := pricing.Summarize(subtotal, amount, method)

	return &Summary{
		Totals:                totals,
		Promo:                 discount,
		FreeShippingRemaining: pricing.FreeShippingRemaining(totals.Subtotal.Sub(totals.Discount)),
	}, nil
}

// PlaceOrder completes checkout from the payment step: it validates the
// form, prices the cart, records the order, redeems the promo code, clears
// the cart and resets the flow.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*order.Order, error) {
	lg := zctx.From(ctx)

	if req.Flow.Step() != StepPayment {
		return nil, &TransitionError{From: req.Flow.Step(), Action: "place order"}
	}
	for _, step := range []Step{StepInformation, StepShipping, StepPayment} {
		if err := req.Flow.validate(step); err != nil {
			return nil, err
		}
	}

	form := req.Flow.Form()
	if err := s.payments.ValidatePayment(form.Payment); err != nil {
		return nil, errors.Wrap(err, "validate payment")
	}

	items := req.Cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	summary, err := s.Summarize(ctx, items, req.PromoCode, form.Shipping.Method)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:             uuid.New().String(),
		CartID:         req.CartID,
		Email:          form.Information.Email,
		Lines:          orderLines(items),
		Subtotal:       summary.Totals.Subtotal,
		Discount:       summary.Totals.Discount,
		Shipping:       summary.Totals.Shipping,
		Tax:            summary.Totals.Tax,
		Total:          summary.Totals.Total,
		ShippingMethod: string(form.Shipping.Method),
		CreatedAt:      s.now().UTC(),
	}
	if summary.Promo != nil {
		o.PromoCode = summary.Promo.Code
	}

	// Persist order.
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The order stands from here on; later failures are logged only.
	if o.PromoCode != "" {
		if err := s.promos.Redeem(ctx, o.PromoCode); err != nil {
			lg.Warn("Failed to redeem promo code", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	if err := req.Cart.ClearCart(ctx); err != nil {
		lg.Warn("Failed to persist cleared cart", zap.String("order_id", o.ID), zap.Error(err))
	}
	req.Flow.Reset()

	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("shipping_method", o.ShippingMethod),
		attribute.Bool("promo", o.PromoCode != ""),
	))
	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("lines", len(o.Lines)),
	)

	return o, nil
}

func promoItems(items []cart.LineItem) []promo.Item {
	out := make([]promo.Item, len(items))
	for i, it := range items {
		out[i] = promo.Item{ProductID: it.Product.ID, Price: it.Product.Price, Quantity: it.Quantity}
	}
	return out
}

func orderLines(items []cart.LineItem) []order.Line {
	out := make([]order.Line, len(items))
	for i, it := range items {
		out[i] = order.Line{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.Price,
		}
	}
	return out
}
