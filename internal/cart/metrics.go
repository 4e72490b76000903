package cart

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/xenking/denim-store/internal/cart"

// Metrics counts cart mutations. A nil *Metrics records nothing.
type Metrics struct {
	mutations metric.Int64Counter
}

// NewMetrics registers the cart instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)
	mutations, err := meter.Int64Counter("cart.mutations",
		metric.WithDescription("Number of cart mutations by operation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart.mutations counter")
	}
	return &Metrics{mutations: mutations}, nil
}

func (m *Metrics) mutation(ctx context.Context, op Mutation) {
	if m == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", string(op))))
}

// TracedStorage wraps a Storage with a span around every call.
type TracedStorage struct {
	next   Storage
	tracer trace.Tracer
}

var _ Storage = (*TracedStorage)(nil)

// NewTracedStorage wraps next with spans from tp.
func NewTracedStorage(next Storage, tp trace.TracerProvider) *TracedStorage {
	return &TracedStorage{next: next, tracer: tp.Tracer(instrumentationName)}
}

// Load implements Storage.
func (t *TracedStorage) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, span := t.tracer.Start(ctx, "cart.Storage.Load",
		trace.WithAttributes(attribute.String("cart.key", key)),
	)
	defer span.End()

	data, err := t.next.Load(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
	}
	return data, err
}

// Save implements Storage.
func (t *TracedStorage) Save(ctx context.Context, key string, data []byte) error {
	ctx, span := t.tracer.Start(ctx, "cart.Storage.Save",
		trace.WithAttributes(
			attribute.String("cart.key", key),
			attribute.Int("cart.bytes", len(data)),
		),
	)
	defer span.End()

	err := t.next.Save(ctx, key, data)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Ping forwards to the wrapped storage when it supports it.
func (t *TracedStorage) Ping(ctx context.Context) error {
	if p, ok := t.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
