// Package health serves liveness and readiness probes.
//
// Every check runs on its own ticker. A check turns unhealthy after
// FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive passes, so a single slow ping does not flap
// the probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// CheckFunc reports the health of one component. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Thresholds control when a check changes state.
type Thresholds struct {
	Failure int
	Success int
}

// DefaultThresholds marks a check unhealthy after three failures and healthy
// after one pass.
var DefaultThresholds = Thresholds{Failure: 3, Success: 1}

// check is a registered CheckFunc with its state. run is only called from a
// single goroutine, so the counters are unsynchronized; ok and last are read
// by HTTP handlers.
type check struct {
	name       string
	timeout    time.Duration
	fn         CheckFunc
	thresholds Thresholds
	lg         *zap.Logger

	ok   atomic.Bool
	last atomic.Pointer[error]

	fails  int
	passes int
}

func (c *check) passing() bool { return c.ok.Load() }

func (c *check) lastError() error {
	if p := c.last.Load(); p != nil {
		return *p
	}
	return nil
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.last.Store(&err)

	if err != nil {
		c.passes = 0
		c.fails++
		if c.fails >= c.thresholds.Failure && c.ok.Swap(false) {
			c.lg.Warn("Health check failing",
				zap.String("check", c.name),
				zap.Int("failures", c.fails),
				zap.Error(err),
			)
		}
		return
	}

	c.fails = 0
	c.passes++
	if c.passes >= c.thresholds.Success && !c.ok.Swap(true) {
		c.lg.Info("Health check recovered", zap.String("check", c.name))
	}
}

func (c *check) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// probe is a named group of checks.
type probe struct {
	mu     sync.RWMutex
	checks []*check
}

func (p *probe) add(c *check) {
	p.mu.Lock()
	p.checks = append(p.checks, c)
	p.mu.Unlock()
}

func (p *probe) snapshot() []*check {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*check(nil), p.checks...)
}

// failures maps the name of every unhealthy check to its last error.
func (p *probe) failures() map[string]string {
	out := make(map[string]string)
	for _, c := range p.snapshot() {
		if c.passing() {
			continue
		}
		if err := c.lastError(); err != nil {
			out[c.name] = err.Error()
		} else {
			out[c.name] = "check is unhealthy"
		}
	}
	return out
}

// Health owns the liveness and readiness probes of a service.
type Health struct {
	lg         *zap.Logger
	thresholds Thresholds

	ready     atomic.Bool
	liveness  probe
	readiness probe

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures Health.
type Option func(*Health)

// WithLogger logs check state transitions to lg.
func WithLogger(lg *zap.Logger) Option {
	return func(h *Health) { h.lg = lg }
}

// WithThresholds overrides DefaultThresholds for checks added afterwards.
func WithThresholds(t Thresholds) Option {
	return func(h *Health) { h.thresholds = t }
}

// New creates a Health that is not ready. Call SetReady(true) once the
// service has finished initialization.
func New(opts ...Option) *Health {
	h := &Health{lg: zap.NewNop(), thresholds: DefaultThresholds}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Health) newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{
		name:       name,
		timeout:    timeout,
		fn:         fn,
		thresholds: h.thresholds,
		lg:         h.lg,
	}
	c.ok.Store(true)
	return c
}

// AddLivenessCheck registers a check of process health, such as goroutine
// count or GC pauses.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.liveness.add(h.newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check of a dependency the service needs to
// take traffic, such as the cart storage backend.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.readiness.add(h.newCheck(name, timeout, fn))
}

// Start runs every registered check in the background every interval until
// Stop is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	for _, c := range append(h.liveness.snapshot(), h.readiness.snapshot()...) {
		go c.loop(ctx, interval)
	}
}

// Stop cancels the background checks. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag: true after initialization, false
// when draining before shutdown.
func (h *Health) SetReady(ready bool) {
	if h.ready.Swap(ready) != ready {
		h.lg.Info("Readiness changed", zap.Bool("ready", ready))
	}
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.readiness.failures()) == 0
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or 503 listing the failing
// checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, h.liveness.failures())
}

// ReadyEndpoint serves /readyz. It also fails while the service is not
// marked ready.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.readiness.failures()
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failures) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failures}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already written; a failure here means the client left.
	_ = json.NewEncoder(w).Encode(resp)
}
