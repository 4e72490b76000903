package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func get(t *testing.T, handler http.HandlerFunc, path string) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		check      CheckFunc
		runs       int
		wantStatus int
		wantChecks map[string]string
	}{
		{name: "healthy before first run", check: failingCheck("down"), runs: 0, wantStatus: http.StatusOK},
		{name: "passing", check: passingCheck(), runs: 3, wantStatus: http.StatusOK},
		{name: "failures below threshold", check: failingCheck("temporary"), runs: 2, wantStatus: http.StatusOK},
		{
			name:       "failures at threshold",
			check:      failingCheck("connection refused"),
			runs:       3,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"goroutines": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("goroutines", time.Second, tt.check)
			runN(h.liveness.checks[0], tt.runs)

			code, body := get(t, h.LiveEndpoint, "/livez")
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready and passing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("cart-storage", time.Second, passingCheck())
		h.SetReady(true)

		code, body := get(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		assert.True(t, h.IsReady())
	})

	t.Run("not marked ready", func(t *testing.T) {
		h := New()
		code, body := get(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "service is not ready", body.Checks["_readiness"])
		assert.False(t, h.IsReady())
	})

	t.Run("draining", func(t *testing.T) {
		h := New()
		h.SetReady(true)
		h.SetReady(false)
		code, _ := get(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("storage down", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, passingCheck())
		h.AddReadinessCheck("cart-storage", time.Second, failingCheck("redis: connection refused"))
		h.SetReady(true)
		runN(h.readiness.checks[1], 3)

		code, body := get(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, map[string]string{"cart-storage": "redis: connection refused"}, body.Checks)
		assert.False(t, h.IsReady())
	})
}

func TestCheck_RecoveryAndLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	failing := true
	h := New(WithLogger(zap.New(core)))
	h.AddReadinessCheck("cart-storage", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	c := h.readiness.checks[0]

	runN(c, 5)
	assert.False(t, c.passing())
	assert.EqualError(t, c.lastError(), "down")
	assert.Equal(t, 1, logs.FilterMessage("Health check failing").Len(), "transition is logged once")

	failing = false
	runN(c, 1)
	assert.True(t, c.passing())
	assert.Nil(t, c.lastError())
	assert.Equal(t, 1, logs.FilterMessage("Health check recovered").Len())

	h.SetReady(true)
	h.SetReady(true)
	assert.Equal(t, 1, logs.FilterMessage("Readiness changed").Len())
}

func TestWithThresholds(t *testing.T) {
	h := New(WithThresholds(Thresholds{Failure: 1, Success: 2}))
	h.AddReadinessCheck("cart-storage", time.Second, failingCheck("down"))
	c := h.readiness.checks[0]

	runN(c, 1)
	assert.False(t, c.passing(), "one failure is enough")

	c.fn = passingCheck()
	runN(c, 1)
	assert.False(t, c.passing(), "needs two passes")
	runN(c, 1)
	assert.True(t, c.passing())
}

func TestStartStop_Concurrent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, failingCheck("err"))
	h.AddReadinessCheck("cart-storage", time.Second, passingCheck())
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
	h.Stop()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingCheck(pinger{})(ctx))
	err := PingCheck(pinger{err: errors.New("refused")})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	assert.NoError(t, GoroutineCountCheck(100000)(ctx))
	err = GoroutineCountCheck(0)(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit 0")

	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))
}

func TestReadyEndpoint_PingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("storage", time.Second, PingCheck(pinger{}))
	h.AddReadinessCheck("postgres", time.Second, PingCheck(pinger{err: errors.New("refused")}))
	h.SetReady(true)
	for _, c := range h.readiness.checks {
		runN(c, DefaultThresholds.Failure)
	}

	code, body := get(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"postgres": "ping: refused"}, body.Checks)

	h = New()
	h.AddReadinessCheck("storage", time.Second, PingCheck(pinger{}))
	h.SetReady(true)
	runN(h.readiness.checks[0], DefaultThresholds.Failure)

	code, body = get(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.True(t, h.IsReady())
}
