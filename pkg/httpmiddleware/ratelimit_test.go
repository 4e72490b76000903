package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Headers(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i, want := range []string{"2", "1", "0"} {
		w := serve(h, "192.168.1.1:12345", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_Exhausted(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, "10.0.0.1:9999", nil).Code)
	}
	w := serve(h, "10.0.0.1:9999", nil)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestRateLimit_Keys(t *testing.T) {
	xff := http.Header{"X-Forwarded-For": {"203.0.113.50, 70.41.3.18"}}
	realIP := http.Header{"X-Real-Ip": {"198.51.100.7"}}

	tests := []struct {
		name       string
		trustProxy bool
		first      func(http.Handler) int
		second     func(http.Handler) int
		wantSecond int
	}{
		{
			name:       "same host different port",
			first:      func(h http.Handler) int { return serve(h, "10.0.0.1:1234", nil).Code },
			second:     func(h http.Handler) int { return serve(h, "10.0.0.1:5678", nil).Code },
			wantSecond: http.StatusTooManyRequests,
		},
		{
			name:       "different hosts",
			first:      func(h http.Handler) int { return serve(h, "10.0.0.1:1234", nil).Code },
			second:     func(h http.Handler) int { return serve(h, "10.0.0.2:1234", nil).Code },
			wantSecond: http.StatusOK,
		},
		{
			name:       "forwarded for trusted",
			trustProxy: true,
			first:      func(h http.Handler) int { return serve(h, "192.168.1.1:4444", xff).Code },
			second:     func(h http.Handler) int { return serve(h, "192.168.1.2:5555", xff).Code },
			wantSecond: http.StatusTooManyRequests,
		},
		{
			name:       "forwarded for untrusted",
			first:      func(h http.Handler) int { return serve(h, "192.168.1.1:4444", xff).Code },
			second:     func(h http.Handler) int { return serve(h, "192.168.1.2:5555", xff).Code },
			wantSecond: http.StatusOK,
		},
		{
			name:       "real ip trusted",
			trustProxy: true,
			first:      func(h http.Handler) int { return serve(h, "192.168.1.1:4444", realIP).Code },
			second:     func(h http.Handler) int { return serve(h, "192.168.1.2:5555", realIP).Code },
			wantSecond: http.StatusTooManyRequests,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute, TrustProxy: tt.trustProxy})(okHandler())

			require.Equal(t, http.StatusOK, tt.first(h))
			assert.Equal(t, tt.wantSecond, tt.second(h))
		})
	}
}

func TestRateLimit_KeyFunc(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Cart-Token")
		},
	})(okHandler())

	a := http.Header{"X-Cart-Token": {"cart-a"}}
	b := http.Header{"X-Cart-Token": {"cart-b"}}

	assert.Equal(t, http.StatusOK, serve(h, "", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "", a).Code)
	assert.Equal(t, http.StatusOK, serve(h, "", b).Code)
}

func TestBuckets_Refill(t *testing.T) {
	b := newBuckets(RateLimitConfig{Max: 2, Window: time.Second})
	now := time.Now()

	require.True(t, b.take("k", now).allowed)
	require.True(t, b.take("k", now).allowed)

	v := b.take("k", now)
	require.False(t, v.allowed)
	assert.InDelta(t, 500*time.Millisecond, v.retry, float64(10*time.Millisecond))

	v = b.take("k", now.Add(500*time.Millisecond))
	assert.True(t, v.allowed)
	assert.Equal(t, 0, v.remaining)
}

func TestBuckets_Evict(t *testing.T) {
	b := newBuckets(RateLimitConfig{Max: 1, Window: time.Second})
	now := time.Now()

	b.take("old", now)
	b.take("fresh", now.Add(2*time.Second))

	assert.Equal(t, 1, b.evict(now.Add(2*time.Second)))
	assert.Equal(t, 1, b.size())
}
