package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-client token bucket limiter.
type RateLimitConfig struct {
	// Max is the bucket size: the number of requests a client may burst, and
	// the number of tokens refilled over one Window.
	Max int
	// Window is the time it takes to refill an empty bucket.
	Window time.Duration
	// TrustProxy keys clients by the first X-Forwarded-For or the X-Real-IP
	// address. Enable it only behind a proxy that sets these headers.
	TrustProxy bool
	// KeyFunc overrides the client key. It takes precedence over TrustProxy.
	KeyFunc func(*http.Request) string
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// verdict is the outcome of taking one token.
type verdict struct {
	allowed   bool
	remaining int
	retry     time.Duration
}

// buckets tracks one token bucket per client key.
type buckets struct {
	burst  int
	refill rate.Limit
	idle   time.Duration
	key    func(*http.Request) string

	mu sync.Mutex
	m  map[string]*bucket
}

func newBuckets(cfg RateLimitConfig) *buckets {
	burst := max(cfg.Max, 1)
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	key := cfg.KeyFunc
	if key == nil {
		key = func(r *http.Request) string { return clientIP(r, cfg.TrustProxy) }
	}
	// An idle bucket is full again after one window; evict with a margin.
	return &buckets{
		burst:  burst,
		refill: rate.Every(window / time.Duration(burst)),
		idle:   2 * window,
		key:    key,
		m:      make(map[string]*bucket),
	}
}

func (b *buckets) take(key string, now time.Time) verdict {
	b.mu.Lock()
	defer b.mu.Unlock()

	bk := b.m[key]
	if bk == nil {
		bk = &bucket{lim: rate.NewLimiter(b.refill, b.burst)}
		b.m[key] = bk
	}
	bk.seen = now

	if bk.lim.AllowN(now, 1) {
		return verdict{allowed: true, remaining: max(int(bk.lim.TokensAt(now)), 0)}
	}
	res := bk.lim.ReserveN(now, 1)
	defer res.CancelAt(now)
	return verdict{retry: res.DelayFrom(now)}
}

// evict drops buckets idle for longer than the refill margin.
func (b *buckets) evict(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for k, bk := range b.m {
		if now.Sub(bk.seen) >= b.idle {
			delete(b.m, k)
			n++
		}
	}
	return n
}

func (b *buckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.m)
}

func (b *buckets) evictLoop(ctx context.Context) {
	t := time.NewTicker(b.idle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			b.evict(now)
		}
	}
}

// RateLimit enforces a per-client token bucket. Every response carries
// X-RateLimit-Limit and X-RateLimit-Remaining; an empty bucket is answered
// with 429 and Retry-After. Buckets are never evicted, see
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return limit(newBuckets(cfg))
}

// RateLimitWithCleanup is RateLimit plus a goroutine evicting idle buckets
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	b := newBuckets(cfg)
	go b.evictLoop(ctx)
	return limit(b)
}

func limit(b *buckets) Middleware {
	limitHeader := strconv.Itoa(b.burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := b.take(b.key(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limitHeader)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
			if v.allowed {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(v.retry.Seconds()))))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}{http.StatusTooManyRequests, "too many requests, slow down"})
		})
	}
}

// clientIP returns the remote host of r, or the proxy-reported client
// address when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
