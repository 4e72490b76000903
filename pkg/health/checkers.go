package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is a backend that can report its reachability, such as a
// connection pool or a cart storage driver.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck is a readiness check for storage backends.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// GoroutineCountCheck fails above limit goroutines, which usually means
// handlers are stuck on a backend.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines, limit %d", n, limit)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any of the recent stop-the-world pauses took
// longer than limit.
func GCMaxPauseCheck(limit time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		var worst time.Duration
		for _, p := range stats.Pause {
			worst = max(worst, p)
		}
		if worst > limit {
			return errors.Errorf("gc pause %s, limit %s", worst, limit)
		}
		return nil
	}
}
