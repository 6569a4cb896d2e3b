package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	app_errors "github.com/gambadio/Luca-Chat/internal/errors"
)

// Store performs the atomic part of fixed-window counting: increment the counter
// for key, starting a new window of the given length when none is open. It returns
// the count after the increment and the time left until the window resets.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// LimitError is returned when a key has exhausted its window.
type LimitError struct {
	Limiter    string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s limiter, retry after %s", app_errors.ErrRateLimited, e.Limiter, e.RetryAfter)
}

func (e *LimitError) Unwrap() error { return app_errors.ErrRateLimited }

// RetryAfterSeconds rounds RetryAfter up to whole seconds, as the Retry-After header
// expects, and never returns less than 1.
func (e *LimitError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter is one independently configured fixed-window limiter. Bursts of up to
// twice max across a window boundary are accepted.
type Limiter struct {
	name   string
	max    int64
	window time.Duration
	store  Store
}

func New(name string, max int, window time.Duration, store Store) *Limiter {
	return &Limiter{name: name, max: int64(max), window: window, store: store}
}

func (l *Limiter) Name() string { return l.name }

// CheckAndConsume counts one request for key. It returns nil when the request is
// within the window's budget and a *LimitError otherwise. Store failures fail open.
func (l *Limiter) CheckAndConsume(ctx context.Context, key string) error {
	count, resetIn, err := l.store.Increment(ctx, l.name+":"+key, l.window)
	if err != nil {
		slog.Warn("Rate limit store unavailable, allowing request", "limiter", l.name, "error", err)
		return nil
	}
	if count <= l.max {
		return nil
	}
	if resetIn <= 0 {
		resetIn = time.Millisecond
	}
	slog.Info("Rate limit exceeded", "limiter", l.name, "key", key, "count", count, "retry_after", resetIn)
	return &LimitError{Limiter: l.name, RetryAfter: resetIn}
}

// Middleware guards a route group with this limiter, keyed by client address.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := l.CheckAndConsume(r.Context(), ClientKey(r)); err != nil {
			if limitErr, ok := err.(*LimitError); ok {
				w.Header().Set("Retry-After", strconv.Itoa(limitErr.RetryAfterSeconds()))
			}
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller by network address. It expects chi's RealIP
// middleware to have already rewritten RemoteAddr from proxy headers.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
