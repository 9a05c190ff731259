package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type bucket struct {
	count int
	start time.Time
}

// rateLimiter counts requests in fixed windows. Buckets whose window has
// passed are dropped once per window so the map only holds active callers.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

// allow spends one request from every key's bucket, or from none of them when
// any bucket is already exhausted.
func (l *rateLimiter) allow(now time.Time, keys ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		l.sweep(now)
	}

	spent := make([]*bucket, 0, len(keys))
	for _, key := range keys {
		b, ok := l.buckets[key]
		if !ok || now.Sub(b.start) > l.window {
			b = &bucket{start: now}
			l.buckets[key] = b
		}
		if b.count >= l.limit {
			return false
		}
		spent = append(spent, b)
	}

	for _, b := range spent {
		b.count++
	}
	return true
}

func (l *rateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.start) > l.window {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimiter allows limit requests per window for each client address.
// Identified actors are also held to limit on their own bucket, so rotating
// the actor header from one address does not buy more requests.
func RateLimiter(limit int, window time.Duration) echo.MiddlewareFunc {
	limiter := newRateLimiter(limit, window)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			keys := []string{"ip:" + c.RealIP()}
			if actor, ok := ActorFrom(c); ok {
				keys = append(keys, "actor:"+actor.ID)
			}

			if !limiter.allow(time.Now(), keys...) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
