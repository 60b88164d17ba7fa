package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/regaloya/regaloya-api/internal/api/handler/v1/response"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter gives every client IP a token bucket of limit requests that
// refills over window.
type RateLimiter struct {
	limit  int
	window time.Duration
	every  rate.Limit
	now    func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	nextSweep time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	l := &RateLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
	if limit > 0 {
		l.every = rate.Every(window / time.Duration(limit))
	}

	return l
}

// Allow records a request from key and reports whether it is within the
// limit. A non-positive limit disables limiting.
func (l *RateLimiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.limit)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// Limit rejects requests over the limit with 429. Clients are told apart by
// gin's ClientIP, which only honours forwarding headers from trusted proxies.
func (l *RateLimiter) Limit() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.Allow(ctx.ClientIP()) {
			response.RenderErr(ctx, response.ErrTooManyRequests())
			return
		}

		ctx.Next()
	}
}

// sweep evicts clients idle for a whole window, whose buckets are full
// again anyway. It runs at most once per window. Caller holds mu.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.window {
			delete(l.visitors, key)
		}
	}
	l.nextSweep = now.Add(l.window)
}
