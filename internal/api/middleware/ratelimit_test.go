package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("203.0.113.1"))
	assert.True(t, l.Allow("203.0.113.1"))
	assert.False(t, l.Allow("203.0.113.1"))
	assert.True(t, l.Allow("198.51.100.7"), "other clients have their own window")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, l.Allow("203.0.113.1"), "the bucket refills over the window")
}

func TestRateLimiter_SweepsExpiredBuckets(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	require.Len(t, l.visitors, 2)

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Len(t, l.visitors, 1)
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("203.0.113.1"))
	}
}

func TestRateLimiter_Limit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", NewRateLimiter(1, time.Minute).Limit(), func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.1:4321"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimiter_LimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		trusted   []string
		wantLimit int
	}{
		{name: "no trusted proxies", trusted: nil, wantLimit: 8},
		{name: "peer is not a trusted proxy", trusted: []string{"10.0.0.0/8"}, wantLimit: 8},
		{name: "peer is a trusted proxy", trusted: []string{"203.0.113.0/24"}, wantLimit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			require.NoError(t, r.SetTrustedProxies(tt.trusted))
			r.POST("/auth/login", NewRateLimiter(2, time.Minute).Limit(), func(ctx *gin.Context) {
				ctx.Status(http.StatusOK)
			})

			limited := 0
			for i := 0; i < 10; i++ {
				req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
				req.RemoteAddr = "203.0.113.7:4321"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
				w := httptest.NewRecorder()
				r.ServeHTTP(w, req)
				if w.Code == http.StatusTooManyRequests {
					limited++
				}
			}

			assert.Equal(t, tt.wantLimit, limited)
		})
	}
}
