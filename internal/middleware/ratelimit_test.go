package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/navgraph/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func hit(r http.Handler, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.RemoteAddr = ip + ":1234"
	r.ServeHTTP(w, req)

	return w.Code
}

func limited(rl *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r
}

func TestRateLimiter_BlocksExceedingBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := limited(middleware.NewRateLimiter(ctx, 0.001, 2))

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if got := hit(r, "1.2.3.4"); got != want {
			t.Fatalf("request %d: got %d, want %d", i, got, want)
		}
	}
}

func TestRateLimiter_IndependentBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := limited(middleware.NewRateLimiter(ctx, 0.001, 1))

	hit(r, "1.1.1.1")

	if got := hit(r, "2.2.2.2"); got != http.StatusOK {
		t.Fatalf("different IP should not be rate limited, got %d", got)
	}
}

func TestRateLimiter_TokensRefillOverTime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// High rate so even tiny elapsed time refills tokens.
	r := limited(middleware.NewRateLimiter(ctx, 1e9, 2))

	for range 5 {
		if got := hit(r, "5.5.5.5"); got != http.StatusOK {
			t.Fatalf("expected tokens to refill, got %d", got)
		}
	}
}
