package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/dbpool"
	"github.com/persistorai/navgraph/internal/middleware"
	"github.com/persistorai/navgraph/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Pool        *dbpool.Pool // nil with the file store
	Cache       Pinger       // nil without Redis
	Hub         *ws.Hub
	Navigation  NavigationService
	CORSOrigins []string
	Version     string
	RateLimit   float64
	RateBurst   int
}

// Router-level limits.
const (
	maxBodySize      = 1 << 20 // 1 MB
	defaultRateLimit = 20
	defaultRateBurst = 40
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.AccessLog(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			MaxAge:           1 * time.Hour,
			AllowCredentials: false,
		}))
	}

	rate, burst := deps.RateLimit, deps.RateBurst
	if rate <= 0 {
		rate = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}
	r.Use(middleware.NewRateLimiter(ctx, rate, burst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	health := NewHealthHandler(deps.Pool, deps.Cache, deps.Hub, deps.Navigation, deps.Log, deps.Version)
	nav := NewNavigationHandler(deps.Navigation, deps.Log)

	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	g := api.Group("/navigation")
	g.GET("/path/:from/:to", nav.Path)
	g.GET("/diagnostics", nav.Diagnostics)
	g.POST("/preload", nav.Preload)
	g.GET("/graph", nav.Graph)

	if deps.Hub != nil {
		g.GET("/ws", wsHandler(ctx, deps.Log, deps.Hub, deps.CORSOrigins))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
