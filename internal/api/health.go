// Package api provides the HTTP boundary of the navigation graph service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/db"
	"github.com/persistorai/navgraph/internal/dbpool"
	"github.com/persistorai/navgraph/internal/ws"
)

// readinessTimeout bounds all readiness probes together.
const readinessTimeout = 3 * time.Second

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      *dbpool.Pool
	cache     Pinger
	hub       *ws.Hub
	nav       NavigationService
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. pool, cache and hub may be nil
// when the deployment does not use them.
func NewHealthHandler(pool *dbpool.Pool, cache Pinger, hub *ws.Hub, nav NavigationService, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		cache:     cache,
		hub:       hub,
		nav:       nav,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// healthResponse is the JSON payload returned by the liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	GraphLoaded   bool    `json:"graph_loaded"`
	Epoch         uint64  `json:"epoch"`
	Subscribers   int     `json:"subscribers"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status        string            `json:"status"`
	SchemaVersion int               `json:"schema_version"`
	Checks        map[string]string `json:"checks"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	loaded, epoch := h.nav.Loaded()

	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		GraphLoaded:   loaded,
		Epoch:         epoch,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.hub != nil {
		resp.Subscribers = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready. The database is required when
// configured; the cache is best-effort and only degrades the report. A graph
// that has not loaded yet does not fail readiness since the first query loads it.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{
		"database": "not_configured",
		"schema":   "not_configured",
		"cache":    "not_configured",
		"graph":    "loading",
	}
	status := "ready"
	statusCode := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if h.pool != nil {
		checks["database"] = "ok"
		checks["schema"] = "ok"

		if err := h.pool.HealthCheck(ctx); err != nil {
			h.log.WithError(err).Error("readiness: database health check failed")
			checks["database"] = "error"
			checks["schema"] = "unknown"
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		} else if err := h.checkSchema(ctx); err != nil {
			h.log.WithError(err).Error("readiness: schema check failed")
			checks["schema"] = "error"
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
		}
	}

	if h.cache != nil {
		checks["cache"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			h.log.WithError(err).Warn("readiness: cache check failed")
			checks["cache"] = "degraded"
		}
	}

	if loaded, _ := h.nav.Loaded(); loaded {
		checks["graph"] = "ok"
	}

	c.JSON(statusCode, readinessResponse{
		Status:        status,
		SchemaVersion: db.SchemaVersion(),
		Checks:        checks,
	})
}

// checkSchema verifies the parcels table exists.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var count int
	if err := h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM parcels").Scan(&count); err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	return nil
}
