package client

import (
	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/service"
)

// Response types shared with the server.
type (
	PathResult    = models.PathResult
	Diagnostics   = models.Diagnostics
	GraphExport   = models.GraphExport
	PreloadResult = service.PreloadResult
)

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	GraphLoaded   bool    `json:"graph_loaded"`
	Epoch         uint64  `json:"epoch"`
	Subscribers   int     `json:"subscribers"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
