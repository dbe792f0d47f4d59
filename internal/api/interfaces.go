package api

import (
	"context"

	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/service"
)

// NavigationService is what the navigation handlers need.
type NavigationService interface {
	FindPath(ctx context.Context, from, to, mode string) (*models.PathResult, error)
	Diagnostics(ctx context.Context, mode string) (models.Diagnostics, error)
	Preload(ctx context.Context) (*service.PreloadResult, error)
	Export(ctx context.Context) (*models.GraphExport, error)
	Loaded() (bool, uint64)
}

// Pinger is an optional dependency whose reachability readiness reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Compile-time check.
var _ NavigationService = (*service.NavigationService)(nil)
