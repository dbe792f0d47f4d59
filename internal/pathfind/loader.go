package pathfind

import (
	"context"
	"fmt"

	"github.com/persistorai/navgraph/internal/graph"
	"github.com/persistorai/navgraph/internal/models"
)

// ParcelSource lists every parcel record.
type ParcelSource interface {
	LoadAll(ctx context.Context) ([]models.Parcel, error)
}

// WaterSource lists canal links and docks.
type WaterSource interface {
	LoadCanalLinks(ctx context.Context) ([]models.CanalLink, error)
	LoadDocks(ctx context.Context) ([]models.Dock, error)
}

// StoreLoader builds snapshots from a parcel store and water registry.
// A nil Water loads parcels only.
type StoreLoader struct {
	Parcels ParcelSource
	Water   WaterSource
	Options graph.BuildOptions
}

// Load implements Loader.
func (l *StoreLoader) Load(ctx context.Context) (*graph.Snapshot, error) {
	parcels, err := l.Parcels.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading parcels: %w", err)
	}

	var water graph.Water

	if l.Water != nil {
		if water.Links, err = l.Water.LoadCanalLinks(ctx); err != nil {
			return nil, fmt.Errorf("loading canal links: %w", err)
		}

		if water.Docks, err = l.Water.LoadDocks(ctx); err != nil {
			return nil, fmt.Errorf("loading docks: %w", err)
		}
	}

	return graph.Build(parcels, water, l.Options), nil
}
