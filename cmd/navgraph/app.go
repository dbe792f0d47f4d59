package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/cache"
	"github.com/persistorai/navgraph/internal/config"
	"github.com/persistorai/navgraph/internal/connectivity"
	"github.com/persistorai/navgraph/internal/dbpool"
	"github.com/persistorai/navgraph/internal/graph"
	"github.com/persistorai/navgraph/internal/pathfind"
	"github.com/persistorai/navgraph/internal/service"
	"github.com/persistorai/navgraph/internal/store"
)

// app holds the process-wide dependencies every command shares.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	pool  *dbpool.Pool // nil with the file store
	store store.Store
	cache *cache.SnapshotCache // nil without REDIS_URL
}

// openApp loads configuration and opens the configured backends.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: cfg.NewLogger()}

	switch cfg.ParcelStore {
	case config.StorePostgres:
		a.pool, err = dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), int32(cfg.DBMaxConns)) //nolint:gosec // validated to 1..200.
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.store = store.NewPGStore(store.Base{Pool: a.pool, Log: a.log})
	default:
		fileStore, err := store.NewFileStore(cfg.DataDir, a.log)
		if err != nil {
			return nil, err
		}
		a.store = fileStore
	}

	if url := cfg.RedisURL.Value(); url != "" {
		a.cache, err = cache.New(url, cfg.SnapshotTTL, a.log)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.WithError(err).Warn("closing cache")
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}
}

// navigation builds the engine and navigation service over the store.
func (a *app) navigation(opts service.NavigationOptions) *service.NavigationService {
	loader := &pathfind.StoreLoader{
		Parcels: a.store,
		Water:   a.store,
		Options: graph.BuildOptions{MaxBridgeDistance: a.cfg.MaxBridgeDistance, Log: a.log},
	}
	engine := pathfind.NewEngine(loader, a.log)
	analyzer := connectivity.New(a.cfg.TopComponents, a.cfg.DiagnosticsTimeout)

	opts.DiagnosticsConcurrency = int64(a.cfg.DiagnosticsConcurrency)
	if a.cache != nil && opts.Publisher == nil {
		opts.Publisher = a.cache
	}

	return service.NewNavigationService(engine, analyzer, opts, a.log)
}

func (a *app) matchService() (*service.MatchService, error) {
	return service.NewMatchService(a.store, service.MatchOptions{
		MaxDistance: a.cfg.MaxBridgeDistance,
		Index:       a.cfg.MatchIndex,
	}, a.log)
}
