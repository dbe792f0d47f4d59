package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/navgraph/internal/api"
	"github.com/persistorai/navgraph/internal/config"
	"github.com/persistorai/navgraph/internal/db"
	"github.com/persistorai/navgraph/internal/db/migrations"
	"github.com/persistorai/navgraph/internal/service"
	"github.com/persistorai/navgraph/internal/store"
	"github.com/persistorai/navgraph/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query service",
		Long: `Serve pathfinding and diagnostics over HTTP. With the postgres store,
migrations run first and parcel changes trigger a debounced reload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	log := a.log

	if a.pool != nil {
		if err := db.RunMigrations(ctx, a.pool, log, migrations.FS); err != nil {
			return err
		}
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	nav := a.navigation(service.NavigationOptions{Notifier: hub})

	if a.cfg.PreloadOnStart {
		if _, err := nav.Preload(ctx); err != nil {
			// Queries retry the load lazily.
			log.WithError(err).Warn("initial graph preload failed")
		}
	}

	if a.pool != nil && a.cfg.WatchChanges {
		listener := db.NewChangeListener(log, a.pool, store.ChangeChannel, nav, db.DefaultQuietPeriod)
		if err := listener.Start(ctx); err != nil {
			return err
		}
	}

	deps := &api.RouterDeps{
		Log:         log,
		Pool:        a.pool,
		Hub:         hub,
		Navigation:  nav,
		CORSOrigins: a.cfg.CORSOrigins,
		Version:     config.Version,
		RateLimit:   a.cfg.RateLimit,
		RateBurst:   a.cfg.RateBurst,
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           api.NewRouter(ctx, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("navgraph listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	return nil
}
