// Package service provides the navigation and matching operations used by
// the HTTP boundary and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/persistorai/navgraph/internal/connectivity"
	"github.com/persistorai/navgraph/internal/graph"
	"github.com/persistorai/navgraph/internal/metrics"
	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/pathfind"
	"github.com/persistorai/navgraph/internal/ws"
)

// DefaultDiagnosticsConcurrency caps simultaneous connectivity analyses.
const DefaultDiagnosticsConcurrency = 2

// publishTimeout bounds a best-effort cache write after a reload.
const publishTimeout = 10 * time.Second

// SnapshotPublisher receives the export of every newly loaded snapshot.
type SnapshotPublisher interface {
	Publish(ctx context.Context, export models.GraphExport) error
}

// ReloadNotifier is told about every newly loaded snapshot.
type ReloadNotifier interface {
	GraphReloaded(data ws.ReloadedData)
}

// NavigationOptions holds the optional collaborators of a NavigationService.
type NavigationOptions struct {
	DiagnosticsConcurrency int64
	Publisher              SnapshotPublisher
	Notifier               ReloadNotifier
}

// PreloadResult describes the snapshot installed by a preload.
type PreloadResult struct {
	Epoch    uint64               `json:"epoch"`
	Metadata models.GraphMetadata `json:"metadata"`
	Issues   graph.Issues         `json:"issues"`
}

// NavigationService serves pathfinding and diagnostics queries against the
// engine's current snapshot and fans reload events out to the cache and
// WebSocket subscribers.
type NavigationService struct {
	engine    *pathfind.Engine
	analyzer  *connectivity.Analyzer
	diagSlots *semaphore.Weighted
	publisher SnapshotPublisher
	notifier  ReloadNotifier
	log       *logrus.Logger
}

// NewNavigationService creates a NavigationService and subscribes it to the
// engine's reloads.
func NewNavigationService(engine *pathfind.Engine, analyzer *connectivity.Analyzer, opts NavigationOptions, log *logrus.Logger) *NavigationService {
	slots := opts.DiagnosticsConcurrency
	if slots <= 0 {
		slots = DefaultDiagnosticsConcurrency
	}

	s := &NavigationService{
		engine:    engine,
		analyzer:  analyzer,
		diagSlots: semaphore.NewWeighted(slots),
		publisher: opts.Publisher,
		notifier:  opts.Notifier,
		log:       log,
	}

	engine.OnReload(s.onReload)

	return s
}

// FindPath parses mode and runs a shortest-path query.
func (s *NavigationService) FindPath(ctx context.Context, from, to, mode string) (*models.PathResult, error) {
	m, err := models.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
		"mode": m,
	}).Debug("navigation.find_path")

	res, err := s.engine.FindPath(ctx, from, to, m)
	if err != nil {
		status := "error"
		if errors.Is(err, models.ErrInvalidNode) {
			status = "invalid_node"
		}
		metrics.PathQueries.WithLabelValues(string(m), status).Inc()

		return nil, err
	}

	metrics.PathQueries.WithLabelValues(string(m), string(res.Status)).Inc()

	return res, nil
}

// Diagnostics analyzes the current snapshot under mode. It never returns a Go
// error for a degraded analysis: timeouts and load failures are reported in
// the result's Error field. Only an unparseable mode is an error.
func (s *NavigationService) Diagnostics(ctx context.Context, mode string) (models.Diagnostics, error) {
	m, err := models.ParseMode(mode)
	if err != nil {
		return models.Diagnostics{}, err
	}

	waitCtx := ctx
	if s.analyzer.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.analyzer.Timeout)
		defer cancel()
	}

	if err := s.diagSlots.Acquire(waitCtx, 1); err != nil {
		metrics.DiagnosticsTotal.WithLabelValues(string(m), "busy").Inc()

		return models.Diagnostics{
			PathfindingMode: m,
			Epoch:           s.engine.Epoch(),
			Partial:         true,
			Error:           fmt.Sprintf("timeout: waiting for analysis slot: %v", err),
		}, nil
	}
	defer s.diagSlots.Release(1)

	snap := s.engine.Snapshot()
	if snap == nil {
		loaded, err := s.engine.Preload(waitCtx)
		if err != nil {
			s.log.WithError(err).Warn("diagnostics requested before graph could load")
		}
		snap = loaded
	}

	d := s.analyzer.Analyze(ctx, snap, m)

	result := "ok"
	switch {
	case d.Partial:
		result = "partial"
	case d.Error != "":
		result = "error"
	}
	metrics.DiagnosticsTotal.WithLabelValues(string(m), result).Inc()

	if d.Error != "" {
		s.log.WithFields(logrus.Fields{
			"mode":  m,
			"error": d.Error,
		}).Warn("diagnostics degraded")
	}

	return d, nil
}

// Preload rebuilds the snapshot from the store.
func (s *NavigationService) Preload(ctx context.Context) (*PreloadResult, error) {
	start := time.Now()

	snap, err := s.engine.Preload(ctx)
	metrics.PreloadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PreloadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.PreloadsTotal.WithLabelValues("ok").Inc()

	return &PreloadResult{
		Epoch:    snap.Epoch(),
		Metadata: snap.Metadata(),
		Issues:   snap.Issues(),
	}, nil
}

// Reload implements db.Reloader.
func (s *NavigationService) Reload(ctx context.Context) error {
	_, err := s.Preload(ctx)
	return err
}

// Export returns the persistence format of the current snapshot, loading it
// first if needed.
func (s *NavigationService) Export(ctx context.Context) (*models.GraphExport, error) {
	snap := s.engine.Snapshot()
	if snap == nil {
		var err error
		if snap, err = s.engine.Preload(ctx); err != nil {
			return nil, err
		}
	}

	export := snap.Export()

	return &export, nil
}

// Loaded reports whether a snapshot is being served, and its epoch.
func (s *NavigationService) Loaded() (bool, uint64) {
	return s.engine.IsLoaded(), s.engine.Epoch()
}

func (s *NavigationService) onReload(snap *graph.Snapshot) {
	meta := snap.Metadata()
	issues := snap.Issues()

	metrics.SnapshotEpoch.Set(float64(snap.Epoch()))
	metrics.NodeCount.Set(float64(snap.Len()))
	metrics.EdgeCount.Set(float64(meta.TotalConnections))
	metrics.SkippedRecords.WithLabelValues("malformed_parcel").Set(float64(issues.SkippedParcels))
	metrics.SkippedRecords.WithLabelValues("dangling_reference").Set(float64(issues.DanglingReferences))
	metrics.SkippedRecords.WithLabelValues("rejected_connection").Set(float64(issues.RejectedConnections))

	if s.notifier != nil {
		s.notifier.GraphReloaded(ws.ReloadedData{
			Epoch:            snap.Epoch(),
			TotalParcels:     meta.TotalParcels,
			TotalConnections: meta.TotalConnections,
		})
	}

	if s.publisher != nil {
		go s.publish(snap)
	}
}

func (s *NavigationService) publish(snap *graph.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, snap.Export()); err != nil {
		s.log.WithError(err).WithField("epoch", snap.Epoch()).Warn("caching graph snapshot")
	}
}
