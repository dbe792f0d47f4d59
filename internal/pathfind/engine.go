// Package pathfind answers mode-aware shortest-path queries over a loaded
// graph snapshot and owns snapshot (re)loading.
package pathfind

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/persistorai/navgraph/internal/graph"
	"github.com/persistorai/navgraph/internal/models"
)

// preloadKey is the single singleflight key; there is one snapshot per engine.
const preloadKey = "snapshot"

// Loader produces a fresh graph snapshot.
type Loader interface {
	Load(ctx context.Context) (*graph.Snapshot, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (*graph.Snapshot, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (*graph.Snapshot, error) { return f(ctx) }

// Engine holds the current snapshot and serves pathfinding queries against it.
// Readers never lock: the snapshot pointer is swapped atomically and snapshots
// are immutable. The pathfinding mode is a per-call argument, never engine state.
type Engine struct {
	loader Loader
	log    *logrus.Logger
	group  singleflight.Group

	current atomic.Pointer[graph.Snapshot]
	epoch   atomic.Uint64

	mu        sync.Mutex
	observers []func(*graph.Snapshot)
}

// NewEngine creates an Engine with no snapshot loaded.
func NewEngine(loader Loader, log *logrus.Logger) *Engine {
	return &Engine{loader: loader, log: log}
}

// OnReload registers fn to be called with each newly installed snapshot.
// Callbacks run on the preloading goroutine and must not block.
func (e *Engine) OnReload(fn func(*graph.Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.observers = append(e.observers, fn)
}

// IsLoaded reports whether a snapshot is available.
func (e *Engine) IsLoaded() bool { return e.current.Load() != nil }

// Epoch returns the epoch of the current snapshot, 0 when nothing is loaded.
func (e *Engine) Epoch() uint64 { return e.epoch.Load() }

// Snapshot returns the current snapshot or nil.
func (e *Engine) Snapshot() *graph.Snapshot { return e.current.Load() }

// Preload loads a fresh snapshot and installs it. Concurrent callers share a
// single in-flight load. The shared load is detached from any one caller's
// cancellation; each caller stops waiting when its own ctx is done. On failure
// the previous snapshot stays in place.
func (e *Engine) Preload(ctx context.Context) (*graph.Snapshot, error) {
	ch := e.group.DoChan(preloadKey, func() (any, error) {
		return e.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for preload: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		snap, ok := res.Val.(*graph.Snapshot)
		if !ok {
			return nil, fmt.Errorf("pathfind: unexpected singleflight result type %T", res.Val)
		}

		return snap, nil
	}
}

func (e *Engine) load(ctx context.Context) (*graph.Snapshot, error) {
	start := time.Now()

	snap, err := e.loader.Load(ctx)
	if err != nil {
		e.log.WithError(err).Error("preloading navigation graph")
		return nil, fmt.Errorf("loading graph: %w", err)
	}

	if snap == nil {
		return nil, fmt.Errorf("loading graph: loader returned no snapshot")
	}

	snap = snap.WithEpoch(e.epoch.Add(1))
	e.current.Store(snap)

	e.log.WithFields(logrus.Fields{
		"epoch":    snap.Epoch(),
		"nodes":    snap.Len(),
		"duration": time.Since(start).String(),
	}).Info("navigation graph loaded")

	e.mu.Lock()
	observers := append([]func(*graph.Snapshot){}, e.observers...)
	e.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}

	return snap, nil
}

// ensure returns the current snapshot, preloading on first use.
func (e *Engine) ensure(ctx context.Context) (*graph.Snapshot, error) {
	if snap := e.current.Load(); snap != nil {
		return snap, nil
	}

	snap, err := e.Preload(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrNotLoaded, err)
	}

	return snap, nil
}

// FindPath finds the shortest path from origin to destination under mode.
// It returns an error wrapping models.ErrInvalidNode when either endpoint is
// not a graph node; a valid query with no connecting path returns a result
// with status unreachable and a nil error.
func (e *Engine) FindPath(ctx context.Context, origin, destination string, mode models.Mode) (*models.PathResult, error) {
	snap, err := e.ensure(ctx)
	if err != nil {
		return nil, err
	}

	return ShortestPath(ctx, snap, origin, destination, mode)
}
