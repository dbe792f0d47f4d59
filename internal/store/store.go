// Package store provides the parcel store and water registries the
// navigation graph reads from, backed either by PostgreSQL or by a
// directory of JSON files.
//
// The core packages depend only on the small interfaces below; the
// storage medium is a deployment choice.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/dbpool"
	"github.com/persistorai/navgraph/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// ChangeChannel is the LISTEN/NOTIFY channel PGStore signals after writes.
const ChangeChannel = "navgraph_changes"

// ErrLocked is returned when another writer holds the match lock.
var ErrLocked = errors.New("store is locked by another writer")

// ParcelStore is the parcel record store.
type ParcelStore interface {
	LoadAll(ctx context.Context) ([]models.Parcel, error)
	LoadOne(ctx context.Context, id string) (*models.Parcel, error)
	Save(ctx context.Context, id string, parcel models.Parcel) error
}

// WaterRegistry supplies canal and dock connectivity.
type WaterRegistry interface {
	LoadCanalLinks(ctx context.Context) ([]models.CanalLink, error)
	LoadDocks(ctx context.Context) ([]models.Dock, error)
}

// Locker grants the single-writer lock a matching run must hold.
// The returned release func is safe to call once.
type Locker interface {
	Lock(ctx context.Context) (release func() error, err error)
}

// Store is everything a backend provides.
type Store interface {
	ParcelStore
	WaterRegistry
	Locker
}

// Base contains shared dependencies for the Postgres store.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// notify sends a pg_notify on ChangeChannel (best-effort, post-commit).
func (b *Base) notify(op, parcelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, _ := json.Marshal(map[string]any{ //nolint:errcheck // static keys, cannot fail.
		"table":     "parcels",
		"op":        op,
		"parcel_id": parcelID,
	})
	if _, err := b.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", ChangeChannel, string(payload)); err != nil {
		b.Log.WithError(err).Warn("failed to send " + op + " parcels notification")
	}
}
