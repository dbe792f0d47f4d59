package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"

	"github.com/persistorai/navgraph/internal/models"
)

// matchLockKey is the pg advisory lock key guarding matching runs.
var matchLockKey = func() int64 {
	h := fnv.New64a()
	h.Write([]byte("navgraph.match")) //nolint:errcheck // hash writes never fail.

	return int64(h.Sum64()) //nolint:gosec // only the bit pattern matters.
}()

// PGStore stores parcels as JSONB documents and reads canal links and
// docks from their registry tables.
type PGStore struct {
	Base
}

// NewPGStore creates a PGStore.
func NewPGStore(base Base) *PGStore {
	return &PGStore{Base: base}
}

// LoadAll returns every parcel ordered by id. Rows whose document cannot be
// decoded are logged and skipped.
func (s *PGStore) LoadAll(ctx context.Context) ([]models.Parcel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, "SELECT id, data, updated_at FROM parcels ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying parcels: %w", err)
	}
	defer rows.Close()

	var out []models.Parcel

	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			var de *models.DataError
			if errors.As(err, &de) {
				s.Log.WithField("parcel_id", de.ParcelID).Warn("skipping parcel: " + de.Reason)
				continue
			}

			return nil, fmt.Errorf("scanning parcel row: %w", err)
		}

		out = append(out, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parcel rows: %w", err)
	}

	return out, nil
}

// LoadOne returns a single parcel or models.ErrParcelNotFound.
func (s *PGStore) LoadOne(ctx context.Context, id string) (*models.Parcel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, "SELECT id, data, updated_at FROM parcels WHERE id = $1", id)

	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrParcelNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("loading parcel %s: %w", id, err)
	}

	return p, nil
}

// Save upserts a parcel document and signals ChangeChannel.
func (s *PGStore) Save(ctx context.Context, id string, parcel models.Parcel) error {
	if id == "" || (parcel.ID != "" && parcel.ID != id) {
		return fmt.Errorf("saving parcel: id %q does not match record %q", id, parcel.ID)
	}

	parcel.ID = id
	parcel.UpdatedAt = nil

	data, err := json.Marshal(parcel)
	if err != nil {
		return fmt.Errorf("encoding parcel %s: %w", id, err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = s.Pool.Exec(ctx, `
		INSERT INTO parcels (id, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		id, data)
	if err != nil {
		return fmt.Errorf("saving parcel %s: %w", id, err)
	}

	s.notify("save", id)

	return nil
}

// LoadCanalLinks returns the canal link registry ordered by id.
func (s *PGStore) LoadCanalLinks(ctx context.Context) ([]models.CanalLink, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		"SELECT id, from_parcel_id, to_parcel_id, COALESCE(distance_m, 0) FROM canal_links ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying canal links: %w", err)
	}

	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CanalLink, error) {
		var l models.CanalLink
		err := row.Scan(&l.ID, &l.FromParcelID, &l.ToParcelID, &l.Distance)

		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning canal links: %w", err)
	}

	return links, nil
}

// LoadDocks returns the dock registry ordered by id. Only the fields the
// graph needs are read.
func (s *PGStore) LoadDocks(ctx context.Context) ([]models.Dock, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		"SELECT id, parcel_id, lat, lng, COALESCE(canal_segment, '') FROM docks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying docks: %w", err)
	}

	docks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Dock, error) {
		var d models.Dock
		err := row.Scan(&d.ID, &d.ParcelID, &d.Position.Lat, &d.Position.Lng, &d.CanalSegment)

		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning docks: %w", err)
	}

	return docks, nil
}

// Lock takes a session-level advisory lock on a dedicated connection. It
// returns ErrLocked without waiting when another session holds it.
func (s *PGStore) Lock(ctx context.Context) (func() error, error) {
	conn, err := s.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", matchLockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("taking advisory lock: %w", err)
	}

	if !ok {
		conn.Release()
		return nil, ErrLocked
	}

	return func() error {
		defer conn.Release()

		ctx, cancel := withTimeout(context.Background())
		defer cancel()

		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", matchLockKey); err != nil {
			return fmt.Errorf("releasing advisory lock: %w", err)
		}

		return nil
	}, nil
}
