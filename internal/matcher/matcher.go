package matcher

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/geo"
	"github.com/persistorai/navgraph/internal/models"
)

// ParcelStore is the persistence contract the matcher reads from and writes to.
type ParcelStore interface {
	LoadAll(ctx context.Context) ([]models.Parcel, error)
	Save(ctx context.Context, id string, parcel models.Parcel) error
}

// Report summarizes one matching run.
type Report struct {
	ParcelsScanned int `json:"parcelsScanned"`
	PointsExamined int `json:"pointsExamined"`
	PointsSkipped  int `json:"pointsSkipped"`
	PairsMatched   int `json:"pairsMatched"`
	ParcelsSaved   int `json:"parcelsSaved"`
	SaveFailures   int `json:"saveFailures"`
}

// Matcher connects unmatched bridge points to their nearest unmatched
// counterpart on another parcel. It must not run concurrently with itself
// against the same store; callers provide that exclusion.
type Matcher struct {
	store       ParcelStore
	log         *logrus.Logger
	maxDistance float64
	newIndex    IndexBuilder
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMaxDistance overrides the matching threshold in meters.
func WithMaxDistance(meters float64) Option {
	return func(m *Matcher) { m.maxDistance = meters }
}

// WithIndex selects the nearest-neighbour implementation.
func WithIndex(b IndexBuilder) Option {
	return func(m *Matcher) { m.newIndex = b }
}

// New creates a Matcher. Defaults: 25 m threshold, grid index.
func New(store ParcelStore, log *logrus.Logger, opts ...Option) *Matcher {
	m := &Matcher{
		store:       store,
		log:         log,
		maxDistance: models.DefaultMaxBridgeDistance,
		newIndex:    NewGridIndex,
	}
	for _, o := range opts {
		o(m)
	}

	return m
}

// MaxDistance returns the configured threshold in meters.
func (m *Matcher) MaxDistance() float64 { return m.maxDistance }

// Run matches every unmatched bridge point in the store and saves the parcels
// it changed. Points that already carry a connection are never touched, so a
// second run over the same data is a no-op. A failed save is logged and counted;
// the rest of the batch still proceeds. If ctx is cancelled mid-scan, matches
// found so far are saved and the context error is returned with the report.
func (m *Matcher) Run(ctx context.Context) (*Report, error) {
	records, err := m.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading parcels: %w", err)
	}

	parcels := m.workingSet(records)
	report := &Report{ParcelsScanned: len(parcels)}
	index := m.newIndex(parcels, m.maxDistance)
	byID := make(map[string]*models.Parcel, len(parcels))
	for _, p := range parcels {
		byID[p.ID] = p
	}

	dirty := make(map[string]bool)
	var scanErr error

scan:
	for _, p := range parcels {
		if err := ctx.Err(); err != nil {
			scanErr = fmt.Errorf("matching interrupted: %w", err)
			break scan
		}

		for i := range p.BridgePoints {
			bp := &p.BridgePoints[i]
			if bp.Matched() {
				continue
			}

			report.PointsExamined++

			if !geo.ValidPoint(bp.Edge) {
				report.PointsSkipped++
				m.log.WithFields(logrus.Fields{
					"parcel_id":   p.ID,
					"point_index": i,
				}).Warn("skipping bridge point with invalid coordinate")

				continue
			}

			cand, ok := index.FindNearestUnmatched(Ref{ParcelID: p.ID, Index: i}, bp.Edge)
			if !ok {
				continue
			}

			target := byID[cand.ParcelID]
			tbp := &target.BridgePoints[cand.Index]

			bp.Connection = &models.Connection{
				TargetParcelID:   cand.ParcelID,
				TargetPointIndex: cand.Index,
				TargetPoint:      cand.Point,
				Distance:         cand.Distance,
			}
			tbp.Connection = &models.Connection{
				TargetParcelID:   p.ID,
				TargetPointIndex: i,
				TargetPoint:      bp.Edge,
				Distance:         cand.Distance,
			}

			dirty[p.ID] = true
			dirty[cand.ParcelID] = true
			report.PairsMatched++

			m.log.WithFields(logrus.Fields{
				"parcel_id":   p.ID,
				"point_index": i,
				"target_id":   cand.ParcelID,
				"target_idx":  cand.Index,
				"distance_m":  cand.Distance,
			}).Debug("matcher.pair")
		}
	}

	m.save(ctx, byID, dirty, report)

	m.log.WithFields(logrus.Fields{
		"parcels":       report.ParcelsScanned,
		"examined":      report.PointsExamined,
		"skipped":       report.PointsSkipped,
		"pairs":         report.PairsMatched,
		"saved":         report.ParcelsSaved,
		"save_failures": report.SaveFailures,
	}).Info("bridge matching finished")

	return report, scanErr
}

// workingSet deep-copies the records, drops the ones the graph builder would
// not accept as nodes and sorts by id. A dropped parcel neither matches nor
// gets matched.
func (m *Matcher) workingSet(records []models.Parcel) []*models.Parcel {
	seen := make(map[string]bool, len(records))
	out := make([]*models.Parcel, 0, len(records))

	for i := range records {
		r := &records[i]
		if r.ID == "" {
			m.log.WithField("position", i).Warn("skipping parcel without id")
			continue
		}

		if seen[r.ID] {
			m.log.WithField("parcel_id", r.ID).Warn("skipping duplicate parcel id")
			continue
		}

		if !geo.ValidRing(r.Coordinates) {
			m.log.WithError(&models.DataError{ParcelID: r.ID, Reason: "invalid coordinate ring"}).Warn("skipping parcel")

			continue
		}

		seen[r.ID] = true
		cp := r.Clone()
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// save persists changed parcels in id order. Saves use a context detached
// from cancellation so an interrupted scan still records its matches.
func (m *Matcher) save(ctx context.Context, byID map[string]*models.Parcel, dirty map[string]bool, report *Report) {
	ids := make([]string, 0, len(dirty))
	for id := range dirty {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	saveCtx := context.WithoutCancel(ctx)

	for _, id := range ids {
		if err := m.store.Save(saveCtx, id, *byID[id]); err != nil {
			report.SaveFailures++
			m.log.WithError(err).WithField("parcel_id", id).Error("saving matched parcel")

			continue
		}

		report.ParcelsSaved++
	}
}
