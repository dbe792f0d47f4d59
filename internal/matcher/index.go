// Package matcher pairs unmatched bridge points across parcels.
//
// Nearest-neighbour search sits behind the Index interface so the pairwise
// scan can be swapped for a spatial index without touching the matcher.
// Both implementations here return identical results: strict nearest within
// the threshold, ties resolved by (parcel id, point index) ascending. The grid
// wraps around the antimeridian so neighbours across ±180° are still compared.
package matcher

import (
	"math"
	"slices"
	"sort"

	"github.com/persistorai/navgraph/internal/geo"
	"github.com/persistorai/navgraph/internal/models"
)

// Ref identifies a bridge point by its parcel and position in BridgePoints.
type Ref struct {
	ParcelID string
	Index    int
}

func (r Ref) less(o Ref) bool {
	if r.ParcelID != o.ParcelID {
		return r.ParcelID < o.ParcelID
	}

	return r.Index < o.Index
}

// Candidate is a match proposal returned by an Index.
type Candidate struct {
	Ref
	Point    models.Point
	Distance float64
}

// Index finds the nearest unmatched bridge point on a different parcel.
type Index interface {
	FindNearestUnmatched(origin Ref, at models.Point) (Candidate, bool)
}

// IndexBuilder constructs an Index over the given working parcels. The index
// reads match state from the parcels at query time, so connections written
// by the matcher are seen by later queries.
type IndexBuilder func(parcels []*models.Parcel, maxDistance float64) Index

// entry is an indexed bridge point.
type entry struct {
	ref   Ref
	point models.Point
	bp    *models.BridgePoint
}

// collect returns every bridge point with a valid coordinate, sorted by ref.
func collect(parcels []*models.Parcel) []entry {
	var out []entry

	for _, p := range parcels {
		for i := range p.BridgePoints {
			bp := &p.BridgePoints[i]
			if !geo.ValidPoint(bp.Edge) {
				continue
			}

			out = append(out, entry{ref: Ref{ParcelID: p.ID, Index: i}, point: bp.Edge, bp: bp})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ref.less(out[j].ref) })

	return out
}

// bestOf keeps the running best candidate across a scan.
type bestOf struct {
	origin      Ref
	at          models.Point
	maxDistance float64
	best        Candidate
	found       bool
}

func (b *bestOf) consider(e *entry) {
	if e.ref.ParcelID == b.origin.ParcelID || e.bp.Matched() {
		return
	}

	d := geo.Distance(b.at, e.point)
	if d > b.maxDistance {
		return
	}

	if !b.found || d < b.best.Distance || (d == b.best.Distance && e.ref.less(b.best.Ref)) {
		b.best = Candidate{Ref: e.ref, Point: e.point, Distance: d}
		b.found = true
	}
}

// BruteForceIndex compares the origin against every indexed point.
type BruteForceIndex struct {
	entries     []entry
	maxDistance float64
}

// NewBruteForceIndex is an IndexBuilder for the pairwise scan.
func NewBruteForceIndex(parcels []*models.Parcel, maxDistance float64) Index {
	return &BruteForceIndex{entries: collect(parcels), maxDistance: maxDistance}
}

// FindNearestUnmatched implements Index.
func (x *BruteForceIndex) FindNearestUnmatched(origin Ref, at models.Point) (Candidate, bool) {
	b := bestOf{origin: origin, at: at, maxDistance: x.maxDistance}
	for i := range x.entries {
		b.consider(&x.entries[i])
	}

	return b.best, b.found
}

// gridMargin widens grid cells slightly so planar cell bounds never cut
// inside the haversine threshold.
const gridMargin = 1.05

// minLngCells is the fewest longitude cells the grid splits into.
const minLngCells = 8

// cell is a grid bucket key.
type cell struct{ lat, lng int }

// GridIndex buckets points in a uniform lat/lng grid whose cells are at least
// maxDistance wide, so only the 3x3 neighbourhood of the origin is scanned.
// Longitude cells evenly divide 360° and wrap.
type GridIndex struct {
	cells       map[cell][]entry
	latStep     float64
	lngStep     float64
	lngCells    int
	maxDistance float64
}

// NewGridIndex is an IndexBuilder for the uniform grid.
func NewGridIndex(parcels []*models.Parcel, maxDistance float64) Index {
	entries := collect(parcels)

	maxAbsLat := 0.0
	for _, e := range entries {
		maxAbsLat = math.Max(maxAbsLat, math.Abs(e.point.Lat))
	}

	span := math.Max(maxDistance, 1) * gridMargin
	cosLat := math.Cos(maxAbsLat * math.Pi / 180)

	// Rounding the cell count down only widens cells. Past 45° per cell the
	// small-angle bound no longer holds within gridMargin, so the grid
	// collapses to a single longitude band.
	lngCells := int(360 * geo.MetersPerDegreeLat * cosLat / span)
	if lngCells < minLngCells {
		lngCells = 1
	}

	g := &GridIndex{
		cells:       make(map[cell][]entry),
		latStep:     span / geo.MetersPerDegreeLat,
		lngStep:     360 / float64(lngCells),
		lngCells:    lngCells,
		maxDistance: maxDistance,
	}

	// entries are sorted, so each bucket stays in ref order.
	for _, e := range entries {
		k := g.key(e.point)
		g.cells[k] = append(g.cells[k], e)
	}

	return g
}

func (g *GridIndex) key(p models.Point) cell {
	return cell{lat: int(math.Floor(p.Lat / g.latStep)), lng: g.wrap(int(math.Floor((p.Lng + 180) / g.lngStep)))}
}

// wrap folds a longitude cell index into [0, lngCells).
func (g *GridIndex) wrap(i int) int {
	return ((i % g.lngCells) + g.lngCells) % g.lngCells
}

// FindNearestUnmatched implements Index.
func (g *GridIndex) FindNearestUnmatched(origin Ref, at models.Point) (Candidate, bool) {
	b := bestOf{origin: origin, at: at, maxDistance: g.maxDistance}
	k := g.key(at)

	// A single longitude band is its own neighbour on both sides.
	lngs := make([]int, 0, 3)
	for dLng := -1; dLng <= 1; dLng++ {
		if l := g.wrap(k.lng + dLng); !slices.Contains(lngs, l) {
			lngs = append(lngs, l)
		}
	}

	for dLat := -1; dLat <= 1; dLat++ {
		for _, l := range lngs {
			bucket := g.cells[cell{lat: k.lat + dLat, lng: l}]
			for i := range bucket {
				b.consider(&bucket[i])
			}
		}
	}

	return b.best, b.found
}
