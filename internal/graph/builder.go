package graph

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/geo"
	"github.com/persistorai/navgraph/internal/models"
)

// Water holds the canal and dock connectivity supplied alongside the parcels.
type Water struct {
	Links []models.CanalLink
	Docks []models.Dock
}

// BuildOptions configures Build.
type BuildOptions struct {
	// MaxBridgeDistance rejects stored connections longer than this many
	// meters. Zero means models.DefaultMaxBridgeDistance.
	MaxBridgeDistance float64
	// Now stamps Metadata.GeneratedAt. Nil means time.Now.
	Now func() time.Time
	Log *logrus.Logger
}

// bridgeKey identifies one physical bridge regardless of which side declared it.
type bridgeKey struct {
	a, b   int
	ai, bi int
}

type bridgeEdge struct {
	aPoint, bPoint models.Point
	dist           float64
}

// pairKey is an unordered node pair with a < b.
type pairKey struct{ a, b int }

func newPair(x, y int) pairKey {
	if x > y {
		x, y = y, x
	}

	return pairKey{a: x, b: y}
}

type canalEdge struct {
	aPoint, bPoint models.Point
	dist           float64
}

// builder carries state through one Build call.
type builder struct {
	opts    BuildOptions
	log     *logrus.Logger
	snap    *Snapshot
	parcels []*models.Parcel
	bridges map[bridgeKey]bridgeEdge
	canals  map[pairKey]canalEdge
}

// Build assembles a Snapshot from parcels and water connectivity. It never
// fails: malformed parcels are skipped, and connections to unknown parcels
// are dropped. Both are logged and counted in Snapshot.Issues.
func Build(parcels []models.Parcel, water Water, opts BuildOptions) *Snapshot {
	if opts.MaxBridgeDistance <= 0 {
		opts.MaxBridgeDistance = models.DefaultMaxBridgeDistance
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	b := &builder{
		opts:    opts,
		log:     opts.Log,
		snap:    &Snapshot{index: make(map[string]int)},
		bridges: make(map[bridgeKey]bridgeEdge),
		canals:  make(map[pairKey]canalEdge),
	}

	b.addNodes(parcels)
	b.addBridges()
	b.addCanalLinks(water.Links)
	b.addDocks(water.Docks)
	b.assemble()

	b.log.WithFields(logrus.Fields{
		"nodes":                b.snap.meta.TotalParcels,
		"connections":          b.snap.meta.TotalConnections,
		"skipped_parcels":      b.snap.issues.SkippedParcels,
		"dangling_references":  b.snap.issues.DanglingReferences,
		"rejected_connections": b.snap.issues.RejectedConnections,
	}).Info("navigation graph built")

	return b.snap
}

func (b *builder) skipParcel(err *models.DataError) {
	b.snap.issues.SkippedParcels++
	b.log.WithField("parcel_id", err.ParcelID).Warn("skipping parcel: " + err.Reason)
}

func (b *builder) dangling(err *models.ReferenceError) {
	b.snap.issues.DanglingReferences++
	b.log.WithFields(logrus.Fields{
		"parcel_id": err.ParcelID,
		"target_id": err.TargetID,
		"kind":      err.Kind,
	}).Warn("dropping connection to unknown parcel")
}

func (b *builder) reject(parcelID string, kind models.EdgeKind, reason string) {
	b.snap.issues.RejectedConnections++
	b.log.WithFields(logrus.Fields{
		"parcel_id": parcelID,
		"kind":      kind,
	}).Warn("dropping connection: " + reason)
}

// addNodes validates parcels and registers them as nodes in id order.
func (b *builder) addNodes(parcels []models.Parcel) {
	seen := make(map[string]bool, len(parcels))

	for i := range parcels {
		p := &parcels[i]

		switch {
		case p.ID == "":
			b.skipParcel(&models.DataError{Reason: "missing id"})
			continue
		case seen[p.ID]:
			b.skipParcel(&models.DataError{ParcelID: p.ID, Reason: "duplicate id"})
			continue
		case !geo.ValidRing(p.Coordinates):
			b.skipParcel(&models.DataError{ParcelID: p.ID, Reason: "invalid coordinate ring"})
			continue
		}

		seen[p.ID] = true
		b.parcels = append(b.parcels, p)
	}

	sort.Slice(b.parcels, func(i, j int) bool { return b.parcels[i].ID < b.parcels[j].ID })

	b.snap.nodes = make([]node, len(b.parcels))
	for i, p := range b.parcels {
		centroid := geo.Centroid(p.Coordinates)
		if p.Centroid != nil && geo.ValidPoint(*p.Centroid) {
			centroid = *p.Centroid
		}

		b.snap.nodes[i] = node{id: p.ID, centroid: centroid, bridgePoints: len(p.BridgePoints)}
		b.snap.index[p.ID] = i
	}
}

// addBridges turns stored bridge connections into undirected bridge edges.
// A connection declared on one side only still yields a symmetric edge.
func (b *builder) addBridges() {
	for ai, p := range b.parcels {
		for pi, bp := range p.BridgePoints {
			c := bp.Connection
			if c == nil {
				continue
			}

			ti, ok := b.snap.index[c.TargetParcelID]
			if !ok {
				b.dangling(&models.ReferenceError{ParcelID: p.ID, TargetID: c.TargetParcelID, Kind: models.EdgeBridge})
				continue
			}

			if ti == ai {
				b.reject(p.ID, models.EdgeBridge, "self connection")
				continue
			}

			if !validDistance(c.Distance) || c.Distance > b.opts.MaxBridgeDistance {
				b.reject(p.ID, models.EdgeBridge, "distance out of range")
				continue
			}

			key := bridgeKey{a: ai, ai: pi, b: ti, bi: c.TargetPointIndex}
			edge := bridgeEdge{aPoint: bp.Edge, bPoint: c.TargetPoint, dist: c.Distance}

			if ti < ai {
				key = bridgeKey{a: ti, ai: c.TargetPointIndex, b: ai, bi: pi}
				edge = bridgeEdge{aPoint: c.TargetPoint, bPoint: bp.Edge, dist: c.Distance}
			}

			if prev, dup := b.bridges[key]; dup && prev.dist <= edge.dist {
				continue
			}

			b.bridges[key] = edge
		}
	}
}

func (b *builder) addCanal(x, y int, xPoint, yPoint models.Point, dist float64) {
	key := newPair(x, y)
	if key.a != x {
		xPoint, yPoint = yPoint, xPoint
	}

	if prev, dup := b.canals[key]; dup && prev.dist <= dist {
		return
	}

	b.canals[key] = canalEdge{aPoint: xPoint, bPoint: yPoint, dist: dist}
}

func (b *builder) addCanalLinks(links []models.CanalLink) {
	for _, l := range links {
		from, okFrom := b.snap.index[l.FromParcelID]
		to, okTo := b.snap.index[l.ToParcelID]

		switch {
		case !okFrom:
			b.dangling(&models.ReferenceError{ParcelID: l.ToParcelID, TargetID: l.FromParcelID, Kind: models.EdgeCanal})
			continue
		case !okTo:
			b.dangling(&models.ReferenceError{ParcelID: l.FromParcelID, TargetID: l.ToParcelID, Kind: models.EdgeCanal})
			continue
		case from == to:
			b.reject(l.FromParcelID, models.EdgeCanal, "self connection")
			continue
		}

		fc, tc := b.snap.nodes[from].centroid, b.snap.nodes[to].centroid
		dist := l.Distance
		if dist <= 0 || !validDistance(dist) {
			dist = geo.Distance(fc, tc)
		}

		b.addCanal(from, to, fc, tc, dist)
	}
}

// addDocks links every pair of parcels whose docks share a canal segment.
func (b *builder) addDocks(docks []models.Dock) {
	type placed struct {
		node int
		dock models.Dock
	}

	segments := make(map[string][]placed)

	for _, d := range docks {
		n, ok := b.snap.index[d.ParcelID]
		switch {
		case !ok:
			b.dangling(&models.ReferenceError{ParcelID: d.ID, TargetID: d.ParcelID, Kind: models.EdgeCanal})
			continue
		case d.CanalSegment == "":
			continue
		case !geo.ValidPoint(d.Position):
			b.reject(d.ParcelID, models.EdgeCanal, "dock "+d.ID+" has invalid position")
			continue
		}

		segments[d.CanalSegment] = append(segments[d.CanalSegment], placed{node: n, dock: d})
	}

	for _, group := range segments {
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				x, y := group[i], group[j]
				if x.node == y.node {
					continue
				}

				b.addCanal(x.node, y.node, x.dock.Position, y.dock.Position, geo.Distance(x.dock.Position, y.dock.Position))
			}
		}
	}
}

// assemble builds the adjacency views and metadata from collected edges.
func (b *builder) assemble() {
	n := len(b.snap.nodes)
	weights := make(map[pairKey]float64, len(b.bridges)+len(b.canals))

	keep := func(k pairKey, d float64) {
		if prev, ok := weights[k]; !ok || d < prev {
			weights[k] = d
		}
	}

	enhanced := make([][]models.EnhancedConnection, n)
	link := func(x, y int, xPoint, yPoint models.Point, dist float64, kind models.EdgeKind) {
		enhanced[x] = append(enhanced[x], models.EnhancedConnection{
			TargetID: b.snap.nodes[y].id, SourcePoint: xPoint, TargetPoint: yPoint, Distance: dist, Kind: kind,
		})
		enhanced[y] = append(enhanced[y], models.EnhancedConnection{
			TargetID: b.snap.nodes[x].id, SourcePoint: yPoint, TargetPoint: xPoint, Distance: dist, Kind: kind,
		})
	}

	for k, e := range b.bridges {
		keep(newPair(k.a, k.b), e.dist)
		link(k.a, k.b, e.aPoint, e.bPoint, e.dist, models.EdgeBridge)
	}

	b.snap.canal = make([][]int, n)
	for k, e := range b.canals {
		keep(k, e.dist)
		link(k.a, k.b, e.aPoint, e.bPoint, e.dist, models.EdgeCanal)
		b.snap.canal[k.a] = append(b.snap.canal[k.a], k.b)
		b.snap.canal[k.b] = append(b.snap.canal[k.b], k.a)
	}

	b.snap.adj = make([][]neighbor, n)
	for k, d := range weights {
		b.snap.adj[k.a] = append(b.snap.adj[k.a], neighbor{to: k.b, dist: d})
		b.snap.adj[k.b] = append(b.snap.adj[k.b], neighbor{to: k.a, dist: d})
	}

	b.snap.enhanced = make(map[string]models.EnhancedNode, n)
	withBridges := 0

	for i := range b.snap.nodes {
		sortNeighbors(b.snap.adj[i])
		sort.Ints(b.snap.canal[i])
		sortConnections(enhanced[i])

		conns := enhanced[i]
		if conns == nil {
			conns = []models.EnhancedConnection{}
		}

		b.snap.enhanced[b.snap.nodes[i].id] = models.EnhancedNode{Centroid: b.snap.nodes[i].centroid, Connections: conns}

		if b.snap.nodes[i].bridgePoints > 0 {
			withBridges++
		}
	}

	b.snap.realEdges = len(weights)
	b.snap.meta = models.GraphMetadata{
		TotalParcels:       n,
		ParcelsWithBridges: withBridges,
		TotalConnections:   len(b.bridges) + len(b.canals),
		GeneratedAt:        b.opts.Now().UTC(),
	}
}

func sortConnections(cs []models.EnhancedConnection) {
	sort.Slice(cs, func(i, j int) bool {
		a, c := cs[i], cs[j]
		if a.TargetID != c.TargetID {
			return a.TargetID < c.TargetID
		}

		if a.Kind != c.Kind {
			return a.Kind < c.Kind
		}

		if a.Distance != c.Distance {
			return a.Distance < c.Distance
		}

		if a.SourcePoint.Lat != c.SourcePoint.Lat {
			return a.SourcePoint.Lat < c.SourcePoint.Lat
		}

		return a.SourcePoint.Lng < c.SourcePoint.Lng
	})
}

func validDistance(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d >= 0
}
