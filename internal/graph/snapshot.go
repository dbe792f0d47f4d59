// Package graph assembles the parcel navigation graph and exposes it as an
// immutable Snapshot with mode-specific edge views.
//
// The real view is a weighted adjacency list built from persisted bridge
// connections and canal/dock links. The all view is an implicit complete
// graph over every node weighted by centroid distance; it is never materialized.
package graph

import (
	"sort"

	"github.com/persistorai/navgraph/internal/geo"
	"github.com/persistorai/navgraph/internal/models"
)

// neighbor is an adjacency entry in the real view.
type neighbor struct {
	to   int
	dist float64
}

// node holds per-parcel data the views need.
type node struct {
	id           string
	centroid     models.Point
	bridgePoints int
}

// Issues counts records the builder skipped or dropped.
type Issues struct {
	SkippedParcels      int `json:"skippedParcels"`
	DanglingReferences  int `json:"danglingReferences"`
	RejectedConnections int `json:"rejectedConnections"`
}

// Snapshot is an immutable navigation graph. Nodes are indexed 0..Len()-1 in
// ascending id order; every accessor is safe for concurrent use.
type Snapshot struct {
	nodes     []node
	index     map[string]int
	adj       [][]neighbor
	canal     [][]int
	enhanced  map[string]models.EnhancedNode
	realEdges int
	meta      models.GraphMetadata
	issues    Issues
	epoch     uint64
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int { return len(s.nodes) }

// ID returns the parcel id of node i.
func (s *Snapshot) ID(i int) string { return s.nodes[i].id }

// IndexOf returns the node index for a parcel id.
func (s *Snapshot) IndexOf(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// HasNode reports whether id is a node of the graph.
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Nodes returns all node ids in ascending order.
func (s *Snapshot) Nodes() []string {
	out := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.id
	}

	return out
}

// Node returns the enhanced view of a single node.
func (s *Snapshot) Node(id string) (models.EnhancedNode, bool) {
	en, ok := s.enhanced[id]
	if !ok {
		return models.EnhancedNode{}, false
	}

	en.Connections = append([]models.EnhancedConnection{}, en.Connections...)

	return en, true
}

// Neighbors returns the ids adjacent to id under mode, in ascending order.
// It returns nil when id is not a node.
func (s *Snapshot) Neighbors(id string, mode models.Mode) []string {
	i, ok := s.index[id]
	if !ok {
		return nil
	}

	out := make([]string, 0, s.Degree(i, mode))
	s.ForEachNeighbor(i, mode, func(j int, _ float64) bool {
		out = append(out, s.nodes[j].id)
		return true
	})

	return out
}

// Centroid returns the centroid of node i.
func (s *Snapshot) Centroid(i int) models.Point { return s.nodes[i].centroid }

// BridgePointCount returns how many bridge points node i's parcel declares.
func (s *Snapshot) BridgePointCount(i int) int { return s.nodes[i].bridgePoints }

// CanalNeighbors returns the canal-only neighbours of node i in ascending order.
// The returned slice must not be modified.
func (s *Snapshot) CanalNeighbors(i int) []int { return s.canal[i] }

// Degree returns the number of neighbours of node i under mode.
func (s *Snapshot) Degree(i int, mode models.Mode) int {
	if mode == models.ModeAll {
		return len(s.nodes) - 1
	}

	return len(s.adj[i])
}

// ForEachNeighbor calls fn for every neighbour of node i under mode, in
// ascending index order, with the edge distance in meters. Iteration stops
// early when fn returns false.
func (s *Snapshot) ForEachNeighbor(i int, mode models.Mode, fn func(j int, dist float64) bool) {
	if mode == models.ModeAll {
		from := s.nodes[i].centroid
		for j := range s.nodes {
			if j == i {
				continue
			}

			if !fn(j, geo.Distance(from, s.nodes[j].centroid)) {
				return
			}
		}

		return
	}

	for _, nb := range s.adj[i] {
		if !fn(nb.to, nb.dist) {
			return
		}
	}
}

// EdgeCount returns the number of undirected edges active under mode.
func (s *Snapshot) EdgeCount(mode models.Mode) int {
	if mode == models.ModeAll {
		n := len(s.nodes)
		return n * (n - 1) / 2
	}

	return s.realEdges
}

// Metadata returns the build summary.
func (s *Snapshot) Metadata() models.GraphMetadata { return s.meta }

// Issues returns counts of records skipped during build.
func (s *Snapshot) Issues() Issues { return s.issues }

// Epoch returns the version stamped on the snapshot by the loader, 0 if unstamped.
func (s *Snapshot) Epoch() uint64 { return s.epoch }

// WithEpoch returns a copy of the snapshot stamped with epoch. The copy shares
// the read-only graph data with the receiver.
func (s *Snapshot) WithEpoch(epoch uint64) *Snapshot {
	cp := *s
	cp.epoch = epoch

	return &cp
}

// Simple returns the deduplicated, bidirectional neighbour-id view of the real edges.
func (s *Snapshot) Simple() map[string][]string {
	out := make(map[string][]string, len(s.nodes))
	for i, n := range s.nodes {
		ids := make([]string, len(s.adj[i]))
		for k, nb := range s.adj[i] {
			ids[k] = s.nodes[nb.to].id
		}

		out[n.id] = ids
	}

	return out
}

// Enhanced returns the per-connection view with centroids and bridge endpoints.
func (s *Snapshot) Enhanced() map[string]models.EnhancedNode {
	out := make(map[string]models.EnhancedNode, len(s.enhanced))
	for id, en := range s.enhanced {
		out[id] = models.EnhancedNode{
			Centroid:    en.Centroid,
			Connections: append([]models.EnhancedConnection{}, en.Connections...),
		}
	}

	return out
}

// Export renders the snapshot in its cacheable persistence format.
func (s *Snapshot) Export() models.GraphExport {
	return models.GraphExport{
		Simple:   s.Simple(),
		Enhanced: s.Enhanced(),
		Metadata: s.meta,
		Epoch:    s.epoch,
	}
}

// sortNeighbors orders an adjacency row by target index.
func sortNeighbors(row []neighbor) {
	sort.Slice(row, func(a, b int) bool { return row[a].to < row[b].to })
}
