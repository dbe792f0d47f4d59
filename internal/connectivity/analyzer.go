// Package connectivity computes structural diagnostics over a graph snapshot:
// connected components, node categories and canal network segments.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/persistorai/navgraph/internal/graph"
	"github.com/persistorai/navgraph/internal/models"
)

// Analyzer computes Diagnostics for a snapshot under a mode.
// The zero value uses the package defaults.
type Analyzer struct {
	// TopComponents caps ComponentSizes.LargestComponents.
	TopComponents int
	// Timeout bounds each Analyze call. Zero means the package default; a
	// negative value disables the bound and relies on the caller's ctx alone.
	Timeout time.Duration
}

// New returns an Analyzer, substituting defaults for non-positive values.
func New(topComponents int, timeout time.Duration) *Analyzer {
	if topComponents <= 0 {
		topComponents = models.DefaultTopComponents
	}

	if timeout == 0 {
		timeout = models.DefaultDiagnosticsTimeout
	}

	return &Analyzer{TopComponents: topComponents, Timeout: timeout}
}

// component is one connected component: its size and its lowest-id member.
type component struct {
	size   int
	sample int
}

// Analyze never fails. A nil snapshot, an invalid mode, an expired deadline
// or a panic all come back as a Diagnostics with Error set; in the last two
// cases Partial is true and the counts cover the work done so far.
func (a *Analyzer) Analyze(ctx context.Context, snap *graph.Snapshot, mode models.Mode) (d models.Diagnostics) {
	d.PathfindingMode = mode
	d.ComponentSizes.LargestComponents = []models.ComponentSummary{}

	if snap == nil {
		d.Error = "graph not loaded"
		return d
	}

	if mode != models.ModeReal && mode != models.ModeAll {
		d.Error = fmt.Sprintf("invalid mode %q", mode)
		return d
	}

	timeout := a.Timeout
	if timeout == 0 {
		timeout = models.DefaultDiagnosticsTimeout
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var comps []component

	defer func() {
		if r := recover(); r != nil {
			d.Partial = true
			d.Error = fmt.Sprintf("internal error: %v", r)
		}

		d.ConnectedComponents = len(comps)
		d.ComponentSizes = a.summarize(snap, comps)
	}()

	n := snap.Len()
	d.TotalNodes = n
	d.TotalEdges = snap.EdgeCount(mode)
	d.PolygonCount = n
	d.PolygonsLoaded = n > 0
	d.Epoch = snap.Epoch()
	d.NodesByType = countTypes(snap, mode)

	var err error

	comps, err = components(ctx, snap, mode)
	if err != nil {
		d.Partial = true
		d.Error = describe(err)

		return d
	}

	d.CanalNetworkSegments, err = canalSegments(ctx, snap)
	if err != nil {
		d.Partial = true
		d.Error = describe(err)
	}

	return d
}

func describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout: " + err.Error()
	}

	return err.Error()
}

func countTypes(snap *graph.Snapshot, mode models.Mode) models.NodesByType {
	var t models.NodesByType

	for i := range snap.Len() {
		if snap.BridgePointCount(i) > 0 {
			t.WithBridges++
		} else {
			t.WithoutBridges++
		}

		if len(snap.CanalNeighbors(i)) > 0 {
			t.WithCanalAccess++
		}

		if snap.Degree(i, mode) == 0 {
			t.Isolated++
		}
	}

	return t
}

// components flood-fills the mode view in ascending index order, so each
// component's first visited node is its lowest id. It returns the components
// completed before ctx ended alongside ctx's error.
func components(ctx context.Context, snap *graph.Snapshot, mode models.Mode) ([]component, error) {
	n := snap.Len()
	seen := make([]bool, n)
	visited := 0

	var comps []component

	for start := range n {
		if seen[start] {
			continue
		}

		seen[start] = true
		visited++
		queue := []int{start}

		for qi := 0; qi < len(queue); qi++ {
			if err := ctx.Err(); err != nil {
				return comps, err
			}

			// Once every node is seen nothing is left to enqueue. This keeps
			// the implicit complete graph of the all view linear.
			if visited == n {
				break
			}

			snap.ForEachNeighbor(queue[qi], mode, func(v int, _ float64) bool {
				if !seen[v] {
					seen[v] = true
					visited++
					queue = append(queue, v)
				}

				return true
			})
		}

		comps = append(comps, component{size: len(queue), sample: start})
	}

	return comps, nil
}

// canalSegments counts connected clusters of the canal-only subgraph among
// nodes with at least one canal edge.
func canalSegments(ctx context.Context, snap *graph.Snapshot) (int, error) {
	n := snap.Len()
	seen := make([]bool, n)
	segments := 0

	for start := range n {
		if seen[start] || len(snap.CanalNeighbors(start)) == 0 {
			continue
		}

		if err := ctx.Err(); err != nil {
			return segments, err
		}

		segments++
		seen[start] = true
		queue := []int{start}

		for qi := 0; qi < len(queue); qi++ {
			for _, v := range snap.CanalNeighbors(queue[qi]) {
				if !seen[v] {
					seen[v] = true
					queue = append(queue, v)
				}
			}
		}
	}

	return segments, nil
}

func (a *Analyzer) summarize(snap *graph.Snapshot, comps []component) models.ComponentSizes {
	out := models.ComponentSizes{Count: len(comps), LargestComponents: []models.ComponentSummary{}}
	if len(comps) == 0 {
		return out
	}

	total := 0
	out.Min = comps[0].size

	for _, c := range comps {
		total += c.size
		out.Min = min(out.Min, c.size)
		out.Max = max(out.Max, c.size)
	}

	out.Avg = float64(total) / float64(len(comps))

	ranked := append([]component{}, comps...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].size != ranked[j].size {
			return ranked[i].size > ranked[j].size
		}

		return ranked[i].sample < ranked[j].sample
	})

	top := a.TopComponents
	if top <= 0 {
		top = models.DefaultTopComponents
	}

	for _, c := range ranked[:min(top, len(ranked))] {
		out.LargestComponents = append(out.LargestComponents, models.ComponentSummary{
			Size:       c.size,
			SampleNode: snap.ID(c.sample),
		})
	}

	return out
}
