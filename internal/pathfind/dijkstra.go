package pathfind

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/persistorai/navgraph/internal/graph"
	"github.com/persistorai/navgraph/internal/models"
)

// distEpsilon is the tolerance in meters under which two path lengths tie.
const distEpsilon = 1e-9

// cancelCheckInterval is how many heap pops pass between ctx checks.
const cancelCheckInterval = 256

// ShortestPath runs Dijkstra over snap's mode view. Ties on total distance go
// to the path whose predecessor has the smaller node id, and equal-priority
// heap entries pop in id order, so results are deterministic.
func ShortestPath(ctx context.Context, snap *graph.Snapshot, origin, destination string, mode models.Mode) (*models.PathResult, error) { //nolint:gocognit,gocyclo,cyclop // single Dijkstra loop with tie handling.
	if snap == nil {
		return nil, models.ErrNotLoaded
	}

	if mode != models.ModeReal && mode != models.ModeAll {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidMode, mode)
	}

	from, ok := snap.IndexOf(origin)
	if !ok {
		return nil, &models.InvalidNodeError{NodeID: origin}
	}

	to, ok := snap.IndexOf(destination)
	if !ok {
		return nil, &models.InvalidNodeError{NodeID: destination}
	}

	result := &models.PathResult{Mode: mode, Epoch: snap.Epoch()}

	if from == to {
		result.Status = models.PathFound
		result.Nodes = []string{origin}

		return result, nil
	}

	n := snap.Len()
	dist := make([]float64, n)
	prev := make([]int, n)
	done := make([]bool, n)

	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}

	dist[from] = 0
	pq := &queue{{node: from}}
	pops := 0

	for pq.Len() > 0 {
		item := heap.Pop(pq).(entry) //nolint:forcetypeassert // queue only holds entry values.
		u := item.node

		if done[u] || item.dist > dist[u] {
			continue
		}

		done[u] = true
		if u == to {
			break
		}

		pops++
		if pops%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("finding path: %w", err)
			}
		}

		snap.ForEachNeighbor(u, mode, func(v int, w float64) bool {
			if done[v] {
				return true
			}

			nd := dist[u] + w
			switch {
			case nd < dist[v]-distEpsilon:
				dist[v] = nd
				prev[v] = u
				heap.Push(pq, entry{node: v, dist: nd})
			case math.Abs(nd-dist[v]) <= distEpsilon && u < prev[v]:
				prev[v] = u
			}

			return true
		})
	}

	if !done[to] {
		result.Status = models.PathUnreachable

		return result, nil
	}

	var trail []int
	for at := to; at != -1; at = prev[at] {
		trail = append(trail, at)
	}

	result.Nodes = make([]string, len(trail))
	for i, idx := range trail {
		result.Nodes[len(trail)-1-i] = snap.ID(idx)
	}

	result.Status = models.PathFound
	result.TotalDistance = dist[to]
	result.Hops = len(result.Nodes) - 1

	return result, nil
}

// entry is a heap item: a node and its tentative distance when pushed.
type entry struct {
	node int
	dist float64
}

// queue is a min-heap ordered by distance, then node index.
type queue []entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}

	return q[i].node < q[j].node
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(entry)) } //nolint:forcetypeassert // heap.Interface contract.

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]

	return it
}
