package pathfind_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/graph"
	"github.com/persistorai/navgraph/internal/graph/graphtest"
	"github.com/persistorai/navgraph/internal/models"
	"github.com/persistorai/navgraph/internal/pathfind"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// twoIslands returns P1-P2 and P3-P4 as separate components.
func twoIslands() *graph.Snapshot {
	ps := graphtest.Row(4)
	graphtest.Bridge(ps, "P1", "P2")
	graphtest.Bridge(ps, "P3", "P4")

	return graph.Build(ps, graph.Water{}, graph.BuildOptions{Log: testLogger()})
}

func staticEngine(snap *graph.Snapshot) *pathfind.Engine {
	return pathfind.NewEngine(pathfind.LoaderFunc(func(context.Context) (*graph.Snapshot, error) {
		return snap, nil
	}), testLogger())
}

func TestFindPath_ModesOnDisconnectedGraph(t *testing.T) {
	eng := staticEngine(twoIslands())
	ctx := context.Background()

	real, err := eng.FindPath(ctx, "P1", "P4", models.ModeReal)
	if err != nil {
		t.Fatalf("FindPath real: %v", err)
	}
	if real.Status != models.PathUnreachable {
		t.Errorf("real status = %q, want unreachable", real.Status)
	}

	all, err := eng.FindPath(ctx, "P1", "P4", models.ModeAll)
	if err != nil {
		t.Fatalf("FindPath all: %v", err)
	}
	if !all.Found() {
		t.Fatalf("all status = %q, want found", all.Status)
	}
	if all.Nodes[0] != "P1" || all.Nodes[len(all.Nodes)-1] != "P4" {
		t.Errorf("all path = %v, want P1..P4", all.Nodes)
	}
	if all.Mode != models.ModeAll {
		t.Errorf("result mode = %q, want all", all.Mode)
	}

	inside, err := eng.FindPath(ctx, "P1", "P2", models.ModeReal)
	if err != nil {
		t.Fatalf("FindPath P1->P2: %v", err)
	}
	if !reflect.DeepEqual(inside.Nodes, []string{"P1", "P2"}) || inside.Hops != 1 || inside.TotalDistance <= 0 {
		t.Errorf("P1->P2 = %+v", inside)
	}
}

func TestFindPath_SameNode(t *testing.T) {
	eng := staticEngine(twoIslands())

	for _, mode := range []models.Mode{models.ModeReal, models.ModeAll} {
		res, err := eng.FindPath(context.Background(), "P3", "P3", mode)
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if !res.Found() || !reflect.DeepEqual(res.Nodes, []string{"P3"}) || res.TotalDistance != 0 {
			t.Errorf("%s: FindPath(P3,P3) = %+v, want found [P3] 0", mode, res)
		}
	}
}

func TestFindPath_InvalidNode(t *testing.T) {
	eng := staticEngine(twoIslands())

	_, err := eng.FindPath(context.Background(), "P1", "nowhere", models.ModeAll)
	if !errors.Is(err, models.ErrInvalidNode) {
		t.Fatalf("err = %v, want ErrInvalidNode", err)
	}

	var inv *models.InvalidNodeError
	if !errors.As(err, &inv) || inv.NodeID != "nowhere" {
		t.Errorf("err = %#v, want InvalidNodeError for nowhere", err)
	}
}

func TestFindPath_InvalidMode(t *testing.T) {
	eng := staticEngine(twoIslands())

	if _, err := eng.FindPath(context.Background(), "P1", "P2", models.Mode("teleport")); !errors.Is(err, models.ErrInvalidMode) {
		t.Fatalf("err = %v, want ErrInvalidMode", err)
	}
}

func TestFindPath_PrefersShorterDistance(t *testing.T) {
	// P1-P2-P3 by bridges (~40 m) plus a long canal link P1-P3 (500 m).
	ps := graphtest.Row(3)
	graphtest.Bridge(ps, "P1", "P2")
	d := ps[0].BridgePoints[0].Connection.Distance
	ps[1].BridgePoints = append(ps[1].BridgePoints, models.BridgePoint{
		Edge:       ps[1].BridgePoints[0].Edge,
		Connection: &models.Connection{TargetParcelID: "P3", TargetPoint: ps[2].BridgePoints[0].Edge, Distance: d},
	})

	snap := graph.Build(ps, graph.Water{Links: []models.CanalLink{
		{FromParcelID: "P1", ToParcelID: "P3", Distance: 500},
	}}, graph.BuildOptions{Log: testLogger()})

	res, err := pathfind.ShortestPath(context.Background(), snap, "P1", "P3", models.ModeReal)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if !reflect.DeepEqual(res.Nodes, []string{"P1", "P2", "P3"}) {
		t.Errorf("path = %v, want [P1 P2 P3]", res.Nodes)
	}
	if res.Hops != 2 {
		t.Errorf("hops = %d, want 2", res.Hops)
	}
}

func TestFindPath_TieBreakByNodeID(t *testing.T) {
	// Diamond A-{B,C}-D with equal weights: the path through B wins.
	ps := []models.Parcel{
		graphtest.Square("A", 45.0, 12.0),
		graphtest.Square("C", 45.0, 12.001),
		graphtest.Square("B", 45.0, 12.002),
		graphtest.Square("D", 45.0, 12.003),
	}
	links := []models.CanalLink{
		{FromParcelID: "A", ToParcelID: "C", Distance: 10},
		{FromParcelID: "A", ToParcelID: "B", Distance: 10},
		{FromParcelID: "C", ToParcelID: "D", Distance: 10},
		{FromParcelID: "B", ToParcelID: "D", Distance: 10},
	}
	snap := graph.Build(ps, graph.Water{Links: links}, graph.BuildOptions{Log: testLogger()})

	for range 20 {
		res, err := pathfind.ShortestPath(context.Background(), snap, "A", "D", models.ModeReal)
		if err != nil {
			t.Fatalf("ShortestPath: %v", err)
		}
		if !reflect.DeepEqual(res.Nodes, []string{"A", "B", "D"}) {
			t.Fatalf("path = %v, want [A B D]", res.Nodes)
		}
	}
}

func TestFindPath_ConcurrentModesDoNotInterfere(t *testing.T) {
	eng := staticEngine(twoIslands())
	if _, err := eng.Preload(context.Background()); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 200)

	for i := range 100 {
		mode := models.ModeReal
		if i%2 == 0 {
			mode = models.ModeAll
		}

		wg.Add(1)
		go func(mode models.Mode) {
			defer wg.Done()

			res, err := eng.FindPath(context.Background(), "P1", "P4", mode)
			if err != nil {
				errs <- err.Error()
				return
			}
			if mode == models.ModeAll && !res.Found() {
				errs <- "all mode lost its path"
			}
			if mode == models.ModeReal && res.Found() {
				errs <- "real mode found a path across islands"
			}
		}(mode)
	}

	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}

func TestPreload_CoalescesConcurrentCalls(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	snap := twoIslands()

	eng := pathfind.NewEngine(pathfind.LoaderFunc(func(context.Context) (*graph.Snapshot, error) {
		loads.Add(1)
		<-release
		return snap, nil
	}), testLogger())

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan *graph.Snapshot, callers)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := eng.Preload(context.Background())
			if err != nil {
				t.Errorf("Preload: %v", err)
				return
			}
			results <- s
		}()
	}

	// Give every caller time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	if got := loads.Load(); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
	if eng.Epoch() != 1 {
		t.Errorf("Epoch = %d, want 1", eng.Epoch())
	}
	for s := range results {
		if s.Epoch() != 1 {
			t.Errorf("caller got epoch %d, want 1", s.Epoch())
		}
	}
}

func TestPreload_EpochAndFailureKeepsPrevious(t *testing.T) {
	fail := false
	snap := twoIslands()

	eng := pathfind.NewEngine(pathfind.LoaderFunc(func(context.Context) (*graph.Snapshot, error) {
		if fail {
			return nil, errors.New("store offline")
		}
		return snap, nil
	}), testLogger())

	if eng.IsLoaded() {
		t.Fatal("engine should start empty")
	}

	var reloaded []uint64
	eng.OnReload(func(s *graph.Snapshot) { reloaded = append(reloaded, s.Epoch()) })

	ctx := context.Background()
	for range 2 {
		if _, err := eng.Preload(ctx); err != nil {
			t.Fatalf("Preload: %v", err)
		}
	}

	if eng.Epoch() != 2 || !eng.IsLoaded() {
		t.Fatalf("Epoch = %d loaded = %v, want 2 true", eng.Epoch(), eng.IsLoaded())
	}

	fail = true
	if _, err := eng.Preload(ctx); err == nil {
		t.Fatal("expected preload error")
	}

	if eng.Epoch() != 2 || eng.Snapshot() == nil || eng.Snapshot().Epoch() != 2 {
		t.Errorf("failed preload must keep epoch 2 snapshot, got epoch %d", eng.Epoch())
	}
	if !reflect.DeepEqual(reloaded, []uint64{1, 2}) {
		t.Errorf("observers saw %v, want [1 2]", reloaded)
	}
	if snap.Epoch() != 0 {
		t.Error("stamping the epoch must not mutate the loaded snapshot")
	}
}

func TestPreload_WaiterHonoursOwnContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	eng := pathfind.NewEngine(pathfind.LoaderFunc(func(context.Context) (*graph.Snapshot, error) {
		<-release
		return twoIslands(), nil
	}), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := eng.Preload(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestFindPath_LazyPreload(t *testing.T) {
	eng := staticEngine(twoIslands())

	if _, err := eng.FindPath(context.Background(), "P1", "P2", models.ModeReal); err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if !eng.IsLoaded() || eng.Epoch() != 1 {
		t.Errorf("expected lazy preload to install epoch 1, got %d", eng.Epoch())
	}
}
