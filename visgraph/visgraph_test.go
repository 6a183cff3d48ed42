package visgraph

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/rotblauer/routr/barrier"
	"github.com/rotblauer/routr/common"
	"github.com/rotblauer/routr/params"
)

func islandStore(t *testing.T) *barrier.Store {
	t.Helper()
	s, err := barrier.Load([]barrier.Polygon{{
		ID:      "island",
		Polygon: orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testBuilder(store *barrier.Store, buffer float64, expansions int) *Builder {
	conf := params.DefaultRouteConfig()
	conf.BufferDistance = buffer
	conf.MaxBufferExpansions = expansions
	return NewBuilder(store, conf)
}

func hasEdge(g *Graph, a, b orb.Point) bool {
	ia, ib := -1, -1
	for i, n := range g.Nodes {
		if n == a {
			ia = i
		}
		if n == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return false
	}
	for _, e := range g.Adj[ia] {
		if e.To == ib {
			return true
		}
	}
	return false
}

func TestBuilder_Build(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError)()
	b := testBuilder(islandStore(t), 10, 0)
	seg := barrier.Segment{A: orb.Point{-5, 5}, B: orb.Point{15, 5}}
	g, err := b.Build(context.Background(), seg)
	if err != nil {
		t.Fatal(err)
	}
	if g.Nodes[Start] != seg.A || g.Nodes[End] != seg.B {
		t.Fatalf("endpoints must be nodes 0 and 1, got %v", g.Nodes[:2])
	}
	if g.Len() != 6 {
		t.Errorf("expected 6 nodes, got %d: %v", g.Len(), g.Nodes)
	}
	// Barrier vertices follow in (x, y) order.
	want := []orb.Point{{0, 0}, {0, 10}, {10, 0}, {10, 10}}
	if diff := cmp.Diff(want, g.Nodes[2:]); diff != "" {
		t.Errorf("barrier nodes mismatch (-want +got):\n%s", diff)
	}
	cases := []struct {
		a, b    orb.Point
		visible bool
	}{
		{seg.A, seg.B, false},
		{seg.A, orb.Point{0, 0}, true},
		{seg.A, orb.Point{0, 10}, true},
		{seg.A, orb.Point{10, 0}, false},
		{orb.Point{0, 0}, orb.Point{10, 0}, true},
		{orb.Point{0, 0}, orb.Point{10, 10}, false},
		{orb.Point{10, 10}, seg.B, true},
	}
	for _, c := range cases {
		if got := hasEdge(g, c.a, c.b); got != c.visible {
			t.Errorf("edge %v-%v: visible=%v, want %v", c.a, c.b, got, c.visible)
		}
		if hasEdge(g, c.a, c.b) != hasEdge(g, c.b, c.a) {
			t.Errorf("edge %v-%v is not symmetric", c.a, c.b)
		}
	}
	for i, adj := range g.Adj {
		for k := 1; k < len(adj); k++ {
			if adj[k-1].To >= adj[k].To {
				t.Errorf("adjacency of node %d not in ascending order: %v", i, adj)
			}
		}
	}
}

func TestBuilder_ExpandsBuffer(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError)()
	// Buffer 1 around a horizontal segment at y=5 sees no corners of the island.
	// 1, 2, 4 still miss them; 8 reaches y=-3..13.
	b := testBuilder(islandStore(t), 1, 5)
	g, err := b.Build(context.Background(), barrier.Segment{A: orb.Point{-5, 5}, B: orb.Point{15, 5}})
	if err != nil {
		t.Fatal(err)
	}
	if g.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", g.Attempts)
	}
	if g.Buffer != 8 {
		t.Errorf("expected buffer 8, got %v", g.Buffer)
	}
}

func TestBuilder_NoFeasibleRoute(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError)()
	b := testBuilder(islandStore(t), 1, 3)
	_, err := b.Build(context.Background(), barrier.Segment{A: orb.Point{5, 5}, B: orb.Point{15, 5}})
	if !errors.Is(err, ErrNoFeasibleRoute) {
		t.Fatalf("expected no feasible route, got %v", err)
	}
	if !strings.Contains(err.Error(), `inside barrier "island"`) {
		t.Errorf("expected the enclosing barrier to be named, got %v", err)
	}

	// Too small a search that can never expand far enough also fails.
	b = testBuilder(islandStore(t), 1, 1)
	_, err = b.Build(context.Background(), barrier.Segment{A: orb.Point{-5, 5}, B: orb.Point{15, 5}})
	if !errors.Is(err, ErrNoFeasibleRoute) {
		t.Fatalf("expected no feasible route, got %v", err)
	}
	if strings.Contains(err.Error(), "inside barrier") {
		t.Errorf("no endpoint is in land, got %v", err)
	}
}

func TestBuilder_Canceled(t *testing.T) {
	b := testBuilder(islandStore(t), 10, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx, barrier.Segment{A: orb.Point{-5, 5}, B: orb.Point{15, 5}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestBuilder_Deterministic(t *testing.T) {
	b := testBuilder(islandStore(t), 20, 0)
	seg := barrier.Segment{A: orb.Point{-3, 4}, B: orb.Point{14, 7}}
	g1, err := b.Build(context.Background(), seg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		g2, err := b.Build(context.Background(), seg)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(g1, g2); diff != "" {
			t.Fatalf("graph differs between builds (-first +later):\n%s", diff)
		}
	}
}

func TestGraph_Connected(t *testing.T) {
	g := &Graph{
		Nodes: make([]orb.Point, 4),
		Adj: [][]Edge{
			{{To: 2, Weight: 1}},
			{{To: 3, Weight: 1}},
			{{To: 0, Weight: 1}},
			{{To: 1, Weight: 1}},
		},
	}
	if g.Connected(0, 1) {
		t.Errorf("0 and 1 are in different components")
	}
	if !g.Connected(1, 3) {
		t.Errorf("1 and 3 are adjacent")
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}
