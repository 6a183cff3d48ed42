package reroute

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/routr/barrier"
	"github.com/rotblauer/routr/common"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/visgraph"
)

func buildGraph(t *testing.T, ring orb.Ring, seg barrier.Segment) (*barrier.Store, *visgraph.Graph) {
	t.Helper()
	store, err := barrier.Load([]barrier.Polygon{{ID: "island", Polygon: orb.Polygon{ring}}})
	if err != nil {
		t.Fatal(err)
	}
	conf := params.DefaultRouteConfig()
	conf.BufferDistance = 10
	g, err := visgraph.NewBuilder(store, conf).Build(context.Background(), seg)
	if err != nil {
		t.Fatal(err)
	}
	return store, g
}

var island = orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}

func TestReroute_Island(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError)()
	seg := barrier.Segment{A: orb.Point{-5, 5}, B: orb.Point{15, 5}}
	store, g := buildGraph(t, island, seg)
	d, err := Reroute(context.Background(), g, params.TieBreakFewestHops)
	if err != nil {
		t.Fatal(err)
	}
	if d.Points[0] != seg.A || d.Points[len(d.Points)-1] != seg.B {
		t.Fatalf("detour endpoints %v, %v do not equal segment endpoints", d.Points[0], d.Points[len(d.Points)-1])
	}
	// Both ways around are equally long; the lower-indexed corner wins.
	want := []orb.Point{{-5, 5}, {0, 0}, {10, 0}, {15, 5}}
	if diff := cmp.Diff(want, d.Points); diff != "" {
		t.Errorf("detour mismatch (-want +got):\n%s", diff)
	}
	straight := planar.Distance(seg.A, seg.B)
	perimeter := planar.Length(island)
	if d.Length < straight || d.Length > perimeter {
		t.Errorf("detour length %v outside [%v, %v]", d.Length, straight, perimeter)
	}
	if want := 10 + 2*math.Sqrt(50); !common.NearlyEqual(d.Length, want) {
		t.Errorf("expected length %v, got %v", want, d.Length)
	}
	if d.Hops != 3 || len(d.Interior()) != 2 {
		t.Errorf("expected 3 hops and 2 interior points, got %d and %v", d.Hops, d.Interior())
	}
	for i := 1; i < len(d.Points); i++ {
		if store.Intersects(barrier.Segment{A: d.Points[i-1], B: d.Points[i]}) {
			t.Errorf("detour leg %d crosses land", i)
		}
	}
}

func TestReroute_FewestHops(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError)()
	// The south coast has an extra vertex halfway along.
	ring := orb.Ring{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	seg := barrier.Segment{A: orb.Point{-5, 5}, B: orb.Point{15, 5}}
	_, g := buildGraph(t, ring, seg)

	fewest, err := Reroute(context.Background(), g, params.TieBreakFewestHops)
	if err != nil {
		t.Fatal(err)
	}
	if fewest.Hops != 3 {
		t.Errorf("expected the straight coast to be a single leg, got %v", fewest.Points)
	}
	for _, p := range fewest.Interior() {
		if p == (orb.Point{5, 0}) {
			t.Errorf("collinear coast vertex should not be inserted: %v", fewest.Points)
		}
	}

	none, err := Reroute(context.Background(), g, params.TieBreakNone)
	if err != nil {
		t.Fatal(err)
	}
	if !common.NearlyEqual(none.Length, fewest.Length) {
		t.Errorf("tie-break changed the length: %v vs %v", none.Length, fewest.Length)
	}
	if none.Hops < fewest.Hops {
		t.Errorf("fewest-hops detour has more hops (%d) than untied (%d)", fewest.Hops, none.Hops)
	}
}

func TestReroute_Deterministic(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError)()
	ring := orb.Ring{{0, 0}, {4, -3}, {9, 1}, {12, 8}, {6, 12}, {1, 9}, {0, 0}}
	seg := barrier.Segment{A: orb.Point{-4.25, 3.5}, B: orb.Point{16.5, 6.125}}
	_, g := buildGraph(t, ring, seg)
	first, err := Reroute(context.Background(), g, params.TieBreakFewestHops)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Reroute(context.Background(), g, params.TieBreakFewestHops)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("detour changed on run %d:\n%s", i, diff)
		}
	}
}

func TestReroute_Unreachable(t *testing.T) {
	g := &visgraph.Graph{
		Nodes: []orb.Point{{0, 0}, {10, 0}, {5, 5}},
		Adj: [][]visgraph.Edge{
			{{To: 2, Weight: math.Sqrt(50)}},
			{},
			{{To: 0, Weight: math.Sqrt(50)}},
		},
	}
	_, err := Reroute(context.Background(), g, params.TieBreakFewestHops)
	if !errors.Is(err, ErrNoFeasibleRoute) {
		t.Fatalf("expected no feasible route, got %v", err)
	}
}

func TestDetour_Copy(t *testing.T) {
	d := Detour{Points: []orb.Point{{0, 0}, {1, 1}}, Length: math.Sqrt2, Hops: 1}
	cp := d.Copy()
	cp.Points[0] = orb.Point{9, 9}
	if d.Points[0] != (orb.Point{0, 0}) {
		t.Errorf("copy shares points with original")
	}
}

func TestReroute_NearTie(t *testing.T) {
	// 0-2-3-1 is exactly 10 long; 0-4-1 is longer by less than the rounding tolerance.
	g := &visgraph.Graph{
		Segment: barrier.Segment{A: orb.Point{0, 0}, B: orb.Point{10, 0}},
		Nodes:   []orb.Point{{0, 0}, {10, 0}, {3, -1}, {6, -1}, {5, 1}},
		Adj: [][]visgraph.Edge{
			{{To: 2, Weight: 3}, {To: 4, Weight: 5}},
			{},
			{{To: 3, Weight: 3}},
			{{To: 1, Weight: 4}},
			{{To: 1, Weight: 5 + 1e-12}},
		},
	}
	cases := []struct {
		tb   params.TieBreak
		want []orb.Point
	}{
		{params.TieBreakFewestHops, []orb.Point{{0, 0}, {5, 1}, {10, 0}}},
		{params.TieBreakNone, []orb.Point{{0, 0}, {3, -1}, {6, -1}, {10, 0}}},
	}
	for _, c := range cases {
		t.Run(string(c.tb), func(t *testing.T) {
			d, err := Reroute(context.Background(), g, c.tb)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(c.want, d.Points); diff != "" {
				t.Errorf("detour mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueue_ExactOrder(t *testing.T) {
	// Each neighbor pair is within tolerance, the ends are not.
	q := &queue{}
	for i, dist := range []float64{1 + 2e-9, 1, 1 + 1e-9} {
		heap.Push(q, item{node: i, label: label{dist: dist, hops: 3 - i}})
	}
	var got []float64
	for q.Len() > 0 {
		got = append(got, heap.Pop(q).(item).dist)
	}
	if diff := cmp.Diff([]float64{1, 1 + 1e-9, 1 + 2e-9}, got); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
}
