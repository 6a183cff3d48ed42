// Package reroute finds the shortest barrier-respecting detour on a visibility graph.
package reroute

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/routr/common"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/visgraph"
)

// ErrNoFeasibleRoute is the same sentinel the graph builder fails with.
var ErrNoFeasibleRoute = visgraph.ErrNoFeasibleRoute

// Detour is the path replacing a land-crossing segment.
// Its first and last points are the segment's endpoints, bit for bit.
type Detour struct {
	Points []orb.Point
	Length float64

	// Hops is the number of straight legs, len(Points)-1.
	Hops int
}

// Interior returns the inserted points, without the segment endpoints.
func (d Detour) Interior() []orb.Point {
	if len(d.Points) < 2 {
		return nil
	}
	return d.Points[1 : len(d.Points)-1]
}

// LineString returns the detour as a line.
func (d Detour) LineString() orb.LineString {
	return orb.LineString(d.Points)
}

// Copy returns a detour with its own points slice.
func (d Detour) Copy() Detour {
	pts := make([]orb.Point, len(d.Points))
	copy(pts, d.Points)
	return Detour{Points: pts, Length: d.Length, Hops: d.Hops}
}

// label is the cost of reaching a node: distance first, then hops.
type label struct {
	dist float64
	hops int
}

// better reports whether a should replace b as a node's best label.
// With fewest-hops tie-breaking, distances within rounding of each other
// are compared by hops.
func (a label) better(b label, tb params.TieBreak) bool {
	if tb == params.TieBreakFewestHops && common.NearlyEqual(a.dist, b.dist) {
		return a.hops < b.hops
	}
	return a.dist < b.dist
}

type item struct {
	node int
	label
}

// queue orders items exactly by (dist, hops, node).
// The rounding tolerance of better is not transitive and stays out of the heap.
type queue struct {
	items []item
}

func (q *queue) Len() int { return len(q.items) }
func (q *queue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	return a.node < b.node
}
func (q *queue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *queue) Push(x any)    { q.items = append(q.items, x.(item)) }
func (q *queue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it
}

// Reroute runs Dijkstra from the graph's start node to its end node.
// Edge weights are Euclidean lengths. Among equal-length paths the tie-break
// decides; remaining ties go to the lower node index, so a given graph always
// yields the same detour.
func Reroute(ctx context.Context, g *visgraph.Graph, tb params.TieBreak) (Detour, error) {
	if !tb.Valid() {
		tb = params.TieBreakFewestHops
	}
	n := g.Len()
	best := make([]label, n)
	for i := range best {
		best[i] = label{dist: math.Inf(1), hops: math.MaxInt}
	}
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}
	done := make([]bool, n)

	best[visgraph.Start] = label{}
	q := &queue{}
	heap.Push(q, item{node: visgraph.Start})

	settled := 0
	for q.Len() > 0 {
		it := heap.Pop(q).(item)
		if done[it.node] {
			continue
		}
		done[it.node] = true
		if it.node == visgraph.End {
			break
		}
		// The popped entry may be stale by less than the tolerance.
		cur := best[it.node]
		settled++
		if settled%256 == 0 {
			if err := ctx.Err(); err != nil {
				return Detour{}, err
			}
		}
		for _, e := range g.Adj[it.node] {
			if done[e.To] {
				continue
			}
			cand := label{dist: cur.dist + e.Weight, hops: cur.hops + 1}
			if cand.better(best[e.To], tb) {
				best[e.To] = cand
				prev[e.To] = it.node
				heap.Push(q, item{node: e.To, label: cand})
			}
		}
	}
	if !done[visgraph.End] {
		return Detour{}, fmt.Errorf("%w: %v to %v unreachable in graph of %d nodes",
			ErrNoFeasibleRoute, g.Segment.A, g.Segment.B, n)
	}

	var rev []int
	for at := visgraph.End; at != -1; at = prev[at] {
		rev = append(rev, at)
		if at == visgraph.Start {
			break
		}
	}
	pts := make([]orb.Point, len(rev))
	for i, node := range rev {
		pts[len(rev)-1-i] = g.Nodes[node]
	}
	ls := orb.LineString(pts)
	return Detour{
		Points: pts,
		Length: planar.Length(ls),
		Hops:   len(pts) - 1,
	}, nil
}
