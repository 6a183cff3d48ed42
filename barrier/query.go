package barrier

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/routr/common"
)

// Crossing is a point where a segment meets a barrier edge.
type Crossing struct {
	Point  orb.Point
	EdgeID int

	// T is the fractional distance along the segment, 0 at A and 1 at B.
	T float64
}

// Intersects returns true if the segment passes through the interior of any barrier.
//
// Touching a barrier vertex, or running along a barrier edge, is not an intersection:
// those are exactly the lines a detour hugging the coast is made of.
// The segment is split at every point where it touches the barrier boundary;
// it intersects if any edge is crossed properly, or if any piece between
// touch points lies strictly inside a polygon.
func (s *Store) Intersects(seg Segment) bool {
	if !s.MayIntersect(seg) {
		return false
	}
	if seg.Degenerate() {
		return s.Contains(seg.A)
	}
	b := seg.Bound()
	ts := []float64{0, 1}
	crossed := false
	s.edgeIndex.Search(b.Min, b.Max, func(_, _ [2]float64, id int) bool {
		e := &s.edges[id]
		if common.SegmentsCross(seg.A, seg.B, e.A, e.B) {
			crossed = true
			return false
		}
		for _, p := range [2]orb.Point{e.A, e.B} {
			if p == seg.A || p == seg.B {
				continue
			}
			if common.OnSegment(p, seg.A, seg.B) {
				ts = append(ts, common.SegmentParam(seg.A, seg.B, p))
			}
		}
		return true
	})
	if crossed {
		return true
	}
	slices.Sort(ts)
	for i := 1; i < len(ts); i++ {
		if ts[i] <= ts[i-1] {
			continue
		}
		mid := common.Lerp(seg.A, seg.B, (ts[i-1]+ts[i])/2)
		if s.Contains(mid) {
			return true
		}
	}
	return false
}

// CrossingPoints returns every point where the segment meets a barrier edge,
// ordered along the segment from A to B, then by edge id.
// Touches are included; use Intersects to know whether the segment enters land.
func (s *Store) CrossingPoints(seg Segment) []Crossing {
	if !s.MayIntersect(seg) {
		return nil
	}
	b := seg.Bound()
	var out []Crossing
	s.edgeIndex.Search(b.Min, b.Max, func(_, _ [2]float64, id int) bool {
		e := &s.edges[id]
		if p, t, ok := common.SegmentIntersection(seg.A, seg.B, e.A, e.B); ok {
			out = append(out, Crossing{Point: p, EdgeID: id, T: t})
		}
		return true
	})
	slices.SortFunc(out, func(a, b Crossing) int {
		if c := cmp.Compare(a.T, b.T); c != 0 {
			return c
		}
		return cmp.Compare(a.EdgeID, b.EdgeID)
	})
	return out
}

// OnBoundary returns true if pt lies on any barrier edge.
func (s *Store) OnBoundary(pt orb.Point) bool {
	if s.Empty() || !s.bound.Contains(pt) {
		return false
	}
	on := false
	s.edgeIndex.Search(pt, pt, func(_, _ [2]float64, id int) bool {
		e := &s.edges[id]
		if common.OnSegment(pt, e.A, e.B) {
			on = true
			return false
		}
		return true
	})
	return on
}

// Contains returns true if pt is strictly inside a barrier:
// inside an outer ring, outside its holes, and not on any edge.
func (s *Store) Contains(pt orb.Point) bool {
	if s.Empty() || !s.bound.Contains(pt) {
		return false
	}
	if s.OnBoundary(pt) {
		return false
	}
	inside := false
	s.polyIndex.Search(pt, pt, func(_, _ [2]float64, pi int) bool {
		if planar.PolygonContains(s.polygons[pi].Polygon, pt) {
			inside = true
			return false
		}
		return true
	})
	return inside
}

// ContainingPolygon returns the id of the barrier strictly containing pt, if any.
func (s *Store) ContainingPolygon(pt orb.Point) (string, bool) {
	if !s.Contains(pt) {
		return "", false
	}
	id, found := "", false
	s.polyIndex.Search(pt, pt, func(_, _ [2]float64, pi int) bool {
		if planar.PolygonContains(s.polygons[pi].Polygon, pt) {
			id, found = s.polygons[pi].ID, true
			return false
		}
		return true
	})
	return id, found
}
