package common

import (
	"math"

	"github.com/paulmach/orb"
)

// Zeroish is the relative tolerance used for collinearity.
// The cross product of two vectors is compared against the product
// of their lengths, so the tolerance doesn't scale with projection units.
var Zeroish = 1e-12

// Orient returns the side of c relative to the directed line a->b.
// 1 is counter-clockwise (left), -1 is clockwise (right), 0 is collinear.
func Orient(a, b, c orb.Point) int {
	abx, aby := b[0]-a[0], b[1]-a[1]
	acx, acy := c[0]-a[0], c[1]-a[1]
	cross := abx*acy - aby*acx
	scale := math.Hypot(abx, aby) * math.Hypot(acx, acy)
	if math.Abs(cross) <= Zeroish*scale {
		return 0
	}
	if cross > 0 {
		return 1
	}
	return -1
}

// OnSegment returns true if p lies on the closed segment a-b.
func OnSegment(p, a, b orb.Point) bool {
	if Orient(a, b, p) != 0 {
		return false
	}
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// SegmentsCross returns true if the segments a0-a1 and b0-b1 cross properly:
// they share exactly one point, and that point is interior to both.
// Touching (at an endpoint of either) and collinear overlap are not crossings.
func SegmentsCross(a0, a1, b0, b1 orb.Point) bool {
	o1 := Orient(a0, a1, b0)
	o2 := Orient(a0, a1, b1)
	o3 := Orient(b0, b1, a0)
	o4 := Orient(b0, b1, a1)
	return o1*o2 < 0 && o3*o4 < 0
}

// SegmentIntersection returns the point where segment a0-a1 meets segment b0-b1,
// and the fractional distance t along a0-a1 at which it happens.
// Collinear overlaps report the overlap point nearest a0.
// The boolean is false if the segments do not meet.
func SegmentIntersection(a0, a1, b0, b1 orb.Point) (orb.Point, float64, bool) {
	s1x, s1y := a1[0]-a0[0], a1[1]-a0[1]
	s2x, s2y := b1[0]-b0[0], b1[1]-b0[1]
	denom := -s2x*s1y + s1x*s2y
	if denom == 0 || Orient(a0, a1, b0) == 0 && Orient(a0, a1, b1) == 0 {
		// Parallel. Only collinear overlaps meet.
		best, bestT, ok := orb.Point{}, math.Inf(1), false
		for _, p := range []orb.Point{b0, b1} {
			if OnSegment(p, a0, a1) {
				if t := SegmentParam(a0, a1, p); t < bestT {
					best, bestT, ok = p, t, true
				}
			}
		}
		for _, p := range []orb.Point{a0, a1} {
			if OnSegment(p, b0, b1) {
				if t := SegmentParam(a0, a1, p); t < bestT {
					best, bestT, ok = p, t, true
				}
			}
		}
		return best, bestT, ok
	}
	s := (-s1y*(a0[0]-b0[0]) + s1x*(a0[1]-b0[1])) / denom
	t := (s2x*(a0[1]-b0[1]) - s2y*(a0[0]-b0[0])) / denom
	if s < 0 || s > 1 || t < 0 || t > 1 {
		return orb.Point{}, 0, false
	}
	// Snap exact vertex contacts so callers can compare coordinates bit-exactly.
	switch {
	case s == 0:
		return b0, t, true
	case s == 1:
		return b1, t, true
	case t == 0:
		return a0, 0, true
	case t == 1:
		return a1, 1, true
	}
	return orb.Point{a0[0] + t*s1x, a0[1] + t*s1y}, t, true
}

// SegmentParam returns the fractional position of p projected onto a-b.
func SegmentParam(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return 0
	}
	return ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
}

// Lerp returns the point at fraction t along a-b.
func Lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// SegmentBound returns the bound of the segment a-b.
func SegmentBound(a, b orb.Point) orb.Bound {
	return orb.Bound{Min: a, Max: a}.Extend(b)
}

// ComparePoints orders points by x, then y.
// It is the canonical ordering used wherever iteration order must be stable.
func ComparePoints(a, b orb.Point) int {
	switch {
	case a[0] < b[0]:
		return -1
	case a[0] > b[0]:
		return 1
	case a[1] < b[1]:
		return -1
	case a[1] > b[1]:
		return 1
	}
	return 0
}

// IsFinite returns true if both coordinates are finite numbers.
func IsFinite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) &&
		!math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}
