package barrier

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/routr/common"
	"github.com/tidwall/rtree"
)

// validateRing checks that a ring is closed, finite, has no zero-length edges,
// has non-zero area, and is simple.
func validateRing(ring orb.Ring) error {
	if len(ring) < 4 {
		return fmt.Errorf("ring has %d points, need at least 4 (closed)", len(ring))
	}
	if !ring.Closed() {
		return errors.New("ring is not closed")
	}
	for i, p := range ring {
		if !common.IsFinite(p) {
			return fmt.Errorf("point %d is not finite", i)
		}
		if i > 0 && ring[i-1] == p {
			return fmt.Errorf("repeated point %d %v", i, p)
		}
	}
	if area := math.Abs(planar.Area(ring)); area == 0 {
		return errors.New("zero-area ring")
	}
	if i, j, ok := selfIntersection(ring); ok {
		return fmt.Errorf("self-intersecting: edge %d meets edge %d", i, j)
	}
	return nil
}

// selfIntersection finds a pair of ring edges that meet anywhere other than
// the single vertex shared by neighbors.
func selfIntersection(ring orb.Ring) (int, int, bool) {
	n := len(ring) - 1 // edges
	var idx rtree.RTreeG[int]
	for i := 0; i < n; i++ {
		b := Segment{ring[i], ring[i+1]}.Bound()
		idx.Insert(b.Min, b.Max, i)
	}
	for i := 0; i < n; i++ {
		a0, a1 := ring[i], ring[i+1]
		b := Segment{a0, a1}.Bound()
		bad := -1
		idx.Search(b.Min, b.Max, func(_, _ [2]float64, j int) bool {
			if j <= i {
				return true
			}
			b0, b1 := ring[j], ring[j+1]
			switch {
			case j == i+1:
				// Neighbors share a1 == b0. They must not fold back over each other.
				if common.OnSegment(b1, a0, a1) || common.OnSegment(a0, b0, b1) {
					bad = j
				}
			case i == 0 && j == n-1:
				// First and last edges share ring[0].
				if common.OnSegment(b0, a0, a1) || common.OnSegment(a1, b0, b1) {
					bad = j
				}
			default:
				if _, _, ok := common.SegmentIntersection(a0, a1, b0, b1); ok {
					bad = j
				}
			}
			return bad < 0
		})
		if bad >= 0 {
			return i, bad, true
		}
	}
	return 0, 0, false
}
