// Package barrier holds land polygons and answers whether a straight line
// between two projected points would cross them.
//
// A Store is immutable after Load. All read methods are safe for concurrent use.
package barrier

import (
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/rotblauer/routr/common"
	"github.com/tidwall/rtree"
)

// ErrInvalidGeometry is returned by Load for malformed barrier rings.
var ErrInvalidGeometry = errors.New("invalid geometry")

// GeometryError describes which ring of which polygon failed validation.
type GeometryError struct {
	PolygonID string
	Ring      int
	Reason    string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%v: polygon %q ring %d: %s", ErrInvalidGeometry, e.PolygonID, e.Ring, e.Reason)
}

func (e *GeometryError) Unwrap() error {
	return ErrInvalidGeometry
}

// Polygon is one barrier: an outer ring of land, and optionally holes (lakes, lagoons)
// which are not land.
type Polygon struct {
	ID      string
	Polygon orb.Polygon
}

// Segment is a straight line between two consecutive track locations,
// or between any two candidate route nodes.
type Segment struct {
	A, B orb.Point
}

func (s Segment) Bound() orb.Bound {
	return common.SegmentBound(s.A, s.B)
}

func (s Segment) Degenerate() bool {
	return s.A == s.B
}

// Edge is a polygon ring edge. Its index in the store is its edge id.
type Edge struct {
	A, B    orb.Point
	Polygon int
	Ring    int
}

// Store is the barrier layer: polygons, a flat arena of their edges,
// an R-tree over the edges and polygons, and a quadtree over the ring vertices.
type Store struct {
	polygons []Polygon
	edges    []Edge
	bound    orb.Bound

	edgeIndex rtree.RTreeG[int]
	polyIndex rtree.RTreeG[int]
	vertices  *quadtree.Quadtree
}

// Load validates the polygons and builds the store.
// Any malformed ring fails the whole load with a *GeometryError;
// nothing is ever repaired.
func Load(polygons []Polygon) (*Store, error) {
	s := &Store{
		polygons: make([]Polygon, 0, len(polygons)),
	}
	first := true
	for _, p := range polygons {
		if len(p.Polygon) == 0 {
			return nil, &GeometryError{PolygonID: p.ID, Ring: 0, Reason: "no rings"}
		}
		for ri, ring := range p.Polygon {
			if err := validateRing(ring); err != nil {
				return nil, &GeometryError{PolygonID: p.ID, Ring: ri, Reason: err.Error()}
			}
		}
		pi := len(s.polygons)
		s.polygons = append(s.polygons, p)
		b := p.Polygon.Bound()
		s.polyIndex.Insert(b.Min, b.Max, pi)
		if first {
			s.bound = b
			first = false
		} else {
			s.bound = s.bound.Union(b)
		}
		for ri, ring := range p.Polygon {
			for i := 0; i < len(ring)-1; i++ {
				e := Edge{A: ring[i], B: ring[i+1], Polygon: pi, Ring: ri}
				eb := Segment{e.A, e.B}.Bound()
				s.edgeIndex.Insert(eb.Min, eb.Max, len(s.edges))
				s.edges = append(s.edges, e)
			}
		}
	}

	s.vertices = quadtree.New(s.bound)
	for _, e := range s.edges {
		// Every ring vertex starts exactly one edge.
		if err := s.vertices.Add(e.A); err != nil {
			return nil, fmt.Errorf("index vertex %v: %w", e.A, err)
		}
	}
	return s, nil
}

// Len returns the number of polygons.
func (s *Store) Len() int {
	return len(s.polygons)
}

// EdgeCount returns the number of ring edges.
func (s *Store) EdgeCount() int {
	return len(s.edges)
}

// Edge returns the edge with the given id.
func (s *Store) Edge(id int) Edge {
	return s.edges[id]
}

// Polygon returns the polygon at index i, in load order.
func (s *Store) Polygon(i int) Polygon {
	return s.polygons[i]
}

// Bound returns the bound of all barriers. It is empty for an empty store.
func (s *Store) Bound() orb.Bound {
	return s.bound
}

// Empty returns true if the store holds no polygons.
func (s *Store) Empty() bool {
	return len(s.polygons) == 0
}

// MayIntersect is a cheap pre-filter: it is false when the bound
// of the segment is disjoint from every barrier polygon's bound.
func (s *Store) MayIntersect(seg Segment) bool {
	if s.Empty() {
		return false
	}
	b := seg.Bound()
	if !s.bound.Intersects(b) {
		return false
	}
	hit := false
	s.polyIndex.Search(b.Min, b.Max, func(_, _ [2]float64, _ int) bool {
		hit = true
		return false
	})
	return hit
}

// VerticesIn returns the distinct barrier vertices within the bound,
// ordered by x then y.
func (s *Store) VerticesIn(b orb.Bound) []orb.Point {
	if s.Empty() || !s.bound.Intersects(b) {
		return nil
	}
	found := s.vertices.InBound(nil, b)
	pts := make([]orb.Point, 0, len(found))
	for _, f := range found {
		pts = append(pts, f.Point())
	}
	slices.SortFunc(pts, common.ComparePoints)
	return slices.Compact(pts)
}
