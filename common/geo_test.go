package common

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestOrient(t *testing.T) {
	a, b := orb.Point{0, 0}, orb.Point{10, 0}
	cases := []struct {
		c    orb.Point
		want int
	}{
		{orb.Point{5, 1}, 1},
		{orb.Point{5, -1}, -1},
		{orb.Point{20, 0}, 0},
		// Collinearity is relative to length, not absolute.
		{orb.Point{5e6, 1e-7}, 0},
	}
	for _, c := range cases {
		if got := Orient(a, b, c.c); got != c.want {
			t.Errorf("Orient(%v) = %d, want %d", c.c, got, c.want)
		}
	}
}

func TestSegmentsCross(t *testing.T) {
	cases := []struct {
		name           string
		a0, a1, b0, b1 orb.Point
		want           bool
	}{
		{"proper", orb.Point{0, 0}, orb.Point{10, 10}, orb.Point{0, 10}, orb.Point{10, 0}, true},
		{"touch endpoint", orb.Point{0, 0}, orb.Point{5, 5}, orb.Point{5, 5}, orb.Point{10, 0}, false},
		{"T junction", orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{5, 0}, orb.Point{5, 5}, false},
		{"collinear overlap", orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{5, 0}, orb.Point{15, 0}, false},
		{"disjoint", orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{5, 5}, orb.Point{6, 7}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := SegmentsCross(c.a0, c.a1, c.b0, c.b1); got != c.want {
				t.Errorf("expected %v, got %v", c.want, got)
			}
		})
	}
}

func TestSegmentIntersection(t *testing.T) {
	p, tt, ok := SegmentIntersection(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{4, -5}, orb.Point{4, 5})
	if !ok || p != (orb.Point{4, 0}) || !NearlyEqual(tt, 0.4) {
		t.Errorf("crossing: got %v %v %v", p, tt, ok)
	}

	// Vertex contacts are returned bit-exact.
	v := orb.Point{5, 5}
	p, _, ok = SegmentIntersection(orb.Point{0, 0}, orb.Point{10, 10}, v, orb.Point{10, 0})
	if !ok || p != v {
		t.Errorf("vertex contact: got %v %v", p, ok)
	}

	p, tt, ok = SegmentIntersection(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{12, 0}, orb.Point{3, 0})
	if !ok || p != (orb.Point{3, 0}) || !NearlyEqual(tt, 0.3) {
		t.Errorf("collinear overlap: got %v %v %v", p, tt, ok)
	}

	if _, _, ok := SegmentIntersection(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1}, orb.Point{1, 1}); ok {
		t.Error("parallel segments met")
	}
}

func TestComparePoints(t *testing.T) {
	if ComparePoints(orb.Point{0, 5}, orb.Point{1, 0}) != -1 ||
		ComparePoints(orb.Point{1, 1}, orb.Point{1, 0}) != 1 ||
		ComparePoints(orb.Point{2, 2}, orb.Point{2, 2}) != 0 {
		t.Error("unexpected point order")
	}
}

func TestNearlyEqual(t *testing.T) {
	if !NearlyEqual(1, 1+1e-12) {
		t.Error("expected nearly equal")
	}
	if NearlyEqual(1, 1+1e-6) {
		t.Error("expected not nearly equal")
	}
	if NearlyEqual(1e300, math.Inf(1)) {
		t.Error("finite equals infinity")
	}
	if !NearlyEqual(math.Inf(1), math.Inf(1)) {
		t.Error("infinity not equal to itself")
	}
}

func TestDecimalToFixed(t *testing.T) {
	cases := []struct {
		in        float64
		precision int
		want      float64
	}{
		{1.2345, 2, 1.23},
		{1.235, 2, 1.24},
		{-1.5, 0, -2},
		{1234.5, 0, 1235},
	}
	for _, c := range cases {
		if got := DecimalToFixed(c.in, c.precision); got != c.want {
			t.Errorf("DecimalToFixed(%v, %d) = %v, want %v", c.in, c.precision, got, c.want)
		}
	}
}

func TestSegmentBound(t *testing.T) {
	b := SegmentBound(orb.Point{10, -2}, orb.Point{-3, 7})
	if want := (orb.Bound{Min: orb.Point{-3, -2}, Max: orb.Point{10, 7}}); b != want {
		t.Errorf("got %v, want %v", b, want)
	}
}
