package params

import (
	"fmt"
	"math"
	"runtime"
	"time"
)

// TieBreak names the rule used to pick among equal-length detours.
type TieBreak string

const (
	// TieBreakFewestHops prefers the detour with fewer inserted vertices.
	TieBreakFewestHops TieBreak = "fewestHops"

	// TieBreakNone keeps the first equal-length detour the search settles.
	// It is still deterministic.
	TieBreakNone TieBreak = "none"
)

func (tb TieBreak) Valid() bool {
	return tb == TieBreakFewestHops || tb == TieBreakNone
}

// RouteConfig configures the rerouting of land-crossing segments.
type RouteConfig struct {
	// BufferDistance is the initial search radius, in projected linear units,
	// around a violating segment's bounding box within which barrier vertices
	// become visibility graph nodes.
	BufferDistance float64

	// MaxBufferExpansions caps how many times the buffer is grown
	// when no route is found. It is the de facto timeout of the search.
	MaxBufferExpansions int

	// ExpansionFactor multiplies the buffer on each expansion.
	ExpansionFactor float64

	// TieBreak chooses among equal-length detours.
	TieBreak TieBreak

	// Workers bounds the number of segments (or tracks) routed in parallel.
	Workers int

	// SearchTimeout bounds the graph build and search for one segment.
	// Zero disables the timeout.
	SearchTimeout time.Duration

	// DetourCacheSize is the number of detours kept in the LRU detour cache.
	// Zero disables caching.
	DetourCacheSize int
}

func DefaultRouteConfig() *RouteConfig {
	return &RouteConfig{
		BufferDistance:      5_000,
		MaxBufferExpansions: 5,
		ExpansionFactor:     2,
		TieBreak:            TieBreakFewestHops,
		Workers:             runtime.GOMAXPROCS(0),
		SearchTimeout:       0,
		DetourCacheSize:     10_000,
	}
}

// Validate reports the first unusable option.
func (c *RouteConfig) Validate() error {
	if c.BufferDistance <= 0 || math.IsInf(c.BufferDistance, 0) || math.IsNaN(c.BufferDistance) {
		return fmt.Errorf("buffer distance must be positive and finite, got %v", c.BufferDistance)
	}
	if c.MaxBufferExpansions < 0 {
		return fmt.Errorf("max buffer expansions must not be negative, got %d", c.MaxBufferExpansions)
	}
	if c.ExpansionFactor <= 1 {
		return fmt.Errorf("expansion factor must be greater than 1, got %v", c.ExpansionFactor)
	}
	if !c.TieBreak.Valid() {
		return fmt.Errorf("unknown tie-break preference %q", c.TieBreak)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
