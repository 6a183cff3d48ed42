// Package visgraph builds local visibility graphs around land-crossing segments.
//
// A graph is an arena: nodes live in a flat slice and edges refer to them by index.
// Node 0 is always the segment start and node 1 the segment end;
// the rest are barrier vertices near the segment in canonical (x, y) order.
// Graphs are built per segment and thrown away after the search.
package visgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/routr/barrier"
	"github.com/rotblauer/routr/params"
)

// ErrNoFeasibleRoute is returned when the two ends of a segment cannot be joined
// without crossing a barrier, even at the largest search buffer.
var ErrNoFeasibleRoute = errors.New("no feasible route")

const (
	Start = 0
	End   = 1
)

type Edge struct {
	To     int
	Weight float64
}

type Graph struct {
	Segment barrier.Segment
	Nodes   []orb.Point

	// Adj lists each node's visible neighbors in ascending node order.
	Adj [][]Edge

	// Buffer is the search buffer the graph was built with.
	Buffer float64

	// Attempts is the number of builds it took, 1 if no expansion was needed.
	Attempts int
}

func (g *Graph) Len() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, a := range g.Adj {
		n += len(a)
	}
	return n / 2
}

// Connected returns true if b is reachable from a.
func (g *Graph) Connected(a, b int) bool {
	if a == b {
		return true
	}
	seen := make([]bool, len(g.Nodes))
	queue := []int{a}
	seen[a] = true
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range g.Adj[n] {
			if e.To == b {
				return true
			}
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return false
}

// Builder builds visibility graphs against one barrier store.
// It holds no mutable state and may be shared between goroutines.
type Builder struct {
	Store               *barrier.Store
	BufferDistance      float64
	MaxBufferExpansions int
	ExpansionFactor     float64

	logger *slog.Logger
}

func NewBuilder(store *barrier.Store, config *params.RouteConfig) *Builder {
	if config == nil {
		config = params.DefaultRouteConfig()
	}
	return &Builder{
		Store:               store,
		BufferDistance:      config.BufferDistance,
		MaxBufferExpansions: config.MaxBufferExpansions,
		ExpansionFactor:     config.ExpansionFactor,
		logger:              slog.With("d", "visgraph"),
	}
}

// BufferAt returns the search buffer of the given attempt, counting from 0.
func (b *Builder) BufferAt(attempt int) float64 {
	return b.BufferDistance * math.Pow(b.ExpansionFactor, float64(attempt))
}

// Build returns a graph in which the segment's endpoints are connected.
//
// Barrier vertices within the buffer of the segment's bound become nodes.
// If there are none while the segment still crosses land, or the endpoints
// end up in different components, the buffer is expanded and the graph rebuilt,
// at most MaxBufferExpansions times. After that Build fails with ErrNoFeasibleRoute.
func (b *Builder) Build(ctx context.Context, seg barrier.Segment) (*Graph, error) {
	var buffer float64
	for attempt := 0; attempt <= b.MaxBufferExpansions; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buffer = b.BufferAt(attempt)
		region := seg.Bound().Pad(buffer)
		verts := b.Store.VerticesIn(region)
		if len(verts) == 0 && b.Store.Intersects(seg) {
			b.logger.Debug("No barrier vertices in buffer, expanding",
				"attempt", attempt+1, "buffer", buffer)
			continue
		}
		g, err := b.build(ctx, seg, verts)
		if err != nil {
			return nil, err
		}
		g.Buffer = buffer
		g.Attempts = attempt + 1
		if g.Connected(Start, End) {
			return g, nil
		}
		b.logger.Debug("Segment endpoints disconnected, expanding",
			"attempt", attempt+1, "buffer", buffer, "nodes", g.Len(), "edges", g.EdgeCount())
	}
	err := fmt.Errorf("%w: %v to %v after %d buffer expansions (last buffer %.1f)",
		ErrNoFeasibleRoute, seg.A, seg.B, b.MaxBufferExpansions, buffer)
	for _, pt := range []orb.Point{seg.A, seg.B} {
		if id, ok := b.Store.ContainingPolygon(pt); ok {
			err = fmt.Errorf("%w: %v lies inside barrier %q", err, pt, id)
		}
	}
	return nil, err
}

func (b *Builder) build(ctx context.Context, seg barrier.Segment, verts []orb.Point) (*Graph, error) {
	nodes := make([]orb.Point, 0, len(verts)+2)
	nodes = append(nodes, seg.A, seg.B)
	for _, v := range verts {
		// Endpoints already sitting on a barrier vertex are not duplicated.
		if v == seg.A || v == seg.B {
			continue
		}
		nodes = append(nodes, v)
	}
	g := &Graph{
		Segment: seg,
		Nodes:   nodes,
		Adj:     make([][]Edge, len(nodes)),
	}
	for i := 0; i < len(nodes); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(nodes); j++ {
			if b.Store.Intersects(barrier.Segment{A: nodes[i], B: nodes[j]}) {
				continue
			}
			w := planar.Distance(nodes[i], nodes[j])
			g.Adj[i] = append(g.Adj[i], Edge{To: j, Weight: w})
			g.Adj[j] = append(g.Adj[j], Edge{To: i, Weight: w})
		}
	}
	return g, nil
}
