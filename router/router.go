// Package router runs tracks through the land-avoidance pipeline:
// detect land-crossing segments, reroute each on a local visibility graph,
// and splice the detours back in.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/routr/barrier"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/reassemble"
	"github.com/rotblauer/routr/reroute"
	"github.com/rotblauer/routr/types/fix"
	"github.com/rotblauer/routr/visgraph"
	"golang.org/x/sync/errgroup"
)

var (
	metricTracksReassembled = metrics.GetOrRegisterCounter("routr/tracks/reassembled", nil)
	metricTracksFailed      = metrics.GetOrRegisterCounter("routr/tracks/failed", nil)
	metricSegmentsViolating = metrics.GetOrRegisterCounter("routr/segments/violating", nil)
	metricDetourCacheHits   = metrics.GetOrRegisterCounter("routr/segments/cache_hits", nil)
	metricDetourTimer       = metrics.GetOrRegisterTimer("routr/segments/detour", nil)
)

// Metrics is a snapshot of the process-wide routing counters.
type Metrics struct {
	TracksReassembled int64         `json:"tracks_reassembled"`
	TracksFailed      int64         `json:"tracks_failed"`
	SegmentsViolating int64         `json:"segments_violating"`
	DetourCacheHits   int64         `json:"detour_cache_hits"`
	Detours           int64         `json:"detours"`
	DetourMean        time.Duration `json:"detour_mean"`
	DetourP95         time.Duration `json:"detour_p95"`
}

func MetricsSnapshot() Metrics {
	timer := metricDetourTimer.Snapshot()
	return Metrics{
		TracksReassembled: metricTracksReassembled.Snapshot().Count(),
		TracksFailed:      metricTracksFailed.Snapshot().Count(),
		SegmentsViolating: metricSegmentsViolating.Snapshot().Count(),
		DetourCacheHits:   metricDetourCacheHits.Snapshot().Count(),
		Detours:           timer.Count(),
		DetourMean:        time.Duration(timer.Mean()),
		DetourP95:         time.Duration(timer.Percentile(0.95)),
	}
}

// GraphBuilder builds the visibility graph for one land-crossing segment.
type GraphBuilder interface {
	Build(ctx context.Context, seg barrier.Segment) (*visgraph.Graph, error)
}

// Router routes tracks against one barrier store.
// The store is shared read-only; a Router is safe for concurrent use.
type Router struct {
	Store   *barrier.Store
	Builder GraphBuilder

	// config is copied in New so the builder, search and detour cache key
	// always agree on the parameters.
	config params.RouteConfig

	cache  *lru.Cache[uint64, reroute.Detour]
	feed   event.FeedOf[Result]
	logger *slog.Logger
}

func New(store *barrier.Store, config *params.RouteConfig) (*Router, error) {
	if store == nil {
		return nil, fmt.Errorf("nil barrier store")
	}
	if config == nil {
		config = params.DefaultRouteConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &Router{
		Store:   store,
		config:  *config,
		Builder: visgraph.NewBuilder(store, config),
		logger:  slog.With("d", "router"),
	}
	if config.DetourCacheSize > 0 {
		cache, err := lru.New[uint64, reroute.Detour](config.DetourCacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r, nil
}

// Config returns a copy of the routing parameters fixed at New.
func (r *Router) Config() params.RouteConfig {
	return r.config
}

// SubscribeResults delivers every Result the router produces.
// Sends block until every subscriber has received, so subscribers must keep reading.
func (r *Router) SubscribeResults(ch chan<- Result) event.Subscription {
	return r.feed.Subscribe(ch)
}

// Violations returns the index of the first fix of every segment that crosses land.
func (r *Router) Violations(track fix.Track) []int {
	var out []int
	for i := 0; i+1 < len(track); i++ {
		seg := barrier.Segment{A: track[i].Point(), B: track[i+1].Point()}
		if r.Store.Intersects(seg) {
			out = append(out, i)
		}
	}
	return out
}

// Route runs one track through the pipeline.
// A track without violations comes back unchanged, and no graph is built for it.
func (r *Router) Route(ctx context.Context, track fix.Track) (res Result) {
	start := time.Now()
	res = Result{DeploymentID: track.DeploymentID(), Fixes: len(track), State: Loaded, Reached: Loaded}
	defer func() {
		res.Elapsed = time.Since(start)
		if res.OK() {
			metricTracksReassembled.Inc(1)
		} else {
			metricTracksFailed.Inc(1)
			r.logger.Warn("Track failed", "deployment", res.DeploymentID,
				"reached", res.Reached, "reason", res.Reason, "error", res.Err)
		}
		r.feed.Send(res)
	}()

	if err := track.Validate(); err != nil {
		res.fail(err)
		return
	}

	res.Violations = r.Violations(track)
	res.advance(ViolationsDetected)
	if len(res.Violations) == 0 {
		res.Track = track.Copy()
		res.advance(Rerouted)
		res.State = Reassembled
		return
	}
	metricSegmentsViolating.Inc(int64(len(res.Violations)))
	r.logger.Debug("Detected land crossings", "deployment", res.DeploymentID,
		"fixes", len(track), "violations", len(res.Violations))

	detours := make([]reroute.Detour, len(res.Violations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for k, vi := range res.Violations {
		seg := barrier.Segment{A: track[vi].Point(), B: track[vi+1].Point()}
		g.Go(func() error {
			d, err := r.Detour(gctx, seg)
			if err != nil {
				return fmt.Errorf("segment %d: %w", vi, err)
			}
			detours[k] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		res.fail(err)
		return
	}
	res.Detours = detours
	res.advance(Rerouted)

	corrected, err := reassemble.Reassemble(track, res.Violations, detours)
	if err != nil {
		res.fail(err)
		return
	}
	res.Track = corrected
	res.State = Reassembled
	return
}

// RouteAll routes tracks in parallel and returns their results in input order.
func (r *Router) RouteAll(ctx context.Context, tracks []fix.Track) []Result {
	results := make([]Result, len(tracks))
	g := new(errgroup.Group)
	g.SetLimit(r.config.Workers)
	for i, tr := range tracks {
		g.Go(func() error {
			results[i] = r.Route(ctx, tr)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

type detourKey struct {
	A, B            [2]float64
	BufferDistance  float64
	MaxExpansions   int
	ExpansionFactor float64
	TieBreak        string
}

// Detour computes the detour for a single land-crossing segment.
// Identical segments are served from the detour cache.
func (r *Router) Detour(ctx context.Context, seg barrier.Segment) (reroute.Detour, error) {
	var key uint64
	if r.cache != nil {
		k, err := hashstructure.Hash(detourKey{
			A:               seg.A,
			B:               seg.B,
			BufferDistance:  r.config.BufferDistance,
			MaxExpansions:   r.config.MaxBufferExpansions,
			ExpansionFactor: r.config.ExpansionFactor,
			TieBreak:        string(r.config.TieBreak),
		}, hashstructure.FormatV2, nil)
		if err == nil {
			key = k
			if d, ok := r.cache.Get(key); ok {
				metricDetourCacheHits.Inc(1)
				return d.Copy(), nil
			}
		}
	}

	if r.config.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.SearchTimeout)
		defer cancel()
	}
	defer metricDetourTimer.UpdateSince(time.Now())

	g, err := r.Builder.Build(ctx, seg)
	if err != nil {
		return reroute.Detour{}, err
	}
	d, err := reroute.Reroute(ctx, g, r.config.TieBreak)
	if err != nil {
		return reroute.Detour{}, err
	}
	r.logger.Debug("Rerouted segment", "from", seg.A, "to", seg.B,
		"nodes", g.Len(), "edges", g.EdgeCount(), "attempts", g.Attempts,
		"hops", d.Hops, "length", d.Length)
	if r.cache != nil && key != 0 {
		r.cache.Add(key, d.Copy())
	}
	return d, nil
}
