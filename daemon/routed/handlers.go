package routed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rotblauer/routr/barrier"
	"github.com/rotblauer/routr/conceptual"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/router"
	"github.com/rotblauer/routr/stream"
	"github.com/rotblauer/routr/types/fix"
)

// noTouch reads a layer without extending its TTL.
var noTouch = ttlcache.WithDisableTouchOnHit[string, *router.Router]()

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

type layerStatus struct {
	Name      string    `json:"name"`
	Polygons  int       `json:"polygons"`
	Edges     int       `json:"edges"`
	ExpiresAt time.Time `json:"expires_at"`
}

type routeDaemonStatus struct {
	StartedAt time.Time                 `json:"started_at"`
	Uptime    string                    `json:"uptime"`
	Layers    []layerStatus             `json:"layers"`
	Outcomes  map[string]int            `json:"outcomes"`
	Metrics   router.Metrics            `json:"metrics"`
	Config    *params.RouteDaemonConfig `json:"config"`
}

type errorResponse struct {
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []fix.Fix `json:"features"`
}

type trackResult struct {
	DeploymentID conceptual.DeploymentID `json:"deployment_id"`
	State        string                  `json:"state"`
	Reached      string                  `json:"reached"`
	Reason       string                  `json:"reason,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Violations   []int                   `json:"violations"`
	Inserted     int                     `json:"inserted"`
}

func newTrackResult(res router.Result) trackResult {
	tr := trackResult{
		DeploymentID: res.DeploymentID,
		State:        res.State.String(),
		Reached:      res.Reached.String(),
		Reason:       string(res.Reason),
		Violations:   res.Violations,
		Inserted:     res.Inserted(),
	}
	if tr.Violations == nil {
		tr.Violations = []int{}
	}
	if res.Err != nil {
		tr.Error = res.Err.Error()
	}
	return tr
}

type routeResponse struct {
	Results []trackResult     `json:"results"`
	Tracks  featureCollection `json:"tracks"`
}

func (s *RouteDaemon) writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *RouteDaemon) layerStatus(name string) (layerStatus, bool) {
	item := s.layers.Get(name, noTouch)
	if item == nil {
		return layerStatus{}, false
	}
	store := item.Value().Store
	return layerStatus{
		Name:      name,
		Polygons:  store.Len(),
		Edges:     store.EdgeCount(),
		ExpiresAt: item.ExpiresAt(),
	}, true
}

func (s *RouteDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := routeDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Layers:    []layerStatus{},
		Outcomes:  s.tallies(),
		Metrics:   router.MetricsSnapshot(),
		Config:    s.Config,
	}
	names := s.layers.Keys()
	sort.Strings(names)
	for _, name := range names {
		if ls, ok := s.layerStatus(name); ok {
			st.Layers = append(st.Layers, ls)
		}
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handlePutBarriers loads a FeatureCollection of polygons as the named layer,
// replacing any layer of that name. Invalid geometry is rejected whole.
func (s *RouteDaemon) handlePutBarriers(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["layer"]
	body := http.MaxBytesReader(w, r.Body, s.Config.MaxBodyBytes)
	store, err := barrier.LoadGeoJSON(body)
	if err != nil {
		s.logger.Warn("Rejected barrier layer", "layer", name, "error", err)
		code := http.StatusBadRequest
		if errors.Is(err, barrier.ErrInvalidGeometry) {
			code = http.StatusUnprocessableEntity
		}
		s.writeJSON(w, code, errorResponse{Reason: string(router.ReasonOf(err)), Error: err.Error()})
		return
	}
	rt, err := router.New(store, s.Config.RouteConfig)
	if err != nil {
		s.logger.Error("Failed to create router", "layer", name, "error", err)
		http.Error(w, "Failed to create router", http.StatusInternalServerError)
		return
	}

	s.replaceLayer(name, rt)
	s.logger.Info("Loaded barrier layer", "layer", name, "polygons", store.Len(), "edges", store.EdgeCount())

	ls, _ := s.layerStatus(name)
	s.writeJSON(w, http.StatusCreated, ls)
}

// replaceLayer installs rt as the named layer.
// The old router is deleted first so the eviction hook unwatches it.
func (s *RouteDaemon) replaceLayer(name string, rt *router.Router) {
	s.layersMu.Lock()
	defer s.layersMu.Unlock()
	s.layers.Delete(name)
	s.watch(name, rt)
	s.layers.Set(name, rt, ttlcache.DefaultTTL)
}

func (s *RouteDaemon) handleDeleteBarriers(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["layer"]
	if s.layers.Get(name, noTouch) == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Reason: "unknown_layer", Error: fmt.Sprintf("no barrier layer %q", name)})
		return
	}
	s.layersMu.Lock()
	s.layers.Delete(name)
	s.layersMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// handleRoute routes a FeatureCollection of point fixes against a layer.
// Fixes are grouped into one track per deployment.
// The response carries every result; it is 422 if any track failed.
func (s *RouteDaemon) handleRoute(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["layer"]
	item := s.layers.Get(name)
	if item == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Reason: "unknown_layer", Error: fmt.Sprintf("no barrier layer %q", name)})
		return
	}
	rt := item.Value()

	var fc featureCollection
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.Config.MaxBodyBytes)).Decode(&fc); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "bad_request", Error: err.Error()})
		return
	}
	if len(fc.Features) == 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "bad_request", Error: "no features"})
		return
	}

	ctx := r.Context()
	tracks := fix.GroupByDeployment(ctx, stream.Slice(ctx, fc.Features))
	results := rt.RouteAll(ctx, tracks)

	resp := routeResponse{
		Results: make([]trackResult, 0, len(results)),
		Tracks:  featureCollection{Type: "FeatureCollection", Features: []fix.Fix{}},
	}
	code := http.StatusOK
	for _, res := range results {
		tr := newTrackResult(res)
		if res.Err != nil {
			code = http.StatusUnprocessableEntity
		}
		resp.Results = append(resp.Results, tr)
		resp.Tracks.Features = append(resp.Tracks.Features, res.Track...)
	}
	s.writeJSON(w, code, resp)
}
