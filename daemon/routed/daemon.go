// Package routed serves land-avoidance routing over HTTP.
// Barrier layers are uploaded by name and kept in a TTL cache;
// tracks are posted against a layer and returned corrected.
package routed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/jellydator/ttlcache/v3"
	"github.com/olahol/melody"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/router"
	"github.com/rotblauer/routr/state"
)

type RouteDaemon struct {
	Config *params.RouteDaemonConfig
	Ledger *state.Ledger

	logger  *slog.Logger
	started time.Time
	layers  *ttlcache.Cache[string, *router.Router]

	// layersMu serializes layer replacement, so every replaced router
	// passes through the eviction hook.
	layersMu sync.Mutex

	melodyInstance *melody.Melody

	subsMu sync.Mutex
	subs   map[*router.Router]event.Subscription

	tallyMu sync.Mutex
	tally   map[string]int
}

// NewRouteDaemon returns a daemon with an empty layer cache.
// The ledger is optional; when set, every routing outcome is recorded in it.
func NewRouteDaemon(config *params.RouteDaemonConfig, ledger *state.Ledger) *RouteDaemon {
	if config == nil {
		config = params.DefaultRouteDaemonConfig()
	}
	s := &RouteDaemon{
		Config:  config,
		Ledger:  ledger,
		logger:  slog.With("d", "routed"),
		started: time.Now(),
		layers: ttlcache.New[string, *router.Router](
			ttlcache.WithTTL[string, *router.Router](params.CacheBarrierLayerTTL)),
		subs:  make(map[*router.Router]event.Subscription),
		tally: make(map[string]int),
	}
	s.initMelody()
	s.layers.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *router.Router]) {
		s.logger.Info("Evicted barrier layer", "layer", item.Key(), "reason", reason)
		s.unwatch(item.Value())
	})
	return s
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *RouteDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", s.Config.Network, s.Config.Address, err)
	}
	server := &http.Server{
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.layers.Start()
	defer s.layers.Stop()

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Starting route daemon", "network", s.Config.Network, "address", ln.Addr())
		errs <- server.Serve(ln)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("Shutting down route daemon")
	_ = s.melodyInstance.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// watch tallies, and records in the ledger, every result of r.
func (s *RouteDaemon) watch(layer string, r *router.Router) {
	ch := make(chan router.Result, 16)
	sub := r.SubscribeResults(ch)
	s.subsMu.Lock()
	s.subs[r] = sub
	s.subsMu.Unlock()

	go func() {
		for {
			select {
			case res := <-ch:
				s.record(layer, res)
			case <-sub.Err():
				return
			}
		}
	}()
}

func (s *RouteDaemon) unwatch(r *router.Router) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if sub, ok := s.subs[r]; ok {
		sub.Unsubscribe()
		delete(s.subs, r)
	}
}

func (s *RouteDaemon) record(layer string, res router.Result) {
	key := res.State.String()
	if res.Reason != router.ReasonNone {
		key += "/" + string(res.Reason)
	}
	s.tallyMu.Lock()
	s.tally[key]++
	s.tallyMu.Unlock()

	s.broadcastResult(layer, res)

	if s.Ledger == nil {
		return
	}
	if err := s.Ledger.RecordOutcome(res.Outcome()); err != nil {
		s.logger.Error("Failed to record outcome", "layer", layer, "deployment", res.DeploymentID, "error", err)
	}
}

func (s *RouteDaemon) tallies() map[string]int {
	s.tallyMu.Lock()
	defer s.tallyMu.Unlock()
	out := make(map[string]int, len(s.tally))
	for k, v := range s.tally {
		out[k] = v
	}
	return out
}
