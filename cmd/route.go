/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/rotblauer/routr/barrier"
	"github.com/rotblauer/routr/cache"
	"github.com/rotblauer/routr/common"
	"github.com/rotblauer/routr/metrics/influxdb"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/router"
	"github.com/rotblauer/routr/state"
	"github.com/rotblauer/routr/stream"
	"github.com/rotblauer/routr/trackz"
	"github.com/rotblauer/routr/types/fix"
	"github.com/spf13/cobra"
)

var optBarriers string
var optTracks string
var optOut string
var optLedger string
var optKeepFailed bool
var optDedupe bool

// routeCmd represents the route command
var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Reroute tracks around land",
	Long: `Reads point fixes as newline-delimited GeoJSON features, groups them
into one track per deployment, and reroutes every land-crossing segment
around the barrier polygons.

Fixes of a deployment must be in time order. Tracks from mixed deployments
may be interleaved; the deployment is read from properties.DeploymentID,
then properties.Name, then the feature id.

Corrected fixes are written as NDJSON. Inserted fixes carry
"rerouted": true and an interpolated Time.

Examples:

  routr route --barriers land.geojson.gz < tracks.ndjson > routed.ndjson
  routr route --barriers land.geojson --tracks tracks.ndjson.gz --out routed.ndjson.gz --ledger ~/.routr/ledger.db
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		config, err := routeConfig()
		if err != nil {
			slog.Error("Invalid route config", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			sig := <-common.Interrupted()
			slog.Warn("Received signal, canceling", "signal", sig)
			cancel()
		}()

		var ledger *state.Ledger
		if optLedger != "" {
			ledger, err = state.OpenLedger(optLedger, false)
			if err != nil {
				slog.Error("Failed to open ledger", "error", err)
				os.Exit(1)
			}
			defer ledger.Close()
		}

		out, err := trackz.Create(optOut)
		if err != nil {
			slog.Error("Failed to create output", "error", err)
			os.Exit(1)
		}
		sum, err := runRoute(ctx, routeOptions{
			Barriers:   optBarriers,
			Tracks:     optTracks,
			KeepFailed: optKeepFailed,
			Dedupe:     optDedupe,
			Config:     config,
			Ledger:     ledger,
			Influx:     influxConfig(),
		}, out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			slog.Error("Route failed", "error", err)
			os.Exit(1)
		}
		sum.log()
		if sum.Failed > 0 {
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)

	pFlags := routeCmd.PersistentFlags()
	pFlags.StringVar(&optBarriers, "barriers", "", "barrier polygons, GeoJSON FeatureCollection (.gz ok)")
	pFlags.StringVar(&optTracks, "tracks", "-", "track fixes, NDJSON features (.gz ok); - is stdin")
	pFlags.StringVar(&optOut, "out", "-", "corrected fixes, NDJSON (.gz compresses); - is stdout")
	pFlags.StringVar(&optLedger, "ledger", "", "record outcomes in this bbolt ledger")
	pFlags.BoolVar(&optKeepFailed, "keep-failed", true, "write failed tracks through unchanged")
	pFlags.BoolVar(&optDedupe, "dedupe", false, "drop byte-identical input lines")
	_ = routeCmd.MarkPersistentFlagRequired("barriers")
}

type routeOptions struct {
	Barriers   string
	Tracks     string
	KeepFailed bool
	Dedupe     bool
	Config     *params.RouteConfig
	Ledger     *state.Ledger
	Influx     *params.InfluxConfig
}

type routeSummary struct {
	Tracks      int
	Fixes       int
	Reassembled int
	Failed      int
	Inserted    int
	Reasons     map[router.Reason]int
	Detours     []float64
	Elapsed     time.Duration
	Metrics     router.Metrics
}

func (s routeSummary) log() {
	args := []any{
		"tracks", humanize.Comma(int64(s.Tracks)),
		"fixes", humanize.Comma(int64(s.Fixes)),
		"reassembled", s.Reassembled,
		"failed", s.Failed,
		"inserted", humanize.Comma(int64(s.Inserted)),
		"elapsed", s.Elapsed.Round(time.Millisecond),
	}
	if len(s.Detours) > 0 {
		mean, _ := stats.Mean(s.Detours)
		median, _ := stats.Median(s.Detours)
		longest, _ := stats.Max(s.Detours)
		args = append(args,
			"detours", len(s.Detours),
			"detour.mean", humanize.SIWithDigits(mean, 1, "m"),
			"detour.median", humanize.SIWithDigits(median, 1, "m"),
			"detour.max", humanize.SIWithDigits(longest, 1, "m"))
	}
	if s.Metrics.Detours > 0 {
		args = append(args,
			"search.count", s.Metrics.Detours,
			"search.mean", s.Metrics.DetourMean.Round(time.Microsecond),
			"search.p95", s.Metrics.DetourP95.Round(time.Microsecond))
	}
	if s.Metrics.DetourCacheHits > 0 {
		args = append(args, "cache.hits", s.Metrics.DetourCacheHits)
	}
	for reason, n := range s.Reasons {
		args = append(args, "failed."+string(reason), n)
	}
	slog.Info("Routed tracks", args...)
}

func loadBarriers(path string) (*barrier.Store, error) {
	r, err := trackz.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return barrier.LoadGeoJSON(r)
}

// readTracks groups raw NDJSON lines by sniffed deployment id,
// then decodes each group into a track.
// With dedupe, repeats of a recently seen line are dropped.
func readTracks(ctx context.Context, path string, dedupe bool) ([]fix.Track, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in, err := trackz.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	lines, errs := stream.Lines(ctx, in)
	metered := stream.Metered(ctx, "read", params.DefaultProgressInterval, lines)
	if dedupe {
		metered = stream.Filter(ctx, cache.NewDeduper(params.DefaultBatchSize).PassBytes, metered)
	}
	keys, groups := stream.GroupBy(ctx, fix.SniffDeploymentID, metered)
	if err := <-errs; err != nil {
		return nil, err
	}

	tracks := make([]fix.Track, 0, len(keys))
	for _, k := range keys {
		track := make(fix.Track, 0, len(groups[k]))
		for d := range stream.Transform(ctx, decodeFix, stream.Slice(ctx, groups[k])) {
			if d.err != nil {
				return nil, fmt.Errorf("deployment %s fix %d: %w", k, len(track), d.err)
			}
			track = append(track, d.fix)
		}
		tracks = append(tracks, track)
	}
	return tracks, ctx.Err()
}

type decodedFix struct {
	fix fix.Fix
	err error
}

func decodeFix(line []byte) decodedFix {
	var d decodedFix
	d.err = json.Unmarshal(line, &d.fix)
	return d
}

func runRoute(ctx context.Context, opts routeOptions, out io.Writer) (routeSummary, error) {
	started := time.Now()
	sum := routeSummary{Reasons: map[router.Reason]int{}}

	store, err := loadBarriers(opts.Barriers)
	if err != nil {
		return sum, err
	}
	slog.Info("Loaded barriers", "polygons", store.Len(), "edges", store.EdgeCount())

	tracks, err := readTracks(ctx, opts.Tracks, opts.Dedupe)
	if err != nil {
		return sum, err
	}

	rt, err := router.New(store, opts.Config)
	if err != nil {
		return sum, err
	}

	// Outcomes are recorded off the result feed while tracks route.
	var recorded chan struct{}
	var results chan router.Result
	if opts.Ledger != nil {
		results = make(chan router.Result, opts.Config.Workers)
		sub := rt.SubscribeResults(results)
		recorded = make(chan struct{})
		go func() {
			defer close(recorded)
			for res := range results {
				if err := opts.Ledger.RecordOutcome(res.Outcome()); err != nil {
					slog.Error("Failed to record outcome", "deployment", res.DeploymentID, "error", err)
				}
			}
		}()
		defer func() {
			sub.Unsubscribe()
			close(results)
			<-recorded
		}()
	}

	routed := rt.RouteAll(ctx, tracks)

	enc := json.NewEncoder(out)
	outcomes := make([]state.Outcome, 0, len(routed))
	for i, res := range routed {
		outcomes = append(outcomes, res.Outcome())
		sum.Tracks++
		sum.Fixes += res.Fixes
		var write fix.Track
		if res.OK() {
			sum.Reassembled++
			sum.Inserted += res.Inserted()
			for _, d := range res.Detours {
				sum.Detours = append(sum.Detours, d.Length)
			}
			write = res.Track
		} else {
			sum.Failed++
			sum.Reasons[res.Reason]++
			if opts.KeepFailed {
				write = tracks[i]
			}
		}
		for _, f := range write {
			if err := enc.Encode(f); err != nil {
				return sum, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if opts.Influx.Enabled() {
		if err := influxdb.ExportOutcomes(ctx, opts.Influx, outcomes); err != nil {
			slog.Error("Failed to export outcomes", "url", opts.Influx.URL, "error", err)
		} else {
			slog.Info("Exported outcomes", "url", opts.Influx.URL, "bucket", opts.Influx.Bucket, "outcomes", len(outcomes))
		}
	}
	sum.Metrics = router.MetricsSnapshot()
	sum.Elapsed = time.Since(started)
	return sum, nil
}
