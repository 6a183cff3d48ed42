package influxdb

import (
	"context"
	"errors"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rotblauer/routr/params"
	"github.com/rotblauer/routr/state"
)

// Measurement is the InfluxDB measurement routing outcomes are written to.
const Measurement = "routr_outcome"

// OutcomePoint converts a routing outcome into a point.
// Outcomes without a RecordedAt are stamped with now.
func OutcomePoint(o state.Outcome, now time.Time) *write.Point {
	at := o.RecordedAt
	if at.IsZero() {
		at = now
	}
	p := influxdb2.NewPointWithMeasurement(Measurement).
		SetTime(at).
		AddTag("deployment", string(o.DeploymentID)).
		AddTag("state", o.State).
		AddField("fixes", o.Fixes).
		AddField("violations", o.Violations).
		AddField("inserted", o.Inserted).
		AddField("detour_length", o.DetourLength).
		AddField("elapsed_ms", o.Elapsed.Milliseconds())
	if o.Reason != "" {
		p.AddTag("reason", o.Reason)
	}
	return p
}

// ExportOutcomes writes outcomes to the configured bucket in one blocking request.
func ExportOutcomes(ctx context.Context, config *params.InfluxConfig, outcomes []state.Outcome) error {
	if !config.Enabled() {
		return errors.New("influxdb export not configured")
	}
	if len(outcomes) == 0 {
		return nil
	}
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	defer client.Close()

	writeAPI := client.WriteAPIBlocking(config.Org, config.Bucket)
	now := time.Now()
	points := make([]*write.Point, 0, len(outcomes))
	for _, o := range outcomes {
		points = append(points, OutcomePoint(o, now))
	}
	return writeAPI.WritePoint(ctx, points...)
}
