package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/routr/common"
	"github.com/rotblauer/routr/params"
)

// Metered passes in through unchanged, logging throughput every interval
// and once more when in is exhausted.
// A non-positive interval uses params.DefaultProgressInterval.
func Metered[T any](ctx context.Context, label string, interval time.Duration, in <-chan T) <-chan T {
	if interval <= 0 {
		interval = params.DefaultProgressInterval
	}
	out := make(chan T)
	go func() {
		defer close(out)
		m := newTickMeter(label, interval)
		defer m.stop()
		for element := range in {
			m.mark()
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

type tickMeter struct {
	label   string
	started time.Time
	ticker  *time.Ticker
	done    chan struct{}
	meter   metrics.Meter
}

func newTickMeter(label string, interval time.Duration) *tickMeter {
	m := &tickMeter{
		label:   label,
		started: time.Now(),
		ticker:  time.NewTicker(interval),
		done:    make(chan struct{}),
		meter:   metrics.NewMeter(),
	}
	go m.run()
	return m
}

func (m *tickMeter) mark() {
	m.meter.Mark(1)
}

func (m *tickMeter) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			m.log()
		}
	}
}

func (m *tickMeter) log() {
	snap := m.meter.Snapshot()
	slog.Info("Stream progress", "d", m.label,
		"n", humanize.Comma(snap.Count()),
		"rate", common.DecimalToFixed(snap.RateMean(), 0),
		"running", time.Since(m.started).Round(time.Millisecond))
}

// Count returns the number of elements seen so far.
func (m *tickMeter) count() int64 {
	return m.meter.Snapshot().Count()
}

func (m *tickMeter) stop() {
	m.ticker.Stop()
	close(m.done)
	m.log()
	m.meter.Stop()
}
