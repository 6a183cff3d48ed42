package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotblauer/routr/barrier"
	"github.com/rotblauer/routr/conceptual"
	"github.com/rotblauer/routr/reassemble"
	"github.com/rotblauer/routr/reroute"
	"github.com/rotblauer/routr/state"
	"github.com/rotblauer/routr/types/fix"
	"github.com/rotblauer/routr/visgraph"
)

// State is where a track is in the routing pipeline.
// Reassembled and Failed are terminal. A failed track is retried from Loaded.
type State int

const (
	Loaded State = iota
	ViolationsDetected
	Rerouted
	Reassembled
	Failed
)

var stateNames = map[State]string{
	Loaded:             "loaded",
	ViolationsDetected: "violations_detected",
	Rerouted:           "rerouted",
	Reassembled:        "reassembled",
	Failed:             "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) Terminal() bool {
	return s == Reassembled || s == Failed
}

// Reason classifies why a track failed.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonInvalidGeometry       Reason = "invalid_geometry"
	ReasonNoFeasibleRoute       Reason = "no_feasible_route"
	ReasonTimeOrderingConflict  Reason = "time_ordering_conflict"
	ReasonPreconditionViolation Reason = "precondition_violation"
	ReasonTimeout               Reason = "timeout"
	ReasonCanceled              Reason = "canceled"
	ReasonUnknown               Reason = "unknown"
)

// ReasonOf maps an error to its failure reason.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, barrier.ErrInvalidGeometry):
		return ReasonInvalidGeometry
	case errors.Is(err, visgraph.ErrNoFeasibleRoute):
		return ReasonNoFeasibleRoute
	case errors.Is(err, reassemble.ErrTimeOrderingConflict):
		return ReasonTimeOrderingConflict
	case errors.Is(err, fix.ErrPreconditionViolation):
		return ReasonPreconditionViolation
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	}
	return ReasonUnknown
}

// Result is the outcome of routing one track.
// Failures are values: a failed Result carries the state it reached,
// the reason, and the error.
type Result struct {
	DeploymentID conceptual.DeploymentID
	State        State

	// Fixes is the length of the input track.
	Fixes int

	// Reached is the last non-terminal state the track got to before failing,
	// or before being reassembled.
	Reached State

	Reason Reason
	Err    error

	// Track is the corrected track. It is set only when State is Reassembled.
	Track fix.Track

	// Violations holds the index of the first fix of each land-crossing segment.
	Violations []int
	Detours    []reroute.Detour

	Elapsed time.Duration
}

func (r Result) OK() bool {
	return r.State == Reassembled
}

// Inserted returns the number of fixes added by detours.
func (r Result) Inserted() int {
	n := 0
	for _, d := range r.Detours {
		n += len(d.Interior())
	}
	return n
}

func (r *Result) advance(s State) {
	r.State = s
	r.Reached = s
}

func (r *Result) fail(err error) {
	r.State = Failed
	r.Err = err
	r.Reason = ReasonOf(err)
	r.Track = nil
}

// Outcome summarizes r for the ledger.
func (r Result) Outcome() state.Outcome {
	o := state.Outcome{
		DeploymentID: r.DeploymentID,
		State:        r.State.String(),
		Reached:      r.Reached.String(),
		Reason:       string(r.Reason),
		Fixes:        r.Fixes,
		Violations:   len(r.Violations),
		Inserted:     r.Inserted(),
		Elapsed:      r.Elapsed,
	}
	if r.Err != nil {
		o.Error = r.Err.Error()
	}
	for _, d := range r.Detours {
		o.DetourLength += d.Length
	}
	return o
}
