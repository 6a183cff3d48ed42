// Package reassemble splices detours back into the time-ordered track they came from.
package reassemble

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb/planar"
	"github.com/rotblauer/routr/reroute"
	"github.com/rotblauer/routr/types/fix"
)

// ErrTimeOrderingConflict is returned when interpolated times of inserted fixes
// would not be strictly increasing. The track is never reordered to hide it.
var ErrTimeOrderingConflict = errors.New("time ordering conflict")

// Reassemble replaces each violating segment, identified by the index of its
// first fix, with the interior points of its detour.
//
// Inserted fixes are marked rerouted and, on timed tracks, get times interpolated
// between the segment's endpoint times in proportion to distance along the detour.
// Original fixes are carried over untouched. The input track is not modified;
// it must satisfy Track.Validate.
func Reassemble(track fix.Track, violations []int, detours []reroute.Detour) (fix.Track, error) {
	if err := track.Validate(); err != nil {
		return nil, err
	}
	if len(violations) != len(detours) {
		return nil, fmt.Errorf("%w: %d violations but %d detours",
			fix.ErrPreconditionViolation, len(violations), len(detours))
	}
	inserted := 0
	for k, vi := range violations {
		if vi < 0 || vi >= len(track)-1 {
			return nil, fmt.Errorf("%w: violation index %d out of range for %d fixes",
				fix.ErrPreconditionViolation, vi, len(track))
		}
		if k > 0 && vi <= violations[k-1] {
			return nil, fmt.Errorf("%w: violation indices not strictly increasing at %d",
				fix.ErrPreconditionViolation, k)
		}
		d := detours[k]
		if len(d.Points) < 2 {
			return nil, fmt.Errorf("%w: detour %d has %d points", fix.ErrPreconditionViolation, k, len(d.Points))
		}
		if d.Points[0] != track[vi].Point() || d.Points[len(d.Points)-1] != track[vi+1].Point() {
			return nil, fmt.Errorf("%w: detour %d endpoints %v, %v do not match segment %v, %v",
				fix.ErrPreconditionViolation, k, d.Points[0], d.Points[len(d.Points)-1],
				track[vi].Point(), track[vi+1].Point())
		}
		inserted += len(d.Points) - 2
	}
	if len(violations) == 0 {
		return track.Copy(), nil
	}

	timed := track.Timed()
	out := make(fix.Track, 0, len(track)+inserted)
	next := 0
	for i := range track {
		out = append(out, track[i])
		if next >= len(violations) || violations[next] != i {
			continue
		}
		d := detours[next]
		next++

		var t0, t1 time.Time
		if timed {
			var err0, err1 error
			t0, _, err0 = track[i].Time()
			t1, _, err1 = track[i+1].Time()
			if err := errors.Join(err0, err1); err != nil {
				return nil, fmt.Errorf("%w: segment %d: %v", fix.ErrPreconditionViolation, i, err)
			}
		}
		for _, f := range interpolate(d, t0, t1, timed) {
			out = append(out, *f)
		}
	}

	if at, ok := out.ValidateMonotonic(); !ok {
		cur, _, err := out[at].Time()
		if at == 0 || err != nil {
			return nil, fmt.Errorf("%w: fix %d has no valid time: %v", ErrTimeOrderingConflict, at, err)
		}
		prev, _, _ := out[at-1].Time()
		return nil, fmt.Errorf("%w: fix %d at %s does not follow %s",
			ErrTimeOrderingConflict, at, cur.Format(time.RFC3339Nano), prev.Format(time.RFC3339Nano))
	}
	return out, nil
}

// interpolate creates the fixes for the interior points of a detour.
func interpolate(d reroute.Detour, t0, t1 time.Time, timed bool) []*fix.Fix {
	total := 0.0
	for k := 1; k < len(d.Points); k++ {
		total += planar.Distance(d.Points[k-1], d.Points[k])
	}
	span := t1.Sub(t0)
	out := make([]*fix.Fix, 0, len(d.Points)-2)
	cum := 0.0
	for k := 1; k < len(d.Points)-1; k++ {
		cum += planar.Distance(d.Points[k-1], d.Points[k])
		var ts time.Time
		if timed {
			frac := 0.0
			if total > 0 {
				frac = cum / total
			}
			ts = t0.Add(time.Duration(math.Round(float64(span) * frac)))
		}
		out = append(out, fix.NewReroutedFix(d.Points[k], ts))
	}
	return out
}
