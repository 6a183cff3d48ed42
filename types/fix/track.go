package fix

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/routr/conceptual"
)

// Track is the time-ordered sequence of fixes of one deployment.
type Track []Fix

// Points returns the locations of the track.
func (tr Track) Points() []orb.Point {
	pts := make([]orb.Point, len(tr))
	for i := range tr {
		pts[i] = tr[i].Point()
	}
	return pts
}

// LineString returns the track as a line.
func (tr Track) LineString() orb.LineString {
	return orb.LineString(tr.Points())
}

// DeploymentID returns the deployment of the first fix.
func (tr Track) DeploymentID() conceptual.DeploymentID {
	if len(tr) == 0 {
		return conceptual.UnknownDeployment
	}
	return tr[0].DeploymentID()
}

// Timed reports whether the track carries times.
// An empty track is untimed.
func (tr Track) Timed() bool {
	if len(tr) == 0 {
		return false
	}
	_, ok, _ := tr[0].Time()
	return ok
}

// Validate checks the ordering contract of a track.
// Fixes must be points, and either all carry a time or none does.
// Timed tracks must be strictly increasing in time.
// Errors wrap ErrPreconditionViolation.
func (tr Track) Validate() error {
	timed := tr.Timed()
	var last time.Time
	for i := range tr {
		f := &tr[i]
		if f.Geometry == nil {
			return fmt.Errorf("%w: fix %d has nil geometry", ErrPreconditionViolation, i)
		}
		if _, ok := f.Geometry.(orb.Point); !ok {
			return fmt.Errorf("%w: fix %d is a %s, not a point", ErrPreconditionViolation, i, f.Geometry.GeoJSONType())
		}
		t, ok, err := f.Time()
		if err != nil {
			return fmt.Errorf("%w: fix %d: %v", ErrPreconditionViolation, i, err)
		}
		if ok != timed {
			return fmt.Errorf("%w: fix %d: mixed timed and untimed fixes", ErrPreconditionViolation, i)
		}
		if !timed {
			continue
		}
		if i > 0 {
			if t.Equal(last) {
				return fmt.Errorf("%w: fix %d: duplicate time %s", ErrPreconditionViolation, i, t.Format(time.RFC3339Nano))
			}
			if t.Before(last) {
				return fmt.Errorf("%w: fix %d: time %s before previous %s", ErrPreconditionViolation, i,
					t.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
			}
		}
		last = t
	}
	return nil
}

// ValidateMonotonic checks only strict time ordering.
// It is used after reassembly, where new fixes are already known to be points.
func (tr Track) ValidateMonotonic() (int, bool) {
	if !tr.Timed() {
		return -1, true
	}
	var last time.Time
	for i := range tr {
		t, _, err := tr[i].Time()
		if err != nil {
			return i, false
		}
		if i > 0 && !t.After(last) {
			return i, false
		}
		last = t
	}
	return -1, true
}

// Copy returns a shallow copy of the slice of fixes.
func (tr Track) Copy() Track {
	cp := make(Track, len(tr))
	copy(cp, tr)
	return cp
}
