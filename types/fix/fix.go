package fix

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/routr/conceptual"
	"github.com/tidwall/gjson"
)

// Property keys with meaning to the router.
// Everything else in a fix's properties is an opaque attribute bag.
const (
	PropTime         = "Time"
	PropUnixTime     = "UnixTime"
	PropDeploymentID = "DeploymentID"
	PropName         = "Name"
	PropRerouted     = "rerouted"
)

// ErrPreconditionViolation is returned when an input track breaks
// the ordering contract: fixes strictly increasing in time, no duplicate times,
// point geometries only.
var ErrPreconditionViolation = errors.New("precondition violation")

// Fix is one location of an animal: a point in projected space,
// an optional time, and whatever the bio-logger or the upstream model attached.
// It's a geojson.Feature with definite point geometry,
// the same way the upstream prediction step writes them.
type Fix geojson.Feature

// NewFix creates a fix at pt with empty properties.
func NewFix(pt orb.Point) *Fix {
	return &Fix{
		Type:       "Feature",
		Geometry:   pt,
		Properties: make(map[string]interface{}),
	}
}

// NewReroutedFix creates a fix inserted by a detour.
// It carries the rerouted marker and, when t is non-zero, a time.
// No sensor attributes are copied onto it.
func NewReroutedFix(pt orb.Point, t time.Time) *Fix {
	f := NewFix(pt)
	f.Properties[PropRerouted] = true
	if !t.IsZero() {
		f.Properties[PropTime] = t
	}
	return f
}

// MarshalJSON implements the json.Marshaler interface.
func (f Fix) MarshalJSON() ([]byte, error) {
	g := geojson.Feature(f)
	return g.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *Fix) UnmarshalJSON(data []byte) error {
	g, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return err
	}
	*f = *(*Fix)(g)
	return nil
}

// Point returns the location of the fix.
func (f *Fix) Point() orb.Point {
	if pt, ok := f.Geometry.(orb.Point); ok {
		return pt
	}
	return f.Geometry.Bound().Center()
}

// Time returns the time of the fix.
// ok is false if the fix carries no time at all.
// The Time property may be a time.Time or an RFC3339 string;
// UnixTime (seconds, int or float) is a fallback.
func (f *Fix) Time() (t time.Time, ok bool, err error) {
	if v, has := f.Properties[PropTime]; has && v != nil {
		switch tv := v.(type) {
		case time.Time:
			return tv, true, nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, tv)
			if err != nil {
				return time.Time{}, true, err
			}
			return t, true, nil
		default:
			return time.Time{}, true, fmt.Errorf("property %s is a %T", PropTime, v)
		}
	}
	if v, has := f.Properties[PropUnixTime]; has && v != nil {
		switch tv := v.(type) {
		case int64:
			return time.Unix(tv, 0).UTC(), true, nil
		case int:
			return time.Unix(int64(tv), 0).UTC(), true, nil
		case float64:
			sec := int64(tv)
			return time.Unix(sec, int64((tv-float64(sec))*1e9)).UTC(), true, nil
		case json.Number:
			fv, err := tv.Float64()
			if err != nil {
				return time.Time{}, true, err
			}
			sec := int64(fv)
			return time.Unix(sec, int64((fv-float64(sec))*1e9)).UTC(), true, nil
		default:
			return time.Time{}, true, fmt.Errorf("property %s is a %T", PropUnixTime, v)
		}
	}
	return time.Time{}, false, nil
}

// MustTime gets the time or panics.
func (f *Fix) MustTime() time.Time {
	t, ok, err := f.Time()
	if err != nil {
		panic(err)
	}
	if !ok {
		panic("fix has no time")
	}
	return t
}

// DeploymentID returns the id of the deployment (tag, animal) the fix belongs to.
func (f *Fix) DeploymentID() conceptual.DeploymentID {
	for _, key := range []string{PropDeploymentID, PropName} {
		if s := f.Properties.MustString(key, ""); s != "" {
			return conceptual.DeploymentID(s)
		}
	}
	if f.ID != nil {
		return conceptual.DeploymentID(fmt.Sprint(f.ID))
	}
	return conceptual.UnknownDeployment
}

// IsRerouted returns true if the fix was inserted by a detour.
func (f *Fix) IsRerouted() bool {
	return f.Properties.MustBool(PropRerouted, false)
}

// Copy returns a copy of the fix with its own properties map.
func (f *Fix) Copy() *Fix {
	cp := &Fix{}
	*cp = *f
	cp.Properties = f.Properties.Clone()
	return cp
}

// SniffDeploymentID reads the deployment id of a raw GeoJSON feature
// without decoding it, with the same fallbacks as Fix.DeploymentID.
func SniffDeploymentID(data []byte) conceptual.DeploymentID {
	res := gjson.GetManyBytes(data, "properties."+PropDeploymentID, "properties."+PropName, "id")
	for _, r := range res {
		if r.Exists() && r.String() != "" {
			return conceptual.DeploymentID(r.String())
		}
	}
	return conceptual.UnknownDeployment
}
