package barrier

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FromFeatureCollection converts polygon and multipolygon features into barriers.
// Each multipolygon part becomes its own barrier, with "#n" appended to its id.
// Features are identified by their id, or by an "id" or "name" property, or by position.
func FromFeatureCollection(fc *geojson.FeatureCollection) ([]Polygon, error) {
	var out []Polygon
	for i, f := range fc.Features {
		id := featureID(f, i)
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			out = append(out, Polygon{ID: id, Polygon: g})
		case orb.MultiPolygon:
			for j, p := range g {
				out = append(out, Polygon{ID: fmt.Sprintf("%s#%d", id, j), Polygon: p})
			}
		case orb.Bound:
			out = append(out, Polygon{ID: id, Polygon: g.ToPolygon()})
		default:
			if f.Geometry == nil {
				return nil, &GeometryError{PolygonID: id, Reason: "nil geometry"}
			}
			return nil, &GeometryError{PolygonID: id, Reason: "not a polygon: " + f.Geometry.GeoJSONType()}
		}
	}
	return out, nil
}

// LoadGeoJSON reads a FeatureCollection of barrier polygons and loads a store.
func LoadGeoJSON(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode barrier feature collection: %w", err)
	}
	polygons, err := FromFeatureCollection(fc)
	if err != nil {
		return nil, err
	}
	return Load(polygons)
}

func featureID(f *geojson.Feature, i int) string {
	if f.ID != nil {
		return fmt.Sprint(f.ID)
	}
	for _, key := range []string{"id", "name"} {
		if v, ok := f.Properties[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("feature-%d", i)
}
