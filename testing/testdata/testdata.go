package testdata

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/rotblauer/routr/stream"
	"github.com/rotblauer/routr/trackz"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path the given relative file or directory path,
// relative to this testdata/ directory in the user's GOPATH.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(basepath, rel)
}

// Islands is a FeatureCollection of two barriers in meters:
// a 1km square island at the origin, and a 1km atoll east of it
// with a lagoon from (2400,400) to (2600,600).
var Islands = "./islands.geojson"

// Tracks holds three deployments as NDJSON point features, hourly fixes.
// seal-1 crosses the square island, seal-2 stays clear,
// and gull-3 flies straight over the atoll and its lagoon.
var Tracks = "./tracks.ndjson"

// TracksGZ is Tracks, gzipped.
var TracksGZ = "./tracks.ndjson.gz"

// ReadSourceJSON decodes every NDJSON value in path, gzipped or not.
func ReadSourceJSON[T any](ctx context.Context, path string) ([]T, error) {
	r, err := trackz.Open(Path(path))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	items, errs := stream.NDJSON[T](ctx, r)
	out := stream.Collect(ctx, items)
	if err := <-errs; err != nil {
		return nil, err
	}
	return out, nil
}
