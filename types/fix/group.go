package fix

import (
	"context"

	"github.com/rotblauer/routr/conceptual"
	"github.com/rotblauer/routr/stream"
)

// GroupByDeployment splits a stream of fixes into one track per deployment.
// Tracks are returned in the order their deployments first appear,
// and fixes keep their stream order within a track.
func GroupByDeployment(ctx context.Context, in <-chan Fix) []Track {
	keys, groups := stream.GroupBy(ctx, func(f Fix) conceptual.DeploymentID {
		return f.DeploymentID()
	}, in)
	out := make([]Track, 0, len(keys))
	for _, k := range keys {
		out = append(out, Track(groups[k]))
	}
	return out
}
