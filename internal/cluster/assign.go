package cluster

import (
	"context"
	"fmt"
	"log"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
)

// AssignToCentroids assigns each point to the nearest of a fixed set of
// centroids, typically known worker locations. The centroids never move:
// this is the single assignment step of k-means without the iteration. Ties
// go to the lowest centroid index. Unlike the k-means loop, a point that can
// reach no centroid is an error here; there is no previous assignment to
// fall back on.
func AssignToCentroids(ctx context.Context, points, centroids []models.Point, metric distance.Metric) ([]int, error) {
	if len(centroids) == 0 {
		return nil, fmt.Errorf("no centroids to assign to")
	}
	labels := make([]int, len(points))
	if len(points) == 0 {
		return labels, nil
	}

	costs, err := metric.Matrix(ctx, points, centroids)
	if err != nil {
		return nil, fmt.Errorf("assignment matrix: %w", err)
	}
	for i, row := range costs {
		reachable := false
		for _, c := range row {
			if c >= 0 {
				reachable = true
				break
			}
		}
		if !reachable {
			return nil, fmt.Errorf("point %d cannot reach any centroid", i)
		}
	}
	assign(costs, labels)

	log.Printf("[SORT] Assigned %d points to %d fixed centroids", len(points), len(centroids))
	return labels, nil
}
