package cluster

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
)

// ClusterStats summarises the internal cohesion of one cluster. GraphWeight
// is the total weight of the complete graph over the members; MSTWeight is
// the weight of its minimum spanning tree. Both are in the metric's native
// unit. Singleton clusters have zero for both.
type ClusterStats struct {
	Label       int
	Size        int
	GraphWeight float64
	MSTWeight   float64
}

// Stats computes per-cluster cohesion statistics, one entry per distinct
// label in ascending label order. The metric is queried once per multi-member
// cluster with that cluster's members only.
func Stats(ctx context.Context, points []models.Point, labels []int, metric distance.Metric) ([]ClusterStats, error) {
	if len(labels) != len(points) {
		return nil, fmt.Errorf("got %d labels for %d points", len(labels), len(points))
	}

	members := make(map[int][]models.Point)
	for i, l := range labels {
		members[l] = append(members[l], points[i])
	}
	order := make([]int, 0, len(members))
	for l := range members {
		order = append(order, l)
	}
	sort.Ints(order)

	stats := make([]ClusterStats, 0, len(order))
	for _, l := range order {
		pts := members[l]
		s := ClusterStats{Label: l, Size: len(pts)}
		if len(pts) >= 2 {
			costs, err := metric.Matrix(ctx, pts, nil)
			if err != nil {
				return nil, fmt.Errorf("cluster %d matrix: %w", l, err)
			}
			s.GraphWeight, s.MSTWeight = cohesion(costs)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// cohesion sums the upper triangle of a symmetric cost matrix and computes
// the MST weight over the same edges. Unreachable pairs contribute nothing to
// either figure.
func cohesion(costs distance.Matrix) (graphWeight, mstWeight float64) {
	n := costs.Rows()
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := costs[i][j]
			if c < 0 {
				continue
			}
			graphWeight += c
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), c))
		}
	}

	dst := simple.NewWeightedUndirectedGraph(0, 0)
	mstWeight = path.Kruskal(dst, g)
	return graphWeight, mstWeight
}
