package cluster

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
)

// DefaultNClosest is how many nearest neighbours each point contributes to
// the sparsified graph.
const DefaultNClosest = 15

// ErrPartitionerUnavailable is a configuration error: no partitioning backend
// is present on this machine, so graph partitioning cannot run at all.
type ErrPartitionerUnavailable struct {
	Reason string
}

func (e *ErrPartitionerUnavailable) Error() string {
	return fmt.Sprintf("graph partitioner unavailable: %s", e.Reason)
}

// NeighborGraph is an undirected graph over point indices with positive
// integer edge weights, stored in CSR form (the adjacency layout partitioning
// backends consume). XAdj has NumNodes+1 entries; the neighbours of node v
// are Adjncy[XAdj[v]:XAdj[v+1]] with weights AdjWgt at the same offsets, and
// every edge appears in both endpoints' adjacency lists.
type NeighborGraph struct {
	NumNodes int
	NumEdges int // undirected edge count
	XAdj     []int
	Adjncy   []int
	AdjWgt   []int
}

// PartitionConfig configures a graph-partition clustering run.
type PartitionConfig struct {
	K            int
	Seed         int64
	NClosest     int // neighbours kept per point, default DefaultNClosest
	Imbalance    int // allowed imbalance percent, default 3
	BalanceEdges bool
}

// Partitioner assigns each graph node a block in [0, k). Implementations may
// shell out to an external tool.
type Partitioner interface {
	Partition(ctx context.Context, g *NeighborGraph, k int, cfg PartitionConfig) ([]int, error)
}

// BuildNeighborGraph sparsifies a full cost matrix to each point's nClosest
// nearest neighbours and symmetrises the result: an edge survives when either
// endpoint selected the other. Costs are rounded to integer weights with a
// floor of 1 so cheap edges stay distinct from absent ones; unreachable pairs
// contribute no edge.
func BuildNeighborGraph(costs distance.Matrix, nClosest int) (*NeighborGraph, error) {
	n := costs.Rows()
	if n == 0 {
		return nil, fmt.Errorf("empty cost matrix")
	}
	if costs.Cols() != n {
		return nil, fmt.Errorf("cost matrix must be square, got %dx%d", n, costs.Cols())
	}
	if nClosest <= 0 {
		nClosest = DefaultNClosest
	}
	if nClosest > n-1 {
		nClosest = n - 1
	}

	// weights[i][j] for i<j; zero means no edge.
	weight := make(map[[2]int]int)
	row := make([]float64, n)
	inds := make([]int, n)
	for i := 0; i < n; i++ {
		copy(row, costs[i])
		for k := range inds {
			inds[k] = k
		}
		floats.Argsort(row, inds)

		kept := 0
		for r := 0; r < n && kept < nClosest; r++ {
			j := inds[r]
			if j == i || costs[i][j] < 0 {
				continue
			}
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			w := int(math.Round(costs[i][j]))
			if w < 1 {
				w = 1
			}
			weight[[2]int{a, b}] = w
			kept++
		}
	}

	g := &NeighborGraph{
		NumNodes: n,
		NumEdges: len(weight),
		XAdj:     make([]int, n+1),
	}

	adj := make([][]int, n)
	wgt := make(map[[2]int]int, len(weight))
	for e, w := range weight {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
		wgt[e] = w
	}
	for v := 0; v < n; v++ {
		sort.Ints(adj[v])
		g.XAdj[v+1] = g.XAdj[v] + len(adj[v])
		for _, u := range adj[v] {
			a, b := v, u
			if a > b {
				a, b = b, a
			}
			g.Adjncy = append(g.Adjncy, u)
			g.AdjWgt = append(g.AdjWgt, wgt[[2]int{a, b}])
		}
	}
	return g, nil
}

// PartitionPoints clusters points into k blocks by partitioning the
// sparsified neighbour graph. Unlike k-means this balances block sizes and
// needs no centroid geometry, so it works with purely relational costs.
func PartitionPoints(ctx context.Context, points []models.Point, metric distance.Metric, p Partitioner, cfg PartitionConfig) ([]int, error) {
	if cfg.K < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", cfg.K)
	}
	if cfg.K > len(points) {
		return nil, fmt.Errorf("k=%d exceeds point count %d", cfg.K, len(points))
	}
	if p == nil {
		return nil, &ErrPartitionerUnavailable{Reason: "no partitioner configured"}
	}
	if cfg.K == 1 {
		return make([]int, len(points)), nil
	}

	costs, err := metric.Matrix(ctx, points, nil)
	if err != nil {
		return nil, fmt.Errorf("cost matrix: %w", err)
	}

	g, err := BuildNeighborGraph(costs, cfg.NClosest)
	if err != nil {
		return nil, err
	}
	log.Printf("[PARTITION] Neighbor graph built: nodes=%d edges=%d k=%d", g.NumNodes, g.NumEdges, cfg.K)

	labels, err := p.Partition(ctx, g, cfg.K, cfg)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(points) {
		return nil, fmt.Errorf("partitioner returned %d labels for %d points", len(labels), len(points))
	}
	return labels, nil
}
