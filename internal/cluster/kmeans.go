package cluster

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
)

// DefaultMaxIterations bounds Lloyd iterations when the configuration does not.
const DefaultMaxIterations = 300

// Centroid comparison tolerances for convergence detection.
const (
	centroidAbsTol = 1e-8
	centroidRelTol = 1e-4
)

// KMeansConfig configures a k-means run. Seed zero means a time-based seed,
// so runs are only reproducible with an explicit non-zero seed.
type KMeansConfig struct {
	K             int
	MaxIterations int
	Seed          int64
}

// KMeansResult is the outcome of one k-means run. Labels[i] is the cluster of
// points[i]; Centroids are synthetic points, not members of the input.
type KMeansResult struct {
	Labels     []int
	Centroids  []models.Point
	Iterations int
	Converged  bool
}

// KMeans runs Lloyd's algorithm over the given metric. Centroids are
// initialised from a random permutation of the input, assignment uses the
// metric's point-to-centroid costs, and centroids move to the coordinate mean
// of their members. A cluster that loses all members keeps its previous
// centroid. Unreachable costs are skipped during assignment; a point with no
// reachable centroid keeps its previous label.
func KMeans(ctx context.Context, points []models.Point, metric distance.Metric, cfg KMeansConfig) (*KMeansResult, error) {
	if cfg.K < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", cfg.K)
	}
	if cfg.K > len(points) {
		return nil, fmt.Errorf("k=%d exceeds point count %d", cfg.K, len(points))
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	centroids := make([]models.Point, cfg.K)
	for i, idx := range rng.Perm(len(points))[:cfg.K] {
		centroids[i] = points[idx].Coordinates()
	}

	labels := make([]int, len(points))
	result := &KMeansResult{Labels: labels, Centroids: centroids}

	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Iterations = iter

		costs, err := metric.Matrix(ctx, points, centroids)
		if err != nil {
			return nil, fmt.Errorf("assignment matrix: %w", err)
		}
		assign(costs, labels)

		next := recenter(points, labels, centroids)
		if converged(centroids, next) {
			result.Centroids = next
			result.Converged = true
			log.Printf("[KMEANS] Converged: k=%d points=%d iterations=%d", cfg.K, len(points), iter)
			return result, nil
		}
		centroids = next
		result.Centroids = next
	}

	log.Printf("[KMEANS] Iteration limit reached: k=%d points=%d iterations=%d", cfg.K, len(points), maxIter)
	return result, nil
}

// assign writes the index of the cheapest reachable centroid for each point.
// Ties go to the lowest centroid index; rows with no reachable centroid are
// left unchanged.
func assign(costs distance.Matrix, labels []int) {
	for i, row := range costs {
		best := -1
		bestCost := math.Inf(1)
		for j, c := range row {
			if c < 0 {
				continue
			}
			if c < bestCost {
				best = j
				bestCost = c
			}
		}
		if best >= 0 {
			labels[i] = best
		}
	}
}

// recenter returns the coordinate means per cluster, carrying the previous
// centroid forward for clusters with no members.
func recenter(points []models.Point, labels []int, prev []models.Point) []models.Point {
	sumLon := make([]float64, len(prev))
	sumLat := make([]float64, len(prev))
	count := make([]int, len(prev))
	for i, p := range points {
		l := labels[i]
		sumLon[l] += p.Lon
		sumLat[l] += p.Lat
		count[l]++
	}

	next := make([]models.Point, len(prev))
	for j := range next {
		if count[j] == 0 {
			next[j] = prev[j]
			continue
		}
		next[j] = models.Point{
			Lon: sumLon[j] / float64(count[j]),
			Lat: sumLat[j] / float64(count[j]),
		}
	}
	return next
}

func converged(prev, next []models.Point) bool {
	for i := range prev {
		if !scalar.EqualWithinAbsOrRel(prev[i].Lon, next[i].Lon, centroidAbsTol, centroidRelTol) ||
			!scalar.EqualWithinAbsOrRel(prev[i].Lat, next[i].Lat, centroidAbsTol, centroidRelTol) {
			return false
		}
	}
	return true
}
