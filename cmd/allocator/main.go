// Command allocator clusters geographic points and builds visiting tours.
//
// Usage:
//
//	allocator -mode kmeans -input points.csv -k 4 -seed 42 -out results/
//	allocator -mode kahip  -input points.csv -k 4 -metric osrm
//	allocator -mode sort   -input points.csv -centroids workers.csv
//	allocator -mode tsp    -input points.csv -method christofides
//	allocator -mode stats  -input points.csv -assignments results/assignments.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"spatial-allocator/internal/cache"
	"spatial-allocator/internal/cluster"
	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
	"spatial-allocator/internal/pointio"
	"spatial-allocator/internal/results"
	"spatial-allocator/internal/tour"
)

func main() {
	var (
		mode   = flag.String("mode", "", "kmeans, kahip, sort, tsp or stats")
		input  = flag.String("input", "", "point file (.csv, .json or .geojson)")
		metric = flag.String("metric", distance.MetricEuclidean, "distance metric: euclidean, haversine, osrm or google")
		outDir = flag.String("out", ".", "output directory")

		k       = flag.Int("k", 2, "number of clusters")
		seed    = flag.Int64("seed", 0, "random seed, 0 means time-based")
		maxIter = flag.Int("max-iter", cluster.DefaultMaxIterations, "k-means iteration limit")

		nClosest     = flag.Int("n-closest", cluster.DefaultNClosest, "neighbours kept per point when partitioning")
		imbalance    = flag.Int("imbalance", 3, "allowed partition imbalance percent")
		balanceEdges = flag.Bool("balance-edges", false, "balance cut edges instead of block sizes")

		method = flag.String("method", tour.MethodGreedy, "tour method: greedy, christofides or solver")

		centroids   = flag.String("centroids", "", "known centroid locations for sort mode")
		assignments = flag.String("assignments", "", "assignments CSV for stats mode")

		byDistance   = flag.Bool("by-distance", false, "use meters instead of seconds for the remote metrics")
		osrmBaseURL  = flag.String("osrm-base-url", distance.DefaultOSRMBaseURL, "OSRM server base URL")
		osrmMaxTable = flag.Int("osrm-max-table-size", distance.DefaultMaxTableSize, "max coordinates per OSRM table request")
		apiKey       = flag.String("api-key", os.Getenv("GOOGLE_API_KEY"), "Google Distance Matrix API key")
		cachePath    = flag.String("cache", "", "sqlite pair cache path, empty disables caching")
	)
	flag.Parse()

	if *mode == "" || *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config{
		mode:         *mode,
		input:        *input,
		metric:       *metric,
		outDir:       *outDir,
		k:            *k,
		seed:         *seed,
		maxIter:      *maxIter,
		nClosest:     *nClosest,
		imbalance:    *imbalance,
		balanceEdges: *balanceEdges,
		method:       *method,
		centroids:    *centroids,
		assignments:  *assignments,
		byDistance:   *byDistance,
		osrmBaseURL:  *osrmBaseURL,
		osrmMaxTable: *osrmMaxTable,
		apiKey:       *apiKey,
		cachePath:    *cachePath,
	}); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

type config struct {
	mode, input, metric, outDir string

	k       int
	seed    int64
	maxIter int

	nClosest     int
	imbalance    int
	balanceEdges bool

	method      string
	centroids   string
	assignments string

	byDistance   bool
	osrmBaseURL  string
	osrmMaxTable int
	apiKey       string
	cachePath    string
}

func run(ctx context.Context, cfg config) error {
	points, err := pointio.Load(cfg.input)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("no points in %s", cfg.input)
	}

	var pairCache cache.PairCache
	if cfg.cachePath != "" {
		db, err := cache.Open(cfg.cachePath)
		if err != nil {
			return err
		}
		defer db.Close()
		pairCache = db.Pairs()
	}

	metric, err := distance.New(cfg.metric, distance.Options{
		OSRM: distance.OSRMConfig{
			BaseURL:      cfg.osrmBaseURL,
			MaxTableSize: cfg.osrmMaxTable,
			ByDistance:   cfg.byDistance,
			Cache:        pairCache,
		},
		Google: distance.GoogleConfig{
			APIKey:     cfg.apiKey,
			ByDistance: cfg.byDistance,
		},
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return err
	}
	runInfo := results.NewRun(cfg.mode, cfg.metric)
	runInfo.K = cfg.k
	runInfo.Seed = cfg.seed

	switch cfg.mode {
	case "kmeans":
		return runKMeans(ctx, cfg, runInfo, points, metric)
	case "kahip":
		return runPartition(ctx, cfg, runInfo, points, metric)
	case "sort":
		return runSort(ctx, cfg, runInfo, points, metric)
	case "tsp":
		return runTour(ctx, cfg, runInfo, points, metric)
	case "stats":
		return runStats(ctx, cfg, runInfo, points, metric)
	}
	return fmt.Errorf("unknown mode %q", cfg.mode)
}

func runKMeans(ctx context.Context, cfg config, runInfo results.Run, points []models.Point, metric distance.Metric) error {
	res, err := cluster.KMeans(ctx, points, metric, cluster.KMeansConfig{
		K:             cfg.k,
		MaxIterations: cfg.maxIter,
		Seed:          cfg.seed,
	})
	if err != nil {
		return err
	}

	if err := results.WriteAssignments(filepath.Join(cfg.outDir, "assignments.csv"), points, res.Labels); err != nil {
		return err
	}
	if err := results.WriteCentroids(filepath.Join(cfg.outDir, "centroids.csv"), res.Centroids); err != nil {
		return err
	}
	return results.WriteSummary(filepath.Join(cfg.outDir, "summary.json"), map[string]any{
		"run":        runInfo,
		"iterations": res.Iterations,
		"converged":  res.Converged,
	})
}

func runPartition(ctx context.Context, cfg config, runInfo results.Run, points []models.Point, metric distance.Metric) error {
	partitioner, err := cluster.NewKaffpa()
	if err != nil {
		return err
	}

	labels, err := cluster.PartitionPoints(ctx, points, metric, partitioner, cluster.PartitionConfig{
		K:            cfg.k,
		Seed:         cfg.seed,
		NClosest:     cfg.nClosest,
		Imbalance:    cfg.imbalance,
		BalanceEdges: cfg.balanceEdges,
	})
	if err != nil {
		return err
	}

	if err := results.WriteAssignments(filepath.Join(cfg.outDir, "assignments.csv"), points, labels); err != nil {
		return err
	}
	return results.WriteSummary(filepath.Join(cfg.outDir, "summary.json"), map[string]any{"run": runInfo})
}

func runSort(ctx context.Context, cfg config, runInfo results.Run, points []models.Point, metric distance.Metric) error {
	if cfg.centroids == "" {
		return fmt.Errorf("sort mode needs -centroids")
	}
	centroids, err := pointio.Load(cfg.centroids)
	if err != nil {
		return err
	}

	labels, err := cluster.AssignToCentroids(ctx, points, centroids, metric)
	if err != nil {
		return err
	}

	if err := results.WriteAssignments(filepath.Join(cfg.outDir, "assignments.csv"), points, labels); err != nil {
		return err
	}
	return results.WriteSummary(filepath.Join(cfg.outDir, "summary.json"), map[string]any{
		"run":       runInfo,
		"centroids": len(centroids),
	})
}

func runTour(ctx context.Context, cfg config, runInfo results.Run, points []models.Point, metric distance.Metric) error {
	t, err := tour.Solve(ctx, points, metric, tour.Config{Method: cfg.method})
	if err != nil {
		return err
	}

	if err := results.WriteTour(filepath.Join(cfg.outDir, "tour.csv"), points, t); err != nil {
		return err
	}
	return results.WriteSummary(filepath.Join(cfg.outDir, "summary.json"), map[string]any{
		"run":    runInfo,
		"method": cfg.method,
		"cost":   t.Cost,
		"stops":  len(t.Order) - 1,
	})
}

func runStats(ctx context.Context, cfg config, runInfo results.Run, points []models.Point, metric distance.Metric) error {
	if cfg.assignments == "" {
		return fmt.Errorf("stats mode needs -assignments")
	}
	labels, err := loadLabels(cfg.assignments, len(points))
	if err != nil {
		return err
	}

	stats, err := cluster.Stats(ctx, points, labels, metric)
	if err != nil {
		return err
	}
	return results.WriteSummary(filepath.Join(cfg.outDir, "stats.json"), map[string]any{
		"run":      runInfo,
		"clusters": stats,
	})
}

// loadLabels reads the cluster column of an assignments CSV written by a
// clustering run, in point order.
func loadLabels(path string, n int) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no assignment rows in %s", path)
	}

	col := -1
	for i, name := range rows[0] {
		if name == "cluster" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no cluster column in %s", path)
	}

	labels := make([]int, 0, len(rows)-1)
	for _, row := range rows[1:] {
		label, err := strconv.Atoi(row[col])
		if err != nil {
			return nil, fmt.Errorf("bad cluster label %q in %s: %w", row[col], path, err)
		}
		labels = append(labels, label)
	}
	if len(labels) != n {
		return nil, fmt.Errorf("%s has %d labels for %d points", path, len(labels), n)
	}
	return labels, nil
}
