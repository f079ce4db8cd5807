package cluster

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
	"spatial-allocator/internal/testutil"
)

// twoGroups is four points near the origin and four near (1,1), far enough
// apart that any sane clustering separates them.
func twoGroups() []models.Point {
	return []models.Point{
		{Lon: 0.00, Lat: 0.00},
		{Lon: 0.01, Lat: 0.00},
		{Lon: 0.00, Lat: 0.01},
		{Lon: 0.01, Lat: 0.01},
		{Lon: 1.00, Lat: 1.00},
		{Lon: 1.01, Lat: 1.00},
		{Lon: 1.00, Lat: 1.01},
		{Lon: 1.01, Lat: 1.01},
	}
}

func TestKMeansSeparatesGroups(t *testing.T) {
	points := twoGroups()
	res, err := KMeans(context.Background(), points, testutil.NewMockMetric(), KMeansConfig{K: 2, Seed: 42})
	require.NoError(t, err)
	require.Len(t, res.Labels, len(points))
	require.Len(t, res.Centroids, 2)
	assert.True(t, res.Converged)

	first := res.Labels[0]
	for i := 1; i < 4; i++ {
		assert.Equal(t, first, res.Labels[i], "origin group split at point %d", i)
	}
	second := res.Labels[4]
	assert.NotEqual(t, first, second)
	for i := 5; i < 8; i++ {
		assert.Equal(t, second, res.Labels[i], "far group split at point %d", i)
	}

	// Converged centroids sit at the group means.
	for _, c := range res.Centroids {
		nearOrigin := c.Lon < 0.1 && c.Lat < 0.1
		nearFar := c.Lon > 0.9 && c.Lat > 0.9
		assert.True(t, nearOrigin || nearFar, "centroid %+v is between the groups", c)
	}
}

func TestKMeansSeededRunsAreReproducible(t *testing.T) {
	points := twoGroups()
	cfg := KMeansConfig{K: 3, Seed: 7}

	a, err := KMeans(context.Background(), points, testutil.NewMockMetric(), cfg)
	require.NoError(t, err)
	b, err := KMeans(context.Background(), points, testutil.NewMockMetric(), cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("seeded runs differ (-first +second):\n%s", diff)
	}
}

func TestKMeansValidatesK(t *testing.T) {
	points := twoGroups()

	_, err := KMeans(context.Background(), points, testutil.NewMockMetric(), KMeansConfig{K: 0})
	assert.Error(t, err)

	_, err = KMeans(context.Background(), points, testutil.NewMockMetric(), KMeansConfig{K: len(points) + 1})
	assert.Error(t, err)
}

func TestKMeansSinglePoint(t *testing.T) {
	points := []models.Point{{Lon: 13.4, Lat: 52.5}}
	res, err := KMeans(context.Background(), points, testutil.NewMockMetric(), KMeansConfig{K: 1, Seed: 1})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, res.Labels)
	assert.True(t, res.Converged)
	require.Len(t, res.Centroids, 1)
	assert.Equal(t, points[0].Coordinates(), res.Centroids[0])
}

func TestKMeansKEqualsN(t *testing.T) {
	points := twoGroups()[:3]
	res, err := KMeans(context.Background(), points, testutil.NewMockMetric(), KMeansConfig{K: 3, Seed: 5})
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, l := range res.Labels {
		seen[l] = true
	}
	assert.Len(t, seen, 3, "with k=n every point gets its own cluster")
}

func TestAssignSkipsUnreachable(t *testing.T) {
	costs := distance.Matrix{
		{-1, 5},  // first centroid unreachable
		{2, 2},   // tie goes to the lowest index
		{-1, -1}, // nothing reachable, label untouched
		{3, 1},
	}
	labels := []int{0, 0, 1, 0}
	assign(costs, labels)
	assert.Equal(t, []int{1, 0, 1, 1}, labels)
}

func TestRecenterKeepsEmptyCluster(t *testing.T) {
	points := []models.Point{{Lon: 0, Lat: 0}, {Lon: 2, Lat: 4}}
	prev := []models.Point{{Lon: 9, Lat: 9}, {Lon: 0, Lat: 0}}

	next := recenter(points, []int{1, 1}, prev)
	assert.Equal(t, models.Point{Lon: 9, Lat: 9}, next[0], "memberless cluster keeps its centroid")
	assert.Equal(t, models.Point{Lon: 1, Lat: 2}, next[1])
}
