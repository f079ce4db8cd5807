package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
	"spatial-allocator/internal/testutil"
)

// stubPartitioner records what it was asked to do and returns fixed labels.
type stubPartitioner struct {
	labels []int
	err    error

	graph *NeighborGraph
	k     int
	cfg   PartitionConfig
}

func (s *stubPartitioner) Partition(_ context.Context, g *NeighborGraph, k int, cfg PartitionConfig) ([]int, error) {
	s.graph, s.k, s.cfg = g, k, cfg
	return s.labels, s.err
}

// lineMatrix is four points on a line at 0, 1, 2.2 and 3.6, scaled to whole
// meters. Nearest neighbours: 0->1, 1->0, 2->1, 3->2.
func lineMatrix() distance.Matrix {
	return distance.Matrix{
		{0, 1000, 2200, 3600},
		{1000, 0, 1200, 2600},
		{2200, 1200, 0, 1400},
		{3600, 2600, 1400, 0},
	}
}

func TestBuildNeighborGraphSparsifies(t *testing.T) {
	g, err := BuildNeighborGraph(lineMatrix(), 1)
	require.NoError(t, err)

	assert.Equal(t, 4, g.NumNodes)
	// Edge 1-2 survives because node 2 picked node 1, even though node 1's
	// own nearest neighbour is node 0.
	assert.Equal(t, 3, g.NumEdges)
	assert.Equal(t, []int{0, 1, 3, 5, 6}, g.XAdj)
	assert.Equal(t, []int{1, 0, 2, 1, 3, 2}, g.Adjncy)
	assert.Equal(t, []int{1000, 1000, 1200, 1200, 1400, 1400}, g.AdjWgt)
}

func TestBuildNeighborGraphFullWhenNClosestLarge(t *testing.T) {
	g, err := BuildNeighborGraph(lineMatrix(), 100)
	require.NoError(t, err)
	assert.Equal(t, 6, g.NumEdges, "nClosest above n-1 keeps the complete graph")
}

func TestBuildNeighborGraphSkipsUnreachable(t *testing.T) {
	m := lineMatrix()
	m[0][1], m[1][0] = distance.Unreachable, distance.Unreachable

	g, err := BuildNeighborGraph(m, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, g.NumEdges)
	for idx := g.XAdj[0]; idx < g.XAdj[1]; idx++ {
		assert.NotEqual(t, 1, g.Adjncy[idx], "unreachable pair must not become an edge")
	}
}

func TestBuildNeighborGraphWeightFloor(t *testing.T) {
	m := distance.Matrix{
		{0, 0.2},
		{0.2, 0},
	}
	g, err := BuildNeighborGraph(m, 1)
	require.NoError(t, err)
	require.Equal(t, 1, g.NumEdges)
	assert.Equal(t, []int{1, 1}, g.AdjWgt, "sub-meter costs round up to weight 1")
}

func TestBuildNeighborGraphRejectsNonSquare(t *testing.T) {
	_, err := BuildNeighborGraph(distance.Matrix{{0, 1, 2}}, 1)
	assert.Error(t, err)
}

func TestPartitionPoints(t *testing.T) {
	points := twoGroups()
	stub := &stubPartitioner{labels: []int{0, 0, 0, 0, 1, 1, 1, 1}}

	labels, err := PartitionPoints(context.Background(), points, testutil.NewMockMetric(), stub,
		PartitionConfig{K: 2, Seed: 11, NClosest: 3})
	require.NoError(t, err)
	assert.Equal(t, stub.labels, labels)

	require.NotNil(t, stub.graph)
	assert.Equal(t, len(points), stub.graph.NumNodes)
	assert.Equal(t, 2, stub.k)
	assert.Equal(t, int64(11), stub.cfg.Seed)
}

func TestPartitionPointsKOne(t *testing.T) {
	points := twoGroups()
	stub := &stubPartitioner{}

	labels, err := PartitionPoints(context.Background(), points, testutil.NewMockMetric(), stub,
		PartitionConfig{K: 1})
	require.NoError(t, err)
	assert.Equal(t, make([]int, len(points)), labels)
	assert.Nil(t, stub.graph, "k=1 is trivial and must not invoke the backend")
}

func TestPartitionPointsNilPartitioner(t *testing.T) {
	_, err := PartitionPoints(context.Background(), twoGroups(), testutil.NewMockMetric(), nil,
		PartitionConfig{K: 2})
	require.Error(t, err)

	var cfgErr *ErrPartitionerUnavailable
	assert.True(t, errors.As(err, &cfgErr))
}

func TestPartitionPointsLabelCountMismatch(t *testing.T) {
	stub := &stubPartitioner{labels: []int{0, 1}}
	_, err := PartitionPoints(context.Background(), twoGroups(), testutil.NewMockMetric(), stub,
		PartitionConfig{K: 2})
	assert.Error(t, err)
}

func TestPartitionPointsValidatesK(t *testing.T) {
	points := []models.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}
	stub := &stubPartitioner{}

	_, err := PartitionPoints(context.Background(), points, testutil.NewMockMetric(), stub, PartitionConfig{K: 0})
	assert.Error(t, err)

	_, err = PartitionPoints(context.Background(), points, testutil.NewMockMetric(), stub, PartitionConfig{K: 3})
	assert.Error(t, err)
}
