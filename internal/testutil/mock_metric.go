package testutil

import (
	"context"
	"fmt"
	"math"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
)

// MatrixCall tracks one Matrix invocation on the mock metric.
type MatrixCall struct {
	Sources      int
	Destinations int
}

// MockMetric is a deterministic in-process metric for tests. It scales raw
// lon/lat Euclidean distance, so geometry on small synthetic fixtures behaves
// like the real planar metric without any projection math. Individual pairs
// can be overridden, including with distance.Unreachable.
type MockMetric struct {
	ScaleFactor float64
	Overrides   map[string]float64
	Calls       []MatrixCall
	Err         error // returned verbatim from Matrix when set
}

func NewMockMetric() *MockMetric {
	return &MockMetric{
		ScaleFactor: 111000, // 1 degree ≈ 111km in meters
		Overrides:   make(map[string]float64),
	}
}

func (m *MockMetric) Name() string { return "mock" }

func pairKey(origin, dest models.Point) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f", origin.Lat, origin.Lon, dest.Lat, dest.Lon)
}

// SetCost overrides the cost for one directed pair.
func (m *MockMetric) SetCost(origin, dest models.Point, cost float64) {
	m.Overrides[pairKey(origin, dest)] = cost
}

// ResetCalls clears the recorded calls.
func (m *MockMetric) ResetCalls() {
	m.Calls = nil
}

func (m *MockMetric) cost(origin, dest models.Point) float64 {
	if cost, ok := m.Overrides[pairKey(origin, dest)]; ok {
		return cost
	}
	if models.SamePlace(origin, dest) {
		return 0
	}
	dLat := dest.Lat - origin.Lat
	dLon := dest.Lon - origin.Lon
	return math.Sqrt(dLat*dLat+dLon*dLon) * m.ScaleFactor
}

func (m *MockMetric) Matrix(_ context.Context, src, dst []models.Point) (distance.Matrix, error) {
	if dst == nil {
		dst = src
	}
	m.Calls = append(m.Calls, MatrixCall{Sources: len(src), Destinations: len(dst)})
	if m.Err != nil {
		return nil, m.Err
	}

	out := distance.NewMatrix(len(src), len(dst))
	for i := range src {
		for j := range dst {
			out[i][j] = m.cost(src[i], dst[j])
		}
	}
	return out, nil
}
