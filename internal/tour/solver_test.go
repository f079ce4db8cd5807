package tour

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

// stubSolver records the call and returns a fixed open order.
type stubSolver struct {
	order []int
	err   error

	costs distance.Matrix
	depot int
}

func (s *stubSolver) SolveTSP(_ context.Context, costs distance.Matrix, depot int) ([]int, error) {
	s.costs, s.depot = costs, depot
	return s.order, s.err
}

func flatMetric() *testutil.MockMetric {
	m := testutil.NewMockMetric()
	m.ScaleFactor = 1
	return m
}

func TestSolveEmpty(t *testing.T) {
	_, err := Solve(context.Background(), nil, flatMetric(), Config{})
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestSolveSinglePoint(t *testing.T) {
	metric := flatMetric()
	tr, err := Solve(context.Background(), []models.Point{{Lon: 13.4, Lat: 52.5}}, metric, Config{})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0}, tr.Order)
	assert.Zero(t, tr.Cost)
	assert.Empty(t, metric.Calls, "trivial tour must not query the metric")
}

func TestGreedyOrder(t *testing.T) {
	// On a line at 0, 1, 3 and 0.5, nearest-neighbour from the depot hops
	// 0 -> 3 -> 1 -> 2 and returns.
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 3, Lat: 0},
		{Lon: 0.5, Lat: 0},
	}

	tr, err := Solve(context.Background(), points, flatMetric(), Config{Method: MethodGreedy})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 1, 2, 0}, tr.Order)
	assert.InDelta(t, 6, tr.Cost, 1e-9)
}

func TestGreedySkipsUnreachable(t *testing.T) {
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 2, Lat: 0},
	}
	metric := flatMetric()
	metric.SetCost(points[0], points[1], -1)

	tr, err := Solve(context.Background(), points, metric, Config{Method: MethodGreedy})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 0}, tr.Order, "unreachable first hop forces the longer leg")
}

func TestChristofidesSquare(t *testing.T) {
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 1, Lat: 1},
		{Lon: 0, Lat: 1},
	}

	tr, err := Solve(context.Background(), points, flatMetric(), Config{Method: MethodChristofides})
	require.NoError(t, err)
	require.NoError(t, Validate(tr.Order, len(points)))

	// The optimal tour of a unit square is its perimeter.
	assert.InDelta(t, 4, tr.Cost, 1e-9)
}

func TestChristofidesLargerFixture(t *testing.T) {
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 2, Lat: 0.1},
		{Lon: 4, Lat: 0},
		{Lon: 4.2, Lat: 2},
		{Lon: 2.1, Lat: 3},
		{Lon: 0.2, Lat: 2.2},
		{Lon: 1.1, Lat: 1.4},
	}

	tr, err := Solve(context.Background(), points, flatMetric(), Config{Method: MethodChristofides})
	require.NoError(t, err)
	require.NoError(t, Validate(tr.Order, len(points)))
	assert.Equal(t, 0, tr.Order[0])
	assert.Greater(t, tr.Cost, 0.0)
}

func TestChristofidesRejectsAsymmetric(t *testing.T) {
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 2, Lat: 0},
	}
	metric := flatMetric()
	metric.SetCost(points[0], points[1], 99)

	_, err := Solve(context.Background(), points, metric, Config{Method: MethodChristofides})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symmetric")
}

func TestChristofidesRejectsUnreachable(t *testing.T) {
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 2, Lat: 0},
	}
	metric := flatMetric()
	metric.SetCost(points[0], points[2], -1)
	metric.SetCost(points[2], points[0], -1)

	_, err := Solve(context.Background(), points, metric, Config{Method: MethodChristofides})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestSolverMethod(t *testing.T) {
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 2, Lat: 0},
	}
	stub := &stubSolver{order: []int{0, 2, 1}}

	tr, err := Solve(context.Background(), points, flatMetric(), Config{Method: MethodSolver, Solver: stub})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 0}, tr.Order)
	assert.Equal(t, 0, stub.depot)
	assert.Equal(t, 3, stub.costs.Rows())
}

func TestSolverMethodNilSolver(t *testing.T) {
	points := []models.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}}
	_, err := Solve(context.Background(), points, flatMetric(), Config{Method: MethodSolver})
	require.Error(t, err)

	var cfgErr *ErrSolverUnavailable
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSolverMethodBadOrder(t *testing.T) {
	points := []models.Point{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 2, Lat: 0},
	}
	stub := &stubSolver{order: []int{0, 1, 1}}

	_, err := Solve(context.Background(), points, flatMetric(), Config{Method: MethodSolver, Solver: stub})
	assert.Error(t, err)
}

func TestSolveUnknownMethod(t *testing.T) {
	points := []models.Point{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}}
	_, err := Solve(context.Background(), points, flatMetric(), Config{Method: "simulated-annealing"})
	assert.Error(t, err)
}

func TestCostRejectsUnreachableLeg(t *testing.T) {
	costs := distance.Matrix{
		{0, 1},
		{-1, 0},
	}
	_, err := Cost(costs, []int{0, 1, 0})
	assert.Error(t, err)
}

func TestRotate(t *testing.T) {
	rotated, err := Rotate([]int{0, 1, 2, 3, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 0, 1, 2}, rotated)

	_, err = Rotate([]int{0, 1, 2, 3, 0}, 9)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]int{0, 2, 1, 0}, 3))
	assert.Error(t, Validate([]int{0, 1, 2}, 3), "open tour")
	assert.Error(t, Validate([]int{0, 1, 1, 0}, 3), "repeated stop")
	assert.Error(t, Validate([]int{0, 1, 3, 0}, 3), "stop out of range")
}
