package tour

import (
	"context"
	"errors"
	"fmt"
	"log"

	"spatial-allocator/internal/distance"
	"spatial-allocator/internal/models"
)

// Tour construction methods accepted by Solve.
const (
	MethodGreedy       = "greedy"
	MethodChristofides = "christofides"
	MethodSolver       = "solver"
)

// ErrNoPoints is returned when a tour is requested over an empty point set.
var ErrNoPoints = errors.New("no points to tour")

// ErrSolverUnavailable is a configuration error: the solver method was chosen
// but no external solver backend is wired in.
type ErrSolverUnavailable struct {
	Reason string
}

func (e *ErrSolverUnavailable) Error() string {
	return fmt.Sprintf("routing solver unavailable: %s", e.Reason)
}

// Tour is a closed visiting order over point indices. Order starts and ends
// at the depot (index 0), so it has len(points)+1 entries; Cost is the sum of
// consecutive leg costs in the metric's native unit.
type Tour struct {
	Order []int   `json:"order"`
	Cost  float64 `json:"cost"`
}

// RoutingSolver is the port for an external TSP backend. It returns an open
// visiting order over all indices beginning at depot; the caller closes the
// loop.
type RoutingSolver interface {
	SolveTSP(ctx context.Context, costs distance.Matrix, depot int) ([]int, error)
}

// Config selects a construction method. The zero value means greedy.
type Config struct {
	Method string
	Solver RoutingSolver // required for MethodSolver
}

// Solve builds a closed tour over all points starting at index 0. A single
// point yields the trivial tour without touching the metric. The greedy
// method tolerates asymmetric and partially unreachable matrices; the
// christofides method requires a symmetric fully-routable one.
func Solve(ctx context.Context, points []models.Point, metric distance.Metric, cfg Config) (*Tour, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if len(points) == 1 {
		return &Tour{Order: []int{0, 0}}, nil
	}

	method := cfg.Method
	if method == "" {
		method = MethodGreedy
	}

	costs, err := metric.Matrix(ctx, points, nil)
	if err != nil {
		return nil, fmt.Errorf("tour cost matrix: %w", err)
	}

	var order []int
	switch method {
	case MethodGreedy:
		order, err = greedyOrder(costs)
	case MethodChristofides:
		order, err = christofidesOrder(costs)
	case MethodSolver:
		if cfg.Solver == nil {
			return nil, &ErrSolverUnavailable{Reason: "no solver configured"}
		}
		order, err = cfg.Solver.SolveTSP(ctx, costs, 0)
	default:
		return nil, fmt.Errorf("unknown tour method %q", method)
	}
	if err != nil {
		return nil, err
	}

	closed := append(order, order[0])
	if err := Validate(closed, len(points)); err != nil {
		return nil, err
	}

	cost, err := Cost(costs, closed)
	if err != nil {
		return nil, err
	}
	log.Printf("[TOUR] Tour built: method=%s points=%d cost=%.1f", method, len(points), cost)
	return &Tour{Order: closed, Cost: cost}, nil
}

// Cost sums consecutive leg costs of a closed order. An unreachable leg is an
// error, not a silently negative total.
func Cost(costs distance.Matrix, order []int) (float64, error) {
	var total float64
	for i := 0; i+1 < len(order); i++ {
		leg := costs[order[i]][order[i+1]]
		if leg < 0 {
			return 0, fmt.Errorf("leg %d->%d is unreachable", order[i], order[i+1])
		}
		total += leg
	}
	return total, nil
}

// Validate checks that order is a closed tour visiting each of n points
// exactly once.
func Validate(order []int, n int) error {
	if len(order) != n+1 {
		return fmt.Errorf("tour has %d stops, want %d", len(order), n+1)
	}
	if order[0] != order[len(order)-1] {
		return fmt.Errorf("tour is not closed: starts at %d, ends at %d", order[0], order[len(order)-1])
	}
	seen := make([]bool, n)
	for _, v := range order[:len(order)-1] {
		if v < 0 || v >= n {
			return fmt.Errorf("tour stop %d out of range", v)
		}
		if seen[v] {
			return fmt.Errorf("tour visits %d twice", v)
		}
		seen[v] = true
	}
	return nil
}

// Rotate returns the closed tour rebased to start and end at the stop with
// index start, preserving direction.
func Rotate(order []int, start int) ([]int, error) {
	open := order[:len(order)-1]
	for i, v := range open {
		if v == start {
			out := make([]int, 0, len(order))
			out = append(out, open[i:]...)
			out = append(out, open[:i]...)
			return append(out, start), nil
		}
	}
	return nil, fmt.Errorf("stop %d not in tour", start)
}
