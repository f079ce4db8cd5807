package tour

import (
	"fmt"

	"spatial-allocator/internal/distance"
)

// greedyOrder is nearest-neighbour construction from the depot: repeatedly
// hop to the cheapest unvisited point. Works on asymmetric matrices and
// skips unreachable legs; it fails only when every remaining point is
// unreachable from the current one.
func greedyOrder(costs distance.Matrix) ([]int, error) {
	n := costs.Rows()
	order := make([]int, 0, n)
	visited := make([]bool, n)

	current := 0
	order = append(order, current)
	visited[current] = true

	for len(order) < n {
		next := -1
		for j := 0; j < n; j++ {
			if visited[j] || costs[current][j] < 0 {
				continue
			}
			if next < 0 || costs[current][j] < costs[current][next] {
				next = j
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("no reachable unvisited point from %d", current)
		}
		order = append(order, next)
		visited[next] = true
		current = next
	}
	return order, nil
}
