package tour

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"spatial-allocator/internal/distance"
)

// christofidesOrder builds a tour via the Christofides heuristic: minimum
// spanning tree, a greedy perfect matching on the odd-degree vertices, an
// Eulerian circuit over the combined multigraph, then shortcutting repeated
// visits. The matching step is greedy rather than optimal, so the usual 3/2
// bound does not strictly hold, but tours stay close to it in practice.
// Requires a symmetric matrix with every pair reachable.
func christofidesOrder(costs distance.Matrix) ([]int, error) {
	n := costs.Rows()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if costs[i][j] < 0 || costs[j][i] < 0 {
				return nil, fmt.Errorf("pair %d,%d is unreachable: christofides needs a complete matrix", i, j)
			}
			if costs[i][j] != costs[j][i] {
				return nil, fmt.Errorf("asymmetric cost between %d and %d: christofides needs a symmetric metric", i, j)
			}
		}
	}

	mstEdges := minimumSpanningTree(costs)

	degree := make([]int, n)
	for _, e := range mstEdges {
		degree[e[0]]++
		degree[e[1]]++
	}
	var odd []int
	for v, d := range degree {
		if d%2 == 1 {
			odd = append(odd, v)
		}
	}

	multigraph := append(mstEdges, greedyMatch(odd, costs)...)
	circuit := eulerianCircuit(n, multigraph)
	return shortcut(n, circuit), nil
}

// minimumSpanningTree returns the MST edge list of the complete cost graph.
func minimumSpanningTree(costs distance.Matrix) [][2]int {
	n := costs.Rows()
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), costs[i][j]))
		}
	}

	mst := simple.NewWeightedUndirectedGraph(0, 0)
	path.Prim(mst, g)

	edges := make([][2]int, 0, n-1)
	it := mst.Edges()
	for it.Next() {
		e := it.Edge()
		edges = append(edges, [2]int{int(e.From().ID()), int(e.To().ID())})
	}
	return edges
}

// greedyMatch pairs up the odd-degree vertices cheapest-first. The vertex set
// always has even size because any graph has an even number of odd-degree
// vertices.
func greedyMatch(odd []int, costs distance.Matrix) [][2]int {
	type candidate struct {
		u, v int
		cost float64
	}
	cands := make([]candidate, 0, len(odd)*(len(odd)-1)/2)
	for i := 0; i < len(odd); i++ {
		for j := i + 1; j < len(odd); j++ {
			cands = append(cands, candidate{u: odd[i], v: odd[j], cost: costs[odd[i]][odd[j]]})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].cost != cands[j].cost {
			return cands[i].cost < cands[j].cost
		}
		if cands[i].u != cands[j].u {
			return cands[i].u < cands[j].u
		}
		return cands[i].v < cands[j].v
	})

	matched := make(map[int]bool, len(odd))
	var edges [][2]int
	for _, c := range cands {
		if matched[c.u] || matched[c.v] {
			continue
		}
		matched[c.u], matched[c.v] = true, true
		edges = append(edges, [2]int{c.u, c.v})
	}
	return edges
}

// eulerianCircuit runs Hierholzer's algorithm over the multigraph edge list,
// starting at vertex 0. Every vertex has even degree by construction, so a
// circuit exists.
func eulerianCircuit(n int, edges [][2]int) []int {
	type arc struct {
		to, id int
	}
	adj := make([][]arc, n)
	for id, e := range edges {
		adj[e[0]] = append(adj[e[0]], arc{to: e[1], id: id})
		adj[e[1]] = append(adj[e[1]], arc{to: e[0], id: id})
	}

	used := make([]bool, len(edges))
	next := make([]int, n)
	var circuit []int

	stack := []int{0}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		advanced := false
		for next[v] < len(adj[v]) {
			a := adj[v][next[v]]
			next[v]++
			if used[a.id] {
				continue
			}
			used[a.id] = true
			stack = append(stack, a.to)
			advanced = true
			break
		}
		if !advanced {
			circuit = append(circuit, v)
			stack = stack[:len(stack)-1]
		}
	}
	// Vertices come out in reverse traversal order, with the start vertex
	// last. Reverse so the circuit begins at 0.
	for i, j := 0, len(circuit)-1; i < j; i, j = i+1, j-1 {
		circuit[i], circuit[j] = circuit[j], circuit[i]
	}
	return circuit
}

// shortcut collapses an Eulerian circuit to a Hamiltonian order by skipping
// repeated visits, preserving first-visit order.
func shortcut(n int, circuit []int) []int {
	order := make([]int, 0, n)
	seen := make([]bool, n)
	for _, v := range circuit {
		if seen[v] {
			continue
		}
		seen[v] = true
		order = append(order, v)
	}
	return order
}
