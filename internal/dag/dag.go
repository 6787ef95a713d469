// Package dag provides the dependency graph used to order resource creation.
// Node IDs are resource names; all traversals are iterative and all outputs
// are deterministic for a given edge set.
package dag

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is a directed acyclic graph of resource names.
type Graph struct {
	nodes    map[string]struct{}
	children map[string][]string // edge from -> to
	parents  map[string][]string // reverse index
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]struct{}),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode registers a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge records that child depends on parent: parent must be created first.
// Both nodes must exist, self-loops are rejected, duplicates collapse.
func (g *Graph) AddEdge(parent, child string) error {
	if !g.HasNode(parent) {
		return fmt.Errorf("parent node %q does not exist", parent)
	}
	if !g.HasNode(child) {
		return fmt.Errorf("child node %q does not exist", child)
	}
	if parent == child {
		return fmt.Errorf("self-loop not allowed for node %q", parent)
	}
	for _, existing := range g.children[parent] {
		if existing == child {
			return nil
		}
	}
	g.children[parent] = append(g.children[parent], child)
	g.parents[child] = append(g.parents[child], parent)
	return nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, cs := range g.children {
		n += len(cs)
	}
	return n
}

// Nodes returns all node IDs in ascending order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Parents returns the direct dependencies of id, ascending.
func (g *Graph) Parents(id string) []string {
	out := append([]string(nil), g.parents[id]...)
	sort.Strings(out)
	return out
}

// Children returns the direct dependents of id, ascending.
func (g *Graph) Children(id string) []string {
	out := append([]string(nil), g.children[id]...)
	sort.Strings(out)
	return out
}

// TopoSort returns every node in dependency order: parents before children,
// ties broken by ascending name so the order is identical across runs.
// A cyclic graph returns a *CycleError carrying the minimal cycle.
func (g *Graph) TopoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.parents[id])
	}

	ready := make([]string, 0, len(g.nodes))
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, child := range g.Children(id) {
			indegree[child]--
			if indegree[child] == 0 {
				ready = insertSorted(ready, child)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, &CycleError{Cycle: g.ShortestCycle()}
	}
	return order, nil
}

// Levels groups nodes into waves: everything in level n depends only on
// levels < n, so a level can be created concurrently. Names within a level
// are ascending.
func (g *Graph) Levels() ([][]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = len(g.parents[id])
	}

	current := make([]string, 0)
	for id, d := range indegree {
		if d == 0 {
			current = append(current, id)
		}
	}
	sort.Strings(current)

	var levels [][]string
	seen := 0
	for len(current) > 0 {
		levels = append(levels, current)
		seen += len(current)

		next := make([]string, 0)
		for _, id := range current {
			for _, child := range g.children[id] {
				indegree[child]--
				if indegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		sort.Strings(next)
		current = next
	}

	if seen != len(g.nodes) {
		return nil, &CycleError{Cycle: g.ShortestCycle()}
	}
	return levels, nil
}

// HasCycle reports whether the graph contains a cycle. Detection walks an
// explicit stack, never the call stack, so graph depth cannot overflow.
func (g *Graph) HasCycle() bool {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(g.nodes))

	type frame struct {
		id   string
		next int
	}

	for _, start := range g.Nodes() {
		if state[start] != unvisited {
			continue
		}
		stack := []frame{{id: start}}
		state[start] = inStack
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.children[top.id]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				switch state[child] {
				case inStack:
					return true
				case unvisited:
					state[child] = inStack
					stack = append(stack, frame{id: child})
				}
				continue
			}
			state[top.id] = done
			stack = stack[:len(stack)-1]
		}
	}
	return false
}

// ShortestCycle returns the minimal cycle in the graph, or nil if acyclic.
// Each node appears once; the edge from the last entry back to the first
// closes the loop. Among equally short cycles the one through the smallest
// name wins, so error output is stable.
func (g *Graph) ShortestCycle() []string {
	var best []string
	for _, start := range g.Nodes() {
		cycle := g.shortestCycleThrough(start)
		if cycle == nil {
			continue
		}
		if best == nil || len(cycle) < len(best) {
			best = cycle
		}
	}
	if best == nil {
		return nil
	}
	return rotateToSmallest(best)
}

// shortestCycleThrough finds the shortest path start -> ... -> start via BFS.
func (g *Graph) shortestCycleThrough(start string) []string {
	prev := make(map[string]string, len(g.nodes))
	queue := []string{start}
	visited := map[string]bool{start: true}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range g.Children(id) {
			if child == start {
				path := []string{id}
				for at := id; at != start; {
					at = prev[at]
					path = append(path, at)
				}
				// path was collected child-to-start; reverse into walk order.
				out := make([]string, 0, len(path))
				for i := len(path) - 1; i >= 0; i-- {
					out = append(out, path[i])
				}
				return out
			}
			if !visited[child] {
				visited[child] = true
				prev[child] = id
				queue = append(queue, child)
			}
		}
	}
	return nil
}

// rotateToSmallest rotates the cycle so it starts at its smallest member.
func rotateToSmallest(cycle []string) []string {
	min := 0
	for i, id := range cycle {
		if id < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	out = append(out, cycle[:min]...)
	return out
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	return "dependency cycle detected: " + strings.Join(e.Cycle, " -> ") + " -> " + e.Cycle[0]
}
