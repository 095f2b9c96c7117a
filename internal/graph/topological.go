package graph

import (
	"errors"
	"slices"
)

var ErrCycleDetected = errors.New("cycle detected in graph")

// TopologicalSort orders nodes so every node follows its dependencies. Ties
// are broken by ID so the order is stable across runs.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dependents := make(map[string][]string, len(g.nodes))
	inDegree := make(map[string]int, len(g.nodes))

	ids := g.sortedIDs()
	for _, id := range ids {
		inDegree[id] = 0
	}
	for _, id := range ids {
		for _, dep := range g.nodes[id].Dependencies {
			if _, exists := g.nodes[dep]; exists {
				dependents[dep] = append(dependents[dep], id)
				inDegree[id]++
			}
		}
	}

	var queue []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(ids))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		var ready []string
		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		slices.Sort(ready)
		queue = append(queue, ready...)
	}

	if len(sorted) != len(ids) {
		return nil, ErrCycleDetected
	}
	return sorted, nil
}

// StartupOrder lists dependencies before their dependents.
func (g *Graph) StartupOrder() ([]string, error) {
	return g.TopologicalSort()
}

// ShutdownOrder lists dependents before their dependencies.
func (g *Graph) ShutdownOrder() ([]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	slices.Reverse(sorted)
	return sorted, nil
}
