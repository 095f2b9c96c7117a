// Package graph records which providers depend on which, keyed by provider
// key ID, so teardown can run dependents first and cycles can be reported.
package graph

import (
	"slices"
	"sync"
)

type Node struct {
	ID           string
	Label        string
	Dependencies []string
}

type Graph struct {
	mu         sync.RWMutex
	nodes      map[string]*Node
	cycleValid bool
	hasCycle   bool
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
	}
}

// AddNode inserts or replaces a node. Dependencies may name nodes that are
// not present yet.
func (g *Graph) AddNode(id, label string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deps := make([]string, 0, len(dependencies))
	for _, d := range dependencies {
		if !slices.Contains(deps, d) {
			deps = append(deps, d)
		}
	}

	g.nodes[id] = &Node{ID: id, Label: label, Dependencies: deps}
	g.cycleValid = false
}

func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.nodes, id)
	g.cycleValid = false
}

func (g *Graph) Label(id string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, ok := g.nodes[id]; ok && node.Label != "" {
		return node.Label
	}
	return id
}

func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, exists := g.nodes[id]
	if !exists {
		return nil
	}
	return slices.Clone(node.Dependencies)
}

func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for nodeID, node := range g.nodes {
		if slices.Contains(node.Dependencies, id) {
			dependents = append(dependents, nodeID)
		}
	}
	slices.Sort(dependents)
	return dependents
}

// Nodes returns node IDs in sorted order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.sortedIDs()
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := New()
	for id, node := range g.nodes {
		clone.nodes[id] = &Node{
			ID:           node.ID,
			Label:        node.Label,
			Dependencies: slices.Clone(node.Dependencies),
		}
	}
	return clone
}

// Missing returns dependencies that no node provides, sorted.
func (g *Graph) Missing() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []string
	seen := make(map[string]bool)

	for _, id := range g.sortedIDs() {
		for _, dep := range g.nodes[id].Dependencies {
			if _, exists := g.nodes[dep]; !exists && !seen[dep] {
				missing = append(missing, dep)
				seen[dep] = true
			}
		}
	}

	return missing
}
