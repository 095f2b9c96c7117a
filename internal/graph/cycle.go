package graph

import "slices"

type cycleDetector struct {
	graph   *Graph
	index   int
	stack   []string
	onStack map[string]bool
	indices map[string]int
	lowlink map[string]int
	sccs    [][]string
}

// cycles returns every strongly connected component that forms a cycle,
// including self references.
func (g *Graph) cycles() [][]string {
	d := &cycleDetector{
		graph:   g,
		onStack: make(map[string]bool),
		indices: make(map[string]int),
		lowlink: make(map[string]int),
	}

	for _, id := range g.sortedIDs() {
		if _, visited := d.indices[id]; !visited {
			d.strongConnect(id)
		}
	}

	var cycles [][]string
	for _, scc := range d.sccs {
		switch {
		case len(scc) > 1:
			slices.Sort(scc)
			cycles = append(cycles, scc)
		case len(scc) == 1 && slices.Contains(g.nodes[scc[0]].Dependencies, scc[0]):
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

func (d *cycleDetector) strongConnect(id string) {
	d.indices[id] = d.index
	d.lowlink[id] = d.index
	d.index++
	d.stack = append(d.stack, id)
	d.onStack[id] = true

	for _, dep := range d.graph.nodes[id].Dependencies {
		if _, exists := d.graph.nodes[dep]; !exists {
			continue
		}

		if _, visited := d.indices[dep]; !visited {
			d.strongConnect(dep)
			d.lowlink[id] = min(d.lowlink[id], d.lowlink[dep])
		} else if d.onStack[dep] {
			d.lowlink[id] = min(d.lowlink[id], d.indices[dep])
		}
	}

	if d.lowlink[id] == d.indices[id] {
		var scc []string
		for {
			n := len(d.stack) - 1
			w := d.stack[n]
			d.stack = d.stack[:n]
			d.onStack[w] = false
			scc = append(scc, w)
			if w == id {
				break
			}
		}
		d.sccs = append(d.sccs, scc)
	}
}

func (g *Graph) HasCycle() bool {
	g.mu.RLock()
	if g.cycleValid {
		result := g.hasCycle
		g.mu.RUnlock()
		return result
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cycleValid {
		g.hasCycle = len(g.cycles()) > 0
		g.cycleValid = true
	}
	return g.hasCycle
}

// CyclePath returns the first cycle reachable from start as a closed path
// (first and last element equal), or nil.
func (g *Graph) CyclePath(start string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.cyclePath(start)
}

func (g *Graph) cyclePath(start string) []string {
	visited := make(map[string]bool)
	inPath := make(map[string]bool)
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		if inPath[id] {
			i := slices.Index(path, id)
			cycle := slices.Clone(path[i:])
			return append(cycle, id)
		}
		if visited[id] {
			return nil
		}

		visited[id] = true
		path = append(path, id)
		inPath[id] = true

		for _, dep := range g.nodes[id].Dependencies {
			if _, exists := g.nodes[dep]; !exists {
				continue
			}
			if cycle := dfs(dep); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		inPath[id] = false
		return nil
	}

	if _, ok := g.nodes[start]; !ok {
		return nil
	}
	return dfs(start)
}

// CyclePaths returns one closed path per cycle in the graph.
func (g *Graph) CyclePaths() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var paths [][]string
	for _, scc := range g.cycles() {
		if path := g.cyclePath(scc[0]); path != nil {
			paths = append(paths, path)
		}
	}
	return paths
}
