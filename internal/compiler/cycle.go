package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning represents a cycle in the dependent graph.
//
// Cycles are warnings, not errors: at raise time a dependent that is
// already on the path is skipped, so a cyclic definition still raises.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeCycles performs static cycle analysis on the dependent graph.
//
// The algorithm:
//  1. Build the event -> dependent events graph
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a warning
//
// Warnings are ordered by their first event in definition order. A DAG
// returns an empty list.
func AnalyzeCycles(def *Definition) []CycleWarning {
	warnings := []CycleWarning{}
	if def == nil || len(def.Events) == 0 {
		return warnings
	}

	graph, order := buildDependencyGraph(def)
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}

	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			// Start the path at the earliest defined member.
			slices.SortFunc(scc, func(a, b string) int { return position[a] - position[b] })
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return position[a.Path[0]] - position[b.Path[0]]
	})
	return warnings
}

// dependencyGraph maps event name -> dependent event names.
type dependencyGraph map[string][]string

// buildDependencyGraph returns the graph and the node order to visit.
// Undefined dependent targets become nodes without edges.
func buildDependencyGraph(def *Definition) (dependencyGraph, []string) {
	graph := make(dependencyGraph)
	var order []string

	addNode := func(name string) {
		if _, ok := graph[name]; !ok {
			graph[name] = []string{}
			order = append(order, name)
		}
	}

	for _, ev := range def.Events {
		addNode(ev.Name)
		for _, dep := range ev.Dependents {
			graph[ev.Name] = append(graph[ev.Name], dep.Event)
		}
	}
	for _, ev := range def.Events {
		for _, dep := range ev.Dependents {
			addNode(dep.Event)
		}
	}
	return graph, order
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting nodes in order.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC: pop it.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Event depends on itself: %s → %s", name, name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Dependent cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	inSCC := make(map[string]bool)
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
