package services

import (
	"sort"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
	"github.com/finscale/hierarchy-engine/pkg/models"
)

// EvaluationOrder is the result of dependency resolution for one project.
type EvaluationOrder struct {
	// Order lists every formula-bearing node id such that each node appears
	// after everything it references. Independent nodes are tied broken by
	// id, so the order is stable across runs (generated scripts are diffed
	// and version-controlled by users).
	Order []string

	// Ranks assigns each node its evaluation tier: referenced nodes without
	// a formula sit at rank 0 (their value is raw mapped source data), and a
	// formula node sits one above its deepest dependency.
	Ranks map[string]int
}

// ResolveEvaluationOrder computes a safe left-to-right evaluation order for
// all formula-bearing nodes in the snapshot using Kahn's algorithm.
//
// References to nodes that carry no formula are leaves and create no
// ordering constraint. References to ids missing from the snapshot entirely
// are also treated as leaves here; the compiler reports them per-node as
// dangling so one broken formula does not block ordering for the rest of
// the project.
//
// A cycle aborts resolution with the full cycle path; compiling an
// arbitrary partial order could silently produce wrong values.
func ResolveEvaluationOrder(snap *models.ProjectSnapshot) (*EvaluationOrder, error) {
	nodes := snap.FormulaNodeIDs()

	// deps: formula node -> referenced formula nodes (deduplicated).
	// Leaf references only contribute rank-0 entries.
	deps := make(map[string][]string, len(nodes))
	ranks := make(map[string]int)
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)

	for _, id := range nodes {
		indegree[id] = 0
	}
	for _, id := range nodes {
		for _, ref := range snap.ReferencedIDs(id) {
			if !snap.HasFormula(ref) {
				if snap.HasNode(ref) {
					ranks[ref] = 0
				}
				continue
			}
			deps[id] = append(deps[id], ref)
			dependents[ref] = append(dependents[ref], id)
			indegree[id]++
		}
	}

	// Kahn's algorithm. The ready set is kept sorted so ties resolve by
	// node id deterministically.
	var ready []string
	for _, id := range nodes {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		rank := 1
		for _, dep := range deps[id] {
			if ranks[dep]+1 > rank {
				rank = ranks[dep] + 1
			}
		}
		ranks[id] = rank

		released := false
		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) < len(nodes) {
		return nil, &apperrors.CircularDependencyError{
			Cycle: extractCycle(nodes, deps, indegree),
		}
	}

	return &EvaluationOrder{Order: order, Ranks: ranks}, nil
}

// extractCycle walks the unresolved remainder of the graph and returns one
// full cycle in traversal order, starting from the smallest participating
// node id so the report is deterministic.
func extractCycle(nodes []string, deps map[string][]string, indegree map[string]int) []string {
	remaining := make(map[string]bool)
	for _, id := range nodes {
		if indegree[id] > 0 {
			remaining[id] = true
		}
	}

	var start string
	for _, id := range nodes { // nodes is sorted
		if remaining[id] {
			start = id
			break
		}
	}

	// Follow dependency edges within the remainder until a node repeats.
	// Every remaining node has at least one remaining dependency, so the
	// walk must close a cycle.
	visited := make(map[string]int)
	var path []string
	current := start
	for {
		if pos, ok := visited[current]; ok {
			return path[pos:]
		}
		visited[current] = len(path)
		path = append(path, current)

		next := ""
		for _, dep := range deps[current] {
			if remaining[dep] && (next == "" || dep < next) {
				next = dep
			}
		}
		current = next
	}
}

// DependencyClosure returns the given node ids plus every formula-bearing
// node they transitively reference, restricted to ids present in order, in
// evaluation order. Artifacts must define a node's dependencies before the
// node itself even when the caller selected only the dependent.
func DependencyClosure(snap *models.ProjectSnapshot, order []string, selected []string) []string {
	want := make(map[string]bool, len(selected))
	var visit func(id string)
	visit = func(id string) {
		if want[id] || !snap.HasFormula(id) {
			return
		}
		want[id] = true
		for _, ref := range snap.ReferencedIDs(id) {
			visit(ref)
		}
	}
	for _, id := range selected {
		visit(id)
	}

	closure := make([]string, 0, len(want))
	for _, id := range order {
		if want[id] {
			closure = append(closure, id)
		}
	}
	return closure
}
