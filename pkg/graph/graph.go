// Package graph computes transitive dependency sets between named nodes.
//
// A Graph is built once from the full node list and is read-only
// afterwards, so it is safe for concurrent readers. Closures are computed
// as fixpoints ("grow until no change") rather than by recursion, which
// keeps the result independent of input order and lets cycles converge
// instead of looping.
package graph

import (
	"sort"
)

// Node is anything with a unique name and a list of declared dependency
// names. Names that do not belong to another node are ignored.
type Node interface {
	GetName() string
	GetDependencyNames() []string
}

type nameSet map[string]struct{}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s nameSet) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Graph maps every node name to the set of node names it depends on,
// directly or transitively. Every node has an entry, possibly empty.
type Graph struct {
	deps map[string]nameSet
}

// Build computes the dependency graph for nodes.
func Build(nodes []Node) *Graph {
	members := make(nameSet, len(nodes))
	for _, n := range nodes {
		members[n.GetName()] = struct{}{}
	}

	deps := make(map[string]nameSet, len(nodes))
	for _, n := range nodes {
		direct, ok := deps[n.GetName()]
		if !ok {
			direct = make(nameSet)
			deps[n.GetName()] = direct
		}
		for _, dep := range n.GetDependencyNames() {
			if members.has(dep) {
				direct[dep] = struct{}{}
			}
		}
	}

	closeTransitively(deps)
	return &Graph{deps: deps}
}

// closeTransitively unions each dependency's set into its dependents until
// a full pass adds nothing.
func closeTransitively(deps map[string]nameSet) {
	for {
		grew := false
		for _, set := range deps {
			var additions []string
			for dep := range set {
				for transitive := range deps[dep] {
					if !set.has(transitive) {
						additions = append(additions, transitive)
					}
				}
			}
			for _, name := range additions {
				if !set.has(name) {
					set[name] = struct{}{}
					grew = true
				}
			}
		}
		if !grew {
			return
		}
	}
}

// Names returns every node name in sorted order.
func (g *Graph) Names() []string {
	out := make([]string, 0, len(g.deps))
	for name := range g.deps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether name is a node of the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.deps[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.deps)
}

// Dependencies returns the sorted transitive dependencies of name.
func (g *Graph) Dependencies(name string) []string {
	return g.deps[name].sorted()
}

// IsDependentOn reports whether a depends on b, directly or transitively.
func (g *Graph) IsDependentOn(a, b string) bool {
	return g.deps[a].has(b)
}

// Closure expands roots with everything they depend on. The result is
// sorted and always contains every root.
func (g *Graph) Closure(roots []string) []string {
	set := make(nameSet, len(roots))
	for _, root := range roots {
		set[root] = struct{}{}
	}

	for {
		var additions []string
		for name := range set {
			for dep := range g.deps[name] {
				if !set.has(dep) {
					additions = append(additions, dep)
				}
			}
		}
		if len(additions) == 0 {
			break
		}
		for _, name := range additions {
			set[name] = struct{}{}
		}
	}

	return set.sorted()
}

// Cycles checks the nodes in names for a dependency cycle among
// themselves. It returns a *CycleError naming the members of the first
// cycle found, or nil. A nil names slice checks the whole graph.
func (g *Graph) Cycles(names []string) error {
	if names == nil {
		names = g.Names()
	}
	subset := make(nameSet, len(names))
	for _, name := range names {
		subset[name] = struct{}{}
	}

	for _, name := range subset.sorted() {
		if !g.IsDependentOn(name, name) {
			continue
		}
		members := nameSet{name: {}}
		for dep := range g.deps[name] {
			if subset.has(dep) && g.IsDependentOn(dep, name) {
				members[dep] = struct{}{}
			}
		}
		return &CycleError{Members: members.sorted()}
	}
	return nil
}

// Order returns names sorted so that dependencies come before their
// dependents, with ties broken alphabetically. Members of a cycle, which
// have no valid position, are appended at the end in alphabetical order.
func (g *Graph) Order(names []string) []string {
	subset := make(nameSet, len(names))
	for _, name := range names {
		subset[name] = struct{}{}
	}

	pending := make(map[string]int, len(subset))
	for name := range subset {
		for dep := range g.deps[name] {
			if dep != name && subset.has(dep) {
				pending[name]++
			}
		}
	}

	var ready []string
	for name := range subset {
		if pending[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(subset))
	placed := make(nameSet, len(subset))
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		placed[next] = struct{}{}

		for name := range subset {
			if placed.has(name) || name == next || !g.IsDependentOn(name, next) {
				continue
			}
			pending[name]--
			if pending[name] == 0 {
				ready = append(ready, name)
			}
		}
	}

	var stuck []string
	for name := range subset {
		if !placed.has(name) {
			stuck = append(stuck, name)
		}
	}
	sort.Strings(stuck)
	return append(order, stuck...)
}
