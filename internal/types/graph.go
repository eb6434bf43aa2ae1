package types

import "sort"

// PossibleGraph is the over-approximated universe of package and
// virtual names reachable from a set of root requests, plus the raw
// name-to-name edges discovered while traversing declared
// dependencies. It is computed fresh per solver invocation and never
// persisted.
type PossibleGraph struct {
	RealPkgs map[string]struct{}
	Virtuals map[string]struct{}
	Edges    map[string]map[string]struct{}
}

func NewPossibleGraph() PossibleGraph {
	return PossibleGraph{
		RealPkgs: map[string]struct{}{},
		Virtuals: map[string]struct{}{},
		Edges:    map[string]map[string]struct{}{},
	}
}

func (g PossibleGraph) AddReal(name string) {
	g.RealPkgs[name] = struct{}{}
}

func (g PossibleGraph) AddVirtual(name string) {
	g.Virtuals[name] = struct{}{}
}

func (g PossibleGraph) AddEdge(from string, to string) {
	if g.Edges[from] == nil {
		g.Edges[from] = map[string]struct{}{}
	}
	g.Edges[from][to] = struct{}{}
}

// HasReal reports whether name is in the real-package set.
func (g PossibleGraph) HasReal(name string) bool {
	_, ok := g.RealPkgs[name]
	return ok
}

// SortedReals returns the real package names in sorted order.
func (g PossibleGraph) SortedReals() []string {
	return sortedKeys(g.RealPkgs)
}

// SortedVirtuals returns the virtual names in sorted order.
func (g PossibleGraph) SortedVirtuals() []string {
	return sortedKeys(g.Virtuals)
}

// EdgesFrom returns the sorted edge targets for a package name.
func (g PossibleGraph) EdgesFrom(name string) []string {
	return sortedKeys(g.Edges[name])
}

// SortedNames returns the members of a name set in sorted order.
func SortedNames(set map[string]struct{}) []string {
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
