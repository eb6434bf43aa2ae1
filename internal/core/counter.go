package core

import (
	"context"

	"crucible/internal/ports"
	"crucible/internal/types"
)

const defaultMaxDupes = 2

// Counter decides how many simultaneous instances of each package and
// virtual one concretization may contain, and emits the cardinality
// facts plus the link-run/build partition for the solver. A Counter is
// constructed fresh per solve; cache values are computed on first
// access and never recomputed.
type Counter interface {
	PossibleDependencies() []string
	PossibleVirtuals() []string
	Emit(input *types.SolverInput)
}

// NewCounter dispatches on concretizer:duplicates:strategy. The
// strategy set is closed; unknown or absent values fall back to the
// "none" policy.
func NewCounter(ctx context.Context, analyzer GraphAnalyzer, repo ports.RepositoryPort, cfg ports.ConfigPort, specs []types.Spec, tests bool) Counter {
	strategy := types.ParseDuplicatesStrategy(cfg.GetString("concretizer:duplicates:strategy", string(types.DuplicatesNone)))
	base := newBaseCounter(ctx, analyzer, repo, cfg, specs, tests)
	switch strategy {
	case types.DuplicatesFull:
		return &FullDuplicatesCounter{MinimalDuplicatesCounter: MinimalDuplicatesCounter{baseCounter: base}}
	case types.DuplicatesMinimal:
		return &MinimalDuplicatesCounter{baseCounter: base}
	default:
		return &NoDuplicatesCounter{baseCounter: base}
	}
}

type baseCounter struct {
	ctx      context.Context
	analyzer GraphAnalyzer
	repo     ports.RepositoryPort
	cfg      ports.ConfigPort
	specs    []types.Spec
	tests    bool

	allTypes     types.DepFlag
	linkRunTypes types.DepFlag

	computed     bool
	possiblePkgs map[string]struct{}
	possibleVirt map[string]struct{}
}

func newBaseCounter(ctx context.Context, analyzer GraphAnalyzer, repo ports.RepositoryPort, cfg ports.ConfigPort, specs []types.Spec, tests bool) baseCounter {
	allTypes := types.DepAll
	linkRunTypes := types.DepLinkRun
	if tests {
		linkRunTypes |= types.DepTest
	} else {
		allTypes &^= types.DepTest
	}
	return baseCounter{
		ctx:          ctx,
		analyzer:     analyzer,
		repo:         repo,
		cfg:          cfg,
		specs:        specs,
		tests:        tests,
		allTypes:     allTypes,
		linkRunTypes: linkRunTypes,
	}
}

func (c *baseCounter) buildTools() map[string]struct{} {
	out := map[string]struct{}{}
	for _, name := range c.repo.PackagesWithTag(TagBuildTools) {
		out[name] = struct{}{}
	}
	return out
}

func (c *baseCounter) configuredMaxDupes(name string) int {
	return c.cfg.GetInt("concretizer:duplicates:max_dupes:"+name, defaultMaxDupes)
}

func specsFor(names map[string]struct{}) []types.Spec {
	var out []types.Spec
	for name := range names {
		out = append(out, types.NewSpec(name))
	}
	return out
}

// NoDuplicatesCounter is the "none" policy: one flat namespace, build
// tools included, every name limited to a single instance.
type NoDuplicatesCounter struct {
	baseCounter
}

func (c *NoDuplicatesCounter) ensureCacheValues() {
	if c.computed {
		return
	}
	graph := c.analyzer.PossibleDependencies(c.ctx, c.specs, TraversalOptions{
		AllowedDeps:    c.allTypes,
		Transitive:     true,
		ExpandVirtuals: true,
	})
	c.possiblePkgs = graph.RealPkgs
	c.possibleVirt = graph.Virtuals
	c.computed = true
}

func (c *NoDuplicatesCounter) PossibleDependencies() []string {
	c.ensureCacheValues()
	return sortedNames(c.possiblePkgs)
}

func (c *NoDuplicatesCounter) PossibleVirtuals() []string {
	c.ensureCacheValues()
	return sortedNames(c.possibleVirt)
}

func (c *NoDuplicatesCounter) Emit(input *types.SolverInput) {
	c.ensureCacheValues()
	for name := range c.possiblePkgs {
		input.MaxDupes[name] = 1
		input.LinkRun[name] = struct{}{}
	}
	for name := range c.possibleVirt {
		input.MaxDupes[name] = 1
	}
}

// MinimalDuplicatesCounter is the "minimal" policy: only packages
// tagged as build tools may appear more than once, with a configurable
// per-package cap.
type MinimalDuplicatesCounter struct {
	baseCounter

	linkRun         map[string]struct{}
	linkRunVirtuals map[string]struct{}
	directBuild     map[string]struct{}
	totalBuild      map[string]struct{}
}

func (c *MinimalDuplicatesCounter) ensureCacheValues() {
	if c.computed {
		return
	}
	linkRunGraph := c.analyzer.PossibleDependencies(c.ctx, c.specs, TraversalOptions{
		AllowedDeps:    c.linkRunTypes,
		Transitive:     true,
		ExpandVirtuals: true,
	})
	c.linkRun = linkRunGraph.RealPkgs
	c.linkRunVirtuals = linkRunGraph.Virtuals

	directGraph := c.analyzer.PossibleDependencies(c.ctx, specsFor(c.linkRun), TraversalOptions{
		AllowedDeps:    types.DepBuild,
		Transitive:     false,
		StrictDepFlag:  true,
		ExpandVirtuals: true,
	})
	c.directBuild = map[string]struct{}{}
	for name := range directGraph.RealPkgs {
		if _, ok := c.linkRun[name]; !ok {
			c.directBuild[name] = struct{}{}
		}
	}
	for from := range linkRunGraph.RealPkgs {
		for to := range directGraph.Edges[from] {
			c.directBuild[to] = struct{}{}
		}
	}

	totalGraph := c.analyzer.PossibleDependencies(c.ctx, specsFor(c.directBuild), TraversalOptions{
		AllowedDeps:    c.allTypes,
		Transitive:     true,
		ExpandVirtuals: true,
	})
	c.totalBuild = totalGraph.RealPkgs

	c.possiblePkgs = map[string]struct{}{}
	for name := range c.linkRun {
		c.possiblePkgs[name] = struct{}{}
	}
	for name := range c.totalBuild {
		c.possiblePkgs[name] = struct{}{}
	}
	c.possibleVirt = map[string]struct{}{}
	for name := range c.linkRunVirtuals {
		c.possibleVirt[name] = struct{}{}
	}
	for name := range totalGraph.Virtuals {
		c.possibleVirt[name] = struct{}{}
	}
	c.computed = true
}

func (c *MinimalDuplicatesCounter) PossibleDependencies() []string {
	c.ensureCacheValues()
	return sortedNames(c.possiblePkgs)
}

func (c *MinimalDuplicatesCounter) PossibleVirtuals() []string {
	c.ensureCacheValues()
	return sortedNames(c.possibleVirt)
}

func (c *MinimalDuplicatesCounter) Emit(input *types.SolverInput) {
	c.ensureCacheValues()
	buildTools := c.buildTools()
	for name := range c.possiblePkgs {
		if _, isTool := buildTools[name]; !isTool {
			input.MaxDupes[name] = 1
			continue
		}
		maxDupes := c.configuredMaxDupes(name)
		input.MaxDupes[name] = maxDupes
		if maxDupes > 1 {
			input.MultipleUnificationSets[name] = struct{}{}
		}
	}
	for name := range c.linkRun {
		input.LinkRun[name] = struct{}{}
	}
	for name := range c.possibleVirt {
		if _, linkRunOnly := c.linkRunVirtuals[name]; linkRunOnly {
			input.MaxDupes[name] = 1
			continue
		}
		input.MaxDupes[name] = c.configuredMaxDupes(name)
	}
}

// FullDuplicatesCounter is the experimental "full" policy: exact
// multiset counts over the link-run, total-build and direct-build sets,
// capped at 2 to bound solver size.
type FullDuplicatesCounter struct {
	MinimalDuplicatesCounter
}

func (c *FullDuplicatesCounter) Emit(input *types.SolverInput) {
	c.ensureCacheValues()
	counts := map[string]int{}
	for _, set := range []map[string]struct{}{c.linkRun, c.totalBuild, c.directBuild} {
		for name := range set {
			counts[name]++
		}
	}
	buildTools := c.buildTools()
	for name := range c.possiblePkgs {
		count := counts[name]
		if count < 1 {
			count = 1
		}
		if count > 2 {
			count = 2
		}
		input.MaxDupes[name] = count
		if _, isTool := buildTools[name]; isTool {
			input.MultipleUnificationSets[name] = struct{}{}
		}
	}
	for name := range c.linkRun {
		input.LinkRun[name] = struct{}{}
	}
	virtCounts := map[string]int{}
	for _, set := range []map[string]struct{}{c.linkRunVirtuals, c.possibleVirt} {
		for name := range set {
			virtCounts[name]++
		}
	}
	for name := range c.possibleVirt {
		count := virtCounts[name]
		if count > 2 {
			count = 2
		}
		input.MaxDupes[name] = count
	}
}

func sortedNames(set map[string]struct{}) []string {
	return types.SortedNames(set)
}
