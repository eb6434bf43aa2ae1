package core

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"crucible/internal/ports"
	"crucible/internal/types"
)

// Package tags with traversal-level meaning.
const (
	TagLibc       = "libc"
	TagRuntime    = "runtime"
	TagBuildTools = "build-tools"
	TagCompiler   = "compiler"
)

// TraversalOptions controls one possible-dependency computation.
type TraversalOptions struct {
	AllowedDeps    types.DepFlag
	Transitive     bool
	StrictDepFlag  bool
	ExpandVirtuals bool
}

// GraphAnalyzer computes the over-approximated universe of packages and
// virtuals reachable from a set of root requests. One analyzer instance
// serves exactly one solver invocation: its caches are keyed by
// immutable repository and configuration state and must not outlive
// them.
type GraphAnalyzer interface {
	PossibleDependencies(ctx context.Context, specs []types.Spec, opts TraversalOptions) types.PossibleGraph
	CandidateTargets() []string
	IsAllowedOnThisPlatform(pkgName string) bool
	CanBeInstalled(pkgName string) bool
	Unreachable(pkgName string, when types.Spec) bool
	ProvidersFor(virtual string) []string
}

// NewGraphAnalyzer selects the conformance level from the
// concretizer:static_analysis flag. The flag is re-read on every call
// so configuration changes between solves take effect.
func NewGraphAnalyzer(repo ports.RepositoryPort, cfg ports.ConfigPort, store ports.StorePort, platform ports.PlatformPort) GraphAnalyzer {
	base := &NoStaticAnalysis{
		repo:         repo,
		cfg:          cfg,
		platform:     platform,
		rules:        NewRequirementParser(repo, cfg),
		allowedCache: map[string]bool{},
	}
	if !cfg.GetBool("concretizer:static_analysis", false) {
		return base
	}
	return &StaticAnalysis{
		NoStaticAnalysis: *base,
		store:            store,
		installableCache: map[string]bool{},
		unreachableCache: map[string]bool{},
		providersCache:   map[string][]string{},
	}
}

// NoStaticAnalysis prunes only on platform allowance; every package is
// considered installable and no condition is ever proven unreachable.
type NoStaticAnalysis struct {
	repo     ports.RepositoryPort
	cfg      ports.ConfigPort
	platform ports.PlatformPort
	rules    RequirementParser

	allowedCache map[string]bool
}

func (a *NoStaticAnalysis) PossibleDependencies(ctx context.Context, specs []types.Spec, opts TraversalOptions) types.PossibleGraph {
	return traverse(ctx, a, a.repo, specs, opts)
}

// IsAllowedOnThisPlatform reports whether the package's always-active
// requirement groups leave room for the host platform and target
// family. Memoized per package name: the answer is a pure function of
// the immutable package class and configuration.
func (a *NoStaticAnalysis) IsAllowedOnThisPlatform(pkgName string) bool {
	if allowed, ok := a.allowedCache[pkgName]; ok {
		return allowed
	}
	allowed := a.computeAllowed(pkgName)
	a.allowedCache[pkgName] = allowed
	return allowed
}

func (a *NoStaticAnalysis) computeAllowed(pkgName string) bool {
	cls, ok := a.repo.GetPkgClass(pkgName)
	if !ok {
		return true
	}
	rules, err := a.rules.Rules(context.Background(), cls)
	if err != nil {
		return true
	}
	for _, rule := range rules {
		if !rule.Condition.IsEmpty() {
			continue
		}
		matched := false
		for _, req := range rule.Requirements {
			if a.intersectsHost(req) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// intersectsHost checks a requirement member against the fixed
// "platform=<host> target=<host family>:" condition, resolving target
// names through the microarchitecture catalog so that any member of
// the host's family counts as compatible.
func (a *NoStaticAnalysis) intersectsHost(spec types.Spec) bool {
	if spec.Platform != "" && spec.Platform != a.platform.HostPlatform() {
		return false
	}
	if spec.Target != "" {
		march, ok := a.platform.Targets()[spec.Target]
		if !ok {
			return false
		}
		if march.Family != a.platform.HostTarget().Family {
			return false
		}
	}
	return true
}

func (a *NoStaticAnalysis) CanBeInstalled(string) bool { return true }

func (a *NoStaticAnalysis) Unreachable(string, types.Spec) bool { return false }

func (a *NoStaticAnalysis) ProvidersFor(virtual string) []string {
	var out []string
	for _, provider := range a.repo.ProvidersFor(virtual) {
		out = append(out, provider.Name)
	}
	sort.Strings(out)
	return out
}

// CandidateTargets returns microarchitectures in solver preference
// order: the host target and its ancestors most-specific first, then
// (when host_compatible is disabled) the remaining same-family targets
// by descending specificity.
func (a *NoStaticAnalysis) CandidateTargets() []string {
	host := a.platform.HostTarget()
	targets := []string{host.Name}
	targets = append(targets, host.Ancestors...)

	if !a.cfg.GetBool("concretizer:targets:host_compatible", true) {
		seen := map[string]struct{}{}
		for _, name := range targets {
			seen[name] = struct{}{}
		}
		var extra []ports.Microarch
		for _, march := range a.platform.Targets() {
			if march.Family != host.Family {
				continue
			}
			if _, ok := seen[march.Name]; ok {
				continue
			}
			extra = append(extra, march)
		}
		sort.Slice(extra, func(i, j int) bool {
			if len(extra[i].Ancestors) != len(extra[j].Ancestors) {
				return len(extra[i].Ancestors) > len(extra[j].Ancestors)
			}
			return extra[i].Name < extra[j].Name
		})
		for _, march := range extra {
			targets = append(targets, march.Name)
		}
	}

	if a.cfg.GetString("concretizer:targets:granularity", string(types.GranularityMicroarchitectures)) == string(types.GranularityGeneric) {
		catalog := a.platform.Targets()
		var generic []string
		for _, name := range targets {
			if march, ok := catalog[name]; ok && march.Vendor == "generic" {
				generic = append(generic, name)
			}
		}
		return generic
	}
	return targets
}

// StaticAnalysis additionally consults configuration (buildable,
// externals, reuse) and the store/binary-cache oracle to shrink the
// universe before solving.
type StaticAnalysis struct {
	NoStaticAnalysis
	store ports.StorePort

	installableCache map[string]bool
	unreachableCache map[string]bool
	providersCache   map[string][]string
}

func (a *StaticAnalysis) PossibleDependencies(ctx context.Context, specs []types.Spec, opts TraversalOptions) types.PossibleGraph {
	return traverse(ctx, a, a.repo, specs, opts)
}

// CanBeInstalled reports whether the package is buildable, has
// configured externals, or (unless reuse is disabled) is already
// installed or present in a binary cache.
func (a *StaticAnalysis) CanBeInstalled(pkgName string) bool {
	if installable, ok := a.installableCache[pkgName]; ok {
		return installable
	}
	installable := a.computeInstallable(pkgName)
	a.installableCache[pkgName] = installable
	return installable
}

func (a *StaticAnalysis) computeInstallable(pkgName string) bool {
	if a.cfg.GetBool("packages:"+pkgName+":buildable", true) {
		return true
	}
	if externals, ok := a.cfg.Get("packages:" + pkgName + ":externals"); ok {
		if list, isList := externals.([]any); isList && len(list) > 0 {
			return true
		}
	}
	if a.cfg.GetString("concretizer:reuse", "true") == "false" {
		return false
	}
	if a.store.IsInstalled(pkgName) {
		return true
	}
	for _, built := range a.store.BuiltSpecs() {
		if built.Name == pkgName {
			return true
		}
	}
	return false
}

// Unreachable reports that a "when" condition can never hold because
// the package's configured require constraints rule it out.
func (a *StaticAnalysis) Unreachable(pkgName string, when types.Spec) bool {
	if when.IsEmpty() {
		return false
	}
	key := pkgName + "\x00" + when.String()
	if unreachable, ok := a.unreachableCache[key]; ok {
		return unreachable
	}
	unreachable := a.computeUnreachable(pkgName, when)
	a.unreachableCache[key] = unreachable
	return unreachable
}

func (a *StaticAnalysis) computeUnreachable(pkgName string, when types.Spec) bool {
	constraints := a.rules.configuredRequireConstraints(pkgName)
	if len(constraints) == 0 {
		return false
	}
	for _, constraint := range constraints {
		if constraint.Intersects(when) {
			return false
		}
	}
	return true
}

// ProvidersFor filters the repository's raw provider list down to
// providers that are platform-allowed, installable, and not provably
// unreachable as providers of this virtual.
func (a *StaticAnalysis) ProvidersFor(virtual string) []string {
	if providers, ok := a.providersCache[virtual]; ok {
		return providers
	}
	var out []string
	for _, provider := range a.repo.ProvidersFor(virtual) {
		name := provider.Name
		if !a.IsAllowedOnThisPlatform(name) || !a.CanBeInstalled(name) {
			continue
		}
		if a.providerUnreachable(name, virtual) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	a.providersCache[virtual] = out
	return out
}

func (a *StaticAnalysis) providerUnreachable(pkgName string, virtual string) bool {
	cls, ok := a.repo.GetPkgClass(pkgName)
	if !ok {
		return false
	}
	found := false
	for _, provide := range cls.Provided() {
		if provide.Virtual.Name != virtual {
			continue
		}
		found = true
		if !a.Unreachable(pkgName, provide.When) {
			return false
		}
	}
	return found
}

// traverse is the shared worklist over declared dependencies. Order of
// expansion does not affect the result set, only revisit avoidance, so
// a stack suffices.
func traverse(ctx context.Context, a GraphAnalyzer, repo ports.RepositoryPort, specs []types.Spec, opts TraversalOptions) types.PossibleGraph {
	graph := types.NewPossibleGraph()
	logger := log.Ctx(ctx)

	var stack []string
	push := func(name string) {
		stack = append(stack, name)
	}
	for _, spec := range specs {
		if spec.Name == "" {
			continue
		}
		if repo.IsVirtual(spec.Name) {
			graph.AddVirtual(spec.Name)
			for _, provider := range a.ProvidersFor(spec.Name) {
				push(provider)
			}
			continue
		}
		if _, ok := repo.GetPkgClass(spec.Name); !ok {
			// Nonexistent roots are the solver's unsatisfiability to
			// report, not a traversal failure.
			logger.Debug().Str("package", spec.Name).Msg("root package not in repository, skipped")
			continue
		}
		push(spec.Name)
	}

	// Compilers may inject runtime packages outside the declared
	// dependency channel, so those are unconditionally possible.
	for _, name := range repo.PackagesWithTag(TagRuntime) {
		push(name)
		if cls, ok := repo.GetPkgClass(name); ok {
			for _, provide := range cls.Provided() {
				graph.AddVirtual(provide.Virtual.Name)
			}
		}
	}

	visited := map[string]struct{}{}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[name]; ok {
			continue
		}
		visited[name] = struct{}{}
		graph.AddReal(name)

		cls, ok := repo.GetPkgClass(name)
		if !ok {
			continue
		}
		if hasTag(cls, TagLibc) {
			// libc is never built here, so its own dependencies are
			// irrelevant to the search space.
			continue
		}

		for _, depName := range dependencyNames(cls) {
			decls := declarationsFor(cls, depName)
			if !anyFlagMatches(decls, opts.AllowedDeps, opts.StrictDepFlag) {
				continue
			}
			if allConditionsUnreachable(a, name, decls) {
				continue
			}

			var targets []string
			if repo.IsVirtual(depName) {
				graph.AddVirtual(depName)
				if !opts.ExpandVirtuals {
					graph.AddEdge(name, depName)
					continue
				}
				targets = a.ProvidersFor(depName)
			} else {
				targets = []string{depName}
			}
			for _, target := range targets {
				if !a.IsAllowedOnThisPlatform(target) || !a.CanBeInstalled(target) {
					continue
				}
				graph.AddEdge(name, target)
				graph.AddReal(target)
				if opts.Transitive {
					push(target)
				}
			}
		}
	}

	logger.Debug().
		Int("real_pkgs", len(graph.RealPkgs)).
		Int("virtuals", len(graph.Virtuals)).
		Msg("possible dependency graph computed")
	return graph
}

func hasTag(cls ports.PackageClass, tag string) bool {
	for _, t := range cls.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// dependencyNames returns the distinct declared dependency names in
// declaration order.
func dependencyNames(cls ports.PackageClass) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, decl := range cls.DependenciesByName() {
		if _, ok := seen[decl.Name]; ok {
			continue
		}
		seen[decl.Name] = struct{}{}
		out = append(out, decl.Name)
	}
	return out
}

func declarationsFor(cls ports.PackageClass, depName string) []types.ConditionalDependency {
	var out []types.ConditionalDependency
	for _, decl := range cls.DependenciesByName() {
		if decl.Name == depName {
			out = append(out, decl)
		}
	}
	return out
}

func anyFlagMatches(decls []types.ConditionalDependency, allowed types.DepFlag, strict bool) bool {
	for _, decl := range decls {
		if decl.Flags.Matches(allowed, strict) {
			return true
		}
	}
	return false
}

func allConditionsUnreachable(a GraphAnalyzer, pkgName string, decls []types.ConditionalDependency) bool {
	for _, decl := range decls {
		if !a.Unreachable(pkgName, decl.When) {
			return false
		}
	}
	return true
}
