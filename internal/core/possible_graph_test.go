package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crucible/internal/ports"
	"crucible/internal/types"
)

// ---------- Shared fakes ----------

type fakeClass struct {
	name     string
	versions []string
	tags     []string
	deps     []types.ConditionalDependency
	provided []types.ConditionalProvide
	reqs     []types.ConditionalRequirement
}

func (c fakeClass) Name() string                                      { return c.name }
func (c fakeClass) Versions() []string                                { return c.versions }
func (c fakeClass) DependenciesByName() []types.ConditionalDependency { return c.deps }
func (c fakeClass) Provided() []types.ConditionalProvide              { return c.provided }
func (c fakeClass) Requirements() []types.ConditionalRequirement      { return c.reqs }
func (c fakeClass) Tags() []string                                    { return c.tags }

type fakeRepo struct {
	classes  map[string]fakeClass
	virtuals map[string][]string
}

func (r fakeRepo) GetPkgClass(name string) (ports.PackageClass, bool) {
	cls, ok := r.classes[name]
	return cls, ok
}

func (r fakeRepo) IsVirtual(name string) bool {
	_, ok := r.virtuals[name]
	return ok
}

func (r fakeRepo) ProvidersFor(virtual string) []types.Spec {
	var out []types.Spec
	for _, name := range r.virtuals[virtual] {
		out = append(out, types.NewSpec(name))
	}
	return out
}

func (r fakeRepo) PackagesWithTag(tag string) []string {
	var out []string
	for name, cls := range r.classes {
		for _, t := range cls.tags {
			if t == tag {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

type fakeConfig map[string]any

func (c fakeConfig) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

func (c fakeConfig) GetString(key string, fallback string) string {
	if value, ok := c[key].(string); ok {
		return value
	}
	return fallback
}

func (c fakeConfig) GetBool(key string, fallback bool) bool {
	if value, ok := c[key].(bool); ok {
		return value
	}
	return fallback
}

func (c fakeConfig) GetInt(key string, fallback int) int {
	if value, ok := c[key].(int); ok {
		return value
	}
	return fallback
}

func (c fakeConfig) GetStringSlice(key string) []string {
	value, _ := c[key].([]string)
	return value
}

type fakeStore struct {
	installed map[string]struct{}
	built     []types.Spec
}

func (s fakeStore) IsInstalled(name string) bool {
	_, ok := s.installed[name]
	return ok
}

func (s fakeStore) BuiltSpecs() []types.Spec { return s.built }

var testMicroarchs = map[string]ports.Microarch{
	"x86_64":    {Name: "x86_64", Family: "x86_64", Vendor: "generic"},
	"x86_64_v2": {Name: "x86_64_v2", Family: "x86_64", Vendor: "generic", Ancestors: []string{"x86_64"}},
	"x86_64_v3": {Name: "x86_64_v3", Family: "x86_64", Vendor: "generic", Ancestors: []string{"x86_64_v2", "x86_64"}},
	"haswell":   {Name: "haswell", Family: "x86_64", Vendor: "GenuineIntel", Ancestors: []string{"x86_64_v3", "x86_64_v2", "x86_64"}},
	"aarch64":   {Name: "aarch64", Family: "aarch64", Vendor: "generic"},
}

type fakePlatform struct {
	platform string
	host     string
}

func (p fakePlatform) HostPlatform() string { return p.platform }

func (p fakePlatform) HostTarget() ports.Microarch { return testMicroarchs[p.host] }

func (p fakePlatform) Targets() map[string]ports.Microarch { return testMicroarchs }

func linuxHaswell() fakePlatform { return fakePlatform{platform: "linux", host: "haswell"} }

func dep(name string, flags types.DepFlag) types.ConditionalDependency {
	return types.ConditionalDependency{Name: name, Flags: flags, Constraint: types.NewSpec(name)}
}

func depOn(name string, flags types.DepFlag, constraint string) types.ConditionalDependency {
	spec, err := ParseSpec(constraint)
	if err != nil {
		panic(err)
	}
	return types.ConditionalDependency{Name: name, Flags: flags, Constraint: spec}
}

// diamondRepo is the x1..x4 fixture: x1 depends unconditionally on x2
// and x3, which both depend on x4 with conflicting version constraints.
func diamondRepo() fakeRepo {
	return fakeRepo{
		classes: map[string]fakeClass{
			"x1": {name: "x1", versions: []string{"1.0"}, deps: []types.ConditionalDependency{
				dep("x2", types.DepBuild|types.DepLink),
				dep("x3", types.DepBuild|types.DepLink),
			}},
			"x2": {name: "x2", versions: []string{"2.0"}, deps: []types.ConditionalDependency{
				depOn("x4", types.DepBuild|types.DepLink, "x4@4.1"),
			}},
			"x3": {name: "x3", versions: []string{"3.0"}, deps: []types.ConditionalDependency{
				depOn("x4", types.DepBuild|types.DepLink, "x4@4.0"),
			}},
			"x4": {name: "x4", versions: []string{"4.0", "4.1"}},
		},
		virtuals: map[string][]string{},
	}
}

func newTestAnalyzer(repo fakeRepo, cfg fakeConfig) GraphAnalyzer {
	return NewGraphAnalyzer(repo, cfg, fakeStore{}, linuxHaswell())
}

// ---------- Traversal tests ----------

func TestPossibleDependenciesDiamond(t *testing.T) {
	analyzer := newTestAnalyzer(diamondRepo(), fakeConfig{})
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("x1")}, TraversalOptions{
		AllowedDeps:    types.DepAll,
		Transitive:     true,
		ExpandVirtuals: true,
	})

	assert.Equal(t, []string{"x1", "x2", "x3", "x4"}, graph.SortedReals())
	assert.Equal(t, []string{"x2", "x3"}, graph.EdgesFrom("x1"))
	assert.Equal(t, []string{"x4"}, graph.EdgesFrom("x2"))
	assert.Equal(t, []string{"x4"}, graph.EdgesFrom("x3"))
	assert.Empty(t, graph.SortedVirtuals())
}

func TestPossibleDependenciesIdempotent(t *testing.T) {
	analyzer := newTestAnalyzer(diamondRepo(), fakeConfig{})
	opts := TraversalOptions{AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true}
	roots := []types.Spec{types.NewSpec("x1")}

	first := analyzer.PossibleDependencies(t.Context(), roots, opts)
	second := analyzer.PossibleDependencies(t.Context(), roots, opts)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated traversal differs (-first +second):\n%s", diff)
	}
}

func TestPossibleDependenciesMonotonicUnderWidening(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"top":       {name: "top", deps: []types.ConditionalDependency{dep("build-dep", types.DepBuild), dep("run-dep", types.DepRun)}},
			"build-dep": {name: "build-dep"},
			"run-dep":   {name: "run-dep"},
		},
		virtuals: map[string][]string{},
	}
	analyzer := newTestAnalyzer(repo, fakeConfig{})
	roots := []types.Spec{types.NewSpec("top")}

	narrow := analyzer.PossibleDependencies(t.Context(), roots, TraversalOptions{AllowedDeps: types.DepBuild, Transitive: true, ExpandVirtuals: true})
	wide := analyzer.PossibleDependencies(t.Context(), roots, TraversalOptions{AllowedDeps: types.DepBuild | types.DepRun, Transitive: true, ExpandVirtuals: true})

	for name := range narrow.RealPkgs {
		assert.Contains(t, wide.RealPkgs, name)
	}
	assert.NotContains(t, narrow.RealPkgs, "run-dep")
	assert.Contains(t, wide.RealPkgs, "run-dep")
}

func TestPossibleDependenciesVirtualExpansion(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"hdf5":    {name: "hdf5", deps: []types.ConditionalDependency{dep("mpi", types.DepBuild|types.DepLink)}},
			"mpich":   {name: "mpich", provided: []types.ConditionalProvide{{Virtual: types.NewSpec("mpi")}}},
			"openmpi": {name: "openmpi", provided: []types.ConditionalProvide{{Virtual: types.NewSpec("mpi")}}},
		},
		virtuals: map[string][]string{"mpi": {"mpich", "openmpi"}},
	}
	analyzer := newTestAnalyzer(repo, fakeConfig{})
	roots := []types.Spec{types.NewSpec("hdf5")}

	expanded := analyzer.PossibleDependencies(t.Context(), roots, TraversalOptions{AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true})
	assert.Equal(t, []string{"hdf5", "mpich", "openmpi"}, expanded.SortedReals())
	assert.Equal(t, []string{"mpi"}, expanded.SortedVirtuals())
	assert.Equal(t, []string{"mpich", "openmpi"}, expanded.EdgesFrom("hdf5"))

	unexpanded := analyzer.PossibleDependencies(t.Context(), roots, TraversalOptions{AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: false})
	assert.Equal(t, []string{"hdf5"}, unexpanded.SortedReals())
	assert.Equal(t, []string{"mpi"}, unexpanded.SortedVirtuals())
	assert.Equal(t, []string{"mpi"}, unexpanded.EdgesFrom("hdf5"), "the virtual itself is the edge target")
}

func TestPossibleDependenciesVirtualRoot(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"mpich":   {name: "mpich", provided: []types.ConditionalProvide{{Virtual: types.NewSpec("mpi")}}},
			"openmpi": {name: "openmpi", provided: []types.ConditionalProvide{{Virtual: types.NewSpec("mpi")}}},
		},
		virtuals: map[string][]string{"mpi": {"mpich", "openmpi"}},
	}
	analyzer := newTestAnalyzer(repo, fakeConfig{})
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("mpi")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true,
	})
	assert.Equal(t, []string{"mpich", "openmpi"}, graph.SortedReals())
	assert.Equal(t, []string{"mpi"}, graph.SortedVirtuals())
}

func TestPossibleDependenciesLibcNotExpanded(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"zlib":    {name: "zlib", deps: []types.ConditionalDependency{dep("glibc", types.DepLink)}},
			"glibc":   {name: "glibc", tags: []string{TagLibc}, deps: []types.ConditionalDependency{dep("gettext", types.DepBuild)}},
			"gettext": {name: "gettext"},
		},
		virtuals: map[string][]string{},
	}
	analyzer := newTestAnalyzer(repo, fakeConfig{})
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("zlib")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true,
	})

	assert.Equal(t, []string{"glibc", "zlib"}, graph.SortedReals())
	assert.Empty(t, graph.EdgesFrom("glibc"), "libc dependencies are never explored")
}

func TestPossibleDependenciesRuntimeInjection(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"zlib": {name: "zlib"},
			"gcc-runtime": {
				name:     "gcc-runtime",
				tags:     []string{TagRuntime},
				provided: []types.ConditionalProvide{{Virtual: types.NewSpec("libgfortran")}},
			},
		},
		virtuals: map[string][]string{"libgfortran": {"gcc-runtime"}},
	}
	analyzer := newTestAnalyzer(repo, fakeConfig{})
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("zlib")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true,
	})

	assert.Equal(t, []string{"gcc-runtime", "zlib"}, graph.SortedReals(),
		"runtime packages are possible even without a declared edge")
	assert.Equal(t, []string{"libgfortran"}, graph.SortedVirtuals())
}

func TestPossibleDependenciesUnknownRootSkipped(t *testing.T) {
	analyzer := newTestAnalyzer(diamondRepo(), fakeConfig{})
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("nonexistent"), types.NewSpec("x4")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true,
	})
	assert.Equal(t, []string{"x4"}, graph.SortedReals())
}

func TestPossibleDependenciesNonTransitive(t *testing.T) {
	analyzer := newTestAnalyzer(diamondRepo(), fakeConfig{})
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("x1")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: false, ExpandVirtuals: true,
	})
	assert.Equal(t, []string{"x1", "x2", "x3"}, graph.SortedReals(),
		"one-level lookahead records direct deps without recursing")
	assert.Empty(t, graph.EdgesFrom("x2"))
}

// ---------- Conformance level tests ----------

func TestStaticAnalysisPrunesUninstallable(t *testing.T) {
	cfg := fakeConfig{
		"concretizer:static_analysis": true,
		"packages:x4:buildable":       false,
		"concretizer:reuse":           "false",
	}
	analyzer := newTestAnalyzer(diamondRepo(), cfg)
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("x1")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true,
	})
	assert.Equal(t, []string{"x1", "x2", "x3"}, graph.SortedReals())
}

func TestStaticAnalysisReuseKeepsInstalled(t *testing.T) {
	cfg := fakeConfig{
		"concretizer:static_analysis": true,
		"packages:x4:buildable":       false,
	}
	store := fakeStore{installed: map[string]struct{}{"x4": {}}}
	analyzer := NewGraphAnalyzer(diamondRepo(), cfg, store, linuxHaswell())
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("x1")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true,
	})
	assert.Contains(t, graph.RealPkgs, "x4", "installed packages stay installable under reuse")
}

func TestStaticAnalysisUnreachableCondition(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"top": {name: "top", deps: []types.ConditionalDependency{
				{
					When:       types.Spec{Variants: map[string]string{"cuda": "true"}},
					Name:       "cuda-toolkit",
					Flags:      types.DepBuild | types.DepLink,
					Constraint: types.NewSpec("cuda-toolkit"),
				},
			}},
			"cuda-toolkit": {name: "cuda-toolkit"},
		},
		virtuals: map[string][]string{},
	}
	cfg := fakeConfig{
		"concretizer:static_analysis": true,
		"packages:top:require":        []any{"top ~cuda"},
	}
	analyzer := newTestAnalyzer(repo, cfg)
	graph := analyzer.PossibleDependencies(t.Context(), []types.Spec{types.NewSpec("top")}, TraversalOptions{
		AllowedDeps: types.DepAll, Transitive: true, ExpandVirtuals: true,
	})
	assert.Equal(t, []string{"top"}, graph.SortedReals(),
		"a dependency whose every condition contradicts the configured require is dropped")
}

func TestIsAllowedOnThisPlatform(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"winonly": {name: "winonly", reqs: []types.ConditionalRequirement{{
				Groups: []types.RequirementGroup{{
					Policy:       types.RulePolicyOneOf,
					Requirements: []types.Spec{{Platform: "windows"}},
				}},
			}}},
			"anyos": {name: "anyos"},
		},
		virtuals: map[string][]string{},
	}
	analyzer := newTestAnalyzer(repo, fakeConfig{})
	assert.False(t, analyzer.IsAllowedOnThisPlatform("winonly"))
	assert.True(t, analyzer.IsAllowedOnThisPlatform("anyos"))
	assert.True(t, analyzer.IsAllowedOnThisPlatform("unknown"), "unknown packages are not this check's problem")
}

func TestIsAllowedOnThisPlatformTargetFamily(t *testing.T) {
	repo := fakeRepo{
		classes: map[string]fakeClass{
			"x86pkg": {name: "x86pkg", reqs: []types.ConditionalRequirement{{
				Groups: []types.RequirementGroup{{
					Policy:       types.RulePolicyOneOf,
					Requirements: []types.Spec{{Target: "x86_64"}},
				}},
			}}},
			"armpkg": {name: "armpkg", reqs: []types.ConditionalRequirement{{
				Groups: []types.RequirementGroup{{
					Policy:       types.RulePolicyOneOf,
					Requirements: []types.Spec{{Target: "aarch64"}},
				}},
			}}},
		},
		virtuals: map[string][]string{},
	}
	analyzer := newTestAnalyzer(repo, fakeConfig{})
	assert.True(t, analyzer.IsAllowedOnThisPlatform("x86pkg"), "any member of the host family is compatible")
	assert.False(t, analyzer.IsAllowedOnThisPlatform("armpkg"))
}

// ---------- Candidate target tests ----------

func TestCandidateTargetsHostCompatible(t *testing.T) {
	analyzer := newTestAnalyzer(diamondRepo(), fakeConfig{})
	targets := analyzer.CandidateTargets()
	assert.Equal(t, []string{"haswell", "x86_64_v3", "x86_64_v2", "x86_64"}, targets)
}

func TestCandidateTargetsGenericGranularity(t *testing.T) {
	cfg := fakeConfig{"concretizer:targets:granularity": "generic"}
	analyzer := newTestAnalyzer(diamondRepo(), cfg)
	targets := analyzer.CandidateTargets()
	assert.Equal(t, []string{"x86_64_v3", "x86_64_v2", "x86_64"}, targets,
		"vendor-specific names drop out at generic granularity")
}

func TestCandidateTargetsAllFamilyMembers(t *testing.T) {
	cfg := fakeConfig{"concretizer:targets:host_compatible": false}
	analyzer := NewGraphAnalyzer(diamondRepo(), cfg, fakeStore{}, fakePlatform{platform: "linux", host: "x86_64_v2"})
	targets := analyzer.CandidateTargets()
	require.Equal(t, []string{"x86_64_v2", "x86_64", "haswell", "x86_64_v3"}, targets)
}
