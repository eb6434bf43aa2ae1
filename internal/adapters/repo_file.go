package adapters

import (
	"fmt"
	"os"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"crucible/internal/core"
	"crucible/internal/ports"
	"crucible/internal/types"
)

// repoFile is the on-disk shape of a package universe.
type repoFile struct {
	Packages []PackageDef `yaml:"packages"`
}

type PackageDef struct {
	Name         string          `yaml:"name"`
	Versions     []string        `yaml:"versions"`
	Tags         []string        `yaml:"tags,omitempty"`
	Dependencies []DependencyDef `yaml:"dependencies,omitempty"`
	Provides     []ProvideDef    `yaml:"provides,omitempty"`
	Requires     []RequireDef    `yaml:"requires,omitempty"`
}

type DependencyDef struct {
	Name  string   `yaml:"name"`
	When  string   `yaml:"when,omitempty"`
	Types []string `yaml:"types,omitempty"`
	Spec  string   `yaml:"spec,omitempty"`
}

type ProvideDef struct {
	Virtual string `yaml:"virtual"`
	When    string `yaml:"when,omitempty"`
}

type RequireDef struct {
	When    string   `yaml:"when,omitempty"`
	OneOf   []string `yaml:"one_of,omitempty"`
	AnyOf   []string `yaml:"any_of,omitempty"`
	Message string   `yaml:"message,omitempty"`
}

// RepoFileAdapter implements the repository port over a YAML package
// universe loaded once at construction. Virtual names are implied by
// provides: declarations; a name is exactly one of real or virtual.
type RepoFileAdapter struct {
	classes   map[string]*pkgClass
	providers map[string][]string
}

// NewRepoFileAdapter loads a package universe from a YAML file.
func NewRepoFileAdapter(path string) (*RepoFileAdapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package repository file not found").
			WithCause(err)
	}
	var file repoFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse package repository yaml").
			WithCause(err)
	}
	return NewRepoFromDefinitions(file.Packages)
}

// NewRepoFromDefinitions builds the adapter from already-decoded
// package definitions; tests use this directly.
func NewRepoFromDefinitions(packages []PackageDef) (*RepoFileAdapter, error) {
	adapter := &RepoFileAdapter{
		classes:   map[string]*pkgClass{},
		providers: map[string][]string{},
	}
	for _, pkg := range packages {
		cls, err := newPkgClass(pkg)
		if err != nil {
			return nil, err
		}
		adapter.classes[pkg.Name] = cls
		for _, provide := range cls.provided {
			adapter.providers[provide.Virtual.Name] = append(adapter.providers[provide.Virtual.Name], pkg.Name)
		}
	}
	for virtual := range adapter.providers {
		if _, clash := adapter.classes[virtual]; clash {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("name %q is both a real package and a provided virtual", virtual))
		}
		sort.Strings(adapter.providers[virtual])
	}
	return adapter, nil
}

func (a *RepoFileAdapter) GetPkgClass(name string) (ports.PackageClass, bool) {
	cls, ok := a.classes[name]
	return cls, ok
}

func (a *RepoFileAdapter) IsVirtual(name string) bool {
	_, ok := a.providers[name]
	return ok
}

func (a *RepoFileAdapter) ProvidersFor(virtual string) []types.Spec {
	var out []types.Spec
	for _, name := range a.providers[virtual] {
		out = append(out, types.NewSpec(name))
	}
	return out
}

func (a *RepoFileAdapter) PackagesWithTag(tag string) []string {
	var out []string
	for name, cls := range a.classes {
		for _, t := range cls.tags {
			if t == tag {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// pkgClass is the immutable per-package view handed to the core.
type pkgClass struct {
	name         string
	versions     []string
	tags         []string
	dependencies []types.ConditionalDependency
	provided     []types.ConditionalProvide
	requirements []types.ConditionalRequirement
}

func newPkgClass(pkg PackageDef) (*pkgClass, error) {
	if pkg.Name == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package definition without a name")
	}
	cls := &pkgClass{
		name:     pkg.Name,
		versions: append([]string(nil), pkg.Versions...),
		tags:     append([]string(nil), pkg.Tags...),
	}
	for _, dep := range pkg.Dependencies {
		when, err := parseOptionalSpec(dep.When, pkg.Name)
		if err != nil {
			return nil, err
		}
		constraint := types.NewSpec(dep.Name)
		if dep.Spec != "" {
			parsed, err := core.ParseSpec(dep.Spec)
			if err != nil {
				return nil, wrapDefinitionError(pkg.Name, err)
			}
			constraint = parsed
			if constraint.Name == "" {
				constraint.Name = dep.Name
			}
		}
		cls.dependencies = append(cls.dependencies, types.ConditionalDependency{
			When:       when,
			Name:       dep.Name,
			Flags:      parseDepTypes(dep.Types),
			Constraint: constraint,
		})
	}
	for _, provide := range pkg.Provides {
		when, err := parseOptionalSpec(provide.When, pkg.Name)
		if err != nil {
			return nil, err
		}
		virtual, err := core.ParseSpec(provide.Virtual)
		if err != nil {
			return nil, wrapDefinitionError(pkg.Name, err)
		}
		cls.provided = append(cls.provided, types.ConditionalProvide{When: when, Virtual: virtual})
	}
	for _, req := range pkg.Requires {
		when, err := parseOptionalSpec(req.When, pkg.Name)
		if err != nil {
			return nil, err
		}
		group := types.RequirementGroup{Message: req.Message, Policy: types.RulePolicyOneOf}
		members := req.OneOf
		if len(req.AnyOf) > 0 {
			group.Policy = types.RulePolicyAnyOf
			members = req.AnyOf
		}
		for _, member := range members {
			spec, err := core.ParseSpec(member)
			if err != nil {
				return nil, wrapDefinitionError(pkg.Name, err)
			}
			group.Requirements = append(group.Requirements, spec)
		}
		if len(group.Requirements) == 0 {
			continue
		}
		cls.requirements = append(cls.requirements, types.ConditionalRequirement{
			When:   when,
			Groups: []types.RequirementGroup{group},
		})
	}
	return cls, nil
}

func (c *pkgClass) Name() string { return c.name }
func (c *pkgClass) Versions() []string {
	return append([]string(nil), c.versions...)
}
func (c *pkgClass) DependenciesByName() []types.ConditionalDependency {
	return append([]types.ConditionalDependency(nil), c.dependencies...)
}
func (c *pkgClass) Provided() []types.ConditionalProvide {
	return append([]types.ConditionalProvide(nil), c.provided...)
}
func (c *pkgClass) Requirements() []types.ConditionalRequirement {
	return append([]types.ConditionalRequirement(nil), c.requirements...)
}
func (c *pkgClass) Tags() []string {
	return append([]string(nil), c.tags...)
}

func parseOptionalSpec(raw string, pkgName string) (types.Spec, error) {
	if raw == "" {
		return types.Spec{}, nil
	}
	spec, err := core.ParseSpec(raw)
	if err != nil {
		return types.Spec{}, wrapDefinitionError(pkgName, err)
	}
	return spec, nil
}

func wrapDefinitionError(pkgName string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid definition for package %s", pkgName)).
		WithCause(err)
}

// parseDepTypes maps a types: list to a DepFlag; an absent list means
// the conventional build+link default.
func parseDepTypes(values []string) types.DepFlag {
	if len(values) == 0 {
		return types.DepBuild | types.DepLink
	}
	var flags types.DepFlag
	for _, value := range values {
		switch value {
		case "build":
			flags |= types.DepBuild
		case "link":
			flags |= types.DepLink
		case "run":
			flags |= types.DepRun
		case "test":
			flags |= types.DepTest
		}
	}
	return flags
}
