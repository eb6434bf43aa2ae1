package ports

import "crucible/internal/types"

// PackageClass is the fixed-shape view of one package definition: its
// conditional dependencies, provided virtuals, authored requirements
// and tags. Implementations must be immutable for the lifetime of one
// solver invocation.
type PackageClass interface {
	Name() string
	Versions() []string
	DependenciesByName() []types.ConditionalDependency
	Provided() []types.ConditionalProvide
	Requirements() []types.ConditionalRequirement
	Tags() []string
}

// RepositoryPort answers queries over the package universe.
type RepositoryPort interface {
	GetPkgClass(name string) (PackageClass, bool)
	IsVirtual(name string) bool
	ProvidersFor(virtual string) []types.Spec
	PackagesWithTag(tag string) []string
}
