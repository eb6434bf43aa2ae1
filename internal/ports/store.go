package ports

import "crucible/internal/types"

// StorePort answers whether a package is already installed locally or
// available from a configured binary cache.
type StorePort interface {
	IsInstalled(name string) bool
	BuiltSpecs() []types.Spec
}
