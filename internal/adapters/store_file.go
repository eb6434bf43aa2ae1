package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"crucible/internal/core"
	"crucible/internal/types"
)

// storeFile is the on-disk shape of the install/cache oracle: names
// installed locally plus specs present in configured binary caches.
type storeFile struct {
	Installed  []string `yaml:"installed"`
	BuildCache []string `yaml:"build_cache"`
}

// StoreFileAdapter answers install/cache queries from a YAML snapshot.
type StoreFileAdapter struct {
	installed map[string]struct{}
	built     []types.Spec
}

// NewStoreFileAdapter loads a store snapshot; an empty path yields an
// empty store (nothing installed, nothing cached).
func NewStoreFileAdapter(path string) (*StoreFileAdapter, error) {
	adapter := &StoreFileAdapter{installed: map[string]struct{}{}}
	if path == "" {
		return adapter, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("store file not found").
			WithCause(err)
	}
	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse store yaml").
			WithCause(err)
	}
	for _, name := range file.Installed {
		adapter.installed[name] = struct{}{}
	}
	for _, raw := range file.BuildCache {
		spec, err := core.ParseSpec(raw)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid build cache spec").
				WithCause(err)
		}
		adapter.built = append(adapter.built, spec)
	}
	return adapter, nil
}

// NewStoreFromState builds the adapter from in-memory state; tests use
// this directly.
func NewStoreFromState(installed []string, built []types.Spec) *StoreFileAdapter {
	adapter := &StoreFileAdapter{installed: map[string]struct{}{}, built: built}
	for _, name := range installed {
		adapter.installed[name] = struct{}{}
	}
	return adapter
}

func (a *StoreFileAdapter) IsInstalled(name string) bool {
	_, ok := a.installed[name]
	return ok
}

func (a *StoreFileAdapter) BuiltSpecs() []types.Spec {
	return append([]types.Spec(nil), a.built...)
}
