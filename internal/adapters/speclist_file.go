package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"crucible/internal/core"
)

// specListFile is the on-disk shape of a spec-list document: named,
// optionally when:-guarded definitions resolved in document order.
type specListFile struct {
	Definitions []specListDefinition `yaml:"definitions"`
}

type specListDefinition struct {
	Name string `yaml:"name"`
	When string `yaml:"when,omitempty"`
	List []any  `yaml:"list"`
}

// LoadSpecListDefinitions reads a spec-list document and returns its
// definitions in encounter order.
func LoadSpecListDefinitions(path string) ([]core.SpecListDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("spec list file not found").
			WithCause(err)
	}
	var file specListFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse spec list yaml").
			WithCause(err)
	}
	var out []core.SpecListDefinition
	for _, definition := range file.Definitions {
		out = append(out, core.SpecListDefinition{
			Name:    definition.Name,
			When:    definition.When,
			Entries: definition.List,
		})
	}
	return out, nil
}
