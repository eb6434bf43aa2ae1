package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSpecListDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	content := `
definitions:
  - name: compilers
    list: ["gcc@12", "clang@15"]
  - name: stack
    when: "platform=linux"
    list:
      - hdf5
      - matrix:
          - ["zlib@1.2", "zlib@1.3"]
        sigil: "^"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	definitions, err := LoadSpecListDefinitions(path)
	require.NoError(t, err)
	require.Len(t, definitions, 2)

	assert.Equal(t, "compilers", definitions[0].Name)
	assert.Empty(t, definitions[0].When)
	assert.Equal(t, []any{"gcc@12", "clang@15"}, definitions[0].Entries)

	assert.Equal(t, "stack", definitions[1].Name)
	assert.Equal(t, "platform=linux", definitions[1].When)
	require.Len(t, definitions[1].Entries, 2)
}

func TestLoadSpecListDefinitionsErrors(t *testing.T) {
	_, err := LoadSpecListDefinitions(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("definitions: {\n"), 0o644))
	_, err = LoadSpecListDefinitions(path)
	require.Error(t, err)
}
