package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFileAdapterEmptyPath(t *testing.T) {
	store, err := NewStoreFileAdapter("")
	require.NoError(t, err)
	assert.False(t, store.IsInstalled("zlib"))
	assert.Empty(t, store.BuiltSpecs())
}

func TestStoreFileAdapterLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	content := `
installed: [zlib, cmake]
build_cache: ["hdf5@1.14 +mpi"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := NewStoreFileAdapter(path)
	require.NoError(t, err)
	assert.True(t, store.IsInstalled("zlib"))
	assert.False(t, store.IsInstalled("hdf5"))

	built := store.BuiltSpecs()
	require.Len(t, built, 1)
	assert.Equal(t, "hdf5@1.14 +mpi", built[0].String())
}

func TestStoreFileAdapterErrors(t *testing.T) {
	_, err := NewStoreFileAdapter(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build_cache: [\"zlib@2:1\"]"), 0o644))
	_, err = NewStoreFileAdapter(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid build cache spec")
}
