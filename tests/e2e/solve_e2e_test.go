package e2e

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"crucible/tests/testutil"
)

func TestSolveCommandE2E(t *testing.T) {
	root := testutil.RepoRoot(t)

	cmd := exec.Command("go", "run", "./cmd/crucible", "solve",
		"--repo", "fixtures/repo-sample.yaml",
		"--store", "fixtures/store-sample.yaml",
		"--root", "hdf5",
	)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))

	require.Contains(t, string(out), "hdf5@1.14.3")
	require.Contains(t, string(out), "zlib@1.3.1")
	require.Contains(t, string(out), "mpich@4.1.2")
}

func TestUniverseCommandE2E(t *testing.T) {
	root := testutil.RepoRoot(t)

	cmd := exec.Command("go", "run", "./cmd/crucible", "universe",
		"--repo", "fixtures/repo-sample.yaml",
		"--store", "fixtures/store-sample.yaml",
		"--root", "hdf5",
	)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))

	require.Contains(t, string(out), "hdf5 -> cmake mpich zlib")
	require.Contains(t, string(out), "virtual mpi")
}
