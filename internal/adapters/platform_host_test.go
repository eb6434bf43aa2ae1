package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformHostAdapterDefaults(t *testing.T) {
	platform := NewPlatformHostAdapter()
	host := platform.HostTarget()
	assert.NotEmpty(t, host.Name)
	assert.Equal(t, "generic", host.Vendor, "the default host is the generic family entry")
	assert.NotEmpty(t, platform.HostPlatform())
}

func TestPlatformHostAdapterWithHost(t *testing.T) {
	platform := NewPlatformHostAdapter().WithHost("linux", "skylake")
	assert.Equal(t, "linux", platform.HostPlatform())
	host := platform.HostTarget()
	assert.Equal(t, "skylake", host.Name)
	assert.Equal(t, "x86_64", host.Family)
	require.NotEmpty(t, host.Ancestors)
	assert.Equal(t, "haswell", host.Ancestors[0], "ancestors are nearest first")
}

func TestPlatformHostAdapterWithUnknownHost(t *testing.T) {
	base := NewPlatformHostAdapter().WithHost("linux", "haswell")
	same := base.WithHost("", "not-a-target")
	assert.Equal(t, "haswell", same.HostTarget().Name, "unknown targets keep the current host")
	assert.Equal(t, "linux", same.HostPlatform())
}

func TestPlatformHostAdapterTargetsCatalog(t *testing.T) {
	targets := NewPlatformHostAdapter().Targets()
	for _, name := range []string{"x86_64", "x86_64_v3", "haswell", "aarch64", "neoverse_v1"} {
		_, ok := targets[name]
		assert.True(t, ok, "missing catalog entry: %s", name)
	}
	march := targets["x86_64_v4"]
	assert.Equal(t, []string{"x86_64_v3", "x86_64_v2", "x86_64"}, march.Ancestors)
}
