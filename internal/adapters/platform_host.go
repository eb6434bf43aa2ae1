package adapters

import (
	"runtime"

	"crucible/internal/ports"
)

// microarchTable is the static microarchitecture catalog. Ancestors
// list strictly more generic same-family targets, nearest first.
var microarchTable = map[string]ports.Microarch{
	"x86_64":    {Name: "x86_64", Family: "x86_64", Vendor: "generic"},
	"x86_64_v2": {Name: "x86_64_v2", Family: "x86_64", Vendor: "generic", Ancestors: []string{"x86_64"}},
	"x86_64_v3": {Name: "x86_64_v3", Family: "x86_64", Vendor: "generic", Ancestors: []string{"x86_64_v2", "x86_64"}},
	"x86_64_v4": {Name: "x86_64_v4", Family: "x86_64", Vendor: "generic", Ancestors: []string{"x86_64_v3", "x86_64_v2", "x86_64"}},
	"haswell":   {Name: "haswell", Family: "x86_64", Vendor: "GenuineIntel", Ancestors: []string{"x86_64_v3", "x86_64_v2", "x86_64"}},
	"skylake":   {Name: "skylake", Family: "x86_64", Vendor: "GenuineIntel", Ancestors: []string{"haswell", "x86_64_v3", "x86_64_v2", "x86_64"}},
	"icelake":   {Name: "icelake", Family: "x86_64", Vendor: "GenuineIntel", Ancestors: []string{"skylake", "haswell", "x86_64_v3", "x86_64_v2", "x86_64"}},
	"zen2":      {Name: "zen2", Family: "x86_64", Vendor: "AuthenticAMD", Ancestors: []string{"x86_64_v3", "x86_64_v2", "x86_64"}},
	"zen3":      {Name: "zen3", Family: "x86_64", Vendor: "AuthenticAMD", Ancestors: []string{"zen2", "x86_64_v3", "x86_64_v2", "x86_64"}},
	"aarch64":   {Name: "aarch64", Family: "aarch64", Vendor: "generic"},
	"armv8.2a":  {Name: "armv8.2a", Family: "aarch64", Vendor: "generic", Ancestors: []string{"aarch64"}},
	"neoverse_n1": {
		Name: "neoverse_n1", Family: "aarch64", Vendor: "ARM",
		Ancestors: []string{"armv8.2a", "aarch64"},
	},
	"neoverse_v1": {
		Name: "neoverse_v1", Family: "aarch64", Vendor: "ARM",
		Ancestors: []string{"neoverse_n1", "armv8.2a", "aarch64"},
	},
}

// PlatformHostAdapter serves the host platform name and the
// microarchitecture catalog. The host target defaults to the generic
// entry for the build architecture and can be overridden for tests or
// cross-concretization.
type PlatformHostAdapter struct {
	platform string
	host     string
}

func NewPlatformHostAdapter() *PlatformHostAdapter {
	host := "x86_64"
	if runtime.GOARCH == "arm64" {
		host = "aarch64"
	}
	return &PlatformHostAdapter{platform: runtime.GOOS, host: host}
}

// WithHost overrides the host target; unknown names keep the current
// host.
func (a *PlatformHostAdapter) WithHost(platform string, target string) *PlatformHostAdapter {
	out := &PlatformHostAdapter{platform: a.platform, host: a.host}
	if platform != "" {
		out.platform = platform
	}
	if _, ok := microarchTable[target]; ok {
		out.host = target
	}
	return out
}

func (a *PlatformHostAdapter) HostPlatform() string {
	return a.platform
}

func (a *PlatformHostAdapter) HostTarget() ports.Microarch {
	return microarchTable[a.host]
}

func (a *PlatformHostAdapter) Targets() map[string]ports.Microarch {
	out := make(map[string]ports.Microarch, len(microarchTable))
	for name, march := range microarchTable {
		out[name] = march
	}
	return out
}
