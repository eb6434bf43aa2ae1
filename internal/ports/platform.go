package ports

// Microarch describes one CPU microarchitecture in the catalog.
// Ancestors lists strictly more generic targets of the same family,
// nearest first.
type Microarch struct {
	Name      string
	Family    string
	Vendor    string
	Ancestors []string
}

// PlatformPort enumerates the host target and the full
// microarchitecture catalog.
type PlatformPort interface {
	HostPlatform() string
	HostTarget() Microarch
	Targets() map[string]Microarch
}
