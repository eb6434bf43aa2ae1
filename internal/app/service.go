package app

import (
	"time"

	"crucible/internal/adapters"
	"crucible/internal/ports"
)

// Service wires the default adapters behind the application
// operations. Per-request adapters (repository, store) are constructed
// from request paths; the configuration and platform snapshots are
// shared for the process lifetime.
type Service struct {
	Config   ports.ConfigPort
	Platform ports.PlatformPort
	Clock    func() time.Time
}

func NewService(config ports.ConfigPort) Service {
	return Service{
		Config:   config,
		Platform: adapters.NewPlatformHostAdapter(),
		Clock:    time.Now,
	}
}
