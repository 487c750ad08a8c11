package health

import "context"

// StorePinger checks candidate store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an external collaborator (embedding, vision, generative).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
