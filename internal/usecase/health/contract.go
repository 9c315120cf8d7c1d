package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// QueueChecker reports whether the broker connection is still open.
type QueueChecker interface {
	Alive() bool
}

// StorePinger checks the budget store.
type StorePinger interface {
	Ping(ctx context.Context) error
}
