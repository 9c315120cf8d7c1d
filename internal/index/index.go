// Package index defines the vector index contract the ingestion pipeline
// writes to. Backends live in subpackages.
package index

import (
	"context"

	"github.com/kailas-cloud/docfeed/internal/domain"
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	// DistanceCosine is cosine similarity.
	DistanceCosine Distance = "cosine"
	// DistanceDot is dot-product similarity.
	DistanceDot Distance = "dot"
	// DistanceEuclid is euclidean distance.
	DistanceEuclid Distance = "euclid"
)

// CollectionSpec describes a collection to create. Dimension must match the
// embedding model's output or writes will fail.
type CollectionSpec struct {
	Name      string
	Dimension uint64
	Distance  Distance
}

// Store is the vector index facade combining all sub-interfaces.
type Store interface {
	Pinger
	CollectionManager
	PointWriter
	Close() error
}

// Pinger checks index connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectionManager provides collection lifecycle operations.
type CollectionManager interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	// CreateCollection fails with domain.ErrCollectionExists when the
	// collection is already present. Idempotent creation is not guaranteed
	// by the index; callers enforce it via an existence check.
	CreateCollection(ctx context.Context, spec CollectionSpec) error
}

// PointWriter provides point persistence operations.
type PointWriter interface {
	// PointCount returns the stored point total. It is an id-offset hint,
	// not a transactional counter.
	PointCount(ctx context.Context, collection string) (uint64, error)
	// Upsert inserts or overwrites points by id; idempotent per id. Fails
	// with domain.ErrIndexUnavailable on connectivity failure.
	Upsert(ctx context.Context, collection string, points []domain.Point) error
}
