package ingest

import (
	"context"

	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/index"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CollectionManager manages vector collection lifecycle.
type CollectionManager interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, spec index.CollectionSpec) error
}

// PointWriter writes points to the vector index.
type PointWriter interface {
	PointCount(ctx context.Context, collection string) (uint64, error)
	Upsert(ctx context.Context, collection string, points []domain.Point) error
}
