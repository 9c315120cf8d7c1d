package batch

import (
	"context"

	"github.com/kailas-cloud/docfeed/internal/chunk"
	"github.com/kailas-cloud/docfeed/internal/domain"
)

// Pipeline turns a content record into index points.
type Pipeline interface {
	EnsureCollection(ctx context.Context) error
	Process(ctx context.Context, rec domain.ContentRecord, profile chunk.Profile, baseID uint64) (int, error)
}
