package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docfeed/internal/chunk"
	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/index"
	"github.com/kailas-cloud/docfeed/internal/metrics"
)

// Service is the shared chunk-embed-upsert pipeline behind the batch loader
// and the queue consumer.
type Service struct {
	embed  Embedder
	colls  CollectionManager
	points PointWriter
	spec   index.CollectionSpec
	logger *zap.Logger
}

// New creates an ingest service writing into the collection described by spec.
func New(
	embed Embedder, colls CollectionManager, points PointWriter,
	spec index.CollectionSpec, logger *zap.Logger,
) *Service {
	return &Service{
		embed:  embed,
		colls:  colls,
		points: points,
		spec:   spec,
		logger: logger,
	}
}

// EnsureCollection creates the target collection when it does not exist yet.
// A concurrent creator winning the race is not an error.
func (s *Service) EnsureCollection(ctx context.Context) error {
	exists, err := s.colls.CollectionExists(ctx, s.spec.Name)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.colls.CreateCollection(ctx, s.spec); err != nil {
		if errors.Is(err, domain.ErrCollectionExists) {
			return nil
		}
		return fmt.Errorf("create collection: %w", err)
	}

	s.logger.Info("Collection created",
		zap.String("collection", s.spec.Name),
		zap.Uint64("dimension", s.spec.Dimension),
	)
	return nil
}

// PointOffset returns the current point count, used as the id base for new
// points. It is a hint, not a transactional counter.
func (s *Service) PointOffset(ctx context.Context) (uint64, error) {
	n, err := s.points.PointCount(ctx, s.spec.Name)
	if err != nil {
		return 0, fmt.Errorf("point count: %w", err)
	}
	return n, nil
}

// Process chunks the record, embeds each chunk, and upserts the surviving
// points in one write. A chunk whose embedding fails is skipped; ids stay
// dense over the chunks that made it. Returns the number of points written.
// Only the upsert itself can fail.
func (s *Service) Process(
	ctx context.Context, rec domain.ContentRecord,
	profile chunk.Profile, baseID uint64,
) (int, error) {
	points := make([]domain.Point, 0, chunk.Count(rec.Content, profile))

	for c := range chunk.Split(rec, profile) {
		res, err := s.embed.Embed(ctx, c.Text)
		if err != nil {
			metrics.ChunksSkippedTotal.WithLabelValues(skipReason(err)).Inc()
			s.logger.Warn("Chunk embedding failed, skipping",
				zap.String("document_id", c.DocumentID),
				zap.Int("chunk_index", c.Index),
				zap.Int("total_chunks", c.Total),
				zap.Error(err),
			)
			continue
		}

		metrics.ChunksEmbeddedTotal.Inc()
		id := baseID + uint64(len(points))
		points = append(points, domain.PointFromChunk(id, res.Embedding, c, rec.Kind))
	}

	if len(points) == 0 {
		return 0, nil
	}

	if err := s.points.Upsert(ctx, s.spec.Name, points); err != nil {
		return 0, fmt.Errorf("upsert points: %w", err)
	}

	metrics.PointsUpsertedTotal.Add(float64(len(points)))
	return len(points), nil
}

// skipReason buckets embedding failures for the chunks_skipped_total metric.
func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "quota"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrEmptyInput):
		return "invalid"
	default:
		return "provider"
	}
}
