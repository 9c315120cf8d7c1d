// Package qdrant implements the index contract over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/index"
)

// Compile-time check: Store implements index.Store.
var _ index.Store = (*Store)(nil)

// Config holds connection parameters for a Qdrant store.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Store implements index.Store via the official Qdrant gRPC client.
type Store struct {
	client *qdrant.Client
}

// NewStore creates a Qdrant store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity via the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return &index.Error{Op: index.OpHealthCheck, Err: classify(err)}
	}
	return nil
}

// Close shuts down the underlying gRPC connection.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close client: %w", err)
	}
	return nil
}

// CollectionExists reports whether the named collection is present.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, &index.Error{Op: index.OpCollectionExists, Err: classify(err)}
	}
	return exists, nil
}

// CreateCollection creates a collection with the spec's dimension and metric.
func (s *Store) CreateCollection(ctx context.Context, spec index.CollectionSpec) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     spec.Dimension,
			Distance: toDistance(spec.Distance),
		}),
	})
	if err != nil {
		if isAlreadyExists(err) {
			return &index.Error{Op: index.OpCreateCollection, Err: domain.ErrCollectionExists}
		}
		return &index.Error{Op: index.OpCreateCollection, Err: classify(err)}
	}
	return nil
}

// PointCount returns the number of stored points.
func (s *Store) PointCount(ctx context.Context, collection string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
	})
	if err != nil {
		return 0, &index.Error{Op: index.OpCount, Err: classify(err)}
	}
	return count, nil
}

// Upsert writes points with wait semantics, so an acknowledged write is
// durable before the caller acks its message.
func (s *Store) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         toPointStructs(points),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return &index.Error{Op: index.OpUpsert, Err: classify(err)}
	}
	return nil
}

func toPointStructs(points []domain.Point) []*qdrant.PointStruct {
	out := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		out[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":         p.Payload.Text,
				"document_id":  p.Payload.DocumentID,
				"source":       p.Payload.Source,
				"chunk_index":  int64(p.Payload.ChunkIndex),
				"total_chunks": int64(p.Payload.TotalChunks),
				"type":         string(p.Payload.Kind),
			}),
		}
	}
	return out
}

func toDistance(d index.Distance) qdrant.Distance {
	switch d {
	case index.DistanceDot:
		return qdrant.Distance_Dot
	case index.DistanceEuclid:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// classify maps transport-level gRPC failures to domain sentinels so the
// pipeline's retry policy can match on errors.Is.
func classify(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return fmt.Errorf("%v: %w", err, domain.ErrIndexUnavailable)
	case codes.NotFound:
		return fmt.Errorf("%v: %w", err, domain.ErrCollectionNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%v: %w", err, domain.ErrCollectionExists)
	}
	return err
}

// isAlreadyExists matches both the canonical code and the message Qdrant
// actually returns for duplicate collections.
func isAlreadyExists(err error) bool {
	if status.Code(err) == codes.AlreadyExists {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
