package qdrant

import (
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/docfeed/internal/domain"
	"github.com/kailas-cloud/docfeed/internal/index"
)

func TestToPointStructs(t *testing.T) {
	points := []domain.Point{
		{
			ID:     42,
			Vector: []float32{0.1, 0.2, 0.3},
			Payload: domain.PointPayload{
				Text:        "chunk text",
				DocumentID:  "d1",
				Source:      "queue",
				ChunkIndex:  1,
				TotalChunks: 3,
				Kind:        domain.KindQueueContent,
			},
		},
	}

	structs := toPointStructs(points)
	if len(structs) != 1 {
		t.Fatalf("expected 1 point struct, got %d", len(structs))
	}

	p := structs[0]
	if p.Id.GetNum() != 42 {
		t.Errorf("expected numeric id 42, got %v", p.Id)
	}

	payload := p.Payload
	if payload["text"].GetStringValue() != "chunk text" {
		t.Errorf("unexpected text payload: %v", payload["text"])
	}
	if payload["document_id"].GetStringValue() != "d1" {
		t.Errorf("unexpected document_id payload: %v", payload["document_id"])
	}
	if payload["chunk_index"].GetIntegerValue() != 1 {
		t.Errorf("unexpected chunk_index payload: %v", payload["chunk_index"])
	}
	if payload["total_chunks"].GetIntegerValue() != 3 {
		t.Errorf("unexpected total_chunks payload: %v", payload["total_chunks"])
	}
	if payload["type"].GetStringValue() != "queue_content" {
		t.Errorf("unexpected type payload: %v", payload["type"])
	}
}

func TestToDistance(t *testing.T) {
	cases := []struct {
		in   index.Distance
		want qdrant.Distance
	}{
		{index.DistanceCosine, qdrant.Distance_Cosine},
		{index.DistanceDot, qdrant.Distance_Dot},
		{index.DistanceEuclid, qdrant.Distance_Euclid},
		{"", qdrant.Distance_Cosine}, // unknown falls back to cosine
	}
	for _, tc := range cases {
		if got := toDistance(tc.in); got != tc.want {
			t.Errorf("toDistance(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClassify_GRPCCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"unavailable", status.Error(codes.Unavailable, "connection refused"), domain.ErrIndexUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "timed out"), domain.ErrIndexUnavailable},
		{"not found", status.Error(codes.NotFound, "no such collection"), domain.ErrCollectionNotFound},
		{"already exists", status.Error(codes.AlreadyExists, "collection exists"), domain.ErrCollectionExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("classify(%v) = %v, want wrapped %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassify_PassesThroughUnknown(t *testing.T) {
	plain := errors.New("some other failure")
	if got := classify(plain); !errors.Is(got, plain) {
		t.Errorf("expected unknown error passed through, got %v", got)
	}
	if errors.Is(classify(plain), domain.ErrIndexUnavailable) {
		t.Error("unknown error must not map to ErrIndexUnavailable")
	}
}

func TestIsAlreadyExists_MessageFallback(t *testing.T) {
	err := status.Error(codes.Internal, "Collection `chatbot-docs` already exists!")
	if !isAlreadyExists(err) {
		t.Error("expected message-based already-exists detection")
	}
	if isAlreadyExists(errors.New("unrelated")) {
		t.Error("unexpected match on unrelated error")
	}
}

func TestIndexError_Unwrap(t *testing.T) {
	err := &index.Error{Op: index.OpUpsert, Err: domain.ErrIndexUnavailable}
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Error("expected index.Error to unwrap to the domain sentinel")
	}
	if err.Error() != "Upsert: index unavailable" {
		t.Errorf("unexpected error string: %q", err.Error())
	}
}
