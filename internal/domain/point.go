package domain

// Point is one embedded chunk ready for index upsert. IDs must be unique
// within the target collection at write time; the pipeline derives them from
// a point-count snapshot plus a dense per-run offset, which is only safe with
// a single active writer per collection.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload PointPayload
}

// PointPayload is the metadata stored alongside each vector.
type PointPayload struct {
	Text        string
	DocumentID  string
	Source      string
	ChunkIndex  int
	TotalChunks int
	Kind        RecordKind
}

// PointFromChunk pairs an embedded chunk with its assigned id.
func PointFromChunk(id uint64, vector []float32, c Chunk, kind RecordKind) Point {
	return Point{
		ID:     id,
		Vector: vector,
		Payload: PointPayload{
			Text:        c.Text,
			DocumentID:  c.DocumentID,
			Source:      c.Source,
			ChunkIndex:  c.Index,
			TotalChunks: c.Total,
			Kind:        kind,
		},
	}
}
