package domain

// Chunk is one contiguous segment of a record's content. Index is 0-based;
// Total is the number of chunks the whole record splits into. Neighboring
// chunks may share overlapping text, duplicated rather than deduplicated.
type Chunk struct {
	Text       string
	Index      int
	Total      int
	DocumentID string
	Source     string
}
