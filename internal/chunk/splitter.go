// Package chunk splits record content into fixed-size overlapping segments.
package chunk

import (
	"fmt"
	"iter"
	"strings"

	"github.com/kailas-cloud/docfeed/internal/domain"
)

// Profile controls chunk size and inter-chunk overlap, counted in runes.
type Profile struct {
	Size    int
	Overlap int
}

// Named profiles for the two ingestion paths. The batch path historically
// ran without overlap; queue-delivered content keeps a 200-rune overlap.
var (
	Batch     = Profile{Size: 1000, Overlap: 0}
	Streaming = Profile{Size: 1000, Overlap: 200}
)

// Validate checks that splitting can advance: positive size, overlap
// strictly smaller than size.
func (p Profile) Validate() error {
	if p.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", p.Size)
	}
	if p.Overlap < 0 || p.Overlap >= p.Size {
		return fmt.Errorf("chunk overlap must be in [0, size), got %d for size %d", p.Overlap, p.Size)
	}
	return nil
}

// Split cuts the record's content into chunks of p.Size runes, each chunk
// starting p.Size-p.Overlap runes after the previous one; the remainder
// becomes the final, possibly shorter, chunk. The returned sequence is lazy
// and restartable; ranging it again re-splits from the start.
//
// Records with empty or whitespace-only content yield an empty sequence.
func Split(rec domain.ContentRecord, p Profile) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		if strings.TrimSpace(rec.Content) == "" {
			return
		}

		runes := []rune(rec.Content)
		n := len(runes)

		stride := p.Size - p.Overlap
		if stride < 1 {
			stride = 1
		}

		// The chunk count is known up front from the length alone, so every
		// chunk can carry the total without materializing the sequence.
		total := 1
		if n > p.Size {
			total += (n - p.Size + stride - 1) / stride
		}

		index := 0
		for start := 0; start < n; start += stride {
			end := start + p.Size
			if end > n {
				end = n
			}

			c := domain.Chunk{
				Text:       string(runes[start:end]),
				Index:      index,
				Total:      total,
				DocumentID: rec.DocumentID,
				Source:     rec.Source,
			}
			if !yield(c) {
				return
			}
			if end == n {
				return
			}
			index++
		}
	}
}

// Count returns how many chunks Split would yield without splitting.
func Count(content string, p Profile) int {
	if strings.TrimSpace(content) == "" {
		return 0
	}
	n := len([]rune(content))
	stride := p.Size - p.Overlap
	if stride < 1 {
		stride = 1
	}
	if n <= p.Size {
		return 1
	}
	return 1 + (n-p.Size+stride-1)/stride
}
