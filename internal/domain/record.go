package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// RecordKind tags where ingested content came from; stored in point payloads
// so retrieval can tell queue submissions from file imports apart.
type RecordKind string

const (
	// KindQueueContent marks content delivered inline in a queue message.
	KindQueueContent RecordKind = "queue_content"
	// KindFile marks content loaded from a file on disk.
	KindFile RecordKind = "file"
)

// Default provenance tags for records arriving without an explicit source.
const (
	SourceQueue  = "queue"
	SourceManual = "manual"
)

// ContentRecord is the unit of ingestion work: one piece of text plus its
// provenance. Records live only for the duration of a single ingestion
// attempt; only their derived points persist.
type ContentRecord struct {
	Content    string
	DocumentID string
	Source     string
	Timestamp  string
	Kind       RecordKind
}

// NewContentRecord builds a record for inline content, filling defaults:
// a content-derived document id and the queue source tag.
func NewContentRecord(content, documentID, source, timestamp string) ContentRecord {
	if documentID == "" {
		documentID = DeriveDocumentID(content)
	}
	if source == "" {
		source = SourceQueue
	}
	return ContentRecord{
		Content:    content,
		DocumentID: documentID,
		Source:     source,
		Timestamp:  timestamp,
		Kind:       KindQueueContent,
	}
}

// FileRecord builds a record for content loaded from a file. The file name
// doubles as the document id; the path is kept as provenance.
func FileRecord(content, name, path string) ContentRecord {
	return ContentRecord{
		Content:    content,
		DocumentID: name,
		Source:     path,
		Kind:       KindFile,
	}
}

// DeriveDocumentID returns a deterministic id for anonymous content, so a
// redelivered body maps to the same logical document.
func DeriveDocumentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "doc-" + hex.EncodeToString(sum[:6])
}
