package domain

import (
	"errors"
	"testing"
)

func TestParseMessage_ContentEnvelope(t *testing.T) {
	msg := ParseMessage([]byte(`{"content": "hello world", "document_id": "d1", "source": "api"}`))
	if msg.Kind != MessageContent {
		t.Fatalf("expected MessageContent, got %v", msg.Kind)
	}
	if msg.Record.Content != "hello world" {
		t.Errorf("expected content 'hello world', got %q", msg.Record.Content)
	}
	if msg.Record.DocumentID != "d1" {
		t.Errorf("expected document id 'd1', got %q", msg.Record.DocumentID)
	}
	if msg.Record.Source != "api" {
		t.Errorf("expected source 'api', got %q", msg.Record.Source)
	}
	if msg.Record.Kind != KindQueueContent {
		t.Errorf("expected queue_content kind, got %q", msg.Record.Kind)
	}
}

func TestParseMessage_ContentDefaults(t *testing.T) {
	msg := ParseMessage([]byte(`{"content": "some text"}`))
	if msg.Kind != MessageContent {
		t.Fatalf("expected MessageContent, got %v", msg.Kind)
	}
	if msg.Record.DocumentID == "" {
		t.Error("expected generated document id")
	}
	if msg.Record.Source != SourceQueue {
		t.Errorf("expected default source %q, got %q", SourceQueue, msg.Record.Source)
	}
}

func TestParseMessage_EmptyContentStaysContent(t *testing.T) {
	// An explicit empty content field is a valid envelope; the pipeline
	// produces zero chunks for it and acknowledges.
	msg := ParseMessage([]byte(`{"content": ""}`))
	if msg.Kind != MessageContent {
		t.Fatalf("expected MessageContent, got %v", msg.Kind)
	}
	if msg.Record.Content != "" {
		t.Errorf("expected empty content, got %q", msg.Record.Content)
	}
}

func TestParseMessage_LegacyFilePath(t *testing.T) {
	msg := ParseMessage([]byte(`{"file_path": "docs/faq.md"}`))
	if msg.Kind != MessageFileRef {
		t.Fatalf("expected MessageFileRef, got %v", msg.Kind)
	}
	if msg.FilePath != "docs/faq.md" {
		t.Errorf("expected file path 'docs/faq.md', got %q", msg.FilePath)
	}
}

func TestParseMessage_ContentWinsOverFilePath(t *testing.T) {
	msg := ParseMessage([]byte(`{"content": "inline", "file_path": "docs/faq.md"}`))
	if msg.Kind != MessageContent {
		t.Fatalf("expected content to take precedence, got %v", msg.Kind)
	}
}

func TestParseMessage_EmptyFilePathRejected(t *testing.T) {
	msg := ParseMessage([]byte(`{"file_path": ""}`))
	if msg.Kind != MessageRejected {
		t.Fatalf("expected MessageRejected, got %v", msg.Kind)
	}
	if !errors.Is(msg.Err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", msg.Err)
	}
}

func TestParseMessage_PlainText(t *testing.T) {
	msg := ParseMessage([]byte("just some plain text"))
	if msg.Kind != MessageContent {
		t.Fatalf("expected MessageContent, got %v", msg.Kind)
	}
	if msg.Record.Content != "just some plain text" {
		t.Errorf("unexpected content %q", msg.Record.Content)
	}
	if msg.Record.DocumentID == "" {
		t.Error("expected generated document id for plain text")
	}
}

func TestParseMessage_JSONWithoutKnownFields(t *testing.T) {
	// A JSON object carrying neither content nor file_path is still
	// non-empty text; plain-text compatibility wraps it verbatim.
	body := `{"note": "not an envelope"}`
	msg := ParseMessage([]byte(body))
	if msg.Kind != MessageContent {
		t.Fatalf("expected MessageContent, got %v", msg.Kind)
	}
	if msg.Record.Content != body {
		t.Errorf("expected body wrapped verbatim, got %q", msg.Record.Content)
	}
}

func TestParseMessage_InvalidUTF8(t *testing.T) {
	msg := ParseMessage([]byte{0xff, 0xfe, 0xfd})
	if msg.Kind != MessageRejected {
		t.Fatalf("expected MessageRejected, got %v", msg.Kind)
	}
	if !errors.Is(msg.Err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", msg.Err)
	}
}

func TestParseMessage_EmptyAndWhitespace(t *testing.T) {
	for _, body := range []string{"", "   ", "\n\t"} {
		msg := ParseMessage([]byte(body))
		if msg.Kind != MessageRejected {
			t.Errorf("body %q: expected MessageRejected, got %v", body, msg.Kind)
		}
	}
}

// --- record defaults ---

func TestDeriveDocumentID_Deterministic(t *testing.T) {
	a := DeriveDocumentID("same content")
	b := DeriveDocumentID("same content")
	if a != b {
		t.Errorf("expected stable id, got %q and %q", a, b)
	}
	if a == DeriveDocumentID("other content") {
		t.Error("expected different ids for different content")
	}
}

func TestFileRecord(t *testing.T) {
	rec := FileRecord("body", "faq.md", "/data/docs/faq.md")
	if rec.Kind != KindFile {
		t.Errorf("expected file kind, got %q", rec.Kind)
	}
	if rec.DocumentID != "faq.md" {
		t.Errorf("expected document id 'faq.md', got %q", rec.DocumentID)
	}
	if rec.Source != "/data/docs/faq.md" {
		t.Errorf("expected source path, got %q", rec.Source)
	}
}
