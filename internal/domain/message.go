package domain

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// MessageKind discriminates the parsed queue message variants.
type MessageKind int

const (
	// MessageRejected marks a message that cannot be processed and must be
	// dropped (acknowledged without work).
	MessageRejected MessageKind = iota
	// MessageContent marks an inline content ingestion request.
	MessageContent
	// MessageFileRef marks a legacy file-reference ingestion request.
	MessageFileRef
)

// Message is a queue message after parsing. The variant is decided exactly
// once, at the transport boundary; downstream code switches on Kind instead
// of re-inspecting optional fields.
type Message struct {
	Kind     MessageKind
	Record   ContentRecord // set for MessageContent
	FilePath string        // set for MessageFileRef
	Err      error         // set for MessageRejected
}

// ContentMessage wraps a content record into a message.
func ContentMessage(rec ContentRecord) Message {
	return Message{Kind: MessageContent, Record: rec}
}

// FileRefMessage wraps a legacy file-reference job into a message.
func FileRefMessage(path string) Message {
	return Message{Kind: MessageFileRef, FilePath: path}
}

// RejectedMessage marks an unusable message with the reason it was dropped.
func RejectedMessage(reason string) Message {
	return Message{Kind: MessageRejected, Err: NewMalformedMessage(reason)}
}

// envelope is the conventional JSON wire form. Pointer fields distinguish
// "absent" from "present but empty".
type envelope struct {
	Content    *string `json:"content"`
	FilePath   *string `json:"file_path"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Timestamp  string  `json:"timestamp"`
}

// ParseMessage decodes a raw queue message body into its variant.
//
// Precedence: a JSON object with a content field is an inline content
// request; a JSON object with a file_path field is a legacy file-reference
// job; any other non-empty text is wrapped into a content record with a
// generated document id (legacy plain-text producers). Bodies that are not
// valid UTF-8, are empty, or name an empty file_path are rejected.
func ParseMessage(body []byte) Message {
	if !utf8.Valid(body) {
		return RejectedMessage("body is not valid utf-8")
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return RejectedMessage("empty body")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		switch {
		case env.Content != nil:
			return ContentMessage(NewContentRecord(*env.Content, env.DocumentID, env.Source, env.Timestamp))
		case env.FilePath != nil:
			if *env.FilePath == "" {
				return RejectedMessage("empty file_path")
			}
			return FileRefMessage(*env.FilePath)
		}
	}

	// Plain-text compatibility: the whole body is the content.
	return ContentMessage(NewContentRecord(text, "", "", ""))
}
