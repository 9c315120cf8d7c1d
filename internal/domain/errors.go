package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals embedding input with no usable text.
	ErrEmptyInput = errors.New("empty input")
	// ErrProviderUnavailable signals an embedding provider failure.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")

	// ErrCollectionExists signals creation of a collection that is already present.
	ErrCollectionExists = errors.New("collection already exists")
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrIndexUnavailable signals a vector index connectivity failure.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrMalformedMessage signals a queue message that cannot be turned into work.
	ErrMalformedMessage = errors.New("malformed message")
)

// MalformedMessageError wraps ErrMalformedMessage with the reject reason.
type MalformedMessageError struct {
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedMessage.Error(), e.Reason)
}

func (e *MalformedMessageError) Unwrap() error { return ErrMalformedMessage }

// NewMalformedMessage creates a malformed message error.
func NewMalformedMessage(reason string) error {
	return &MalformedMessageError{Reason: reason}
}
