// Package service defines the error taxonomy shared by the ingestion and
// question-answering pipelines. Handlers map these onto HTTP status codes.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for contract violations by the caller,
	// such as an empty question or a non-positive k. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a concurrent update raced and lost.
	// The caller must retry the whole operation.
	ErrConflict = errors.New("conflict")
)

// ProviderError reports a failed call to the embedding or generation
// provider: unreachable, timed out, rate-limited, or malformed response.
// The pipeline does not retry these; retry policy belongs to the caller.
type ProviderError struct {
	Stage string // "embed" or "generate"
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error at %s: %v", e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExtractionError reports an unreadable or unsupported input document.
// Fatal for ingestion; nothing is persisted.
type ExtractionError struct {
	Name string // uploaded file name
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// DimensionError reports inconsistent embedding dimensionality or a
// chunk/vector count mismatch when building or querying an index.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
