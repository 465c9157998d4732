package imagecatalog

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates a blob does not exist
	ErrNotFound = errors.New("blob not found")

	// ErrValidation indicates malformed input that was rejected before any store write
	ErrValidation = errors.New("validation failed")
)

// StoreError represents a failure of the object store or the document store.
// It always aborts the operation that produced it.
type StoreError struct {
	Store string // "blob" or "metadata"
	Op    string
	Key   string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s store operation %s failed: %v", e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("%s store operation %s failed for %s: %v", e.Store, e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func blobError(op, key string, err error) error {
	return &StoreError{Store: "blob", Op: op, Key: key, Err: err}
}

func metadataError(op, key string, err error) error {
	return &StoreError{Store: "metadata", Op: op, Key: key, Err: err}
}

// ValidationError represents a rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation as a match so callers can test with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
