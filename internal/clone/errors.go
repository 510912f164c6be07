package clone

import (
	"errors"
	"fmt"

	"github.com/roach88/anfir/internal/ir"
)

// CloneError represents an invalid clone or inline request.
//
// Clone errors include:
//   - Arity mismatch: inline replacements do not match the source parameters
//   - Unknown replacement: a replacement node does not belong to the module
//
// Errors about the IR itself (missing output, unknown graphs) are *ir.IRError.
type CloneError struct {
	// Code identifies the error category.
	Code CloneErrorCode

	// Message is a human-readable description.
	Message string

	// Graph identifies the affected graph (the inline source).
	Graph ir.GraphID

	// Expected and Actual carry the counts of an arity mismatch.
	Expected int
	Actual   int
}

// CloneErrorCode categorizes clone errors.
type CloneErrorCode string

const (
	// ErrCodeArityMismatch indicates a replacement count that differs from the
	// source graph's parameter count.
	ErrCodeArityMismatch CloneErrorCode = "ARITY_MISMATCH"

	// ErrCodeUnknownReplacement indicates a replacement node the module does
	// not know.
	ErrCodeUnknownReplacement CloneErrorCode = "UNKNOWN_REPLACEMENT"
)

// Error implements the error interface.
func (e *CloneError) Error() string {
	if e.Code == ErrCodeArityMismatch {
		return fmt.Sprintf("%s: %s (graph=%s, expected=%d, actual=%d)",
			e.Code, e.Message, e.Graph, e.Expected, e.Actual)
	}
	if e.Graph.IsValid() {
		return fmt.Sprintf("%s: %s (graph=%s)", e.Code, e.Message, e.Graph)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsArityError returns true if the error is an inline arity mismatch.
// Uses errors.As to handle wrapped errors.
func IsArityError(err error) bool {
	var ce *CloneError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeArityMismatch
	}
	return false
}

// NewArityError creates a CloneError for an inline request whose replacement
// count differs from the parameter count of source.
func NewArityError(source ir.GraphID, expected, actual int) *CloneError {
	return &CloneError{
		Code:     ErrCodeArityMismatch,
		Message:  "replacement count does not match parameter count",
		Graph:    source,
		Expected: expected,
		Actual:   actual,
	}
}
