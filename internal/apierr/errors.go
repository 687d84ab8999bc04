// Package apierr defines the sentinel error kinds shared by the metadata
// store, orchestrator, and HTTP layer, in the teacher's fmt.Errorf("...:
// %w", err) wrapping idiom (seen throughout internal/vectordb and
// internal/embeddings) rather than a bespoke error-code package.
package apierr

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", ErrNotFound) to add
// context while staying unwrappable with errors.Is.
var (
	// ErrValidation indicates the caller supplied incoherent input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates a knowledge base, document, task, or segment
	// id was not found.
	ErrNotFound = errors.New("not found")
	// ErrBackend indicates a vector-store or queue backend failure.
	ErrBackend = errors.New("backend error")
)

// Is reports whether err wraps target anywhere in its chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
