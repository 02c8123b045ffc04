package ontology

import (
	"errors"
	"fmt"
)

// Error classes returned by the ontology engine and every package built on it.
//
// Specific failures wrap one of these so callers can branch with errors.Is:
//
//	term, err := ont.Term(id)
//	if errors.Is(err, ontology.ErrNotFound) {
//		// unknown term id
//	}
var (
	// ErrNotInitialized is returned when a query is issued against a nil or
	// never-built ontology handle.
	ErrNotInitialized = errors.New("ontology not initialized")
	// ErrNotFound covers unknown term ids, entity ids, entity names and term names.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput covers malformed ids, malformed serialized sets and
	// unknown algorithm, combiner, linkage or kind names.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConstruction covers unreadable sources and malformed ontology data
	// (duplicate ids, dangling references, cycles).
	ErrConstruction = errors.New("ontology construction failed")
	// ErrUnsupported is returned for recognised but unimplemented methods.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrNoPath is returned by path queries when no ancestor-directed path exists.
	ErrNoPath = errors.New("no path")
)

// FileError identifies the source file that could not be read or parsed
// while building an ontology. It matches both ErrConstruction and the
// underlying cause under errors.Is.
type FileError struct {
	Path string
	Line int
	Err  error
}

func (e *FileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap exposes both the construction class and the cause.
func (e *FileError) Unwrap() []error {
	return []error{ErrConstruction, e.Err}
}

func constructionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstruction, fmt.Sprintf(format, args...))
}
