package grid

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the CLI can pick an exit code and a prefix.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidGrid
	KindNotFound
	KindMalformedDocument
	KindIncompatibleGrids
	KindIOFailure
)

// String returns the snake_case name printed on the error stream.
func (k Kind) String() string {
	names := []string{
		"unknown",
		"invalid_grid",
		"not_found",
		"malformed_document",
		"incompatible_grids",
		"io_failure",
	}
	if int(k) >= 0 && int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrInvalidGrid       = errors.New("invalid grid")
	ErrNotFound          = errors.New("position not found")
	ErrMalformedDocument = errors.New("malformed document")
	ErrIncompatibleGrids = errors.New("incompatible grids")
	ErrIOFailure         = errors.New("io failure")
)

var sentinels = map[Kind]error{
	KindInvalidGrid:       ErrInvalidGrid,
	KindNotFound:          ErrNotFound,
	KindMalformedDocument: ErrMalformedDocument,
	KindIncompatibleGrids: ErrIncompatibleGrids,
	KindIOFailure:         ErrIOFailure,
}

// Error carries a Kind, a human-readable reason, and an optional cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

// Errorf builds an *Error with a formatted reason.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around cause. A nil cause yields a nil error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}
