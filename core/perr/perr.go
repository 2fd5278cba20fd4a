// Package perr defines the error kinds named in spec.md §7: FormatError,
// ShapeError, ArgumentError, IOError, and InvariantViolation. All five are
// values of one exported Error type tagged with a Kind and optionally
// wrapping an underlying error, inspected with errors.As rather than string
// matching, following the teacher's kind-tagged error convention.
package perr

import "fmt"

// Kind identifies which of the five error categories an error belongs to.
type Kind string

const (
	KindFormat    Kind = "format"
	KindShape     Kind = "shape"
	KindArgument  Kind = "argument"
	KindIO        Kind = "io"
	KindInvariant Kind = "invariant"
)

// Error is a kind-tagged error carrying an optional site index or byte
// offset so the diagnostic line can identify the offending location.
type Error struct {
	Kind   Kind
	Msg    string
	Site   int // -1 if not applicable
	Offset int // -1 if not applicable
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Site >= 0:
		return fmt.Sprintf("%s: %s (site %d)", e.Kind, e.Msg, e.Site)
	case e.Offset >= 0:
		return fmt.Sprintf("%s: %s (offset %d)", e.Kind, e.Msg, e.Offset)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg, Site: -1, Offset: -1} }

// Format reports a malformed-input error: file tag mismatch, truncated
// framing, or a non-binary character encountered during ingestion.
func Format(msg string, args ...any) *Error { return newErr(KindFormat, fmt.Sprintf(msg, args...)) }

// Shape reports an inconsistent M/N or a sites-file length mismatch.
func Shape(msg string, args ...any) *Error { return newErr(KindShape, fmt.Sprintf(msg, args...)) }

// Argument reports an invalid CLI parameter or out-of-range numeric option.
func Argument(msg string, args ...any) *Error { return newErr(KindArgument, fmt.Sprintf(msg, args...)) }

// IO wraps an underlying read/write failure.
func IO(err error, msg string, args ...any) *Error {
	e := newErr(KindIO, fmt.Sprintf(msg, args...))
	e.Err = err
	return e
}

// Invariant reports a check-mode-only violation: a decoded column
// disagreeing with its source, a self-match, or a non-maximal match
// emitted by the maximal reporter.
func Invariant(site int, msg string, args ...any) *Error {
	e := newErr(KindInvariant, fmt.Sprintf(msg, args...))
	e.Site = site
	return e
}

// WithOffset attaches a byte offset to an existing error, for failures
// where a byte offset rather than a site index identifies the location.
func (e *Error) WithOffset(off int) *Error {
	e.Offset = off
	return e
}
