// ABOUTME: Error types for authentication and event import
// ABOUTME: Separates row-scoped failures (continue) from run-scoped failures (abort)
package sync

import (
	"errors"
	"fmt"
)

// AuthError means no usable credential could be obtained. It is always fatal.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed during %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RowParseError reports a row whose date or time fields do not parse.
type RowParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("line %d: invalid %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *RowParseError) Unwrap() error { return e.Err }

// RemoteSubmissionError reports that the Calendar API rejected a single event.
type RemoteSubmissionError struct {
	Line    int
	Summary string
	Err     error
}

func (e *RemoteSubmissionError) Error() string {
	return fmt.Sprintf("line %d: calendar rejected event %q: %v", e.Line, e.Summary, e.Err)
}

func (e *RemoteSubmissionError) Unwrap() error { return e.Err }

// rowScoped reports whether err only affects the row it came from. Parse errors count as
// row-scoped only when the caller opted into skipping bad rows.
func rowScoped(err error, skipBadRows bool) bool {
	var remoteErr *RemoteSubmissionError
	if errors.As(err, &remoteErr) {
		return true
	}
	var parseErr *RowParseError
	if errors.As(err, &parseErr) {
		return skipBadRows
	}
	return false
}
