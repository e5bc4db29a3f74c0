package data

import (
	"errors"
	"fmt"

	"market-reconcile/internal/model"
)

var (
	// ErrNotFound matches a day whose file could not be obtained under any suffix.
	ErrNotFound = errors.New("day file not found")
	// ErrMalformedInput matches a day file or CSV that does not decode.
	ErrMalformedInput = errors.New("malformed input")
)

// NotFoundError reports a day that yielded no non-empty file after every suffix.
// It needs operator follow-up; nothing retries it automatically.
type NotFoundError struct {
	Date     model.Date
	Attempts int
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no non-empty day file for %s after %d attempts", e.Date, e.Attempts)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

// MalformedInputError reports a row or field that failed to decode.
// Line is 1-based within the source; 0 means the whole input.
type MalformedInputError struct {
	Source string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := e.Source
	if e.Line > 0 {
		msg = fmt.Sprintf("%s line %d", msg, e.Line)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

func (e *MalformedInputError) Unwrap() error { return e.Err }

func malformed(source string, line int, reason string, err error) error {
	return &MalformedInputError{Source: source, Line: line, Reason: reason, Err: err}
}
