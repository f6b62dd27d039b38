package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide whether a run aborts.
type ErrorKind string

const (
	// KindInvalidInput marks a malformed call that aborts before any I/O.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	// KindNoAccessibleFiles marks a batch in which no path could be read.
	KindNoAccessibleFiles ErrorKind = "NO_ACCESSIBLE_FILES"
	// KindFileAccess marks a single unreadable file; the run continues.
	KindFileAccess ErrorKind = "FILE_ACCESS"
	// KindParse marks a single malformed line; the line is skipped.
	KindParse ErrorKind = "PARSE"
	// KindInternal is used for everything else.
	KindInternal ErrorKind = "INTERNAL"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an internal AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Kind: KindInternal, Op: op, Msg: msg, Err: err}
}

// NewKindError constructs an AppError of the given kind.
func NewKindError(kind ErrorKind, op, msg string, err error) error {
	return &AppError{Kind: kind, Op: op, Msg: msg, Err: err}
}

// ErrorKind implements Kinded.
func (e *AppError) ErrorKind() ErrorKind { return e.Kind }

// Kinded is implemented by errors that carry their own classification.
type Kinded interface {
	error
	ErrorKind() ErrorKind
}

// KindOf returns the kind of the first Kinded error in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var kinded Kinded
	if errors.As(err, &kinded) {
		if kind := kinded.ErrorKind(); kind != "" {
			return kind
		}
	}
	return KindInternal
}
