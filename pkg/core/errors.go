package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of a graph command or of the snapshot store.
type Kind string

// Failure kinds surfaced to RPC callers.
const (
	KindInvalidCommand     Kind = "InvalidCommand"
	KindMalformedArgs      Kind = "MalformedArgs"
	KindUnknownNode        Kind = "UnknownNode"
	KindNotADatastore      Kind = "NotADatastore"
	KindDuplicateName      Kind = "DuplicateName"
	KindDuplicateFieldName Kind = "DuplicateFieldName"
	KindUnknownFieldType   Kind = "UnknownFieldType"
	KindPersistenceError   Kind = "PersistenceError"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This lets callers write errors.Is(err, &core.Error{Kind: core.KindUnknownNode}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Errorf creates a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or the empty Kind when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
