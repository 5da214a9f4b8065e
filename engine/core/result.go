package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failed Result.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNoTranscript Kind = "no_transcript"
	KindNotFound     Kind = "not_found"
	KindUnavailable  Kind = "unavailable"
	KindIndexing     Kind = "indexing"
	KindInternal     Kind = "internal"
)

// Error is the failure side of a Result.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && (other.Message == "" || other.Message == e.Message)
}

// NewError builds an *Error, optionally wrapping a cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Result is either Ok(value) or Err(kind, message).
type Result[T any] struct {
	value T
	err   *Error
}

func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

func Err[T any](kind Kind, message string) Result[T] {
	return Result[T]{err: &Error{Kind: kind, Message: message}}
}

// Wrap returns Err carrying cause for logging and errors.Is checks.
func Wrap[T any](kind Kind, message string, cause error) Result[T] {
	return Result[T]{err: &Error{Kind: kind, Message: message, Err: cause}}
}

// FromError converts err into a failed Result, keeping its Kind when it is an *Error.
func FromError[T any](err error) Result[T] {
	var e *Error
	if errors.As(err, &e) {
		return Result[T]{err: e}
	}
	return Result[T]{err: &Error{Kind: KindInternal, Message: err.Error(), Err: err}}
}

func (r Result[T]) IsOk() bool {
	return r.err == nil
}

func (r Result[T]) Value() T {
	return r.value
}

// Error returns the failure or nil.
func (r Result[T]) Error() *Error {
	return r.err
}

func (r Result[T]) Kind() Kind {
	if r.err == nil {
		return ""
	}
	return r.err.Kind
}

// Unpack returns the value and a Go error for callers that prefer explicit returns.
func (r Result[T]) Unpack() (T, error) {
	if r.err != nil {
		return r.value, r.err
	}
	return r.value, nil
}
