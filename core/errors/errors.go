// Package errors defines the error types shared by the ranking core, the
// dataset loader and the text client. Every type unwraps to one of the
// sentinels below, so callers branch with Is instead of type switches.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupported         = errors.New("unsupported")
	ErrMalformedContext    = errors.New("malformed context")
	ErrRetrieval           = errors.New("retrieval failed")
	ErrInsufficientResults = errors.New("insufficient results")
)

// cause returns err, or sentinel when err is nil.
func cause(err, sentinel error) error {
	if err != nil {
		return err
	}
	return sentinel
}

// causes lists the sentinel followed by err when present.
func causes(sentinel, err error) []error {
	if err != nil {
		return []error{sentinel, err}
	}
	return []error{sentinel}
}

// NotFoundError reports a missing book, passage, question or chapter. An
// unrecognized book identifier has Resource "book".
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return e.Resource + " not found: " + e.ID
}

func (e *NotFoundError) Unwrap() error { return cause(e.Err, ErrNotFound) }

// ValidationError reports a rejected value: a language or version the text
// service does not offer, a bad flag, an out-of-range count.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return cause(e.Err, ErrInvalidInput) }

// IOError wraps a file system failure.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	target := e.Operation
	if e.Path != "" {
		target += " " + e.Path
	}
	return fmt.Sprintf("failed to %s: %v", target, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports input that could not be decoded. A malformed passage
// reference has Format "reference" and keeps the raw string in Input.
type ParseError struct {
	Format  string
	Input   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("failed to parse %s %q: %s", e.Format, e.Input, e.Message)
}

// Unwrap yields ErrInvalidInput and the parser's own error.
func (e *ParseError) Unwrap() []error { return causes(ErrInvalidInput, e.Err) }

// UnsupportedError reports a filter name, feature or request shape this
// build cannot serve.
type UnsupportedError struct {
	Feature string
	Reason  string
	Err     error
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return "unsupported " + e.Feature
	}
	return "unsupported " + e.Feature + ": " + e.Reason
}

func (e *UnsupportedError) Unwrap() error { return cause(e.Err, ErrUnsupported) }

// MalformedContextError reports a question or scripture context that lacks
// a key a filter reads.
type MalformedContextError struct {
	Context string // "question" or "scripture"
	ID      string // question text or passage string
	Key     string
}

func (e *MalformedContextError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed %s context: missing %q", e.Context, e.Key)
	}
	return fmt.Sprintf("malformed %s context %q: missing %q", e.Context, e.ID, e.Key)
}

func (e *MalformedContextError) Unwrap() error { return ErrMalformedContext }

// RetrievalError reports a failed call to the Bible text service. URL never
// includes the API key. StatusCode is 0 when no response arrived.
type RetrievalError struct {
	Operation  string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *RetrievalError) Error() string {
	msg := "retrieving " + e.Operation
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	for _, part := range []string{e.Message, errString(e.Err)} {
		if part != "" {
			msg += ": " + part
		}
	}
	return msg
}

func (e *RetrievalError) Unwrap() []error { return causes(ErrRetrieval, e.Err) }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// InsufficientResultsError reports a top-N request larger than the ranking.
type InsufficientResultsError struct {
	Requested int
	Available int
}

func (e *InsufficientResultsError) Error() string {
	return fmt.Sprintf("requested %d results but only %d available", e.Requested, e.Available)
}

func (e *InsufficientResultsError) Unwrap() error { return ErrInsufficientResults }

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewUnknownBook reports a book identifier missing from the canon.
func NewUnknownBook(book string) *NotFoundError {
	return NewNotFound("book", book)
}

func NewValidation(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

func NewParse(format, input, message string) *ParseError {
	return &ParseError{Format: format, Input: input, Message: message}
}

func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

func NewMalformedContext(context, id, key string) *MalformedContextError {
	return &MalformedContextError{Context: context, ID: id, Key: key}
}

func NewRetrieval(operation, url string, statusCode int, message string, err error) *RetrievalError {
	return &RetrievalError{Operation: operation, URL: url, StatusCode: statusCode, Message: message, Err: err}
}

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
