package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/repository"
)

// ErrorKind classifies controller failures for the presentation layer.
type ErrorKind string

const (
	KindValidationFailed      ErrorKind = "validation_failed"
	KindNotFound              ErrorKind = "not_found"
	KindRepositoryReadFailed  ErrorKind = "repository_read_failed"
	KindRepositoryWriteFailed ErrorKind = "repository_write_failed"
	KindCategoryInUse         ErrorKind = "category_in_use"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrValidationFailed      = &Error{Kind: KindValidationFailed}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrRepositoryReadFailed  = &Error{Kind: KindRepositoryReadFailed}
	ErrRepositoryWriteFailed = &Error{Kind: KindRepositoryWriteFailed}
	ErrCategoryInUse         = &Error{Kind: KindCategoryInUse}
)

// Error is returned by every Controller operation that fails.
type Error struct {
	Kind   ErrorKind
	Op     string
	Fields []string // offending fields for KindValidationFailed
	ID     string   // record id for KindNotFound and KindCategoryInUse
	Err    error    // repository cause
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch e.Kind {
	case KindValidationFailed:
		fmt.Fprintf(&b, "invalid %s", strings.Join(e.Fields, ", "))
	case KindNotFound:
		fmt.Fprintf(&b, "%s not found", e.ID)
	case KindCategoryInUse:
		fmt.Fprintf(&b, "category %s still has tasks", e.ID)
	default:
		b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind only, so errors.Is(err, ErrNotFound) works for any
// not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    ErrorKind `json:"kind"`
		Message string    `json:"message"`
		Fields  []string  `json:"fields,omitempty"`
		ID      string    `json:"id,omitempty"`
	}{e.Kind, e.Error(), e.Fields, e.ID})
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func validationFailed(op string, fields ...string) *Error {
	return &Error{Kind: KindValidationFailed, Op: op, Fields: fields}
}

func notFound(op, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, ID: id}
}

func readFailed(op string, err error) *Error {
	return &Error{Kind: KindRepositoryReadFailed, Op: op, Err: err}
}

// writeFailed classifies a repository write error. A category delete
// rejected by the store keeps its in-use meaning, and a task pointing at a
// category the store does not know is a validation failure.
func writeFailed(op, id string, err error) *Error {
	switch {
	case errors.Is(err, repository.ErrCategoryInUse):
		return &Error{Kind: KindCategoryInUse, Op: op, ID: id, Err: err}
	case errors.Is(err, repository.ErrUnknownCategory):
		return &Error{Kind: KindValidationFailed, Op: op, Fields: []string{"categoryId"}, Err: err}
	}
	return &Error{Kind: KindRepositoryWriteFailed, Op: op, Err: err}
}
