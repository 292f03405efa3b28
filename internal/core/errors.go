package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/store"
)

// ErrNoFile means a request carried no file to import.
var ErrNoFile = errors.New("no file provided")

// ValidationError reports an input that breaks a rule before any I/O.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ParseError is a row-level mapping failure.
type ParseError = importer.ParseError

// FileRejectedError means a whole file could not be imported.
type FileRejectedError struct {
	File string
	Err  error
}

func (e *FileRejectedError) Error() string {
	return fmt.Sprintf("file %s rejected: %v", e.File, e.Err)
}

func (e *FileRejectedError) Unwrap() error { return e.Err }

// ConcurrencyConflictError means a write lost a race or was not confirmed.
type ConcurrencyConflictError struct {
	Op  string
	ID  string
	Err error
}

func (e *ConcurrencyConflictError) Error() string {
	msg := fmt.Sprintf("concurrency conflict during %s", e.Op)
	if e.ID != "" {
		msg += " on " + e.ID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConcurrencyConflictError) Unwrap() error { return e.Err }

// AggregateError collects the failures of a batch.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n\t* ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// notFound converts store.ErrNotFound into a NotFoundError and passes other
// errors through with context.
func notFound(err error, kind, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return fmt.Errorf("load %s %s: %w", kind, id, err)
}

// HTTPStatus maps an error to the status code a handler should send.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		nf         *NotFoundError
		rejected   *FileRejectedError
		conflict   *ConcurrencyConflictError
		agg        *AggregateError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNoFile):
		return http.StatusBadRequest
	case errors.As(err, &agg):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &nf), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &conflict), errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
