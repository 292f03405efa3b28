package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/PartsHole/internal/importer"
	"github.com/JonMunkholm/PartsHole/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name: "aggregate error maps to batch",
			err: &AggregateError{Errors: []error{
				&FileRejectedError{File: "abc.csv", Err: &ValidationError{Field: "order_number"}},
			}},
			wantCode:    "BATCH001",
			wantMessage: "Some files could not be imported",
		},
		{
			name:        "order number validation inside rejection",
			err:         &FileRejectedError{File: "abc.csv", Err: &ValidationError{Field: "order_number", Value: "abc.csv"}},
			wantCode:    "VAL002",
			wantMessage: "File name is not an order number",
		},
		{
			name:        "category out of range",
			err:         &ValidationError{Field: "category", Value: "100"},
			wantCode:    "VAL003",
			wantMessage: "Category and subcategory must be between 0 and 99",
		},
		{
			name:        "unknown selector",
			err:         &ValidationError{Field: "selector", Value: "widgets"},
			wantCode:    "VAL004",
			wantMessage: "Unknown reference list",
		},
		{
			name:        "other validation",
			err:         &ValidationError{Field: "name", Message: "is required"},
			wantCode:    "VAL001",
			wantMessage: "The request contains an invalid value",
		},
		{
			name:        "user not found",
			err:         fmt.Errorf("allocate: %w", &NotFoundError{Kind: "user", ID: "u1"}),
			wantCode:    "NF002",
			wantMessage: "User not found",
		},
		{
			name:        "reference not found",
			err:         &NotFoundError{Kind: "reference", ID: "p1"},
			wantCode:    "NF003",
			wantMessage: "The id is not in this reference list",
		},
		{
			name:        "invoice not found",
			err:         &NotFoundError{Kind: "invoice", ID: "1"},
			wantCode:    "NF001",
			wantMessage: "Record not found",
		},
		{
			name:        "file too large",
			err:         &FileRejectedError{File: "1.csv", Err: fmt.Errorf("%w: 200 bytes", importer.ErrFileTooLarge)},
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "unsupported format",
			err:         &FileRejectedError{File: "1.pdf", Err: importer.ErrUnsupportedFormat},
			wantCode:    "FILE002",
			wantMessage: "Unsupported file type",
		},
		{
			name:        "missing column",
			err:         &FileRejectedError{File: "1.csv", Err: fmt.Errorf("%w: UNIT PRICE", importer.ErrMissingColumn)},
			wantCode:    "FILE003",
			wantMessage: "A required column is missing from the invoice",
		},
		{
			name:        "row parse error",
			err:         &FileRejectedError{File: "1.csv", Err: importer.ParseError{Line: 3, Column: "QUANTITY", Value: "x"}},
			wantCode:    "FILE004",
			wantMessage: "A row in the invoice could not be read",
		},
		{
			name:        "archive failure",
			err:         &FileRejectedError{File: "1.csv", Err: errors.New("archive: access denied")},
			wantCode:    "FILE006",
			wantMessage: "The file was rejected",
		},
		{
			name:        "concurrency conflict",
			err:         &ConcurrencyConflictError{Op: "replace invoice", ID: "x"},
			wantCode:    "CONC001",
			wantMessage: "Another request changed this record at the same time",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("E11000 duplicate key error collection"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "unique violation maps correctly",
			err:         errors.New("ERROR: insert violates unique constraint"),
			wantCode:    "DB002",
			wantMessage: "A duplicate value was found",
		},
		{
			name:        "mongo server selection",
			err:         errors.New("server selection error: context deadline exceeded"),
			wantCode:    "DB003",
			wantMessage: "Unable to reach the database",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "DB006",
			wantMessage: "Operation timed out",
		},
		{
			name:        "limiter saturated",
			err:         ErrTooManyImports,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "cancelled",
			err:         context.Canceled,
			wantCode:    "UPL004",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"too many imports", fmt.Errorf("import: %w", ErrTooManyImports), http.StatusTooManyRequests},
		{"aggregate", &AggregateError{Errors: []error{errors.New("x")}}, http.StatusUnprocessableEntity},
		{"rejected", &FileRejectedError{File: "a", Err: errors.New("x")}, http.StatusUnprocessableEntity},
		{"validation", &ValidationError{Field: "category"}, http.StatusBadRequest},
		{"not found", &NotFoundError{Kind: "user", ID: "u"}, http.StatusNotFound},
		{"store not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound},
		{"conflict", &ConcurrencyConflictError{Op: "x"}, http.StatusConflict},
		{"duplicate", store.ErrDuplicateKey, http.StatusConflict},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("duplicate key value")
	result := FormatUserError(err)

	expected := "A record with this key already exists (Code: DB001). Please try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  errors.New("duplicate key"),
			want: true,
		},
		{
			name: "typed error is user facing",
			err:  &NotFoundError{Kind: "user", ID: "u"},
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("E11000 duplicate key error")
		userErr := NewUserError(techErr)

		if userErr.Error() != "A record with this key already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}

func TestAggregateError_UnwrapsMembers(t *testing.T) {
	agg := &AggregateError{Errors: []error{
		errors.New("first"),
		&FileRejectedError{File: "abc.csv", Err: &ValidationError{Field: "order_number"}},
	}}

	var validation *ValidationError
	if !errors.As(agg, &validation) {
		t.Fatal("errors.As should reach the validation error")
	}
	if validation.Field != "order_number" {
		t.Errorf("Field = %q, want order_number", validation.Field)
	}
}
