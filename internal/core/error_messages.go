package core

// error_messages.go maps errors to user-friendly messages with codes for
// support reference. Users quote the code; support looks it up here.
//
// Typed errors are classified first with errors.As. Anything else is matched
// against a substring pattern table, which catches driver and transport
// errors that carry no type.
//
// # Batch Errors (BATCH001)
//
//	BATCH001 - Some files in a multi-file import failed
//	           Action: Review the per-file errors and re-import those files
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Generic invalid input
//	VAL002 - File name is not a numeric order number
//	VAL003 - Category or subcategory outside 0..99
//	VAL004 - Unknown reference list selector
//
// # Not Found (NF001-NF099)
//
//	NF001 - Record not found
//	NF002 - User not found
//	NF003 - Id is not in the user's reference list
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File exceeds the size limit
//	FILE002 - Unsupported file type
//	FILE003 - Required column missing
//	FILE004 - A row could not be read (strict mode)
//	FILE005 - File could not be opened or read
//	FILE006 - File rejected for another reason (archive failure etc.)
//
// # Concurrency (CONC001)
//
//	CONC001 - A concurrent request changed the same record
//
// # Pattern fallback
//
// DB001-DB007 (database), UPL002-UPL005 (import pipeline) and RATE001 come
// from case-insensitive substring matches. The first match wins, so more
// specific patterns come first. ERR000 is the fallback; check the logs for
// the technical error when a user reports it.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/PartsHole/internal/importer"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgBatch = UserMessage{
		Message: "Some files could not be imported",
		Action:  "Review the per-file errors and re-import those files",
		Code:    "BATCH001",
	}
	msgInvalid = UserMessage{
		Message: "The request contains an invalid value",
		Action:  "Check the highlighted field and try again",
		Code:    "VAL001",
	}
	msgOrderNumber = UserMessage{
		Message: "File name is not an order number",
		Action:  "Rename the file to its numeric order number, e.g. 123456.csv",
		Code:    "VAL002",
	}
	msgCategory = UserMessage{
		Message: "Category and subcategory must be between 0 and 99",
		Action:  "Choose a two-digit category and subcategory",
		Code:    "VAL003",
	}
	msgSelector = UserMessage{
		Message: "Unknown reference list",
		Action:  "Use parts, invoices, bins or partnumbers",
		Code:    "VAL004",
	}
	msgNotFound = UserMessage{
		Message: "Record not found",
		Action:  "Check the id and try again",
		Code:    "NF001",
	}
	msgUserNotFound = UserMessage{
		Message: "User not found",
		Action:  "Create the user first or check the user id",
		Code:    "NF002",
	}
	msgRefNotFound = UserMessage{
		Message: "The id is not in this reference list",
		Action:  "Refresh the user and try again",
		Code:    "NF003",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the invoice or raise UPLOAD_MAX_FILE_SIZE",
		Code:    "FILE001",
	}
	msgUnsupported = UserMessage{
		Message: "Unsupported file type",
		Action:  "Upload a DigiKey .csv or a Mouser .xlsx invoice",
		Code:    "FILE002",
	}
	msgMissingColumn = UserMessage{
		Message: "A required column is missing from the invoice",
		Action:  "Export the invoice again without removing columns",
		Code:    "FILE003",
	}
	msgBadRow = UserMessage{
		Message: "A row in the invoice could not be read",
		Action:  "Fix the reported line or import with line errors ignored",
		Code:    "FILE004",
	}
	msgUnreadable = UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file is not corrupt and is in the expected format",
		Code:    "FILE005",
	}
	msgRejected = UserMessage{
		Message: "The file was rejected",
		Action:  "Please try again or contact support",
		Code:    "FILE006",
	}
	msgConflict = UserMessage{
		Message: "Another request changed this record at the same time",
		Action:  "Please try again",
		Code:    "CONC001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Errors (DB001-DB007)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "server selection error",
		msg: UserMessage{
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing fewer files at once or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Import Pipeline Errors (UPL002-UPL005)
	// =========================================================================
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select an invoice file to import",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try importing fewer files at once or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Typed errors are
// classified first; the pattern table is the fallback.
//
// Example:
//
//	_, err := svc.ImportFile(ctx, core.FileInput{Name: "abc.csv", ...})
//	msg := MapError(err)
//	// msg.Code == "VAL002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		agg        *AggregateError
		validation *ValidationError
		nf         *NotFoundError
		parseErr   importer.ParseError
		rejected   *FileRejectedError
		conflict   *ConcurrencyConflictError
	)

	switch {
	case errors.As(err, &agg):
		return msgBatch, true
	case errors.As(err, &validation):
		switch validation.Field {
		case "order_number":
			return msgOrderNumber, true
		case "category", "subcategory":
			return msgCategory, true
		case "selector":
			return msgSelector, true
		}
		return msgInvalid, true
	case errors.As(err, &nf):
		switch nf.Kind {
		case "user":
			return msgUserNotFound, true
		case "reference":
			return msgRefNotFound, true
		}
		return msgNotFound, true
	case errors.Is(err, importer.ErrFileTooLarge):
		return msgTooLarge, true
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return msgUnsupported, true
	case errors.Is(err, importer.ErrMissingColumn):
		return msgMissingColumn, true
	case errors.As(err, &parseErr):
		return msgBadRow, true
	case errors.Is(err, importer.ErrUnreadable):
		return msgUnreadable, true
	case errors.As(err, &conflict):
		return msgConflict, true
	case errors.As(err, &rejected):
		return msgRejected, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
