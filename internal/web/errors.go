package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Status comes from core.HTTPStatus, message from core.MapError
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is written as JSON

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/PartsHole/internal/core"
	"github.com/JonMunkholm/PartsHole/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Details lists per-file failures of a batch import.
	Details []FileError `json:"details,omitempty"`
}

// FileError is one failed file of a batch.
type FileError struct {
	Index   int    `json:"index"`
	File    string `json:"file"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped status and user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := core.HTTPStatus(err)
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var agg *core.AggregateError
	if errors.As(err, &agg) {
		for _, e := range agg.Errors {
			resp.Details = append(resp.Details, fileError(e))
		}
	}

	writeJSON(w, status, resp)
}

// fileError describes one batch failure for the client.
func fileError(err error) FileError {
	msg := core.MapError(err)
	fe := FileError{Message: msg.Message, Action: msg.Action, Code: msg.Code}

	var ff core.FileFailure
	if errors.As(err, &ff) {
		fe.Index = ff.Index
		fe.File = ff.Name
		msg = core.MapError(ff.Err)
		fe.Message, fe.Action, fe.Code = msg.Message, msg.Action, msg.Code
	}
	return fe
}
