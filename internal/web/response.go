package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/PartsHole/internal/core"
)

// APIResponse is the envelope for every successful API response. Method names
// the operation, Body carries its result and Message is a short summary.
type APIResponse struct {
	Method  string `json:"method"`
	Body    any    `json:"body,omitempty"`
	Message string `json:"message,omitempty"`
}

// respond writes body wrapped in the APIResponse envelope.
func respond(w http.ResponseWriter, status int, method string, body any, message string) {
	writeJSON(w, status, APIResponse{Method: method, Body: body, Message: message})
}

// maxJSONBody bounds request bodies of the JSON endpoints.
const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object from the request body into v.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &core.ValidationError{Field: "body", Message: "request body is empty"}
		}
		return &core.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}
