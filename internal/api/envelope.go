// Package api exposes every ledger operation as a request/response unit
// returning a uniform envelope, over HTTP via chi.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// Envelope is the result of every operation. Errors is empty on success.
type Envelope struct {
	Data   any            `json:"data"`
	Meta   map[string]any `json:"meta"`
	Errors []string       `json:"errors"`
}

// OK wraps a successful payload.
func OK(data any, meta map[string]any) Envelope {
	if meta == nil {
		meta = map[string]any{}
	}
	return Envelope{Data: data, Meta: meta, Errors: []string{}}
}

// Err wraps a failure. The message is the error text; user errors show
// their user-facing message only.
func Err(err error, meta map[string]any) Envelope {
	if meta == nil {
		meta = map[string]any{}
	}
	msg := err.Error()
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		msg = userErr.UserMessage
	}
	return Envelope{Meta: meta, Errors: []string{msg}}
}

// StatusFor maps an error to an HTTP status: validation failures are 400,
// missing entities 404, anything else 500.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case common.IsValidation(err):
		return http.StatusBadRequest
	case common.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeOK(w http.ResponseWriter, status int, data any, meta map[string]any) {
	writeEnvelope(w, status, OK(data, meta))
}

func writeErr(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeEnvelope(w, status, Err(err, nil))
}
