// Package httputil centralizes JSON response writing and the upstream
// status-error type shared by outbound clients and the retry primitive.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	dErrors "keeply/pkg/domain-errors"
)

// StatusError is a non-2xx response from an upstream service. Clients return
// it with the raw body attached so the error translator retains the full
// upstream text for classification.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Status)
}

// IsRetryableStatus reports whether a status belongs to the fixed retryable
// set: rate limiting and server errors. Everything else is final.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

// errorBody is the single error shape produced by this service.
type errorBody struct {
	Error   bool              `json:"error"`
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates any error into the {error, status, message} wire
// shape. Domain errors keep their message; everything else degrades to a
// generic 500 so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.HTTPStatus(err)
	WriteJSON(w, status, errorBody{
		Error:   true,
		Status:  status,
		Message: dErrors.MessageFor(err),
	})
}

// WriteFieldErrors reports per-field validation failures, preserving the
// first message per field.
func WriteFieldErrors(w http.ResponseWriter, fields map[string]string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{
		Error:   true,
		Status:  http.StatusBadRequest,
		Message: "Dados inválidos.",
		Fields:  fields,
	})
}
