// Package domainerrors defines the closed error taxonomy used across the
// service. Gateways and services return *Error values; the HTTP layer
// translates them into a single {status, message} wire shape.
//
// For infrastructure facts (not found, unavailable) stores return
// pkg/platform/sentinel errors instead; services translate those into
// domain errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error within the taxonomy. The set is closed: callers
// switch on codes, so adding one is a contract change.
type Code string

const (
	// CodeInvalidInput marks malformed caller data. Never retried.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a structurally broken request (unparseable body).
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks rejected credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness violation. Never retried.
	CodeConflict Code = "conflict"
	// CodeStillConverging marks cross-service replication lag: the identity
	// account exists but dependent systems cannot see it yet. Retried at its
	// source; surfaced to callers only as a degraded (pending) outcome.
	CodeStillConverging Code = "still_converging"
	// CodeNetworkFailure marks connectivity loss to an upstream service
	// after the owning gateway exhausted its retries.
	CodeNetworkFailure Code = "network_failure"
	// CodeUpstreamProtocol marks an unparseable or unexpected upstream
	// response shape. Not retried.
	CodeUpstreamProtocol Code = "upstream_protocol"
	// CodeRateLimited marks a request rejected by the local rate limiter.
	CodeRateLimited Code = "rate_limited"
	// CodeUnclassified marks an upstream error no translation rule matched.
	// The original status and message pass through unmodified.
	CodeUnclassified Code = "unclassified"
	// CodeInternal is the catch-all for everything else.
	CodeInternal Code = "internal"
)

// Error carries a taxonomy code, a caller-facing message, and optionally an
// explicit HTTP status overriding the code's default mapping. The override
// exists for upstream pass-through: when no translation rule matches, the
// original upstream status is preserved verbatim.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a domain error from a code and caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving it for
// errors.Is/As chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithStatus returns a copy carrying an explicit HTTP status.
func (e *Error) WithStatus(status int) *Error {
	clone := *e
	clone.Status = status
	return &clone
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps a code to its default HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeStillConverging:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNetworkFailure, CodeUpstreamProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus resolves the status for any error: explicit override first,
// then the code mapping, then 500 for non-domain errors.
func HTTPStatus(err error) int {
	var de *Error
	if errors.As(err, &de) {
		if de.Status != 0 {
			return de.Status
		}
		return ToHTTPStatus(de.Code)
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by err, or CodeInternal for non-domain
// errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageFor returns the caller-facing message for any error. Non-domain
// errors get a generic message so internals never leak across the boundary.
func MessageFor(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Erro interno."
}
