// Package errors provides standardized error handling for the gem pipeline.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Pipeline error kinds
	ErrCodeTransientExternal        ErrorCode = "TRANSIENT_EXTERNAL"
	ErrCodeZeroResults              ErrorCode = "ZERO_RESULTS"
	ErrCodeMalformedOutput          ErrorCode = "MALFORMED_OUTPUT"
	ErrCodeUnsupportedForecastRange ErrorCode = "UNSUPPORTED_FORECAST_RANGE"
	ErrCodeCollaboratorUnavailable  ErrorCode = "COLLABORATOR_UNAVAILABLE"

	// Boundary errors
	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInvalidSelection ErrorCode = "INVALID_SELECTION"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	Status     int                    `json:"status,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	underlying error
}

func (e *StandardError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("StandardError[%s/%d]: %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// StatusCode reports the upstream status the error was classified with.
func (e *StandardError) StatusCode() int {
	return e.Status
}

func (e *StandardError) Unwrap() error {
	return e.underlying
}

// WithMetadata returns the same error with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTransientExternalError wraps a failed collaborator call. The status is
// what retry classification keys on; 0 means unclassified.
func NewTransientExternalError(service string, status int, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:       ErrCodeTransientExternal,
		Message:    fmt.Sprintf("External service '%s' error", service),
		Details:    details,
		Retryable:  IsRetryableStatus(status),
		Status:     status,
		Metadata:   map[string]interface{}{"service": service},
		Timestamp:  time.Now().UTC(),
		underlying: err,
	}
}

func NewZeroResultsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeZeroResults,
		Message:   "No hidden gems found",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMalformedOutputError(stage string, raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedOutput,
		Message:   "Stage output could not be decoded",
		Details:   fmt.Sprintf("stage: %s, raw: %s", stage, Truncate(raw, 200)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnsupportedForecastRangeError(daysOut, horizon int) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedForecastRange,
		Message:   "Travel date is beyond the forecast horizon",
		Details:   fmt.Sprintf("daysOut: %d, horizonDays: %d", daysOut, horizon),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCollaboratorUnavailableError(service string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:       ErrCodeCollaboratorUnavailable,
		Message:    "The recommendation service is temporarily unavailable",
		Details:    details,
		Retryable:  false,
		Metadata:   map[string]interface{}{"service": service},
		Timestamp:  time.Now().UTC(),
		underlying: err,
	}
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidSelectionError(selection string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSelection,
		Message:   "Selection does not match any recommended gem",
		Details:   fmt.Sprintf("selection: %s", Truncate(selection, 100)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:       ErrCodeInternal,
		Message:    "Unexpected error",
		Details:    details,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
		underlying: err,
	}
}

// ==========================
// 3. Classification
// ==========================

// StatusCoder is implemented by errors that carry an upstream status code.
type StatusCoder interface {
	StatusCode() int
}

// StatusOf extracts an upstream status from err. A context deadline is
// reported as a gateway timeout; unclassifiable errors report 0.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	var sc StatusCoder
	if stderrors.As(err, &sc) && sc.StatusCode() != 0 {
		return sc.StatusCode()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return 0
}

// IsRetryableStatus reports whether a status belongs to the transient family.
func IsRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// As returns err as a *StandardError when one is in its chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// HTTPStatus maps an error code to the status returned at the HTTP boundary.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeInvalidSelection:
		return http.StatusBadRequest
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeCollaboratorUnavailable, ErrCodeTransientExternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSIENT"), strings.Contains(codeStr, "UNAVAILABLE"):
		return "EXTERNAL"
	case strings.Contains(codeStr, "ZERO"), strings.Contains(codeStr, "FORECAST"):
		return "BUSINESS"
	case strings.Contains(codeStr, "MALFORMED"):
		return "DECODING"
	case strings.Contains(codeStr, "SESSION"), strings.Contains(codeStr, "SELECTION"), strings.Contains(codeStr, "REQUEST"):
		return "VALIDATION"
	default:
		return "SYSTEM"
	}
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
