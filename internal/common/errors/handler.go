// internal/common/errors/handler.go
package errors

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrorHandler normalizes and logs errors before they cross the boundary.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// ErrorResponse is the user-visible shape of a failed boundary call.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

// Handle normalizes err, logs it with the operation name, and returns the
// HTTP status plus the body to send.
func (h *ErrorHandler) Handle(operation string, err error) (int, ErrorResponse) {
	stdErr := h.Normalize(err)
	h.logError(operation, stdErr)

	return HTTPStatus(stdErr.Code), ErrorResponse{
		Error:     userMessage(stdErr),
		Code:      string(stdErr.Code),
		Retryable: stdErr.Retryable,
	}
}

// Normalize ensures we always have a StandardError
func (h *ErrorHandler) Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	if stderrors.Is(err, context.Canceled) {
		return &StandardError{
			Code:       ErrCodeInternal,
			Message:    "Request cancelled",
			Details:    err.Error(),
			Retryable:  true,
			Timestamp:  time.Now().UTC(),
			underlying: err,
		}
	}
	if status := StatusOf(err); status != 0 {
		return NewTransientExternalError("unknown", status, err)
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) logError(operation string, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	h.logger.Error("Request failed", map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"status":        stdErr.Status,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}

// userMessage never leaks collaborator details for infrastructure failures.
func userMessage(stdErr *StandardError) string {
	switch GetErrorCategory(stdErr.Code) {
	case "EXTERNAL":
		return "The recommendation service is temporarily unavailable. Please try again shortly."
	case "SYSTEM", "DECODING":
		return "Something went wrong while processing your request."
	default:
		if stdErr.Details != "" && stdErr.Code == ErrCodeInvalidRequest {
			return stdErr.Message + ": " + stdErr.Details
		}
		return stdErr.Message
	}
}
