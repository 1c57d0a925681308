package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"plain error", stderrors.New("boom"), 0},
		{"standard error", NewTransientExternalError("genai", 503, nil), 503},
		{"wrapped standard error", fmt.Errorf("stage failed: %w", NewTransientExternalError("weather", 429, nil)), 429},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusOf(tt.err))
		})
	}
}

func TestNewTransientExternalError_Retryable(t *testing.T) {
	assert.True(t, NewTransientExternalError("genai", 500, nil).Retryable)
	assert.True(t, NewTransientExternalError("genai", 429, nil).Retryable)
	assert.False(t, NewTransientExternalError("genai", 400, nil).Retryable)
	assert.False(t, NewTransientExternalError("genai", 0, nil).Retryable)
}

func TestStandardError_Unwrap(t *testing.T) {
	root := stderrors.New("connection reset")
	err := NewTransientExternalError("details", 502, root)

	assert.True(t, stderrors.Is(err, root))
	assert.Contains(t, err.Error(), "TRANSIENT_EXTERNAL/502")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeInvalidRequest))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeSessionNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrCodeCollaboratorUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeMalformedOutput))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "EXTERNAL", GetErrorCategory(ErrCodeTransientExternal))
	assert.Equal(t, "EXTERNAL", GetErrorCategory(ErrCodeCollaboratorUnavailable))
	assert.Equal(t, "BUSINESS", GetErrorCategory(ErrCodeUnsupportedForecastRange))
	assert.Equal(t, "DECODING", GetErrorCategory(ErrCodeMalformedOutput))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeSessionNotFound))
	assert.Equal(t, "SYSTEM", GetErrorCategory(ErrCodeInternal))
}

func TestErrorHandler_Handle(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	status, body := h.Handle("discover", NewCollaboratorUnavailableError("genai", stderrors.New("breaker open")))

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "COLLABORATOR_UNAVAILABLE", body.Code)
	assert.NotContains(t, body.Error, "breaker")
	assert.Len(t, log.messages, 1)
	assert.Equal(t, "discover", log.fields[0]["operation"])
}

func TestErrorHandler_NormalizePlainError(t *testing.T) {
	h := NewErrorHandler(nil)

	stdErr := h.Normalize(stderrors.New("nil pointer somewhere"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)

	status, body := h.Handle("chat", stderrors.New("nil pointer somewhere"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, body.Error, "nil pointer")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "⭐⭐", Truncate("⭐⭐⭐", 2))
}
