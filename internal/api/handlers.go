// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/validation"
	"gem-finder/internal/gems"
	"gem-finder/internal/pipeline"

	"github.com/goccy/go-json"
)

const maxBodyBytes = 64 << 10

// Pipeline is the boundary the handlers drive.
type Pipeline interface {
	SessionFactory
	Discover(ctx context.Context, s *pipeline.Session, query string) (gems.CanonicalResult, error)
	Select(ctx context.Context, s *pipeline.Session, selection string) (gems.AdviceResult, error)
	Chat(ctx context.Context, s *pipeline.Session, message string) (string, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type ServiceInfo struct {
	Name    string
	Version string
}

type DiscoverRequest struct {
	SearchQuery string `json:"searchQuery" validate:"required,min=10,max=200"`
	SessionID   string `json:"sessionId,omitempty" validate:"omitempty,uuid"`
}

type DiscoverResponse struct {
	SessionID      string      `json:"sessionId"`
	Status         gems.Status `json:"status"`
	Gems           []gems.Gem  `json:"gems"`
	Message        string      `json:"message,omitempty"`
	ProcessingTime string      `json:"processingTime"`
	Query          string      `json:"query"`
}

type SelectRequest struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	Selection string `json:"selection" validate:"required,max=200"`
}

type SelectResponse struct {
	Advice    gems.AdviceResult `json:"advice"`
	Selection string            `json:"selection"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty" validate:"omitempty,uuid"`
	Message   string `json:"message" validate:"required,max=1000"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Response  string `json:"response"`
	Phase     string `json:"phase"`
}

type Handler struct {
	pipeline Pipeline
	sessions *SessionStore
	errors   *apperrors.ErrorHandler
	checks   map[string]ReadinessCheck
	info     ServiceInfo
	logger   Logger
}

func NewHandler(p Pipeline, sessions *SessionStore, info ServiceInfo, log Logger) *Handler {
	return &Handler{
		pipeline: p,
		sessions: sessions,
		errors:   apperrors.NewErrorHandler(log),
		checks:   make(map[string]ReadinessCheck),
		info:     info,
		logger:   log,
	}
}

// AddReadinessCheck registers a dependency reported by /ready.
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": h.info.Name,
		"version": h.info.Version,
		"status":  "running",
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":   state,
		"checks":   results,
		"sessions": h.sessions.Len(),
		"time":     time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req DiscoverRequest
	if !h.decode(w, r, "discover", &req) {
		return
	}
	req.SearchQuery = strings.TrimSpace(req.SearchQuery)

	session, err := h.sessions.GetOrCreate(req.SessionID)
	if err != nil {
		h.fail(w, "discover", err)
		return
	}

	result, err := h.pipeline.Discover(r.Context(), session, req.SearchQuery)
	if err != nil {
		h.fail(w, "discover", err)
		return
	}

	h.logger.Info("discover completed", map[string]interface{}{
		"sessionId": session.ID,
		"status":    result.Status,
		"gems":      len(result.Gems),
		"duration":  time.Since(start).String(),
	})
	writeJSON(w, http.StatusOK, DiscoverResponse{
		SessionID:      session.ID,
		Status:         result.Status,
		Gems:           result.Gems,
		Message:        result.Message,
		ProcessingTime: time.Since(start).Round(time.Millisecond).String(),
		Query:          req.SearchQuery,
	})
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !h.decode(w, r, "select", &req) {
		return
	}

	session, err := h.sessions.Get(req.SessionID)
	if err != nil {
		h.fail(w, "select", err)
		return
	}

	advice, err := h.pipeline.Select(r.Context(), session, req.Selection)
	if err != nil {
		h.fail(w, "select", err)
		return
	}
	writeJSON(w, http.StatusOK, SelectResponse{Advice: advice, Selection: req.Selection})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !h.decode(w, r, "chat", &req) {
		return
	}

	session, err := h.sessions.GetOrCreate(req.SessionID)
	if err != nil {
		h.fail(w, "chat", err)
		return
	}

	text, err := h.pipeline.Chat(r.Context(), session, req.Message)
	if err != nil {
		h.fail(w, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: session.ID,
		Response:  text,
		Phase:     string(session.Phase()),
	})
}

// decode reads and validates a JSON body, writing the error response
// itself when it fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, operation string, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.fail(w, operation, apperrors.NewInvalidRequestError("request body must be valid JSON"))
		return false
	}
	if result := validation.ValidateStruct(dest); !result.Valid {
		h.fail(w, operation, apperrors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; ")))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, operation string, err error) {
	status, body := h.errors.Handle(operation, err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(apperrors.ErrorResponse{
			Error: "failed to encode response",
			Code:  string(apperrors.ErrCodeInternal),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
