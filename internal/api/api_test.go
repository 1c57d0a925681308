package api

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/gems"
	"gem-finder/internal/pipeline"
	"gem-finder/internal/resilience"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type fixedStage struct {
	id    gems.StageID
	reply string
}

func (s fixedStage) ID() gems.StageID { return s.id }

func (s fixedStage) Run(ctx context.Context, input string) (string, error) {
	return s.reply, nil
}

type staticSearcher struct{}

func (staticSearcher) SearchCandidates(ctx context.Context, query string) ([]gems.Candidate, error) {
	return []gems.Candidate{
		{ID: "c1", Name: "Whispering Falls", Rating: 4.8, ReviewCount: 20,
			Location: gems.Coordinates{Lat: 40.01, Lng: -105.3}, Address: "Falls Trail, Boulder, CO 80302, USA"},
		{ID: "c2", Name: "Secret Cove", Rating: 4.6, ReviewCount: 30,
			Location: gems.Coordinates{Lat: 40.02, Lng: -105.2}, Address: "Cove Rd, Boulder, CO 80302, USA"},
	}, nil
}

const recommendReply = `{"status":"success","gems":[
  {"placeName":"Whispering Falls","rating":4.8,"reviewCount":20,
   "analysis":{"whySpecial":"A quiet cascade.","bestTime":"Early morning","insiderTip":"Bring sandals."}},
  {"placeName":"Secret Cove","rating":4.6,"reviewCount":30,
   "analysis":{"whySpecial":"Calm water.","bestTime":"Sunset","insiderTip":"Park north."}}
]}`

type testServer struct {
	handler  http.Handler
	store    *SessionStore
	api      *Handler
	pipeline *pipeline.Orchestrator
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	log := logger.NewTestLogger(t)

	orch, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Deps{
		Stages: []pipeline.Stage{
			fixedStage{id: gems.StageIntent, reply: "Waterfall trip near Boulder.\n[ESCALATE]"},
			fixedStage{id: gems.StageRecommend, reply: recommendReply},
			fixedStage{id: gems.StageAdvice, reply: `{"summary":"Go early.","outfit":"Boots.","bestTimeMatch":"Morning is best."}`},
			fixedStage{id: gems.StageConversation, reply: `{"response":"Dogs are welcome."}`},
		},
		Searcher:     staticSearcher{},
		Clock:        func() time.Time { return testNow },
		RetryOptions: []resilience.Option{resilience.WithSleeper(func(ctx context.Context, d time.Duration) error { return nil })},
	}, log)
	require.NoError(t, err)

	store := NewSessionStore(orch, time.Hour)
	store.now = func() time.Time { return testNow }
	h := NewHandler(orch, store, ServiceInfo{Name: "gem-finder", Version: "test"}, log)
	return &testServer{handler: NewRouter(h, cfg), store: store, api: h, pipeline: orch}
}

func (ts *testServer) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestDiscover_Success(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.post(t, "/api/discover", DiscoverRequest{SearchQuery: "hidden waterfalls near Boulder"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeBody[DiscoverResponse](t, rec)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, gems.StatusSuccess, resp.Status)
	require.Len(t, resp.Gems, 2)
	assert.Equal(t, "Whispering Falls", resp.Gems[0].Name)
	assert.Equal(t, "hidden waterfalls near Boulder", resp.Query)
	assert.NotEmpty(t, resp.ProcessingTime)
	assert.Equal(t, 1, ts.store.Len())
}

func TestDiscover_Validation(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	tests := []struct {
		name string
		body interface{}
	}{
		{"too short", DiscoverRequest{SearchQuery: "falls"}},
		{"missing", map[string]string{}},
		{"bad session id", DiscoverRequest{SearchQuery: "hidden waterfalls near Boulder", SessionID: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.post(t, "/api/discover", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeBody[apperrors.ErrorResponse](t, rec)
			assert.Equal(t, string(apperrors.ErrCodeInvalidRequest), resp.Code)
			assert.False(t, resp.Retryable)
		})
	}
}

func TestDiscover_MalformedJSON(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/discover", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscover_UnknownSession(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.post(t, "/api/discover", DiscoverRequest{
		SearchQuery: "hidden waterfalls near Boulder",
		SessionID:   uuid.NewString(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelect_Flow(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.post(t, "/api/discover", DiscoverRequest{SearchQuery: "hidden waterfalls near Boulder"})
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := decodeBody[DiscoverResponse](t, rec).SessionID

	rec = ts.post(t, "/api/select", SelectRequest{SessionID: sessionID, Selection: "Moss Canyon"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperrors.ErrCodeInvalidSelection), decodeBody[apperrors.ErrorResponse](t, rec).Code)

	rec = ts.post(t, "/api/select", SelectRequest{SessionID: sessionID, Selection: "Secret Cove"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[SelectResponse](t, rec)
	assert.Equal(t, "Secret Cove", resp.Selection)
	assert.Equal(t, "Go early.", resp.Advice.Summary)
	assert.Equal(t, "Boots.", resp.Advice.Outfit)
	assert.Equal(t, "Boulder", resp.Advice.City)
}

func TestSelect_Errors(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.post(t, "/api/select", SelectRequest{SessionID: uuid.NewString(), Selection: "1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(apperrors.ErrCodeSessionNotFound), decodeBody[apperrors.ErrorResponse](t, rec).Code)

	rec = ts.post(t, "/api/select", map[string]string{"selection": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	session := ts.store.Create()
	rec = ts.post(t, "/api/select", SelectRequest{SessionID: session.ID, Selection: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nothing to select from yet")
}

func TestChat_NewSessionRunsToResults(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.post(t, "/api/chat", ChatRequest{Message: "Hidden waterfalls near Boulder"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[ChatResponse](t, rec)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, string(pipeline.PhaseAwaitSelection), resp.Phase)
	assert.Contains(t, resp.Response, "Whispering Falls")

	rec = ts.post(t, "/api/chat", ChatRequest{SessionID: resp.SessionID, Message: "the first one"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[ChatResponse](t, rec)
	assert.Equal(t, string(pipeline.PhaseConversation), resp.Phase)
	assert.Contains(t, resp.Response, "Go early.")

	rec = ts.post(t, "/api/chat", ChatRequest{SessionID: resp.SessionID, Message: "Is it dog friendly?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dogs are welcome.", decodeBody[ChatResponse](t, rec).Response)
}

func TestChat_MessageRequired(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.post(t, "/api/chat", ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.api.AddReadinessCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody[map[string]interface{}](t, rec)
	assert.Equal(t, "not ready", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, RouterConfig{MetricsEnabled: true})

	ts.post(t, "/api/chat", ChatRequest{})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gem_http_requests_total")
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	ts := newTestServer(t, RouterConfig{CORSOrigins: []string{"https://gems.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/discover", nil)
	req.Header.Set("Origin", "https://gems.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://gems.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, RouterConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute})

	first := ts.post(t, "/api/chat", ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := ts.post(t, "/api/chat", ChatRequest{})
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody[apperrors.ErrorResponse](t, second).Code)
}

func TestSessionStore_Expiry(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})
	store := ts.store

	session := store.Create()
	_, err := store.Get(session.ID)
	require.NoError(t, err)

	store.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = store.Get(session.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSessionNotFound))
	assert.Equal(t, 0, store.Len())

	store.now = func() time.Time { return testNow }
	store.Create()
	store.Create()
	store.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_GetOrCreate(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	created, err := ts.store.GetOrCreate("")
	require.NoError(t, err)

	again, err := ts.store.GetOrCreate(created.ID)
	require.NoError(t, err)
	assert.Same(t, created, again)
}

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) NewSession() *pipeline.Session {
	return m.Called().Get(0).(*pipeline.Session)
}

func (m *mockPipeline) Discover(ctx context.Context, s *pipeline.Session, query string) (gems.CanonicalResult, error) {
	args := m.Called(ctx, s, query)
	return args.Get(0).(gems.CanonicalResult), args.Error(1)
}

func (m *mockPipeline) Select(ctx context.Context, s *pipeline.Session, selection string) (gems.AdviceResult, error) {
	args := m.Called(ctx, s, selection)
	return args.Get(0).(gems.AdviceResult), args.Error(1)
}

func (m *mockPipeline) Chat(ctx context.Context, s *pipeline.Session, message string) (string, error) {
	args := m.Called(ctx, s, message)
	return args.String(0), args.Error(1)
}

func TestHandler_PipelineErrors(t *testing.T) {
	base := newTestServer(t, RouterConfig{})
	session := base.pipeline.NewSession()

	tests := []struct {
		name      string
		err       error
		status    int
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"collaborator unavailable", apperrors.NewCollaboratorUnavailableError("genai", errors.New("breaker open")), http.StatusServiceUnavailable, apperrors.ErrCodeCollaboratorUnavailable, false},
		{"transient", apperrors.NewTransientExternalError("genai", http.StatusServiceUnavailable, errors.New("overloaded")), http.StatusServiceUnavailable, apperrors.ErrCodeTransientExternal, true},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mockPipeline)
			p.On("NewSession").Return(session)
			p.On("Discover", mock.Anything, session, "hidden waterfalls near Boulder").
				Return(gems.CanonicalResult{}, tt.err)

			store := NewSessionStore(p, time.Hour)
			h := NewHandler(p, store, ServiceInfo{Name: "gem-finder"}, logger.NewTestLogger(t))
			ts := &testServer{handler: NewRouter(h, RouterConfig{}), store: store, api: h}

			rec := ts.post(t, "/api/discover", DiscoverRequest{SearchQuery: "  hidden waterfalls near Boulder  "})
			require.Equal(t, tt.status, rec.Code)
			resp := decodeBody[apperrors.ErrorResponse](t, rec)
			assert.Equal(t, string(tt.code), resp.Code)
			assert.Equal(t, tt.retryable, resp.Retryable)
			assert.NotEmpty(t, resp.Error)
			p.AssertExpectations(t)
		})
	}
}

func TestWriteJSON_UnencodableBody(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusOK, map[string]float64{"rating": math.NaN()})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeBody[apperrors.ErrorResponse](t, rec)
	assert.Equal(t, string(apperrors.ErrCodeInternal), resp.Code)
	assert.False(t, resp.Retryable)
}

func TestWriteJSON_KeepsStatus(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
