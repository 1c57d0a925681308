package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"gem-finder/internal/collaborators/weather"
	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/gems"
	"gem-finder/internal/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Friday.
var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type scriptedStage struct {
	id gems.StageID

	mu      sync.Mutex
	replies []string
	err     error
	inputs  []string
}

func (s *scriptedStage) ID() gems.StageID { return s.id }

// Run returns the scripted replies in order and repeats the last one.
func (s *scriptedStage) Run(ctx context.Context, input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

func (s *scriptedStage) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

func (s *scriptedStage) lastInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inputs) == 0 {
		return ""
	}
	return s.inputs[len(s.inputs)-1]
}

type fakeSearcher struct {
	candidates []gems.Candidate
	err        error
	queries    []string
}

func (f *fakeSearcher) SearchCandidates(ctx context.Context, query string) ([]gems.Candidate, error) {
	f.queries = append(f.queries, query)
	return f.candidates, f.err
}

type fakeWeather struct {
	err    error
	calls  int
	cities []string
	ranges []weather.DateRange
}

func (f *fakeWeather) Forecast(ctx context.Context, city string, r weather.DateRange) (*weather.Forecast, error) {
	f.calls++
	f.cities = append(f.cities, city)
	f.ranges = append(f.ranges, r)
	if f.err != nil {
		return nil, f.err
	}
	return &weather.Forecast{City: city, Days: []weather.Day{{
		Date:                     r.Start.Format("2006-01-02"),
		Summary:                  "Light rain in the afternoon",
		TempMinC:                 6,
		TempMaxC:                 14,
		PrecipitationProbability: 60,
	}}}, nil
}

const recommendReply = "```json\n" + `{"status":"success","gems":[
  {"placeName":"Whispering Falls","rating":4.8,"reviewCount":20,
   "analysis":{"whySpecial":"A quiet cascade few visitors know.","bestTime":"Early morning","insiderTip":"Bring sandals."}},
  {"placeName":"Secret Cove","rating":4.6,"reviewCount":30,
   "analysis":{"whySpecial":"Calm water and no crowds.","bestTime":"Sunset","insiderTip":"Park at the north lot."}}
]}` + "\n```"

const adviceReply = `{"summary":"Go in the morning before the rain.","outfit":"Waterproof jacket and boots.","bestTimeMatch":"Early morning stays dry."}`

func testCandidates() []gems.Candidate {
	return []gems.Candidate{
		{ID: "c1", Name: "Whispering Falls", Rating: 4.8, ReviewCount: 20, Types: []string{"park"},
			Location: gems.Coordinates{Lat: 40.01, Lng: -105.3}, Address: "Falls Trail, Boulder, CO 80302, USA"},
		{ID: "c2", Name: "Secret Cove", Rating: 4.6, ReviewCount: 30, Types: []string{"natural_feature"},
			Location: gems.Coordinates{Lat: 40.02, Lng: -105.2}, Address: "Cove Rd, Boulder, CO 80302, USA"},
		{ID: "c3", Name: "Big Famous Park", Rating: 4.4, ReviewCount: 400, Types: []string{"park"},
			Location: gems.Coordinates{Lat: 40.03, Lng: -105.1}, Address: "Main St, Boulder, CO 80302, USA"},
	}
}

type harness struct {
	orch         *Orchestrator
	intent       *scriptedStage
	recommend    *scriptedStage
	advice       *scriptedStage
	conversation *scriptedStage
	searcher     *fakeSearcher
	weather      *fakeWeather
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		intent: &scriptedStage{id: gems.StageIntent, replies: []string{
			"Sounds fun! Who's coming along?",
			"Family waterfall outing near Boulder.\n[ESCALATE]",
		}},
		recommend:    &scriptedStage{id: gems.StageRecommend, replies: []string{recommendReply}},
		advice:       &scriptedStage{id: gems.StageAdvice, replies: []string{adviceReply}},
		conversation: &scriptedStage{id: gems.StageConversation, replies: []string{`{"response":"Yes, dogs on a leash are welcome."}`}},
		searcher:     &fakeSearcher{candidates: testCandidates()},
		weather:      &fakeWeather{},
	}
	h.orch = h.build(t)
	return h
}

func (h *harness) build(t *testing.T) *Orchestrator {
	t.Helper()
	orch, err := New(DefaultConfig(), Deps{
		Stages:       []Stage{h.intent, h.recommend, h.advice, h.conversation},
		Searcher:     h.searcher,
		Weather:      h.weather,
		Clock:        func() time.Time { return testNow },
		RetryOptions: []resilience.Option{resilience.WithSleeper(func(ctx context.Context, d time.Duration) error { return nil })},
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return orch
}

func TestSession_FullJourney(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.orch.NewSession()

	reply, err := s.Send(ctx, "Hidden waterfalls near Boulder")
	require.NoError(t, err)
	assert.Equal(t, ReplyQuestion, reply.Kind)
	assert.Equal(t, "Sounds fun! Who's coming along?", reply.Text)
	assert.Equal(t, PhaseIntent, s.Phase())

	reply, err = s.Send(ctx, "With my family, tomorrow")
	require.NoError(t, err)
	require.Equal(t, ReplyResult, reply.Kind)
	require.Equal(t, gems.StatusSuccess, reply.Result.Status)
	require.Len(t, reply.Result.Gems, 2)
	assert.Equal(t, PhaseAwaitSelection, s.Phase())

	first := reply.Result.Gems[0]
	assert.Equal(t, "Whispering Falls", first.Name)
	assert.Equal(t, "Falls Trail, Boulder, CO 80302, USA", first.Address, "address merged from the enriched gem")
	assert.Equal(t, gems.Coordinates{Lat: 40.01, Lng: -105.3}, first.Coordinates)
	assert.NotEmpty(t, first.MapURL)
	assert.Equal(t, "Early morning", first.Analysis.BestTime)

	require.Len(t, h.searcher.queries, 1)
	assert.Contains(t, h.searcher.queries[0], "Hidden waterfalls near Boulder")
	assert.Contains(t, h.searcher.queries[0], "Family waterfall outing near Boulder.")
	assert.NotContains(t, h.searcher.queries[0], "[ESCALATE]")
	assert.Contains(t, h.recommend.lastInput(), "Secret Cove")
	assert.NotContains(t, h.recommend.lastInput(), "Big Famous Park")

	reply, err = s.Send(ctx, "the second one")
	require.NoError(t, err)
	require.Equal(t, ReplyAdvice, reply.Kind)
	assert.Equal(t, PhaseConversation, s.Phase())
	assert.Equal(t, "Go in the morning before the rain.", reply.Advice.Summary)
	assert.Equal(t, "Waterproof jacket and boots.", reply.Advice.Outfit)
	assert.Equal(t, "Boulder", reply.Advice.City)
	assert.Equal(t, "2026-10-17", reply.Advice.TravelDate)
	assert.True(t, reply.Advice.WeatherChecked)

	require.Equal(t, 1, h.weather.calls)
	assert.Equal(t, "Boulder", h.weather.cities[0])
	assert.Equal(t, "2026-10-17", h.weather.ranges[0].Start.Format("2006-01-02"))
	assert.Contains(t, h.advice.lastInput(), "Place: Secret Cove")
	assert.Contains(t, h.advice.lastInput(), "Light rain in the afternoon")

	reply, err = s.Send(ctx, "Can we bring the dog?")
	require.NoError(t, err)
	assert.Equal(t, ReplyText, reply.Kind)
	assert.Equal(t, "Yes, dogs on a leash are welcome.", reply.Text)
	assert.Contains(t, h.conversation.lastInput(), "Chosen place: Secret Cove")
	assert.Equal(t, PhaseConversation, s.Phase())
}

func TestSession_IntentExitsAtIterationLimit(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"Tell me more?"}
	ctx := context.Background()
	s := h.orch.NewSession()

	for i := 1; i < 5; i++ {
		reply, err := s.Send(ctx, "hmm")
		require.NoError(t, err)
		assert.Equal(t, ReplyQuestion, reply.Kind, "iteration %d", i)
	}
	reply, err := s.Send(ctx, "still not sure")
	require.NoError(t, err)

	assert.Equal(t, ReplyResult, reply.Kind)
	assert.Equal(t, 5, h.intent.calls())
	assert.Len(t, h.searcher.queries, 1)
	assert.Contains(t, h.intent.lastInput(), "last question turn")
}

func TestDiscover_AutoConfirmsClarification(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"What kind of experience?"}
	s := h.orch.NewSession()

	result, err := h.orch.Discover(context.Background(), s, "quiet lakes near Boulder")

	require.NoError(t, err)
	assert.Equal(t, gems.StatusSuccess, result.Status)
	assert.Equal(t, 5, h.intent.calls())
	assert.Contains(t, h.intent.lastInput(), AutoConfirm)
	assert.NotContains(t, h.searcher.queries[0], AutoConfirm)
	assert.Equal(t, PhaseAwaitSelection, s.Phase())
}

func TestDiscover_EscalatesOnFirstTurn(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"Got it. [escalate]"}
	s := h.orch.NewSession()

	result, err := h.orch.Discover(context.Background(), s, "quiet lakes near Boulder")

	require.NoError(t, err)
	assert.Equal(t, gems.StatusSuccess, result.Status)
	assert.Equal(t, 1, h.intent.calls())
}

func TestDiscover_ZeroGemsResetsToIntent(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.searcher.candidates = []gems.Candidate{
		{ID: "b1", Name: "Falls View Cafe", Rating: 4.9, ReviewCount: 50, Types: []string{"cafe"}},
		{ID: "b2", Name: "Trailhead Hotel", Rating: 4.7, ReviewCount: 80, Types: []string{"lodging"}},
	}
	s := h.orch.NewSession()

	result, err := h.orch.Discover(context.Background(), s, "waterfalls near Boulder")

	require.NoError(t, err)
	assert.Equal(t, gems.StatusZeroGems, result.Status)
	assert.Empty(t, result.Gems)
	assert.Equal(t, gems.ZeroGemsMessage, result.Message)
	assert.Equal(t, 0, h.recommend.calls())
	assert.Equal(t, PhaseIntent, s.Phase())
	assert.Zero(t, s.Snapshot().IterationCount)
}

func TestDiscover_RecommendFailureBecomesErrorResult(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.recommend.err = apperrors.NewTransientExternalError("genai", http.StatusServiceUnavailable, errors.New("overloaded"))
	s := h.orch.NewSession()

	result, err := h.orch.Discover(context.Background(), s, "waterfalls near Boulder")

	require.NoError(t, err)
	assert.Equal(t, gems.StatusError, result.Status)
	assert.Equal(t, failureMessage, result.Message)
	assert.Equal(t, 5, h.recommend.calls(), "loose policy allows five attempts")
	assert.Equal(t, PhaseIntent, s.Phase())
}

func TestDiscover_SearchFailureBecomesErrorResult(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.searcher.err = apperrors.NewMalformedOutputError("discovery", "not json")
	s := h.orch.NewSession()

	result, err := h.orch.Discover(context.Background(), s, "waterfalls near Boulder")

	require.NoError(t, err)
	assert.Equal(t, gems.StatusError, result.Status)
	assert.Len(t, h.searcher.queries, 1, "malformed output is not retried")
}

func TestDiscover_UndecodableRecommendationKeepsEnrichedGems(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.recommend.replies = []string{"Here you go, enjoy!"}
	s := h.orch.NewSession()

	result, err := h.orch.Discover(context.Background(), s, "waterfalls near Boulder")

	require.NoError(t, err)
	require.Equal(t, gems.StatusSuccess, result.Status)
	require.Len(t, result.Gems, 2)
	assert.Equal(t, "Whispering Falls", result.Gems[0].Name)
	assert.Equal(t, gems.DefaultWhySpecial, result.Gems[0].Analysis.WhySpecial)
}

func TestDiscover_DropsRecommendationsNeverDiscovered(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.recommend.replies = []string{`{"status":"success","gems":[
  {"placeName":"Phantom Lake","rating":5,"reviewCount":3},
  {"placeName":"Secret Cove","rating":4.6,"reviewCount":30}]}`}

	result, err := h.orch.Discover(context.Background(), h.orch.NewSession(), "waterfalls near Boulder")

	require.NoError(t, err)
	require.Equal(t, gems.StatusSuccess, result.Status)
	require.Len(t, result.Gems, 1)
	assert.Equal(t, "Secret Cove", result.Gems[0].Name)
	assert.Equal(t, "Cove Rd, Boulder, CO 80302, USA", result.Gems[0].Address)
}

func TestDiscover_OnlyInventedRecommendationsFallBackToEnriched(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.recommend.replies = []string{`{"gems":[{"placeName":"Phantom Lake"},{"placeName":"Mirage Falls"}]}`}

	result, err := h.orch.Discover(context.Background(), h.orch.NewSession(), "waterfalls near Boulder")

	require.NoError(t, err)
	require.Equal(t, gems.StatusSuccess, result.Status)
	names := make([]string, 0, len(result.Gems))
	for _, g := range result.Gems {
		names = append(names, g.Name)
	}
	assert.ElementsMatch(t, []string{"Whispering Falls", "Secret Cove"}, names)
}

func TestDiscover_RecommendationProseMeansZeroGems(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.recommend.replies = []string{"I couldn't find any spots matching your criteria in this area. Try a broader search!"}
	s := h.orch.NewSession()

	result, err := h.orch.Discover(context.Background(), s, "waterfalls near Boulder")

	require.NoError(t, err)
	assert.Equal(t, gems.StatusZeroGems, result.Status)
	assert.Equal(t, PhaseIntent, s.Phase())
}

func TestDiscover_CollaboratorUnavailableIsHardError(t *testing.T) {
	h := newHarness(t)
	h.intent.err = apperrors.NewCollaboratorUnavailableError("genai", errors.New("circuit breaker is open"))
	s := h.orch.NewSession()

	_, err := h.orch.Discover(context.Background(), s, "waterfalls near Boulder")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCollaboratorUnavailable))
	assert.Empty(t, h.searcher.queries)
}

func TestDiscover_CancelledContext(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	s := h.orch.NewSession()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orch.Discover(ctx, s, "waterfalls near Boulder")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.searcher.queries)
}

func TestDiscover_WithStageSearcher(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	discovery := &scriptedStage{id: gems.StageDiscovery, replies: []string{
		`{"candidates":[{"place_id":"x1","name":"Hidden Meadow","rating":4.7,"user_ratings_total":15,"types":["park"]},
		{"place_id":"x2","name":"Old Quarry Pond","rating":4.5,"user_ratings_total":25,"types":["natural_feature"]}]}`,
	}}
	orch, err := New(DefaultConfig(), Deps{
		Stages: []Stage{h.intent, discovery, h.recommend, h.advice, h.conversation},
		Clock:  func() time.Time { return testNow },
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	result, err := orch.Discover(context.Background(), orch.NewSession(), "meadows near Boulder")

	require.NoError(t, err)
	assert.Equal(t, 1, discovery.calls())
	assert.Contains(t, discovery.lastInput(), "meadows near Boulder")
	assert.Contains(t, h.recommend.lastInput(), "Hidden Meadow")
	assert.Equal(t, gems.StatusSuccess, result.Status)
}

func TestSelect_BeyondForecastHorizonSkipsWeather(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := h.orch.Discover(ctx, s, "waterfalls near Boulder in 20 days")
	require.NoError(t, err)

	advice, err := h.orch.Select(ctx, s, "Whispering Falls")

	require.NoError(t, err)
	assert.Zero(t, h.weather.calls)
	assert.False(t, advice.WeatherChecked)
	assert.Equal(t, "2026-11-05", advice.TravelDate)
	assert.Contains(t, h.advice.lastInput(), "Use general seasonal knowledge for November in Boulder")
	assert.Contains(t, h.advice.lastInput(), "too far ahead")
}

func TestSelect_WeatherFailureFallsBackToSeasonal(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.weather.err = apperrors.NewTransientExternalError("weather", http.StatusServiceUnavailable, errors.New("down"))
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := h.orch.Discover(ctx, s, "waterfalls near Boulder this saturday")
	require.NoError(t, err)

	advice, err := h.orch.Select(ctx, s, "1")

	require.NoError(t, err)
	assert.Equal(t, 3, h.weather.calls, "tight policy allows three attempts")
	assert.False(t, advice.WeatherChecked)
	assert.Equal(t, "2026-10-17", advice.TravelDate)
	assert.Contains(t, h.advice.lastInput(), "Use general seasonal knowledge for October in Boulder")
	assert.Equal(t, "Go in the morning before the rain.", advice.Summary)
	assert.Equal(t, PhaseConversation, s.Phase())
}

func TestSelect_CityIsNeverThePlaceName(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.searcher.candidates = []gems.Candidate{
		{ID: "c1", Name: "Eldorado Canyon", Rating: 4.8, ReviewCount: 20, Types: []string{"park"},
			Address: "Eldorado Canyon, Eldorado Springs, CO 80025, USA"},
	}
	h.recommend.replies = []string{`{"gems":[{"placeName":"Eldorado Canyon","rating":4.8,"reviewCount":20}]}`}
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := h.orch.Discover(ctx, s, "canyons near Boulder")
	require.NoError(t, err)
	advice, err := h.orch.Select(ctx, s, "eldorado")

	require.NoError(t, err)
	require.Len(t, h.weather.cities, 1)
	assert.Equal(t, "Eldorado Springs", h.weather.cities[0])
	assert.Equal(t, "Eldorado Springs", advice.City)
}

func TestSelect_AdviceFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	h.advice.err = apperrors.NewTransientExternalError("genai", http.StatusInternalServerError, errors.New("boom"))
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := h.orch.Discover(ctx, s, "waterfalls near Boulder")
	require.NoError(t, err)
	advice, err := h.orch.Select(ctx, s, "Secret Cove")

	require.NoError(t, err)
	assert.Contains(t, advice.Summary, "Secret Cove")
	assert.Equal(t, "Sunset", advice.BestTimeMatch)
}

func TestSelect_Errors(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := h.orch.Select(ctx, s, "Whispering Falls")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))

	_, err = h.orch.Discover(ctx, s, "waterfalls near Boulder")
	require.NoError(t, err)

	_, err = h.orch.Select(ctx, s, "Niagara Falls")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidSelection))
	assert.Equal(t, PhaseAwaitSelection, s.Phase())
}

func TestSelect_FromConversationPicksAnotherGem(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := h.orch.Discover(ctx, s, "waterfalls near Boulder")
	require.NoError(t, err)
	_, err = h.orch.Select(ctx, s, "first")
	require.NoError(t, err)

	_, err = h.orch.Select(ctx, s, "Secret Cove")

	require.NoError(t, err)
	assert.Equal(t, "Secret Cove", s.Snapshot().Selected.Name)
	assert.Equal(t, 2, h.advice.calls())
}

func TestSend_UnrecognizedSelectionAsksAgain(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]"}
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := s.Send(ctx, "waterfalls near Boulder")
	require.NoError(t, err)

	reply, err := s.Send(ctx, "hmm, not sure")

	require.NoError(t, err)
	assert.Equal(t, ReplyQuestion, reply.Kind)
	assert.Contains(t, reply.Text, "1. Whispering Falls")
	assert.Contains(t, reply.Text, "2. Secret Cove")
	assert.Equal(t, PhaseAwaitSelection, s.Phase())
	assert.Zero(t, h.advice.calls())
}

func TestSend_FreshRequestRestartsIntent(t *testing.T) {
	h := newHarness(t)
	h.intent.replies = []string{"[ESCALATE]", "Who is going?"}
	ctx := context.Background()
	s := h.orch.NewSession()

	_, err := s.Send(ctx, "waterfalls near Boulder")
	require.NoError(t, err)
	_, err = s.Send(ctx, "Whispering Falls")
	require.NoError(t, err)
	require.Equal(t, PhaseConversation, s.Phase())

	reply, err := s.Send(ctx, "Now find me a different place near Denver")

	require.NoError(t, err)
	assert.Equal(t, ReplyQuestion, reply.Kind)
	assert.Equal(t, "Who is going?", reply.Text)
	assert.Equal(t, PhaseIntent, s.Phase())
	assert.Zero(t, h.conversation.calls())

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.IterationCount)
	assert.Equal(t, []string{"Now find me a different place near Denver"}, snap.UserMessages)
	assert.Nil(t, snap.Selected)
}

func TestSend_EmptyMessage(t *testing.T) {
	h := newHarness(t)
	_, err := h.orch.NewSession().Send(context.Background(), "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestChat_ReturnsText(t *testing.T) {
	h := newHarness(t)
	s := h.orch.NewSession()

	text, err := h.orch.Chat(context.Background(), s, "waterfalls near Boulder")

	require.NoError(t, err)
	assert.Equal(t, "Sounds fun! Who's coming along?", text)
}

func TestNew_MissingStage(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{
		Stages: []Stage{&scriptedStage{id: gems.StageIntent}},
	}, logger.NewTestLogger(t))

	assert.ErrorIs(t, err, ErrMissingStage)
}

func TestTransitions(t *testing.T) {
	assert.True(t, canTransition(PhaseIntent, PhaseDiscovery))
	assert.True(t, canTransition(PhaseFilter, PhaseIntent))
	assert.True(t, canTransition(PhaseConversation, PhaseIntent))
	assert.False(t, canTransition(PhaseIntent, PhaseRecommend))
	assert.False(t, canTransition(PhaseFilter, PhaseAwaitSelection))
	assert.False(t, canTransition(PhaseAdvice, PhaseIntent))

	for from, targets := range transitions {
		for _, to := range targets {
			_, known := transitions[to]
			assert.True(t, known, "%s -> %s", from, to)
		}
	}
}

func TestIntentSummary(t *testing.T) {
	got := intentSummary([]string{"lakes near Boulder", AutoConfirm}, "Lake day for a couple.")
	assert.Equal(t, "Traveller request:\n- lakes near Boulder\nClarified intent: Lake day for a couple.", got)
	assert.False(t, strings.Contains(got, AutoConfirm))
}
