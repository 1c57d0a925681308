// Package pipeline runs the per-session conversation that turns a user's
// request into hidden gem recommendations and visit advice.
//
// A session moves through INTENT (up to MaxIntentIterations clarification
// turns), DISCOVERY, FILTER and RECOMMEND, then waits in AWAIT_SELECTION
// for the user to pick a gem. ADVICE checks the weather for the gem's city
// and CONVERSATION answers follow-ups until the user asks for something new.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gem-finder/internal/collaborators/weather"
	"gem-finder/internal/common/config"
	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/common/observability"
	"gem-finder/internal/gems"
	"gem-finder/internal/gems/decoder"
	"gem-finder/internal/gems/enrich"
	"gem-finder/internal/gems/filter"
	"gem-finder/internal/resilience"

	"github.com/goccy/go-json"
)

// AutoConfirm answers clarification questions on behalf of a caller that
// cannot hold a conversation.
const AutoConfirm = "Sure, go ahead with what you know."

const (
	failureMessage     = "Something went wrong while looking for hidden gems. Please try again in a moment."
	chatFailureMessage = "Sorry, I couldn't answer that right now. Please try again."
	transcriptWindow   = 12
)

var (
	ErrMissingStage = errors.New("MISSING_STAGE")

	escalatePattern = regexp.MustCompile(`(?i)\[\s*escalate\s*\]`)
)

// CandidateFilter narrows discovery candidates to the top hidden gems.
type CandidateFilter interface {
	Filter(candidates []gems.Candidate) ([]gems.ScoredCandidate, error)
}

// GemEnricher turns filter survivors into gems.
type GemEnricher interface {
	Enrich(ctx context.Context, candidates []gems.ScoredCandidate) []gems.Gem
}

// WeatherClient fetches a forecast for a city by name.
type WeatherClient interface {
	Forecast(ctx context.Context, city string, r weather.DateRange) (*weather.Forecast, error)
}

type Config struct {
	MaxIntentIterations int
	ForecastHorizonDays int
	Tight               resilience.Policy
	Loose               resilience.Policy
}

func DefaultConfig() Config {
	return Config{
		MaxIntentIterations: 5,
		ForecastHorizonDays: 16,
		Tight:               resilience.Tight(),
		Loose:               resilience.Loose(),
	}
}

// ConfigFrom builds the orchestrator config from the application config.
func ConfigFrom(pc config.PipelineConfig, rc config.RetryConfig) Config {
	cfg := DefaultConfig()
	if pc.MaxIntentIterations > 0 {
		cfg.MaxIntentIterations = pc.MaxIntentIterations
	}
	if pc.ForecastHorizonDays > 0 {
		cfg.ForecastHorizonDays = pc.ForecastHorizonDays
	}
	cfg.Tight = resilience.FromConfig(cfg.Tight, rc.Tight)
	cfg.Loose = resilience.FromConfig(cfg.Loose, rc.Loose)
	return cfg
}

// Deps are the orchestrator's collaborators. Only Stages is required.
type Deps struct {
	Stages        []Stage
	Searcher      CandidateSearcher
	Filter        CandidateFilter
	Enricher      GemEnricher
	Weather       WeatherClient
	Decoder       *decoder.Decoder
	Observability *observability.Observability
	Clock         func() time.Time
	RetryOptions  []resilience.Option
}

type Orchestrator struct {
	config    Config
	stages    map[gems.StageID]Stage
	searcher  CandidateSearcher
	filter    CandidateFilter
	enricher  GemEnricher
	weather   WeatherClient
	decoder   *decoder.Decoder
	obs       *observability.Observability
	now       func() time.Time
	retryOpts []resilience.Option
	logger    logger.Logger
}

func New(cfg Config, deps Deps, log logger.Logger) (*Orchestrator, error) {
	if cfg.MaxIntentIterations <= 0 {
		cfg.MaxIntentIterations = DefaultConfig().MaxIntentIterations
	}
	if cfg.ForecastHorizonDays <= 0 {
		cfg.ForecastHorizonDays = DefaultConfig().ForecastHorizonDays
	}

	o := &Orchestrator{
		config:    cfg,
		stages:    make(map[gems.StageID]Stage, len(deps.Stages)),
		searcher:  deps.Searcher,
		filter:    deps.Filter,
		enricher:  deps.Enricher,
		weather:   deps.Weather,
		decoder:   deps.Decoder,
		obs:       deps.Observability,
		now:       deps.Clock,
		retryOpts: append([]resilience.Option{resilience.WithLogger(log)}, deps.RetryOptions...),
		logger:    log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
	for _, s := range deps.Stages {
		o.stages[s.ID()] = s
	}

	required := []gems.StageID{gems.StageIntent, gems.StageRecommend, gems.StageAdvice, gems.StageConversation}
	if o.searcher == nil {
		required = append(required, gems.StageDiscovery)
	}
	for _, id := range required {
		if _, ok := o.stages[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingStage, id)
		}
	}

	if o.searcher == nil {
		o.searcher = NewStageSearcher(o.stages[gems.StageDiscovery])
	}
	if o.filter == nil {
		o.filter = filter.NewEngine(filter.DefaultConfig(), log)
	}
	if o.enricher == nil {
		o.enricher = enrich.NewEnricher(nil, enrich.DefaultConfig(), log)
	}
	if o.decoder == nil {
		o.decoder = decoder.New()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// NewSession starts a session in INTENT.
func (o *Orchestrator) NewSession() *Session {
	return newSession(o, o.now())
}

// Send processes one user message.
func (o *Orchestrator) Send(ctx context.Context, s *Session, message string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	reply, err := o.dispatch(ctx, s, message)
	o.obs.RecordRun(ctx, "send", runStatus(reply, err), time.Since(start))
	return reply, err
}

// Discover runs a whole request to a result, answering any clarification
// question with AutoConfirm.
func (o *Orchestrator) Discover(ctx context.Context, s *Session, query string) (gems.CanonicalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if s.state.Phase != PhaseIntent {
		o.logger.Info("starting a new request", map[string]interface{}{
			"sessionId": s.ID,
			"phase":     s.state.Phase,
		})
	}
	s.state.resetRequest()

	reply, err := o.dispatch(ctx, s, query)
	for i := 0; err == nil && reply.Kind == ReplyQuestion && i < o.config.MaxIntentIterations; i++ {
		reply, err = o.dispatch(ctx, s, AutoConfirm)
	}
	o.obs.RecordRun(ctx, "discover", runStatus(reply, err), time.Since(start))
	if err != nil {
		return gems.CanonicalResult{}, err
	}
	if reply.Result == nil {
		return gems.CanonicalResult{}, apperrors.NewInternalError(fmt.Errorf("discover ended in %s without a result", reply.Phase))
	}
	return *reply.Result, nil
}

// Select picks one of the gems from the last result and returns advice
// for visiting it.
func (o *Orchestrator) Select(ctx context.Context, s *Session, selection string) (gems.AdviceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	st := &s.state
	if st.LastResult == nil || st.LastResult.Status != gems.StatusSuccess ||
		(st.Phase != PhaseAwaitSelection && st.Phase != PhaseConversation) {
		return gems.AdviceResult{}, apperrors.NewInvalidRequestError("there are no recommendations to choose from yet")
	}

	gem, ok := matchSelection(offered(st), selection)
	if !ok {
		return gems.AdviceResult{}, apperrors.NewInvalidSelectionError(selection)
	}
	if st.Phase == PhaseConversation {
		if err := o.advance(ctx, s, PhaseAwaitSelection); err != nil {
			return gems.AdviceResult{}, err
		}
	}
	s.touch(o.now())
	st.UserMessages = append(st.UserMessages, selection)
	st.record(RoleUser, selection)

	reply, err := o.advise(ctx, s, gem)
	o.obs.RecordRun(ctx, "select", runStatus(reply, err), time.Since(start))
	if err != nil {
		return gems.AdviceResult{}, err
	}
	return *reply.Advice, nil
}

// Chat sends a message and returns the reply as text.
func (o *Orchestrator) Chat(ctx context.Context, s *Session, message string) (string, error) {
	reply, err := o.Send(ctx, s, message)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, s *Session, message string) (Reply, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return Reply{}, apperrors.NewInvalidRequestError("message is empty")
	}
	s.touch(o.now())
	st := &s.state

	switch st.Phase {
	case PhaseIntent:
		return o.clarify(ctx, s, msg)

	case PhaseAwaitSelection:
		if gem, ok := matchSelection(offered(st), msg); ok {
			st.UserMessages = append(st.UserMessages, msg)
			st.record(RoleUser, msg)
			return o.advise(ctx, s, gem)
		}
		if isFreshRequest(msg) {
			return o.restart(ctx, s, msg)
		}
		st.record(RoleUser, msg)
		if err := o.advance(ctx, s, PhaseAwaitSelection); err != nil {
			return Reply{}, err
		}
		question := "I didn't catch which one you meant. " + selectionPrompt(offered(st))
		st.record(RoleAssistant, question)
		return Reply{Kind: ReplyQuestion, Phase: st.Phase, Text: question}, nil

	case PhaseConversation:
		if isFreshRequest(msg) {
			return o.restart(ctx, s, msg)
		}
		return o.converse(ctx, s, msg)

	default:
		o.logger.Warn("session was interrupted mid-request, starting over", map[string]interface{}{
			"sessionId": s.ID,
			"phase":     st.Phase,
		})
		st.resetRequest()
		return o.clarify(ctx, s, msg)
	}
}

func (o *Orchestrator) restart(ctx context.Context, s *Session, msg string) (Reply, error) {
	if err := o.advance(ctx, s, PhaseIntent); err != nil {
		return Reply{}, err
	}
	s.state.resetRequest()
	return o.clarify(ctx, s, msg)
}

// clarify runs one intent iteration and moves on to discovery when the
// stage escalates or the iteration limit is reached.
func (o *Orchestrator) clarify(ctx context.Context, s *Session, msg string) (Reply, error) {
	st := &s.state
	st.UserMessages = append(st.UserMessages, msg)
	st.record(RoleUser, msg)
	st.IterationCount++

	out, err := o.runStage(ctx, gems.StageIntent, o.intentInput(st), o.config.Tight)
	if err != nil {
		if isHardFailure(ctx, err) {
			return Reply{}, err
		}
		o.logger.Warn("intent stage failed, searching with what we have", map[string]interface{}{
			"sessionId": s.ID,
			"iteration": st.IterationCount,
			"error":     err.Error(),
		})
	}

	text := strings.TrimSpace(escalatePattern.ReplaceAllString(out, ""))
	escalated := escalatePattern.MatchString(out)
	st.record(RoleAssistant, text)

	if err == nil && !escalated && st.IterationCount < o.config.MaxIntentIterations {
		if err := o.advance(ctx, s, PhaseIntent); err != nil {
			return Reply{}, err
		}
		return Reply{Kind: ReplyQuestion, Phase: PhaseIntent, Text: text}, nil
	}

	st.IntentSummary = intentSummary(st.UserMessages, text)
	o.logger.Info("intent understood", map[string]interface{}{
		"sessionId": s.ID,
		"iteration": st.IterationCount,
		"escalated": escalated,
	})
	return o.discover(ctx, s)
}

func (o *Orchestrator) discover(ctx context.Context, s *Session) (Reply, error) {
	st := &s.state

	if err := o.advance(ctx, s, PhaseDiscovery); err != nil {
		return Reply{}, err
	}
	candidates, err := resilience.Do(ctx, o.config.Loose, func(ctx context.Context) ([]gems.Candidate, error) {
		return o.searcher.SearchCandidates(ctx, st.IntentSummary)
	}, o.retryOpts...)
	if err != nil {
		return o.fail(ctx, s, gems.StageDiscovery, err)
	}

	if err := o.advance(ctx, s, PhaseFilter); err != nil {
		return Reply{}, err
	}
	scored, err := o.filter.Filter(candidates)
	if errors.Is(err, filter.ErrZeroGems) {
		return o.finish(ctx, s, gems.NewZeroGems(gems.ZeroGemsMessage))
	}
	if err != nil {
		return o.fail(ctx, s, gems.StageDiscovery, err)
	}

	if err := o.advance(ctx, s, PhaseRecommend); err != nil {
		return Reply{}, err
	}
	enriched := o.enricher.Enrich(ctx, scored)
	if len(enriched) == 0 {
		return o.finish(ctx, s, gems.NewZeroGems(gems.ZeroGemsMessage))
	}

	input, err := json.Marshal(recommendPayload{
		Status:  gems.StatusSuccess,
		Request: st.IntentSummary,
		Gems:    enriched,
	})
	if err != nil {
		return o.fail(ctx, s, gems.StageRecommend, err)
	}
	raw, err := o.runStage(ctx, gems.StageRecommend, string(input), o.config.Loose)
	if err != nil {
		return o.fail(ctx, s, gems.StageRecommend, err)
	}

	result, strategy := o.decoder.Trace(raw)
	if result.Status == gems.StatusError {
		o.logger.Warn("recommendation output undecodable, using enriched gems", map[string]interface{}{
			"sessionId": s.ID,
			"message":   result.Message,
		})
		result = gems.CanonicalResult{Status: gems.StatusSuccess, Gems: enriched}
	} else {
		o.logger.Debug("recommendation decoded", map[string]interface{}{
			"sessionId": s.ID,
			"strategy":  strategy,
			"gems":      len(result.Gems),
		})
	}
	mergeEnriched(&result, enriched)
	return o.finish(ctx, s, result)
}

type recommendPayload struct {
	Status  gems.Status `json:"status"`
	Request string      `json:"request,omitempty"`
	Gems    []gems.Gem  `json:"gems"`
}

// mergeEnriched fills fields the recommendation stage dropped from the
// enriched gem of the same name. Gems with no enriched counterpart were
// never discovered and are dropped; if none survive the enriched gems are
// used as they are.
func mergeEnriched(result *gems.CanonicalResult, enriched []gems.Gem) {
	kept := make([]gems.Gem, 0, len(result.Gems))
	seen := make(map[string]bool, len(result.Gems))
	for _, g := range result.Gems {
		src, ok := findByName(enriched, g.Name)
		if !ok || seen[src.Name] {
			continue
		}
		seen[src.Name] = true
		if g.Coordinates.IsZero() {
			g.Coordinates = src.Coordinates
		}
		if g.MapURL == "" {
			g.MapURL = src.MapURL
		}
		if g.Address == "" || g.Address == gems.DefaultAddress {
			g.Address = src.Address
		}
		if onlyPlaceholder(g.PhotoURLs) {
			g.PhotoURLs = src.PhotoURLs
		}
		if len(g.ReviewExcerpts) == 0 {
			g.ReviewExcerpts = src.ReviewExcerpts
		}
		if g.ReviewCount == 0 {
			g.ReviewCount = src.ReviewCount
		}
		if g.Rating == 0 {
			g.Rating = src.Rating
		}
		kept = append(kept, g)
	}
	if len(kept) == 0 && len(result.Gems) > 0 {
		kept = append(kept, enriched...)
		result.Status = gems.StatusSuccess
	}
	result.Gems = kept
	result.Normalize()
}

func findByName(list []gems.Gem, name string) (gems.Gem, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return gems.Gem{}, false
	}
	for _, g := range list {
		if strings.ToLower(g.Name) == n {
			return g, true
		}
	}
	for _, g := range list {
		other := strings.ToLower(g.Name)
		if other != "" && (strings.Contains(other, n) || strings.Contains(n, other)) {
			return g, true
		}
	}
	return gems.Gem{}, false
}

func offered(st *PipelineState) []gems.Gem {
	if st.LastResult == nil {
		return nil
	}
	return st.LastResult.Gems
}

func onlyPlaceholder(photos []string) bool {
	return len(photos) == 0 || (len(photos) == 1 && photos[0] == gems.PlaceholderPhoto)
}

// finish stores a result. A success waits for a selection; anything else
// resets the session so the next message starts a new request.
func (o *Orchestrator) finish(ctx context.Context, s *Session, result gems.CanonicalResult) (Reply, error) {
	st := &s.state
	result.Normalize()
	st.LastResult = &result
	text := RenderResult(result)
	st.record(RoleAssistant, text)

	if result.Status == gems.StatusSuccess {
		if err := o.advance(ctx, s, PhaseAwaitSelection); err != nil {
			return Reply{}, err
		}
	} else {
		if err := o.advance(ctx, s, PhaseIntent); err != nil {
			return Reply{}, err
		}
		st.resetRequest()
	}

	o.logger.Info("request finished", map[string]interface{}{
		"sessionId": s.ID,
		"status":    result.Status,
		"gems":      len(result.Gems),
	})
	return Reply{Kind: ReplyResult, Phase: st.Phase, Text: text, Result: &result}, nil
}

// fail turns a collaborator failure into an ERROR result, unless the
// collaborator is unavailable or the caller went away.
func (o *Orchestrator) fail(ctx context.Context, s *Session, stage gems.StageID, err error) (Reply, error) {
	if isHardFailure(ctx, err) {
		return Reply{}, err
	}
	o.logger.Error("stage failed", map[string]interface{}{
		"sessionId": s.ID,
		"stage":     stage,
		"phase":     s.state.Phase,
		"error":     err.Error(),
	})
	return o.finish(ctx, s, gems.NewError(failureMessage))
}

// advise builds visit advice for the chosen gem.
func (o *Orchestrator) advise(ctx context.Context, s *Session, gem gems.Gem) (Reply, error) {
	st := &s.state
	if err := o.advance(ctx, s, PhaseAdvice); err != nil {
		return Reply{}, err
	}
	st.Selected = &gem

	city := CityFromAddress(gem.Address, gem.Name)
	date, _ := InferTravelDate(st.UserMessages, o.now())
	note, checked := o.weatherNote(ctx, s, city, date)

	var advice gems.AdviceResult
	raw, err := o.runStage(ctx, gems.StageAdvice, adviceInput(gem, city, date, note, st.IntentSummary), o.config.Loose)
	if err != nil {
		if isHardFailure(ctx, err) {
			// stay selectable so the caller can retry
			st.Phase = PhaseAwaitSelection
			return Reply{}, err
		}
		o.logger.Error("advice stage failed", map[string]interface{}{
			"sessionId": s.ID,
			"gem":       gem.Name,
			"error":     err.Error(),
		})
		advice = gems.AdviceResult{
			Summary: fmt.Sprintf("I couldn't put together detailed advice for %s right now. Its best time to visit is: %s.", gem.Name, gem.Analysis.BestTime),
		}
	} else {
		advice = decoder.DecodeAdvice(raw)
	}

	advice.City = city
	advice.TravelDate = date.Format("2006-01-02")
	advice.WeatherChecked = checked
	if advice.BestTimeMatch == "" {
		advice.BestTimeMatch = gem.Analysis.BestTime
	}
	st.Advice = &advice

	text := renderAdvice(advice)
	st.record(RoleAssistant, text)
	if err := o.advance(ctx, s, PhaseConversation); err != nil {
		return Reply{}, err
	}
	return Reply{Kind: ReplyAdvice, Phase: st.Phase, Text: text, Advice: &advice}, nil
}

// weatherNote returns the forecast for city on date, or the seasonal
// instruction when the date is past the horizon or the forecast fails.
func (o *Orchestrator) weatherNote(ctx context.Context, s *Session, city string, date time.Time) (string, bool) {
	seasonal := SeasonalInstruction(date, city)

	daysOut := daysUntil(o.now(), date)
	if daysOut > o.config.ForecastHorizonDays {
		rangeErr := apperrors.NewUnsupportedForecastRangeError(daysOut, o.config.ForecastHorizonDays)
		o.logger.Info("travel date beyond forecast horizon", map[string]interface{}{
			"sessionId": s.ID,
			"code":      rangeErr.Code,
			"daysOut":   daysOut,
			"city":      city,
		})
		return fmt.Sprintf("The travel date is %d days away, too far ahead for an accurate forecast. %s.", daysOut, seasonal), false
	}
	if o.weather == nil || city == "" {
		return seasonal + ".", false
	}

	forecast, err := resilience.Do(ctx, o.config.Tight, func(ctx context.Context) (*weather.Forecast, error) {
		return o.weather.Forecast(ctx, city, weather.SingleDay(date))
	}, o.retryOpts...)
	if err != nil {
		o.logger.Warn("weather lookup failed, using seasonal knowledge", map[string]interface{}{
			"sessionId": s.ID,
			"city":      city,
			"error":     err.Error(),
		})
		return seasonal + ".", false
	}
	return fmt.Sprintf("Forecast for %s:\n%s", city, forecast.Describe()), true
}

func (o *Orchestrator) converse(ctx context.Context, s *Session, msg string) (Reply, error) {
	st := &s.state
	input := o.conversationInput(st, msg)
	st.record(RoleUser, msg)

	text := chatFailureMessage
	raw, err := o.runStage(ctx, gems.StageConversation, input, o.config.Loose)
	switch {
	case err != nil && isHardFailure(ctx, err):
		return Reply{}, err
	case err != nil:
		o.logger.Error("conversation stage failed", map[string]interface{}{
			"sessionId": s.ID,
			"error":     err.Error(),
		})
	default:
		if t := decoder.ExtractText(raw); t != "" {
			text = t
		}
	}

	st.record(RoleAssistant, text)
	if err := o.advance(ctx, s, PhaseConversation); err != nil {
		return Reply{}, err
	}
	return Reply{Kind: ReplyText, Phase: st.Phase, Text: text}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, id gems.StageID, input string, policy resilience.Policy) (string, error) {
	stage := o.stages[id]
	return resilience.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return stage.Run(ctx, input)
	}, o.retryOpts...)
}

// advance moves the session to the next phase. It refuses once ctx is done.
func (o *Orchestrator) advance(ctx context.Context, s *Session, to Phase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := s.state.Phase
	if !canTransition(from, to) {
		return apperrors.NewInternalError(fmt.Errorf("illegal phase transition %s -> %s", from, to))
	}
	o.logger.Info("phase transition", map[string]interface{}{
		"sessionId": s.ID,
		"phase":     from,
		"nextPhase": to,
		"iteration": s.state.IterationCount,
	})
	o.obs.RecordTransition(ctx, string(from), string(to))
	s.state.Phase = to
	return nil
}

func isHardFailure(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		apperrors.HasCode(err, apperrors.ErrCodeCollaboratorUnavailable)
}

func runStatus(r Reply, err error) string {
	switch {
	case err != nil:
		return "error"
	case r.Result != nil:
		return string(r.Result.Status)
	default:
		return string(r.Kind)
	}
}

func (o *Orchestrator) intentInput(st *PipelineState) string {
	var parts []string
	parts = append(parts, "Conversation so far:")
	for _, t := range requestTurns(st) {
		parts = append(parts, fmt.Sprintf("%s: %s", t.Role, t.Text))
	}
	if st.IterationCount >= o.config.MaxIntentIterations {
		parts = append(parts, "\nThis is the last question turn. Summarize what you know and escalate.")
	}
	return strings.Join(parts, "\n")
}

// requestTurns returns the turns of the current request.
func requestTurns(st *PipelineState) []Turn {
	n := len(st.UserMessages)*2 - 1
	if n < 1 {
		n = 1
	}
	if n > len(st.Transcript) {
		n = len(st.Transcript)
	}
	return st.Transcript[len(st.Transcript)-n:]
}

func intentSummary(messages []string, clarified string) string {
	var parts []string
	parts = append(parts, "Traveller request:")
	for _, m := range messages {
		if m == AutoConfirm {
			continue
		}
		parts = append(parts, "- "+m)
	}
	if clarified != "" {
		parts = append(parts, "Clarified intent: "+clarified)
	}
	return strings.Join(parts, "\n")
}

func adviceInput(gem gems.Gem, city string, date time.Time, weatherNote, intent string) string {
	if city == "" {
		city = "unknown"
	}
	parts := []string{
		fmt.Sprintf("Place: %s", gem.Name),
		fmt.Sprintf("Address: %s", gem.Address),
		fmt.Sprintf("City: %s", city),
		fmt.Sprintf("Travel date: %s (%s)", date.Format("2006-01-02"), date.Weekday()),
		fmt.Sprintf("Best time to visit: %s", gem.Analysis.BestTime),
	}
	if intent != "" {
		parts = append(parts, "\n"+intent)
	}
	parts = append(parts, "\nWeather:", weatherNote)
	return strings.Join(parts, "\n")
}

func (o *Orchestrator) conversationInput(st *PipelineState, msg string) string {
	var parts []string
	if st.Selected != nil {
		parts = append(parts, fmt.Sprintf("Chosen place: %s, %s", st.Selected.Name, st.Selected.Address))
	}
	if st.Advice != nil {
		parts = append(parts, "Advice given: "+st.Advice.Summary)
	}
	turns := st.Transcript
	if len(turns) > transcriptWindow {
		turns = turns[len(turns)-transcriptWindow:]
	}
	parts = append(parts, "\nConversation so far:")
	for _, t := range turns {
		parts = append(parts, fmt.Sprintf("%s: %s", t.Role, t.Text))
	}
	parts = append(parts, fmt.Sprintf("\n%s: %s", RoleUser, msg))
	return strings.Join(parts, "\n")
}
