package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gem-finder/internal/gems"

	"github.com/google/uuid"
)

// Phase is a state of the per-session pipeline.
type Phase string

const (
	PhaseIntent         Phase = "INTENT"
	PhaseDiscovery      Phase = "DISCOVERY"
	PhaseFilter         Phase = "FILTER"
	PhaseRecommend      Phase = "RECOMMEND"
	PhaseAwaitSelection Phase = "AWAIT_SELECTION"
	PhaseAdvice         Phase = "ADVICE"
	PhaseConversation   Phase = "CONVERSATION"
)

// transitions lists the phases each phase may move to.
var transitions = map[Phase][]Phase{
	PhaseIntent:         {PhaseIntent, PhaseDiscovery},
	PhaseDiscovery:      {PhaseFilter, PhaseIntent},
	PhaseFilter:         {PhaseRecommend, PhaseIntent},
	PhaseRecommend:      {PhaseAwaitSelection, PhaseIntent},
	PhaseAwaitSelection: {PhaseAwaitSelection, PhaseAdvice, PhaseIntent},
	PhaseAdvice:         {PhaseConversation, PhaseAwaitSelection},
	PhaseConversation:   {PhaseConversation, PhaseAwaitSelection, PhaseIntent},
}

func canTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role
	Text string
}

// PipelineState is everything a session remembers between messages.
type PipelineState struct {
	Phase          Phase
	IterationCount int
	UserMessages   []string
	IntentSummary  string
	LastResult     *gems.CanonicalResult
	Selected       *gems.Gem
	Advice         *gems.AdviceResult
	Transcript     []Turn
}

// resetRequest starts a fresh request. The transcript is kept.
func (s *PipelineState) resetRequest() {
	s.Phase = PhaseIntent
	s.IterationCount = 0
	s.UserMessages = nil
	s.IntentSummary = ""
	s.Selected = nil
	s.Advice = nil
}

func (s *PipelineState) record(role Role, text string) {
	if text == "" {
		return
	}
	s.Transcript = append(s.Transcript, Turn{Role: role, Text: text})
}

// Session is one user's conversation. Calls on a session are serialized.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	state      PipelineState
	lastActive atomic.Int64
	orch       *Orchestrator
}

func newSession(o *Orchestrator, now time.Time) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		state:     PipelineState{Phase: PhaseIntent},
		orch:      o,
	}
	s.touch(now)
	return s
}

func (s *Session) touch(t time.Time) {
	s.lastActive.Store(t.UnixNano())
}

// Send feeds one user message into the session's state machine.
func (s *Session) Send(ctx context.Context, message string) (Reply, error) {
	return s.orch.Send(ctx, s, message)
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() PipelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.UserMessages = append([]string(nil), s.state.UserMessages...)
	st.Transcript = append([]Turn(nil), s.state.Transcript...)
	return st
}

// LastActive reports when the session last received a message. It does
// not wait for a running request.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

type ReplyKind string

const (
	ReplyQuestion ReplyKind = "question"
	ReplyResult   ReplyKind = "result"
	ReplyAdvice   ReplyKind = "advice"
	ReplyText     ReplyKind = "text"
)

// Reply is what one Send produces.
type Reply struct {
	Kind   ReplyKind
	Phase  Phase
	Text   string
	Result *gems.CanonicalResult
	Advice *gems.AdviceResult
}
