package api

import (
	"context"
	"sync"
	"time"

	apperrors "gem-finder/internal/common/errors"
	"gem-finder/internal/common/metrics"
	"gem-finder/internal/pipeline"
)

// SessionFactory creates pipeline sessions.
type SessionFactory interface {
	NewSession() *pipeline.Session
}

// SessionStore keeps sessions in memory and evicts them after ttl of
// inactivity.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*pipeline.Session
	factory  SessionFactory
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(factory SessionFactory, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*pipeline.Session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts and stores a new session.
func (s *SessionStore) Create() *pipeline.Session {
	session := s.factory.NewSession()

	s.mu.Lock()
	s.sessions[session.ID] = session
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()
	return session
}

// Get returns the session or SESSION_NOT_FOUND, also for expired ones.
func (s *SessionStore) Get(id string) (*pipeline.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	if s.expired(session) {
		s.remove(id)
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return session, nil
}

// GetOrCreate returns the session for id, or a new one when id is empty.
func (s *SessionStore) GetOrCreate(id string) (*pipeline.Session, error) {
	if id == "" {
		return s.Create(), nil
	}
	return s.Get(id)
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			s.remove(id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) expired(session *pipeline.Session) bool {
	return s.ttl > 0 && s.now().Sub(session.LastActive()) > s.ttl
}

func (s *SessionStore) remove(id string) {
	delete(s.sessions, id)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
}
