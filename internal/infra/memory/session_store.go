package memory

import (
	"context"
	"sync"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Claim(_ context.Context, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[session.LearnerID()]; ok && cur != session {
		return domain.ErrSessionActive
	}
	s.sessions[session.LearnerID()] = session
	return nil
}

func (s *SessionStore) Get(learnerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[learnerID]
	return session, ok
}

func (s *SessionStore) Touch(_ context.Context, session *app.Session) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cur, ok := s.sessions[session.LearnerID()]; !ok || cur != session {
		return domain.ErrSessionClosed
	}
	return nil
}

// Release drops the learner's claim if it still belongs to session.
func (s *SessionStore) Release(_ context.Context, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[session.LearnerID()]; ok && cur == session {
		delete(s.sessions, session.LearnerID())
	}
}
