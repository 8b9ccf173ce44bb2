package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/metrics"
)

// SessionService hosts live learner sessions: one per learner, backed by
// a Backend for all progress reads and writes.
type SessionService struct {
	sessions      SessionRepository
	backend       Backend
	logger        *zap.Logger
	effectTimeout time.Duration
}

func NewSessionService(store SessionRepository, backend Backend, logger *zap.Logger, effectTimeout time.Duration) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: store, backend: backend, logger: logger, effectTimeout: effectTimeout}
}

// Join opens a session for the learner and loads the project's learning
// path. A learner with a live session elsewhere gets ErrSessionActive.
func (s *SessionService) Join(ctx context.Context, learnerID, projectID string) (*Session, domain.LearningPathView, error) {
	if learnerID == "" || projectID == "" {
		return nil, domain.LearningPathView{}, fmt.Errorf("%w: learnerId and projectId are required", domain.ErrInvalidRequest)
	}
	session := NewSession(learnerID, s.backend,
		WithLogger(s.logger),
		WithEffectTimeout(s.effectTimeout),
	)
	if err := s.sessions.Claim(ctx, session); err != nil {
		return nil, domain.LearningPathView{}, err
	}

	view, err := session.LoadPath(ctx, projectID)
	if err != nil {
		s.sessions.Release(ctx, session)
		session.Close()
		return nil, domain.LearningPathView{}, err
	}
	metrics.ActiveSessions.Inc()
	s.logger.Info("learner joined",
		zap.String("learnerId", learnerID),
		zap.String("projectId", projectID),
		zap.String("sessionId", session.ID()))
	return session, view, nil
}

// Get returns the live session of a learner hosted by this instance.
func (s *SessionService) Get(learnerID string) (*Session, bool) {
	return s.sessions.Get(learnerID)
}

// KeepAlive extends the learner's session claim.
func (s *SessionService) KeepAlive(ctx context.Context, session *Session) error {
	return s.sessions.Touch(ctx, session)
}

// Leave closes the session, waiting for its in-flight backend calls, and
// releases the learner's claim.
func (s *SessionService) Leave(ctx context.Context, session *Session) {
	session.Close()
	s.sessions.Release(ctx, session)
	metrics.ActiveSessions.Dec()
	s.logger.Info("learner left",
		zap.String("learnerId", session.LearnerID()),
		zap.String("sessionId", session.ID()))
}
