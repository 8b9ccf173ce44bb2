package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions live in a local map; Redis holds one claim key per learner
// (value = session id, with TTL) so a learner cannot hold live sessions on
// two instances. Claims are refreshed by Touch and expire if the owning
// instance dies.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// releaseScript deletes the claim only if it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// touchScript extends the claim only if it still belongs to the caller.
var touchScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

func NewSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Claim(ctx context.Context, session *app.Session) error {
	ok, err := s.client.SetNX(ctx, s.key(session.LearnerID()), session.ID(), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionActive
	}
	s.mu.Lock()
	s.sessions[session.LearnerID()] = session
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(learnerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[learnerID]
	return session, ok
}

func (s *SessionStore) Touch(ctx context.Context, session *app.Session) error {
	n, err := touchScript.Run(ctx, s.client, []string{s.key(session.LearnerID())}, session.ID(), s.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionClosed
	}
	return nil
}

func (s *SessionStore) Release(ctx context.Context, session *app.Session) {
	s.mu.Lock()
	if cur, ok := s.sessions[session.LearnerID()]; ok && cur == session {
		delete(s.sessions, session.LearnerID())
	}
	s.mu.Unlock()

	// best-effort; the TTL clears the claim otherwise
	if err := releaseScript.Run(ctx, s.client, []string{s.key(session.LearnerID())}, session.ID()).Err(); err != nil {
		s.logger.Warn("release session claim failed", zap.String("learnerId", session.LearnerID()), zap.Error(err))
	}
}

func (s *SessionStore) key(learnerID string) string {
	return "positlearn:session:" + learnerID
}
