package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// CatalogLoader fetches course content from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	LoadProject(ctx context.Context, projectID string) (domain.Project, error)
}

// CatalogRepository caches quizzes and projects with TTL to avoid repeated DB hits.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu       sync.RWMutex
	rnd      *rand.Rand
	quizzes  map[string]cached[domain.Quiz]
	projects map[string]cached[domain.Project]
}

type cached[T any] struct {
	value     T
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader:   loader,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		quizzes:  make(map[string]cached[domain.Quiz]),
		projects: make(map[string]cached[domain.Project]),
	}
}

func (r *CatalogRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return load(r, ctx, "quiz:", quizID, r.quizzes, func(ctx context.Context) (domain.Quiz, error) {
		return r.loader.LoadQuiz(ctx, quizID)
	})
}

func (r *CatalogRepository) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	return load(r, ctx, "project:", projectID, r.projects, func(ctx context.Context) (domain.Project, error) {
		return r.loader.LoadProject(ctx, projectID)
	})
}

// load reads id through cache, collapsing concurrent misses per prefix+id.
func load[T any](r *CatalogRepository, ctx context.Context, prefix, id string, cache map[string]cached[T], fetch func(context.Context) (T, error)) (T, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.value, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(prefix+id, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.value, nil
		}
		r.mu.RUnlock()

		value, err := fetch(ctx)
		if err != nil {
			return value, err
		}

		r.mu.Lock()
		cache[id] = cached[T]{value: value, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// ttlWithJitter must be called with r.mu held for writing.
func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
