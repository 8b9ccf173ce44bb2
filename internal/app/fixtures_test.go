package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/memory"
)

const learner = "learner-1"

func sampleProject() domain.Project {
	return domain.Project{
		ID:   "project-1",
		Name: "Go basics",
		Modules: []domain.Module{
			{
				ID:     "module-1",
				Title:  "Syntax",
				Videos: []domain.Video{{ID: "v1", Title: "Hello"}, {ID: "v2", Title: "Types"}},
				Quizzes: []domain.Quiz{{
					ID:       "quiz-1",
					Title:    "Syntax check",
					VideoIDs: []string{"v1", "v2"},
					Questions: []domain.Question{
						{Text: "What is 2 + 2?", Options: []string{"3", "4"}, Correct: "4"},
						{Text: "Language?", Options: []string{"go", "c"}, Correct: "go"},
					},
				}},
			},
			{
				ID:     "module-2",
				Title:  "Wrap up",
				Videos: []domain.Video{{ID: "v3", Title: "Next steps"}},
				Quizzes: []domain.Quiz{{
					ID:        "quiz-2",
					Title:     "Survey",
					Questions: []domain.Question{{Text: "Ready?", Options: []string{"yes", "no"}, Correct: "yes"}},
				}},
			},
		},
	}
}

type fixture struct {
	service  *app.ProgressService
	progress *memory.ProgressStore
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	static, err := memory.NewStaticCatalog(sampleProject())
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
	progress := memory.NewProgressStore()
	service := app.NewProgressServiceWithClock(memory.NewCatalogRepository(static, time.Minute), progress, nil, clock.Now)
	return &fixture{service: service, progress: progress, clock: clock}
}

func (f *fixture) completeVideo(t *testing.T, moduleID, videoID string) domain.CompletionAck {
	t.Helper()
	ack, err := f.service.CompleteVideo(context.Background(), domain.VideoCompletion{
		LearnerID:      learner,
		ProjectID:      "project-1",
		ModuleID:       moduleID,
		VideoID:        videoID,
		WatchedMinutes: 3,
	})
	require.NoError(t, err)
	return ack
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

// gatedBackend delays submissions until release is closed and can fail them.
type gatedBackend struct {
	app.Backend
	release   chan struct{}
	submitErr error
}

func (b *gatedBackend) SubmitQuizAttempt(ctx context.Context, req domain.SubmitQuizRequest) (domain.SubmitAck, error) {
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return domain.SubmitAck{}, ctx.Err()
		}
	}
	if b.submitErr != nil {
		return domain.SubmitAck{}, b.submitErr
	}
	return b.Backend.SubmitQuizAttempt(ctx, req)
}

// lossyBackend stores every submission but drops the acknowledgement of
// the first lost ones.
type lossyBackend struct {
	app.Backend
	mu   sync.Mutex
	lost int
}

func (b *lossyBackend) SubmitQuizAttempt(ctx context.Context, req domain.SubmitQuizRequest) (domain.SubmitAck, error) {
	ack, err := b.Backend.SubmitQuizAttempt(ctx, req)
	if err != nil {
		return ack, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost > 0 {
		b.lost--
		return domain.SubmitAck{}, errBackendDown
	}
	return ack, nil
}

// stallingBackend holds the first progress write until its context ends
// and reports the context error it saw.
type stallingBackend struct {
	app.Backend
	once    sync.Once
	started chan struct{}
	aborted chan error
}

func newStallingBackend(inner app.Backend) *stallingBackend {
	return &stallingBackend{Backend: inner, started: make(chan struct{}), aborted: make(chan error, 1)}
}

func (b *stallingBackend) UpdateVideoProgress(ctx context.Context, update domain.VideoProgressUpdate) error {
	stall := false
	b.once.Do(func() { stall = true })
	if !stall {
		return b.Backend.UpdateVideoProgress(ctx, update)
	}
	close(b.started)
	<-ctx.Done()
	b.aborted <- ctx.Err()
	return ctx.Err()
}

var errBackendDown = &domain.TransportError{Op: "SubmitQuizAttempt", Status: 503, Err: errors.New("unavailable")}

func drain(ch <-chan app.Event) []app.Event {
	var out []app.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(events []app.Event) []app.EventType {
	types := make([]app.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}
