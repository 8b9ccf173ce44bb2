package app

import (
	"context"
	"time"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// Backend is the progress backend a learner session talks to. It is
// implemented in-process by ProgressService and remotely by rest.Client.
type Backend interface {
	LearningPath(ctx context.Context, learnerID, projectID string) (domain.LearningPathView, error)
	QuizProgress(ctx context.Context, learnerID, quizID string) (domain.QuizProgress, error)
	QuizEligibility(ctx context.Context, learnerID, quizID string) (bool, error)
	SubmitQuizAttempt(ctx context.Context, req domain.SubmitQuizRequest) (domain.SubmitAck, error)
	UpdateVideoProgress(ctx context.Context, update domain.VideoProgressUpdate) error
	CompleteVideo(ctx context.Context, completion domain.VideoCompletion) (domain.CompletionAck, error)
	SaveNotebookEntries(ctx context.Context, update domain.NotebookUpdate) error
}

// CatalogRepository loads read-only course content (from cache/backing store).
type CatalogRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetProject(ctx context.Context, projectID string) (domain.Project, error)
}

// ProgressRepository stores learner progress (in-memory, Postgres).
type ProgressRepository interface {
	// QuizProgress reports false when the learner never submitted the quiz.
	QuizProgress(ctx context.Context, learnerID, quizID string) (domain.QuizProgress, bool, error)
	SaveQuizProgress(ctx context.Context, learnerID string, progress domain.QuizProgress) error
	QuizResults(ctx context.Context, learnerID string, quizIDs []string) (map[string]domain.QuizProgress, error)

	CompletedVideos(ctx context.Context, learnerID, projectID string) ([]string, error)
	// MarkVideoCompleted is idempotent; watched minutes are only added to
	// the project the first time a video completes.
	MarkVideoCompleted(ctx context.Context, learnerID string, ref domain.VideoRef, watchedMinutes int, at time.Time) (bool, error)

	// SaveResumePoint keeps the point with the highest Seq and reports
	// whether rp was applied.
	SaveResumePoint(ctx context.Context, learnerID string, rp domain.ResumePoint) (bool, error)
	ResumePoint(ctx context.Context, learnerID string) (domain.ResumePoint, bool, error)

	SaveNotebook(ctx context.Context, learnerID string, ref domain.VideoRef, entries []domain.NotebookEntry) error
	Notebook(ctx context.Context, learnerID, projectID string) (map[string][]domain.NotebookEntry, error)

	ProjectStats(ctx context.Context, learnerID, projectID string) (domain.ProjectStats, error)
	// TouchProject records that the learner started the project and raises
	// its progress percentage to at least percent. The percentage never
	// decreases and the completion date is set on reaching 100.
	TouchProject(ctx context.Context, learnerID, projectID string, percent int, at time.Time) (domain.ProjectStats, error)
}

// SessionRepository tracks live learner sessions. At most one session per
// learner may hold a claim.
type SessionRepository interface {
	Claim(ctx context.Context, session *Session) error
	Get(learnerID string) (*Session, bool)
	Touch(ctx context.Context, session *Session) error
	Release(ctx context.Context, session *Session)
}
