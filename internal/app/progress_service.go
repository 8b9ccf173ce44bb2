package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/metrics"
	"github.com/Rohan-80800/PositLearn-sub001/internal/tracker"
)

// ProgressService is the authoritative progress backend: it re-scores
// submissions, decides eligibility and owns the project completion percent.
type ProgressService struct {
	catalog  CatalogRepository
	progress ProgressRepository
	logger   *zap.Logger
	now      func() time.Time

	// locks serializes read-modify-write cycles per learner.
	locksMu sync.Mutex
	locks   map[string]*learnerLock
}

type learnerLock struct {
	mu   sync.Mutex
	refs int
}

func NewProgressService(catalog CatalogRepository, progress ProgressRepository, logger *zap.Logger) *ProgressService {
	return NewProgressServiceWithClock(catalog, progress, logger, time.Now)
}

// NewProgressServiceWithClock is test-only for deterministic timestamps.
func NewProgressServiceWithClock(catalog CatalogRepository, progress ProgressRepository, logger *zap.Logger, now func() time.Time) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		catalog:  catalog,
		progress: progress,
		logger:   logger,
		now:      now,
		locks:    make(map[string]*learnerLock),
	}
}

var _ Backend = (*ProgressService)(nil)

// LearningPath assembles the learner's view of a project.
func (s *ProgressService) LearningPath(ctx context.Context, learnerID, projectID string) (domain.LearningPathView, error) {
	if learnerID == "" || projectID == "" {
		return domain.LearningPathView{}, fmt.Errorf("%w: learnerId and projectId are required", domain.ErrInvalidRequest)
	}
	project, err := s.catalog.GetProject(ctx, projectID)
	if err != nil {
		return domain.LearningPathView{}, err
	}
	completed, err := s.progress.CompletedVideos(ctx, learnerID, projectID)
	if err != nil {
		return domain.LearningPathView{}, fmt.Errorf("completed videos: %w", err)
	}
	results, err := s.progress.QuizResults(ctx, learnerID, quizIDs(project))
	if err != nil {
		return domain.LearningPathView{}, fmt.Errorf("quiz results: %w", err)
	}
	notebook, err := s.progress.Notebook(ctx, learnerID, projectID)
	if err != nil {
		return domain.LearningPathView{}, fmt.Errorf("notebook: %w", err)
	}
	stats, err := s.progress.ProjectStats(ctx, learnerID, projectID)
	if err != nil {
		return domain.LearningPathView{}, fmt.Errorf("project stats: %w", err)
	}

	view := BuildView(project, completed, results, notebook)
	view.Stats = stats
	if rp, ok, err := s.progress.ResumePoint(ctx, learnerID); err != nil {
		return domain.LearningPathView{}, fmt.Errorf("resume point: %w", err)
	} else if ok && rp.ProjectID == projectID {
		view.Resume = &rp
	}
	return view, nil
}

// QuizProgress returns the stored attempts; a learner who never submitted
// gets zero progress.
func (s *ProgressService) QuizProgress(ctx context.Context, learnerID, quizID string) (domain.QuizProgress, error) {
	if _, err := s.catalog.GetQuiz(ctx, quizID); err != nil {
		return domain.QuizProgress{}, err
	}
	p, ok, err := s.progress.QuizProgress(ctx, learnerID, quizID)
	if err != nil {
		return domain.QuizProgress{}, fmt.Errorf("quiz progress: %w", err)
	}
	if !ok {
		p = domain.QuizProgress{QuizID: quizID, Answers: []string{}}
	}
	p.TotalPoints = domain.TotalPoints
	return p, nil
}

// QuizEligibility reports whether every prerequisite video is completed.
func (s *ProgressService) QuizEligibility(ctx context.Context, learnerID, quizID string) (bool, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return false, err
	}
	return s.eligible(ctx, learnerID, quiz)
}

func (s *ProgressService) eligible(ctx context.Context, learnerID string, quiz domain.Quiz) (bool, error) {
	if len(quiz.VideoIDs) == 0 {
		return true, nil
	}
	completed, err := s.progress.CompletedVideos(ctx, learnerID, quiz.ProjectID)
	if err != nil {
		return false, fmt.Errorf("completed videos: %w", err)
	}
	return tracker.QuizUnlocked(quiz, completed), nil
}

// SubmitQuizAttempt grades and stores one attempt. Replaying the stored
// attempt number with the same answers, or an older attempt number,
// returns the stored result; replaying it with other answers is
// ErrAttemptConflict.
func (s *ProgressService) SubmitQuizAttempt(ctx context.Context, req domain.SubmitQuizRequest) (domain.SubmitAck, error) {
	if err := domain.Validate(req); err != nil {
		return domain.SubmitAck{}, err
	}
	quiz, err := s.catalog.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.SubmitAck{}, err
	}
	if len(req.Answers) != len(quiz.Questions) {
		return domain.SubmitAck{}, fmt.Errorf("%w: %d answers for %d questions", domain.ErrInvalidRequest, len(req.Answers), len(quiz.Questions))
	}
	for _, a := range req.Answers {
		if a == "" {
			return domain.SubmitAck{}, domain.ErrIncompleteAnswers
		}
	}

	unlock := s.lock(req.LearnerID)
	defer unlock()

	prev, found, err := s.progress.QuizProgress(ctx, req.LearnerID, req.QuizID)
	if err != nil {
		return domain.SubmitAck{}, fmt.Errorf("quiz progress: %w", err)
	}
	if found && req.AttemptNo == prev.Attempts && !slices.Equal(req.Answers, prev.Answers) {
		return domain.SubmitAck{}, fmt.Errorf("%w: attempt %d of %s", domain.ErrAttemptConflict, req.AttemptNo, req.QuizID)
	}
	if found && req.AttemptNo <= prev.Attempts {
		return ackFor(prev, s.now()), nil
	}
	if found && prev.MaxScore >= domain.TotalPoints {
		return domain.SubmitAck{}, domain.ErrAlreadyMastered
	}
	ok, err := s.eligible(ctx, req.LearnerID, quiz)
	if err != nil {
		return domain.SubmitAck{}, err
	}
	if !ok {
		return domain.SubmitAck{}, domain.ErrNotEligible
	}

	score, _ := tracker.Score(quiz, req.Answers)
	if score != req.ClientScore {
		s.logger.Warn("client score differs from server score",
			zap.String("learnerId", req.LearnerID),
			zap.String("quizId", req.QuizID),
			zap.Int("clientScore", req.ClientScore),
			zap.Int("score", score))
	}

	now := s.now().UTC()
	next := domain.QuizProgress{
		QuizID:      req.QuizID,
		MaxScore:    max(prev.MaxScore, score),
		Score:       score,
		TotalPoints: domain.TotalPoints,
		Attempts:    req.AttemptNo,
		Answers:     append([]string(nil), req.Answers...),
		Status:      domain.ResultFor(score),
		CompletedAt: &now,
	}
	if err := s.progress.SaveQuizProgress(ctx, req.LearnerID, next); err != nil {
		return domain.SubmitAck{}, fmt.Errorf("save quiz progress: %w", err)
	}
	metrics.QuizSubmissions.WithLabelValues(string(next.Status)).Inc()

	if _, err := s.refreshProject(ctx, req.LearnerID, quiz.ProjectID, now); err != nil {
		s.logger.Warn("refresh project progress failed", zap.String("learnerId", req.LearnerID), zap.Error(err))
	}
	return ackFor(next, now), nil
}

// UpdateVideoProgress stores the learner's resume point; the write with
// the highest Seq wins.
func (s *ProgressService) UpdateVideoProgress(ctx context.Context, update domain.VideoProgressUpdate) error {
	if err := domain.Validate(update); err != nil {
		return err
	}
	now := s.now().UTC()
	applied, err := s.progress.SaveResumePoint(ctx, update.LearnerID, domain.ResumePoint{
		ProjectID:           update.ProjectID,
		ModuleID:            update.ModuleID,
		VideoID:             update.VideoID,
		SavedTimeSeconds:    update.SavedTimeSeconds,
		LastBreakpointIndex: update.LastBreakpointIndex,
		Seq:                 update.Seq,
		UpdatedAt:           now,
	})
	if err != nil {
		return fmt.Errorf("save resume point: %w", err)
	}
	if !applied {
		s.logger.Debug("older resume point ignored", zap.String("learnerId", update.LearnerID), zap.Uint64("seq", update.Seq))
	}
	if _, err := s.progress.TouchProject(ctx, update.LearnerID, update.ProjectID, 0, now); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}

// CompleteVideo marks a video watched and returns the project progress.
func (s *ProgressService) CompleteVideo(ctx context.Context, completion domain.VideoCompletion) (domain.CompletionAck, error) {
	if err := domain.Validate(completion); err != nil {
		return domain.CompletionAck{}, err
	}
	project, err := s.catalog.GetProject(ctx, completion.ProjectID)
	if err != nil {
		return domain.CompletionAck{}, err
	}
	if !containsVideo(project, completion.ModuleID, completion.VideoID) {
		return domain.CompletionAck{}, fmt.Errorf("%w: video %s is not part of module %s", domain.ErrInvalidRequest, completion.VideoID, completion.ModuleID)
	}

	unlock := s.lock(completion.LearnerID)
	defer unlock()

	now := s.now().UTC()
	ref := domain.VideoRef{ProjectID: completion.ProjectID, ModuleID: completion.ModuleID, VideoID: completion.VideoID}
	newly, err := s.progress.MarkVideoCompleted(ctx, completion.LearnerID, ref, completion.WatchedMinutes, now)
	if err != nil {
		return domain.CompletionAck{}, fmt.Errorf("mark video completed: %w", err)
	}
	if newly {
		metrics.VideoCompletions.Inc()
	}
	stats, err := s.refreshProject(ctx, completion.LearnerID, completion.ProjectID, now)
	if err != nil {
		return domain.CompletionAck{}, err
	}
	if completion.ProgressPercentage != stats.ProgressPercentage {
		s.logger.Debug("client progress differs",
			zap.Int("client", completion.ProgressPercentage),
			zap.Int("server", stats.ProgressPercentage))
	}
	return domain.CompletionAck{
		NewlyCompleted:      newly,
		ProgressPercentage:  stats.ProgressPercentage,
		CertificateEligible: tracker.CertificateEligible(stats.ProgressPercentage),
	}, nil
}

// SaveNotebookEntries replaces the notes of one video.
func (s *ProgressService) SaveNotebookEntries(ctx context.Context, update domain.NotebookUpdate) error {
	if err := domain.Validate(update); err != nil {
		return err
	}
	ref := domain.VideoRef{ProjectID: update.ProjectID, ModuleID: update.ModuleID, VideoID: update.VideoID}
	if err := s.progress.SaveNotebook(ctx, update.LearnerID, ref, update.Entries); err != nil {
		return fmt.Errorf("save notebook: %w", err)
	}
	return nil
}

// refreshProject recomputes the completion percent from stored progress
// and raises the stored project percentage to it.
func (s *ProgressService) refreshProject(ctx context.Context, learnerID, projectID string, at time.Time) (domain.ProjectStats, error) {
	project, err := s.catalog.GetProject(ctx, projectID)
	if err != nil {
		return domain.ProjectStats{}, err
	}
	completed, err := s.progress.CompletedVideos(ctx, learnerID, projectID)
	if err != nil {
		return domain.ProjectStats{}, fmt.Errorf("completed videos: %w", err)
	}
	results, err := s.progress.QuizResults(ctx, learnerID, quizIDs(project))
	if err != nil {
		return domain.ProjectStats{}, fmt.Errorf("quiz results: %w", err)
	}
	tallies := make([]tracker.ModuleTally, 0, len(project.Modules))
	for _, m := range project.Modules {
		tallies = append(tallies, tracker.Tally(m, completed, results))
	}
	c := tracker.ComputeCompletion(tallies)
	stats, err := s.progress.TouchProject(ctx, learnerID, projectID, c.Percent, at)
	if err != nil {
		return domain.ProjectStats{}, fmt.Errorf("touch project: %w", err)
	}
	return stats, nil
}

func (s *ProgressService) lock(learnerID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[learnerID]
	if !ok {
		l = &learnerLock{}
		s.locks[learnerID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, learnerID)
		}
		s.locksMu.Unlock()
	}
}

// BuildView assembles a learning path view from catalog content and the
// learner's progress.
func BuildView(project domain.Project, completedVideoIDs []string, results map[string]domain.QuizProgress, notebook map[string][]domain.NotebookEntry) domain.LearningPathView {
	if results == nil {
		results = map[string]domain.QuizProgress{}
	}
	done := make(map[string]struct{}, len(completedVideoIDs))
	for _, id := range completedVideoIDs {
		done[id] = struct{}{}
	}

	view := domain.LearningPathView{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Modules:     make([]domain.ModuleView, 0, len(project.Modules)),
		QuizResults: results,
	}
	for _, m := range project.Modules {
		mv := domain.ModuleView{Module: m, CompletedVideos: []string{}}
		for _, v := range m.Videos {
			if _, ok := done[v.ID]; ok {
				mv.CompletedVideos = append(mv.CompletedVideos, v.ID)
			}
			if entries, ok := notebook[v.ID]; ok {
				if mv.Notebook == nil {
					mv.Notebook = make(map[string][]domain.NotebookEntry)
				}
				mv.Notebook[v.ID] = entries
			}
		}
		mv.Items = markItems(tracker.Sequence(m), mv.CompletedVideos, results)
		view.Modules = append(view.Modules, mv)
	}
	view.Completion = tracker.ViewCompletion(view)
	view.CertificateEligible = tracker.CertificateEligible(view.Completion.Percent)
	return view
}

func markItems(items []domain.PathItem, completedVideoIDs []string, results map[string]domain.QuizProgress) []domain.PathItem {
	done := make(map[string]struct{}, len(completedVideoIDs))
	for _, id := range completedVideoIDs {
		done[id] = struct{}{}
	}
	for i := range items {
		switch items[i].Kind {
		case domain.ItemVideo:
			_, items[i].Completed = done[items[i].ID]
		case domain.ItemQuiz:
			items[i].Completed = results[items[i].ID].MaxScore >= domain.TotalPoints
		}
	}
	return items
}

func ackFor(p domain.QuizProgress, fallback time.Time) domain.SubmitAck {
	at := fallback.UTC()
	if p.CompletedAt != nil {
		at = *p.CompletedAt
	}
	return domain.SubmitAck{MaxScore: p.MaxScore, Score: p.Score, Attempts: p.Attempts, CompletedAt: at}
}

func quizIDs(project domain.Project) []string {
	var ids []string
	for _, m := range project.Modules {
		for _, q := range m.Quizzes {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

func containsVideo(project domain.Project, moduleID, videoID string) bool {
	for _, m := range project.Modules {
		if m.ID != moduleID {
			continue
		}
		for _, v := range m.Videos {
			if v.ID == videoID {
				return true
			}
		}
	}
	return false
}
