package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressRepository.
type ProgressStore struct {
	mu        sync.RWMutex
	quizzes   map[progressKey]domain.QuizProgress
	videos    map[progressKey]completedVideo
	resume    map[string]domain.ResumePoint
	notebooks map[progressKey]notebook
	projects  map[progressKey]domain.ProjectStats
}

// progressKey is learner id plus quiz, video or project id.
type progressKey struct {
	learnerID string
	id        string
}

type completedVideo struct {
	ref         domain.VideoRef
	completedAt time.Time
}

type notebook struct {
	ref     domain.VideoRef
	entries []domain.NotebookEntry
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		quizzes:   make(map[progressKey]domain.QuizProgress),
		videos:    make(map[progressKey]completedVideo),
		resume:    make(map[string]domain.ResumePoint),
		notebooks: make(map[progressKey]notebook),
		projects:  make(map[progressKey]domain.ProjectStats),
	}
}

func (s *ProgressStore) QuizProgress(_ context.Context, learnerID, quizID string) (domain.QuizProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.quizzes[progressKey{learnerID, quizID}]
	return cloneProgress(p), ok, nil
}

func (s *ProgressStore) SaveQuizProgress(_ context.Context, learnerID string, p domain.QuizProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[progressKey{learnerID, p.QuizID}] = cloneProgress(p)
	return nil
}

func (s *ProgressStore) QuizResults(_ context.Context, learnerID string, quizIDs []string) (map[string]domain.QuizProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.QuizProgress)
	for _, id := range quizIDs {
		if p, ok := s.quizzes[progressKey{learnerID, id}]; ok {
			out[id] = cloneProgress(p)
		}
	}
	return out, nil
}

func (s *ProgressStore) CompletedVideos(_ context.Context, learnerID, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	for k, v := range s.videos {
		if k.learnerID == learnerID && v.ref.ProjectID == projectID {
			ids = append(ids, k.id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *ProgressStore) MarkVideoCompleted(_ context.Context, learnerID string, ref domain.VideoRef, watchedMinutes int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{learnerID, ref.VideoID}
	if _, ok := s.videos[key]; ok {
		return false, nil
	}
	s.videos[key] = completedVideo{ref: ref, completedAt: at}
	pk := progressKey{learnerID, ref.ProjectID}
	stats := s.projects[pk]
	stats.LearningMinutes += watchedMinutes
	if stats.StartedAt == nil {
		stats.StartedAt = &at
	}
	s.projects[pk] = stats
	return true, nil
}

func (s *ProgressStore) SaveResumePoint(_ context.Context, learnerID string, rp domain.ResumePoint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.resume[learnerID]; ok && cur.Seq >= rp.Seq {
		return false, nil
	}
	s.resume[learnerID] = rp
	return true, nil
}

func (s *ProgressStore) ResumePoint(_ context.Context, learnerID string) (domain.ResumePoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.resume[learnerID]
	return rp, ok, nil
}

func (s *ProgressStore) SaveNotebook(_ context.Context, learnerID string, ref domain.VideoRef, entries []domain.NotebookEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notebooks[progressKey{learnerID, ref.VideoID}] = notebook{
		ref:     ref,
		entries: append([]domain.NotebookEntry(nil), entries...),
	}
	return nil
}

func (s *ProgressStore) Notebook(_ context.Context, learnerID, projectID string) (map[string][]domain.NotebookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]domain.NotebookEntry)
	for k, nb := range s.notebooks {
		if k.learnerID == learnerID && nb.ref.ProjectID == projectID {
			out[k.id] = append([]domain.NotebookEntry(nil), nb.entries...)
		}
	}
	return out, nil
}

func (s *ProgressStore) ProjectStats(_ context.Context, learnerID, projectID string) (domain.ProjectStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects[progressKey{learnerID, projectID}], nil
}

func (s *ProgressStore) TouchProject(_ context.Context, learnerID, projectID string, percent int, at time.Time) (domain.ProjectStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{learnerID, projectID}
	stats := s.projects[key]
	if stats.StartedAt == nil {
		stats.StartedAt = &at
	}
	if percent > stats.ProgressPercentage {
		stats.ProgressPercentage = percent
	}
	if stats.ProgressPercentage >= 100 && stats.CompletedAt == nil {
		stats.CompletedAt = &at
	}
	s.projects[key] = stats
	return stats, nil
}

func cloneProgress(p domain.QuizProgress) domain.QuizProgress {
	p.Answers = append([]string(nil), p.Answers...)
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		p.CompletedAt = &at
	}
	return p
}
