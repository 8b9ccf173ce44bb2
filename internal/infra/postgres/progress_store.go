package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// ProgressStore implements app.ProgressRepository on Postgres.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) QuizProgress(ctx context.Context, learnerID, quizID string) (domain.QuizProgress, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT quiz_id, max_score, score, attempts, answers, status, completed_at
		 FROM quiz_progress WHERE learner_id=$1 AND quiz_id=$2`, learnerID, quizID)
	p, err := scanQuizProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizProgress{}, false, nil
	}
	if err != nil {
		return domain.QuizProgress{}, false, fmt.Errorf("load quiz progress: %w", err)
	}
	return p, true, nil
}

func (s *ProgressStore) SaveQuizProgress(ctx context.Context, learnerID string, p domain.QuizProgress) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_progress (learner_id, quiz_id, max_score, score, attempts, answers, status, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (learner_id, quiz_id) DO UPDATE SET
		   max_score = GREATEST(quiz_progress.max_score, EXCLUDED.max_score),
		   score = EXCLUDED.score,
		   attempts = GREATEST(quiz_progress.attempts, EXCLUDED.attempts),
		   answers = EXCLUDED.answers,
		   status = EXCLUDED.status,
		   completed_at = EXCLUDED.completed_at`,
		learnerID, p.QuizID, p.MaxScore, p.Score, p.Attempts, answers, string(p.Status), p.CompletedAt)
	if err != nil {
		return fmt.Errorf("save quiz progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) QuizResults(ctx context.Context, learnerID string, quizIDs []string) (map[string]domain.QuizProgress, error) {
	out := make(map[string]domain.QuizProgress)
	if len(quizIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT quiz_id, max_score, score, attempts, answers, status, completed_at
		 FROM quiz_progress WHERE learner_id=$1 AND quiz_id = ANY($2)`, learnerID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("query quiz results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanQuizProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		out[p.QuizID] = p
	}
	return out, rows.Err()
}

func (s *ProgressStore) CompletedVideos(ctx context.Context, learnerID, projectID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT video_id FROM video_completions WHERE learner_id=$1 AND project_id=$2 ORDER BY video_id`,
		learnerID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query completed videos: %w", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed video: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ProgressStore) MarkVideoCompleted(ctx context.Context, learnerID string, ref domain.VideoRef, watchedMinutes int, at time.Time) (bool, error) {
	newly := false
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO video_completions (learner_id, video_id, project_id, module_id, watched_minutes, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (learner_id, video_id) DO NOTHING`,
			learnerID, ref.VideoID, ref.ProjectID, ref.ModuleID, watchedMinutes, at)
		if err != nil {
			return fmt.Errorf("insert completion: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		newly = true
		_, err = tx.Exec(ctx,
			`INSERT INTO project_progress (learner_id, project_id, learning_minutes, started_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (learner_id, project_id) DO UPDATE SET
			   learning_minutes = project_progress.learning_minutes + EXCLUDED.learning_minutes,
			   started_at = COALESCE(project_progress.started_at, EXCLUDED.started_at)`,
			learnerID, ref.ProjectID, watchedMinutes, at)
		if err != nil {
			return fmt.Errorf("add learning minutes: %w", err)
		}
		return nil
	})
	return newly, err
}

func (s *ProgressStore) SaveResumePoint(ctx context.Context, learnerID string, rp domain.ResumePoint) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO resume_points (learner_id, project_id, module_id, video_id, saved_time_seconds, last_breakpoint_index, seq, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (learner_id) DO UPDATE SET
		   project_id = EXCLUDED.project_id,
		   module_id = EXCLUDED.module_id,
		   video_id = EXCLUDED.video_id,
		   saved_time_seconds = EXCLUDED.saved_time_seconds,
		   last_breakpoint_index = EXCLUDED.last_breakpoint_index,
		   seq = EXCLUDED.seq,
		   updated_at = EXCLUDED.updated_at
		 WHERE resume_points.seq < EXCLUDED.seq`,
		learnerID, rp.ProjectID, rp.ModuleID, rp.VideoID, rp.SavedTimeSeconds, rp.LastBreakpointIndex, int64(rp.Seq), rp.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("save resume point: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *ProgressStore) ResumePoint(ctx context.Context, learnerID string) (domain.ResumePoint, bool, error) {
	var (
		rp  domain.ResumePoint
		seq int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT project_id, module_id, video_id, saved_time_seconds, last_breakpoint_index, seq, updated_at
		 FROM resume_points WHERE learner_id=$1`, learnerID).
		Scan(&rp.ProjectID, &rp.ModuleID, &rp.VideoID, &rp.SavedTimeSeconds, &rp.LastBreakpointIndex, &seq, &rp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResumePoint{}, false, nil
	}
	if err != nil {
		return domain.ResumePoint{}, false, fmt.Errorf("load resume point: %w", err)
	}
	rp.Seq = uint64(seq)
	return rp, true, nil
}

func (s *ProgressStore) SaveNotebook(ctx context.Context, learnerID string, ref domain.VideoRef, entries []domain.NotebookEntry) error {
	if entries == nil {
		entries = []domain.NotebookEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal notebook: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO notebooks (learner_id, video_id, project_id, module_id, entries, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (learner_id, video_id) DO UPDATE SET entries = EXCLUDED.entries, updated_at = now()`,
		learnerID, ref.VideoID, ref.ProjectID, ref.ModuleID, data)
	if err != nil {
		return fmt.Errorf("save notebook: %w", err)
	}
	return nil
}

func (s *ProgressStore) Notebook(ctx context.Context, learnerID, projectID string) (map[string][]domain.NotebookEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT video_id, entries FROM notebooks WHERE learner_id=$1 AND project_id=$2`, learnerID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query notebook: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]domain.NotebookEntry)
	for rows.Next() {
		var (
			videoID string
			raw     []byte
		)
		if err := rows.Scan(&videoID, &raw); err != nil {
			return nil, fmt.Errorf("scan notebook: %w", err)
		}
		var entries []domain.NotebookEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("unmarshal notebook: %w", err)
		}
		out[videoID] = entries
	}
	return out, rows.Err()
}

func (s *ProgressStore) ProjectStats(ctx context.Context, learnerID, projectID string) (domain.ProjectStats, error) {
	var stats domain.ProjectStats
	err := s.pool.QueryRow(ctx,
		`SELECT progress_percentage, learning_minutes, started_at, completed_at
		 FROM project_progress WHERE learner_id=$1 AND project_id=$2`, learnerID, projectID).
		Scan(&stats.ProgressPercentage, &stats.LearningMinutes, &stats.StartedAt, &stats.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProjectStats{}, nil
	}
	if err != nil {
		return domain.ProjectStats{}, fmt.Errorf("load project stats: %w", err)
	}
	return stats, nil
}

func (s *ProgressStore) TouchProject(ctx context.Context, learnerID, projectID string, percent int, at time.Time) (domain.ProjectStats, error) {
	var stats domain.ProjectStats
	err := s.pool.QueryRow(ctx,
		`INSERT INTO project_progress (learner_id, project_id, progress_percentage, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, CASE WHEN $3 >= 100 THEN $4::timestamptz END)
		 ON CONFLICT (learner_id, project_id) DO UPDATE SET
		   progress_percentage = GREATEST(project_progress.progress_percentage, EXCLUDED.progress_percentage),
		   started_at = COALESCE(project_progress.started_at, EXCLUDED.started_at),
		   completed_at = COALESCE(project_progress.completed_at,
		     CASE WHEN GREATEST(project_progress.progress_percentage, EXCLUDED.progress_percentage) >= 100 THEN EXCLUDED.started_at END)
		 RETURNING progress_percentage, learning_minutes, started_at, completed_at`,
		learnerID, projectID, percent, at).
		Scan(&stats.ProgressPercentage, &stats.LearningMinutes, &stats.StartedAt, &stats.CompletedAt)
	if err != nil {
		return domain.ProjectStats{}, fmt.Errorf("touch project: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuizProgress(row rowScanner) (domain.QuizProgress, error) {
	var (
		p       domain.QuizProgress
		answers []byte
		status  string
	)
	if err := row.Scan(&p.QuizID, &p.MaxScore, &p.Score, &p.Attempts, &answers, &status, &p.CompletedAt); err != nil {
		return domain.QuizProgress{}, err
	}
	if err := json.Unmarshal(answers, &p.Answers); err != nil {
		return domain.QuizProgress{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	p.Status = domain.QuizResult(status)
	p.TotalPoints = domain.TotalPoints
	return p, nil
}
