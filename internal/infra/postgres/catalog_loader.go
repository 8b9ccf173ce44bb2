package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// CatalogLoader loads course content stored as JSONB from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (l *CatalogLoader) LoadProject(ctx context.Context, projectID string) (domain.Project, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM projects WHERE id=$1`, projectID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("load project: %w", err)
	}
	var project domain.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return domain.Project{}, fmt.Errorf("unmarshal project: %w", err)
	}
	return project, nil
}

// SaveProject upserts a project and its quizzes in one transaction.
// The project is expected to be normalized (parent ids stamped).
func (l *CatalogLoader) SaveProject(ctx context.Context, project domain.Project) error {
	if err := domain.Validate(project); err != nil {
		return err
	}
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO projects (id, data, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
			project.ID, data); err != nil {
			return fmt.Errorf("upsert project: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM quizzes WHERE project_id = $1`, project.ID); err != nil {
			return fmt.Errorf("clear quizzes: %w", err)
		}
		for _, m := range project.Modules {
			for _, q := range m.Quizzes {
				qdata, err := json.Marshal(q)
				if err != nil {
					return fmt.Errorf("marshal quiz: %w", err)
				}
				if _, err := tx.Exec(ctx,
					`INSERT INTO quizzes (id, project_id, module_id, data) VALUES ($1, $2, $3, $4)
					 ON CONFLICT (id) DO UPDATE SET project_id = EXCLUDED.project_id, module_id = EXCLUDED.module_id, data = EXCLUDED.data`,
					q.ID, project.ID, m.ID, qdata); err != nil {
					return fmt.Errorf("upsert quiz %s: %w", q.ID, err)
				}
			}
		}
		return nil
	})
}
