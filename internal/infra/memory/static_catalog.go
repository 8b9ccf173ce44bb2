package memory

import (
	"context"
	"fmt"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

// StaticCatalog is a loader backed by in-memory projects (useful for tests/demos).
type StaticCatalog struct {
	projects map[string]domain.Project
	quizzes  map[string]domain.Quiz
}

// NewStaticCatalog indexes the projects and their quizzes. Module and quiz
// parent ids are filled in from their position in the tree.
func NewStaticCatalog(projects ...domain.Project) (*StaticCatalog, error) {
	c := &StaticCatalog{
		projects: make(map[string]domain.Project, len(projects)),
		quizzes:  make(map[string]domain.Quiz),
	}
	for _, p := range projects {
		p = Normalize(p)
		if err := domain.Validate(p); err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		c.projects[p.ID] = p
		for _, m := range p.Modules {
			for _, q := range m.Quizzes {
				if _, dup := c.quizzes[q.ID]; dup {
					return nil, fmt.Errorf("%w: duplicate quiz id %s", domain.ErrInvalidRequest, q.ID)
				}
				c.quizzes[q.ID] = q
			}
		}
	}
	return c, nil
}

func (c *StaticCatalog) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (c *StaticCatalog) LoadProject(_ context.Context, projectID string) (domain.Project, error) {
	if project, ok := c.projects[projectID]; ok {
		return project, nil
	}
	return domain.Project{}, domain.ErrProjectNotFound
}

// Projects returns every project of the catalog.
func (c *StaticCatalog) Projects() []domain.Project {
	out := make([]domain.Project, 0, len(c.projects))
	for _, p := range c.projects {
		out = append(out, p)
	}
	return out
}

// Normalize stamps parent ids on modules and quizzes.
func Normalize(p domain.Project) domain.Project {
	modules := make([]domain.Module, len(p.Modules))
	for i, m := range p.Modules {
		m.ProjectID = p.ID
		quizzes := make([]domain.Quiz, len(m.Quizzes))
		for j, q := range m.Quizzes {
			q.ProjectID = p.ID
			q.ModuleID = m.ID
			quizzes[j] = q
		}
		m.Quizzes = quizzes
		modules[i] = m
	}
	p.Modules = modules
	return p
}
