package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	catalog, err := memory.NewStaticCatalog(sampleProject())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	service := app.NewProgressService(memory.NewCatalogRepository(catalog, time.Minute), memory.NewProgressStore(), nil)
	sessions := app.NewSessionService(memory.NewSessionStore(), service, nil, time.Second)
	router := NewRouter(NewRESTHandler(service), NewWSHandler(sessions, nil, WSConfig{}), nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func sampleProject() domain.Project {
	return domain.Project{
		ID:   "project-1",
		Name: "Go basics",
		Modules: []domain.Module{{
			ID:     "module-1",
			Videos: []domain.Video{{ID: "v1", Title: "Hello"}, {ID: "v2", Title: "Types"}},
			Quizzes: []domain.Quiz{
				{
					ID:       "quiz-1",
					VideoIDs: []string{"v1", "v2"},
					Questions: []domain.Question{
						{Text: "What is 2 + 2?", Options: []string{"3", "4"}, Correct: "4"},
					},
				},
				{
					ID:        "quiz-2",
					Questions: []domain.Question{{Text: "Ready?", Options: []string{"yes", "no"}, Correct: "yes"}},
				},
			},
		}},
	}
}
