package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/memory"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/rest"
	httptransport "github.com/Rohan-80800/PositLearn-sub001/internal/transport/http"
)

var _ app.Backend = (*rest.Client)(nil)

func sampleProject() domain.Project {
	return domain.Project{
		ID: "project-1",
		Modules: []domain.Module{{
			ID:     "module-1",
			Videos: []domain.Video{{ID: "v1"}},
			Quizzes: []domain.Quiz{{
				ID:        "quiz-1",
				VideoIDs:  []string{"v1"},
				Questions: []domain.Question{{Text: "2 + 2?", Options: []string{"3", "4"}, Correct: "4"}},
			}},
		}},
	}
}

func newClient(t *testing.T) *rest.Client {
	t.Helper()
	catalog, err := memory.NewStaticCatalog(sampleProject())
	require.NoError(t, err)
	service := app.NewProgressService(memory.NewCatalogRepository(catalog, time.Minute), memory.NewProgressStore(), nil)
	server := httptest.NewServer(httptransport.NewRouter(httptransport.NewRESTHandler(service), nil, nil))
	t.Cleanup(server.Close)
	return rest.NewClient(server.URL+"/", time.Second, nil)
}

func TestClientRoundTrip(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	eligible, err := client.QuizEligibility(ctx, "learner-1", "quiz-1")
	require.NoError(t, err)
	assert.False(t, eligible)

	ack, err := client.CompleteVideo(ctx, domain.VideoCompletion{
		LearnerID: "learner-1", ProjectID: "project-1", ModuleID: "module-1", VideoID: "v1", WatchedMinutes: 1,
	})
	require.NoError(t, err)
	assert.True(t, ack.NewlyCompleted)
	assert.Equal(t, 50, ack.ProgressPercentage)

	submitAck, err := client.SubmitQuizAttempt(ctx, domain.SubmitQuizRequest{
		LearnerID: "learner-1", QuizID: "quiz-1", ProjectID: "project-1", ModuleID: "module-1",
		AttemptNo: 1, Answers: []string{"4"}, ClientScore: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, submitAck.MaxScore)

	require.NoError(t, client.UpdateVideoProgress(ctx, domain.VideoProgressUpdate{
		LearnerID: "learner-1", ProjectID: "project-1", ModuleID: "module-1", VideoID: "v1",
		SavedTimeSeconds: 12, LastBreakpointIndex: 1, Seq: 3,
	}))
	require.NoError(t, client.SaveNotebookEntries(ctx, domain.NotebookUpdate{
		LearnerID: "learner-1", ProjectID: "project-1", ModuleID: "module-1", VideoID: "v1",
		Entries: []domain.NotebookEntry{{AtSeconds: 1, Text: "hi"}},
	}))

	view, err := client.LearningPath(ctx, "learner-1", "project-1")
	require.NoError(t, err)
	assert.True(t, view.CertificateEligible)
	require.NotNil(t, view.Resume)
	assert.Equal(t, uint64(3), view.Resume.Seq)

	p, err := client.QuizProgress(ctx, "learner-1", "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Attempts)
}

func TestClientMapsErrorCodes(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	_, err := client.QuizProgress(ctx, "learner-1", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.Status)

	_, err = client.SubmitQuizAttempt(ctx, domain.SubmitQuizRequest{
		LearnerID: "learner-1", QuizID: "quiz-1", ProjectID: "project-1", ModuleID: "module-1",
		AttemptNo: 1, Answers: []string{"4"},
	})
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	// Invalid requests never leave the process.
	_, err = client.CompleteVideo(ctx, domain.VideoCompletion{LearnerID: "learner-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.False(t, errors.As(err, &te))
}

func TestClientRejectsMalformedResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/quizzes/progress/learner-1/quiz-1":
			_, _ = w.Write([]byte(`{"data":{"quizId":"quiz-1","maxScore":250}}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer server.Close()
	client := rest.NewClient(server.URL, time.Second, nil)
	ctx := context.Background()

	_, err := client.QuizProgress(ctx, "learner-1", "quiz-1")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = client.QuizEligibility(ctx, "learner-1", "quiz-1")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := rest.NewClient(url, 200*time.Millisecond, nil)
	_, err := client.QuizEligibility(context.Background(), "learner-1", "quiz-1")
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "QuizEligibility", te.Op)
}
