package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

func TestProgressStoreResumePointLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	applied, err := store.SaveResumePoint(ctx, "l1", domain.ResumePoint{VideoID: "v1", SavedTimeSeconds: 40, Seq: 10})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.SaveResumePoint(ctx, "l1", domain.ResumePoint{VideoID: "v1", SavedTimeSeconds: 20, Seq: 5})
	require.NoError(t, err)
	assert.False(t, applied, "older write must not override a newer one")

	rp, ok, err := store.ResumePoint(ctx, "l1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40.0, rp.SavedTimeSeconds)
}

func TestProgressStoreVideoCompletionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	ref := domain.VideoRef{ProjectID: "p1", ModuleID: "m1", VideoID: "v1"}
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	newly, err := store.MarkVideoCompleted(ctx, "l1", ref, 4, at)
	require.NoError(t, err)
	assert.True(t, newly)
	newly, err = store.MarkVideoCompleted(ctx, "l1", ref, 4, at)
	require.NoError(t, err)
	assert.False(t, newly)

	ids, err := store.CompletedVideos(ctx, "l1", "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids)

	stats, err := store.ProjectStats(ctx, "l1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.LearningMinutes)

	ids, err = store.CompletedVideos(ctx, "l2", "p1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProgressStoreTouchProjectIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	stats, err := store.TouchProject(ctx, "l1", "p1", 60, at)
	require.NoError(t, err)
	assert.Equal(t, 60, stats.ProgressPercentage)
	require.NotNil(t, stats.StartedAt)
	assert.Nil(t, stats.CompletedAt)

	stats, _ = store.TouchProject(ctx, "l1", "p1", 40, at.Add(time.Hour))
	assert.Equal(t, 60, stats.ProgressPercentage)
	assert.Equal(t, at, *stats.StartedAt)

	stats, _ = store.TouchProject(ctx, "l1", "p1", 100, at.Add(2*time.Hour))
	require.NotNil(t, stats.CompletedAt)
	assert.Equal(t, at.Add(2*time.Hour), *stats.CompletedAt)
}

func TestProgressStoreQuizResultsAndNotebook(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()

	require.NoError(t, store.SaveQuizProgress(ctx, "l1", domain.QuizProgress{QuizID: "q1", MaxScore: 80, Attempts: 2, Answers: []string{"a"}}))
	results, err := store.QuizResults(ctx, "l1", []string{"q1", "q2"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 80, results["q1"].MaxScore)

	ref := domain.VideoRef{ProjectID: "p1", ModuleID: "m1", VideoID: "v1"}
	require.NoError(t, store.SaveNotebook(ctx, "l1", ref, []domain.NotebookEntry{{AtSeconds: 12, Text: "defer runs LIFO"}}))
	nb, err := store.Notebook(ctx, "l1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "defer runs LIFO", nb["v1"][0].Text)
}
