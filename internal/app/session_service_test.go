package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
	"github.com/Rohan-80800/PositLearn-sub001/internal/infra/memory"
)

func TestSessionServiceOneSessionPerLearner(t *testing.T) {
	f := newFixture(t)
	svc := app.NewSessionService(memory.NewSessionStore(), f.service, nil, time.Second)
	ctx := context.Background()

	session, view, err := svc.Join(ctx, learner, "project-1")
	require.NoError(t, err)
	assert.Equal(t, "project-1", view.ProjectID)
	got, ok := svc.Get(learner)
	require.True(t, ok)
	assert.Same(t, session, got)
	require.NoError(t, svc.KeepAlive(ctx, session))

	_, _, err = svc.Join(ctx, learner, "project-1")
	assert.ErrorIs(t, err, domain.ErrSessionActive)

	svc.Leave(ctx, session)
	_, ok = svc.Get(learner)
	assert.False(t, ok)
	assert.ErrorIs(t, svc.KeepAlive(ctx, session), domain.ErrSessionClosed)

	again, _, err := svc.Join(ctx, learner, "project-1")
	require.NoError(t, err)
	svc.Leave(ctx, again)
}

func TestSessionServiceJoinUnknownProjectReleasesClaim(t *testing.T) {
	f := newFixture(t)
	svc := app.NewSessionService(memory.NewSessionStore(), f.service, nil, time.Second)
	ctx := context.Background()

	_, _, err := svc.Join(ctx, learner, "missing")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	_, ok := svc.Get(learner)
	assert.False(t, ok)

	_, _, err = svc.Join(ctx, "", "project-1")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
