package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	first := app.NewSession("learner-1", nil)
	if err := store.Claim(ctx, first); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got, ok := store.Get("learner-1"); !ok || got != first {
		t.Fatalf("expected session present")
	}

	second := app.NewSession("learner-1", nil)
	if err := store.Claim(ctx, second); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	store.Release(ctx, second)
	if _, ok := store.Get("learner-1"); !ok {
		t.Fatalf("release by another session must not drop the claim")
	}

	store.Release(ctx, first)
	if _, ok := store.Get("learner-1"); ok {
		t.Fatalf("expected session removed")
	}
	if err := store.Touch(ctx, first); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected touch on released session to fail, got %v", err)
	}
}
