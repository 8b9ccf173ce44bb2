package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Rohan-80800/PositLearn-sub001/internal/app"
	"github.com/Rohan-80800/PositLearn-sub001/internal/domain"
)

func TestSessionStoreClaimsAndReleases(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, nil)

	session := app.NewSession("learner-1", nil)
	if err := store.Claim(ctx, session); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got, _ := mr.Get("positlearn:session:learner-1"); got != session.ID() {
		t.Fatalf("expected claim key to hold session id, got %q", got)
	}

	// Another instance sharing the same redis must be refused.
	other := NewSessionStore(client, time.Minute, nil)
	if err := other.Claim(ctx, app.NewSession("learner-1", nil)); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	store.Release(ctx, session)
	if mr.Exists("positlearn:session:learner-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("learner-1"); ok {
		t.Fatalf("expected local session removed")
	}
}

func TestSessionStoreClaimExpiresWithoutTouch(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, nil)

	session := app.NewSession("learner-1", nil)
	if err := store.Claim(ctx, session); err != nil {
		t.Fatalf("claim: %v", err)
	}

	mr.FastForward(40 * time.Second)
	if err := store.Touch(ctx, session); err != nil {
		t.Fatalf("touch: %v", err)
	}
	mr.FastForward(40 * time.Second)
	if !mr.Exists("positlearn:session:learner-1") {
		t.Fatalf("expected touch to extend the claim")
	}

	mr.FastForward(2 * time.Minute)
	if err := store.Touch(ctx, session); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected expired claim, got %v", err)
	}
	if err := store.Claim(ctx, app.NewSession("learner-1", nil)); err != nil {
		t.Fatalf("expected claim after expiry: %v", err)
	}
}

func TestSessionStoreReleaseKeepsForeignClaim(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, nil)

	stale := app.NewSession("learner-1", nil)
	if err := mr.Set("positlearn:session:learner-1", "someone-else"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store.Release(ctx, stale)
	if !mr.Exists("positlearn:session:learner-1") {
		t.Fatalf("release must not delete another session's claim")
	}
}
