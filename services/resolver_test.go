package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lingoquest/models"
	"lingoquest/testutil"
)

func TestTierFor(t *testing.T) {
	p := DefaultPolicy().Tiers
	cases := []struct {
		level int
		want  models.Difficulty
	}{
		{1, models.DifficultyBeginner},
		{5, models.DifficultyBeginner},
		{6, models.DifficultyIntermediate},
		{15, models.DifficultyIntermediate},
		{16, models.DifficultyAdvanced},
		{80, models.DifficultyAdvanced},
	}
	for _, tc := range cases {
		if got := p.TierFor(tc.level); got != tc.want {
			t.Errorf("TierFor(%d) = %s, want %s", tc.level, got, tc.want)
		}
	}
}

func TestResolverNoChallengeToday(t *testing.T) {
	env := newTestEnv(t, "")
	u := testutil.CreateUser(t, env.db, "u", 1)
	env.challenge(t, "2024-01-01", models.DifficultyAdvanced, 0, 0)

	view, err := env.svc.Resolver.GetChallengeForUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetChallengeForUser: %v", err)
	}
	if view.HasChallenge || view.Challenge != nil {
		t.Fatalf("expected no beginner challenge, got %+v", view)
	}
	if view.Date != "2024-01-01" || view.Tier != models.DifficultyBeginner {
		t.Fatalf("view date/tier = %s/%s", view.Date, view.Tier)
	}
}

func TestResolverStates(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	c := env.challenge(t, "2024-01-01", models.DifficultyIntermediate, 30, 3)
	u := testutil.CreateUser(t, env.db, "mid", 8)

	view, err := env.svc.Resolver.GetChallengeForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetChallengeForUser: %v", err)
	}
	if !view.HasChallenge || view.Challenge.ID != c.ID || view.Status != models.StatusNotStarted {
		t.Fatalf("initial view = %+v", view)
	}
	if view.AttemptsLeft != 3 || !view.CanAttempt || view.BestScore != nil || view.Rank != 0 {
		t.Fatalf("initial counters = %+v", view)
	}

	env.svc.Ledger.RecordAttempt(ctx, c.ID, u.ID, 40, 50)
	view, _ = env.svc.Resolver.GetChallengeForUser(ctx, u.ID)
	if view.Status != models.StatusInProgress || view.AttemptsLeft != 2 || view.Rank != 1 || *view.BestScore != 40 {
		t.Fatalf("in progress view = %+v", view)
	}

	env.svc.Ledger.RecordAttempt(ctx, c.ID, u.ID, 75, 50)
	view, _ = env.svc.Resolver.GetChallengeForUser(ctx, u.ID)
	if view.Status != models.StatusCompleted || !view.HasPassed || !view.CanAttempt {
		t.Fatalf("completed view = %+v", view)
	}

	env.svc.Ledger.RecordAttempt(ctx, c.ID, u.ID, 60, 50)
	view, _ = env.svc.Resolver.GetChallengeForUser(ctx, u.ID)
	if view.AttemptsLeft != 0 || view.CanAttempt || view.Status != models.StatusCompleted {
		t.Fatalf("spent view = %+v", view)
	}
}

func TestResolverExhaustedAndLocked(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	c := env.challenge(t, "2024-01-01", models.DifficultyBeginner, 0, 0)
	u := testutil.CreateUser(t, env.db, "u", 1)
	for i := 0; i < 3; i++ {
		if _, err := env.svc.Ledger.RecordAttempt(ctx, c.ID, u.ID, 30+i, 60); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	view, _ := env.svc.Resolver.GetChallengeForUser(ctx, u.ID)
	if view.Status != models.StatusExhausted || view.CanAttempt {
		t.Fatalf("exhausted view = %+v", view)
	}

	// next day, before prizes: closed but not locked
	env.clock.Advance(24 * time.Hour)
	view, err := env.svc.Resolver.GetChallengeForUserOn(ctx, u.ID, "2024-01-01")
	if err != nil {
		t.Fatalf("GetChallengeForUserOn: %v", err)
	}
	if view.IsLocked || view.CanAttempt {
		t.Fatalf("closed view = %+v", view)
	}

	if _, err := env.svc.Prizes.AwardWinners(ctx, c.ID); err != nil {
		t.Fatalf("AwardWinners: %v", err)
	}
	view, _ = env.svc.Resolver.GetChallengeForUserOn(ctx, u.ID, "2024-01-01")
	if !view.IsLocked || view.Status != models.StatusLocked || view.Rank != 1 || view.AttemptsUsed != 3 {
		t.Fatalf("locked view = %+v", view)
	}
}

func TestResolverErrors(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	if _, err := env.svc.Resolver.GetChallengeForUser(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	u := testutil.CreateUser(t, env.db, "u", 1)
	if _, err := env.svc.Resolver.GetChallengeForUserOn(ctx, u.ID, "01-01-2024"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResolverKeepsEnteredTierAfterLevelUp(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	beg := env.challenge(t, "2024-01-01", models.DifficultyBeginner, 100, 10)
	env.challenge(t, "2024-01-01", models.DifficultyIntermediate, 100, 10)
	u := testutil.CreateUser(t, env.db, "climber", 5)
	env.db.Model(u).Update("xp", 4150)

	if _, err := env.svc.Ledger.RecordAttempt(ctx, beg.ID, u.ID, 90, 30); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if got := env.reloadUser(t, u.ID); got.Level != 6 {
		t.Fatalf("level = %d, want 6", got.Level)
	}

	view, err := env.svc.Resolver.GetChallengeForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetChallengeForUser: %v", err)
	}
	if view.Tier != models.DifficultyBeginner || view.Challenge.ID != beg.ID {
		t.Fatalf("view tier %s challenge %d, want beginner %d", view.Tier, view.Challenge.ID, beg.ID)
	}
	if view.Status != models.StatusCompleted || view.AttemptsLeft != 2 || view.Challenge.Exercise == nil {
		t.Fatalf("pinned view = %+v", view)
	}

	// a day without an entry resolves by the current level
	env.clock.Advance(24 * time.Hour)
	view, err = env.svc.Resolver.GetChallengeForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetChallengeForUser next day: %v", err)
	}
	if view.Tier != models.DifficultyIntermediate || view.HasChallenge {
		t.Fatalf("next day view = %+v", view)
	}
}
