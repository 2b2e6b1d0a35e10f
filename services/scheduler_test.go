package services

import (
	"testing"

	"lingoquest/models"
)

func TestPrizeSchedulerRejectsBadSpec(t *testing.T) {
	env := newTestEnv(t, "")
	if _, err := NewPrizeScheduler(env.svc.Prizes, env.svc.Calendar, "every morning", nil); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestPrizeSchedulerRunOnce(t *testing.T) {
	env := newTestEnv(t, "2024-01-02T03:00:00Z")
	c := env.challenge(t, "2024-01-01", models.DifficultyBeginner, 0, 0)

	s, err := NewPrizeScheduler(env.svc.Prizes, env.svc.Calendar, "5 0 * * *", nil)
	if err != nil {
		t.Fatalf("NewPrizeScheduler: %v", err)
	}
	s.RunOnce()

	if got := env.reloadChallenge(t, c.ID); !got.WinnersAwarded {
		t.Fatalf("RunOnce did not award the closed challenge")
	}
}
