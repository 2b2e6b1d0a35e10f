package main

import (
	"context"
	"strings"
	"testing"

	"lingoquest/models"
	"lingoquest/services"
	"lingoquest/testutil"

	"golang.org/x/crypto/bcrypt"
)

func TestLoadSchedule(t *testing.T) {
	days, err := loadSchedule(strings.NewReader(`[
		{"challenge_date": "2024-02-01",
		 "beginner": {"exercise_id": 1, "base_xp_reward": 20},
		 "intermediate": {"exercise_id": 2, "base_xp_reward": 30},
		 "advanced": {"exercise_id": 3, "base_xp_reward": 40, "top1_achievement_id": 9}}
	]`))
	if err != nil {
		t.Fatalf("loadSchedule: %v", err)
	}
	if len(days) != 1 || days[0].Date != "2024-02-01" || days[0].Advanced.BaseXPReward != 40 {
		t.Fatalf("unexpected schedule %+v", days)
	}
	if days[0].Advanced.Top1AchievementID == nil || *days[0].Advanced.Top1AchievementID != 9 {
		t.Fatalf("achievement id not decoded")
	}

	if _, err := loadSchedule(strings.NewReader(`[{"date": "2024-02-01"}]`)); err == nil {
		t.Fatalf("unknown fields must be rejected")
	}
}

func TestImportSchedule(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ex := testutil.CreateExercise(t, db, "schedule")
	catalog := services.NewCatalog(db, nil)

	bundle := services.TierBundle{ExerciseID: ex.ID, BaseXPReward: 25}
	days := []services.BatchInput{
		{Date: "2024-02-01", Beginner: bundle, Intermediate: bundle, Advanced: bundle},
		{Date: "2024-02-02", Beginner: bundle, Intermediate: bundle, Advanced: bundle},
		{Date: "2024-02-03", Beginner: bundle, Intermediate: services.TierBundle{ExerciseID: 999}, Advanced: bundle},
	}

	report := importSchedule(context.Background(), catalog, days)
	if report.Created != 6 || report.Skipped != 0 || len(report.Failed) != 1 {
		t.Fatalf("first import = %+v", report)
	}
	if _, ok := report.Failed["2024-02-03"]; !ok {
		t.Fatalf("expected 2024-02-03 to fail, got %v", report.Failed)
	}

	report = importSchedule(context.Background(), catalog, days[:2])
	if report.Created != 0 || report.Skipped != 2 {
		t.Fatalf("second import = %+v", report)
	}

	var count int64
	db.Model(&models.DailyChallenge{}).Count(&count)
	if count != 6 {
		t.Fatalf("challenges = %d, want 6", count)
	}
}

func TestCreateAdmin(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ctx := context.Background()

	if _, err := createAdmin(ctx, db, "ops", "short"); err == nil {
		t.Fatalf("short password must be rejected")
	}

	user, err := createAdmin(ctx, db, "ops", "a-long-enough-password")
	if err != nil {
		t.Fatalf("createAdmin: %v", err)
	}
	if !user.IsAdmin {
		t.Fatalf("user must be admin")
	}

	existing := testutil.CreateUser(t, db, "player", 3)
	promoted, err := createAdmin(ctx, db, "player", "another-long-password")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	var reloaded models.User
	db.First(&reloaded, existing.ID)
	if promoted.ID != existing.ID || !reloaded.IsAdmin {
		t.Fatalf("existing user not promoted: %+v", reloaded)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(reloaded.Password), []byte("another-long-password")); err != nil {
		t.Fatalf("password not updated: %v", err)
	}
}
