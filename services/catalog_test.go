package services

import (
	"context"
	"errors"
	"testing"

	"lingoquest/models"
	"lingoquest/testutil"
)

func TestCreateChallengeRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	ex := testutil.CreateExercise(t, env.db, "ex")

	in := ChallengeInput{
		Date:       "2024-01-05",
		Tier:       models.DifficultyBeginner,
		TierBundle: TierBundle{ExerciseID: ex.ID, BaseXPReward: 50, BaseGemReward: 5},
	}
	created, err := env.svc.Catalog.CreateChallenge(ctx, in)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if !created.IsActive || created.WinnersAwarded {
		t.Fatalf("new challenge flags = active %v awarded %v", created.IsActive, created.WinnersAwarded)
	}

	if _, err := env.svc.Catalog.CreateChallenge(ctx, in); !errors.Is(err, ErrDuplicateChallenge) {
		t.Fatalf("expected ErrDuplicateChallenge, got %v", err)
	}

	var n int64
	env.db.Model(&models.DailyChallenge{}).Count(&n)
	if n != 1 {
		t.Fatalf("challenge count = %d, want 1", n)
	}

	in.Tier = models.DifficultyAdvanced
	if _, err := env.svc.Catalog.CreateChallenge(ctx, in); err != nil {
		t.Fatalf("other tier same date: %v", err)
	}
}

func TestCreateChallengeValidation(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	ex := testutil.CreateExercise(t, env.db, "ex")
	missing := uint(4242)

	cases := []struct {
		name string
		in   ChallengeInput
	}{
		{"bad date", ChallengeInput{Date: "2024/01/05", Tier: models.DifficultyBeginner, TierBundle: TierBundle{ExerciseID: ex.ID}}},
		{"bad tier", ChallengeInput{Date: "2024-01-05", Tier: "expert", TierBundle: TierBundle{ExerciseID: ex.ID}}},
		{"negative xp", ChallengeInput{Date: "2024-01-05", Tier: models.DifficultyBeginner, TierBundle: TierBundle{ExerciseID: ex.ID, BaseXPReward: -1}}},
		{"no exercise", ChallengeInput{Date: "2024-01-05", Tier: models.DifficultyBeginner}},
		{"unknown exercise", ChallengeInput{Date: "2024-01-05", Tier: models.DifficultyBeginner, TierBundle: TierBundle{ExerciseID: 999}}},
		{"unknown achievement", ChallengeInput{Date: "2024-01-05", Tier: models.DifficultyBeginner, TierBundle: TierBundle{ExerciseID: ex.ID, Top2AchievementID: &missing}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.svc.Catalog.CreateChallenge(ctx, tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestBatchCreateAllOrNothing(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	ex := testutil.CreateExercise(t, env.db, "ex")
	bundle := TierBundle{ExerciseID: ex.ID, BaseXPReward: 20, BaseGemReward: 2}

	// advanced already exists for the 6th
	testutil.CreateChallenge(t, env.db, "2024-01-06", models.DifficultyAdvanced, ex.ID, 0, 0)

	_, err := env.svc.Catalog.BatchCreate(ctx, BatchInput{Date: "2024-01-06", Beginner: bundle, Intermediate: bundle, Advanced: bundle})
	if !errors.Is(err, ErrDuplicateChallenge) {
		t.Fatalf("expected ErrDuplicateChallenge, got %v", err)
	}
	var n int64
	env.db.Model(&models.DailyChallenge{}).Where("challenge_date = ?", "2024-01-06").Count(&n)
	if n != 1 {
		t.Fatalf("partial batch written: %d challenges on 2024-01-06", n)
	}

	// an invalid third bundle rolls back the first two
	_, err = env.svc.Catalog.BatchCreate(ctx, BatchInput{Date: "2024-01-07", Beginner: bundle, Intermediate: bundle, Advanced: TierBundle{ExerciseID: 999}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	env.db.Model(&models.DailyChallenge{}).Where("challenge_date = ?", "2024-01-07").Count(&n)
	if n != 0 {
		t.Fatalf("rolled back batch left %d challenges", n)
	}

	created, err := env.svc.Catalog.BatchCreate(ctx, BatchInput{Date: "2024-01-08", Beginner: bundle, Intermediate: bundle, Advanced: bundle})
	if err != nil {
		t.Fatalf("BatchCreate: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d, want 3", len(created))
	}
	for i, tier := range models.Difficulties {
		if created[i].DifficultyLevel != tier || created[i].ChallengeDate != "2024-01-08" {
			t.Fatalf("created[%d] = %s/%s", i, created[i].ChallengeDate, created[i].DifficultyLevel)
		}
	}
}

func TestDeleteChallenge(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	c := env.challenge(t, "2024-01-01", models.DifficultyBeginner, 0, 0)
	u := testutil.CreateUser(t, env.db, "u", 1)
	if _, err := env.svc.Ledger.RecordAttempt(ctx, c.ID, u.ID, 80, 30); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	if err := env.svc.Catalog.DeleteChallenge(ctx, c.ID); err != nil {
		t.Fatalf("DeleteChallenge: %v", err)
	}
	if err := env.svc.Catalog.DeleteChallenge(ctx, c.ID); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("second delete: expected ErrChallengeNotFound, got %v", err)
	}

	var n int64
	env.db.Model(&models.ChallengeParticipation{}).Where("challenge_id = ?", c.ID).Count(&n)
	if n != 1 {
		t.Fatalf("participation must survive deletion, found %d", n)
	}

	got, err := env.svc.Catalog.GetChallengeFor(ctx, "2024-01-01", models.DifficultyBeginner)
	if err != nil || got != nil {
		t.Fatalf("GetChallengeFor after delete = %+v, %v", got, err)
	}

	// the slot is free again
	ex := testutil.CreateExercise(t, env.db, "again")
	if _, err := env.svc.Catalog.CreateChallenge(ctx, ChallengeInput{
		Date: "2024-01-01", Tier: models.DifficultyBeginner, TierBundle: TierBundle{ExerciseID: ex.ID},
	}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
}

func TestListAndLookup(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		for _, tier := range []models.Difficulty{models.DifficultyAdvanced, models.DifficultyBeginner} {
			env.challenge(t, date, tier, 0, 0)
		}
	}

	all, err := env.svc.Catalog.ListChallenges(ctx, "", "", "")
	if err != nil || len(all) != 6 {
		t.Fatalf("ListChallenges all = %d, %v", len(all), err)
	}
	if all[0].ChallengeDate != "2024-01-01" || all[0].DifficultyLevel != models.DifficultyBeginner {
		t.Fatalf("first = %s/%s, want 2024-01-01/beginner", all[0].ChallengeDate, all[0].DifficultyLevel)
	}
	if all[0].Exercise == nil {
		t.Fatalf("exercise not preloaded")
	}

	ranged, err := env.svc.Catalog.ListChallenges(ctx, "2024-01-02", "2024-01-03", models.DifficultyAdvanced)
	if err != nil || len(ranged) != 2 {
		t.Fatalf("ListChallenges ranged = %d, %v", len(ranged), err)
	}

	if _, err := env.svc.Catalog.ListChallenges(ctx, "yesterday", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad bound, got %v", err)
	}

	got, err := env.svc.Catalog.GetChallengeFor(ctx, "2024-01-02", models.DifficultyBeginner)
	if err != nil || got == nil || got.ChallengeDate != "2024-01-02" {
		t.Fatalf("GetChallengeFor = %+v, %v", got, err)
	}
	none, err := env.svc.Catalog.GetChallengeFor(ctx, "2024-01-02", models.DifficultyIntermediate)
	if err != nil || none != nil {
		t.Fatalf("GetChallengeFor missing tier = %+v, %v", none, err)
	}

	if _, err := env.svc.Catalog.Get(ctx, 9999); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("Get missing: %v", err)
	}
}

func TestInsertChallengeUniqueIndex(t *testing.T) {
	env := newTestEnv(t, "")
	ex := testutil.CreateExercise(t, env.db, "ex")
	env.challenge(t, "2024-01-05", models.DifficultyIntermediate, 10, 1)

	// a writer that passed the count check before the first row committed
	clash := &models.DailyChallenge{
		ChallengeDate:   "2024-01-05",
		DifficultyLevel: models.DifficultyIntermediate,
		ExerciseID:      ex.ID,
		IsActive:        true,
	}
	if err := insertChallenge(env.db, clash); !errors.Is(err, ErrDuplicateChallenge) {
		t.Fatalf("expected ErrDuplicateChallenge from the unique index, got %v", err)
	}

	var n int64
	env.db.Model(&models.DailyChallenge{}).Where("challenge_date = ?", "2024-01-05").Count(&n)
	if n != 1 {
		t.Fatalf("challenge count = %d, want 1", n)
	}
}
