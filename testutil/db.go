package testutil

import (
	"fmt"
	"testing"
	"time"

	"lingoquest/database"
	"lingoquest/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB opens an in-memory SQLite database with every table migrated.
// One connection only: each new :memory: connection would be a fresh database.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// CreateUser inserts a user at the given level
func CreateUser(t *testing.T, db *gorm.DB, username string, level int) *models.User {
	t.Helper()
	user := &models.User{
		Username:    username,
		Password:    "x",
		DisplayName: username,
		Level:       level,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateExercise inserts an exercise
func CreateExercise(t *testing.T, db *gorm.DB, title string) *models.Exercise {
	t.Helper()
	ex := &models.Exercise{Type: "multiple_choice", Title: title, Difficulty: models.DifficultyBeginner}
	if err := db.Create(ex).Error; err != nil {
		t.Fatalf("create exercise %s: %v", title, err)
	}
	return ex
}

// CreateAchievement inserts a, filling the required text fields when empty
func CreateAchievement(t *testing.T, db *gorm.DB, a models.Achievement) *models.Achievement {
	t.Helper()
	if a.Name == "" {
		a.Name = fmt.Sprintf("%s-%d-%d", a.RuleKind, a.Threshold, time.Now().UnixNano())
	}
	if a.Description == "" {
		a.Description = a.Name
	}
	if a.Category == "" {
		a.Category = "Challenge"
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create achievement %s: %v", a.Name, err)
	}
	return &a
}

// CreateChallenge inserts an active challenge directly, bypassing catalog validation
func CreateChallenge(t *testing.T, db *gorm.DB, date string, tier models.Difficulty, exerciseID uint, xp, gems int) *models.DailyChallenge {
	t.Helper()
	c := &models.DailyChallenge{
		ChallengeDate:   date,
		DifficultyLevel: tier,
		ExerciseID:      exerciseID,
		BaseXPReward:    xp,
		BaseGemReward:   gems,
		IsActive:        true,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create challenge %s/%s: %v", date, tier, err)
	}
	return c
}
