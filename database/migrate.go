// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"
	"log"

	"lingoquest/models"

	"gorm.io/gorm"
)

// Migrate creates or updates every table and the supporting indexes
func Migrate(db *gorm.DB) error {
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Exercise{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.DailyChallenge{},
		&models.ChallengeParticipation{},
		&models.ChallengeAttempt{},
		&models.ChallengePrize{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createChallengeIndexes(db); err != nil {
		return err
	}

	log.Println("✅ All migrations completed successfully")
	return nil
}

// createChallengeIndexes adds the read-path indexes AutoMigrate does not express
func createChallengeIndexes(db *gorm.DB) error {
	stmts := []string{
		// leaderboard order: score desc, time asc, first attempt asc
		"CREATE INDEX IF NOT EXISTS idx_participation_ranking ON challenge_participations(challenge_id, best_score DESC, best_time_spent ASC, first_attempt_at ASC)",
		"CREATE INDEX IF NOT EXISTS idx_daily_challenges_pending ON daily_challenges(winners_awarded, challenge_date)",
		"CREATE INDEX IF NOT EXISTS idx_attempts_history ON challenge_attempts(challenge_id, user_id, attempt_number DESC)",
		"CREATE INDEX IF NOT EXISTS idx_users_level ON users(level DESC)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
