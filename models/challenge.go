// models/challenge.go - Daily Challenge Data Models
package models

import (
	"time"
)

// Difficulty is the tier a daily challenge (and a user, by level) belongs to
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Difficulties lists every tier in ascending order
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// DateLayout is the layout of every challenge date (calendar date in the challenge zone)
const DateLayout = "2006-01-02"

// DailyChallenge is one exercise offered to one tier on one calendar day.
// (challenge_date, difficulty_level) is unique.
type DailyChallenge struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	ChallengeDate   string     `json:"challenge_date" gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_challenges_date_tier"`
	DifficultyLevel Difficulty `json:"difficulty_level" gorm:"type:varchar(20);not null;uniqueIndex:idx_daily_challenges_date_tier"`
	ExerciseID      uint       `json:"exercise_id" gorm:"not null;index"`
	Exercise        *Exercise  `json:"exercise,omitempty" gorm:"foreignKey:ExerciseID"`

	BaseXPReward  int `json:"base_xp_reward" gorm:"not null;default:0"`
	BaseGemReward int `json:"base_gem_reward" gorm:"not null;default:0"`

	Top1AchievementID *uint `json:"top1_achievement_id"`
	Top2AchievementID *uint `json:"top2_achievement_id"`
	Top3AchievementID *uint `json:"top3_achievement_id"`

	WinnersAwarded bool `json:"winners_awarded" gorm:"not null;default:false;index"`
	IsActive       bool `json:"is_active" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PrizeAchievementID returns the achievement configured for a podium rank (1-3)
func (c *DailyChallenge) PrizeAchievementID(rank int) *uint {
	switch rank {
	case 1:
		return c.Top1AchievementID
	case 2:
		return c.Top2AchievementID
	case 3:
		return c.Top3AchievementID
	}
	return nil
}

// ChallengeParticipation is the materialized best of a user's attempts on a challenge
type ChallengeParticipation struct {
	ID            uint  `json:"id" gorm:"primaryKey"`
	ChallengeID   uint  `json:"challenge_id" gorm:"not null;uniqueIndex:idx_participation_challenge_user"`
	UserID        uint  `json:"user_id" gorm:"not null;uniqueIndex:idx_participation_challenge_user;index"`
	User          *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	AttemptsUsed  int   `json:"attempts_used" gorm:"not null;default:0"`
	BestScore     int   `json:"best_score" gorm:"not null;default:0"`
	BestTimeSpent int   `json:"best_time_spent" gorm:"not null;default:0"`
	BestAttemptID *uint `json:"best_attempt_id"`

	FirstAttemptAt time.Time  `json:"first_attempt_at" gorm:"not null"`
	LastAttemptAt  time.Time  `json:"last_attempt_at" gorm:"not null"`
	PassedAt       *time.Time `json:"passed_at"` // first attempt at or above the passing score

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChallengeAttempt is one append-only attempt event. AttemptNumber is 1-based and gapless.
type ChallengeAttempt struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ChallengeID   uint      `json:"challenge_id" gorm:"not null;uniqueIndex:idx_attempts_challenge_user_number"`
	UserID        uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_attempts_challenge_user_number"`
	AttemptNumber int       `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempts_challenge_user_number"`
	Score         int       `json:"score" gorm:"not null"`
	TimeSpent     int       `json:"time_spent" gorm:"not null"`
	IsBest        bool      `json:"is_best" gorm:"not null;default:false"`
	IsPassing     bool      `json:"is_passing" gorm:"not null;default:false"`
	XPAwarded     int       `json:"xp_awarded" gorm:"not null;default:0"`
	GemsAwarded   int       `json:"gems_awarded" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChallengePrize records one podium award. (challenge_id, rank) is unique.
type ChallengePrize struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ChallengeID   uint      `json:"challenge_id" gorm:"not null;uniqueIndex:idx_prizes_challenge_rank"`
	Rank          int       `json:"rank" gorm:"not null;uniqueIndex:idx_prizes_challenge_rank"`
	UserID        uint      `json:"user_id" gorm:"not null;index"`
	Score         int       `json:"score"`
	TimeSpent     int       `json:"time_spent"`
	AchievementID *uint     `json:"achievement_id"`
	XPAwarded     int       `json:"xp_awarded"`
	GemsAwarded   int       `json:"gems_awarded"`
	AwardedAt     time.Time `json:"awarded_at"`
}

func (DailyChallenge) TableName() string {
	return "daily_challenges"
}

func (ChallengeParticipation) TableName() string {
	return "challenge_participations"
}

func (ChallengeAttempt) TableName() string {
	return "challenge_attempts"
}

func (ChallengePrize) TableName() string {
	return "challenge_prizes"
}
