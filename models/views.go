// models/views.go - Derived read models returned by the challenge services
package models

import "time"

// ChallengeStatus is the per-user state of a daily challenge
type ChallengeStatus string

const (
	StatusNotStarted ChallengeStatus = "not_started"
	StatusInProgress ChallengeStatus = "in_progress"
	StatusCompleted  ChallengeStatus = "completed"
	StatusExhausted  ChallengeStatus = "exhausted"
	StatusLocked     ChallengeStatus = "locked"
)

// LeaderboardEntry is one ranked participant. Never persisted.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	UserID         uint      `json:"user_id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Avatar         string    `json:"avatar"`
	Level          int       `json:"level"`
	Score          int       `json:"score"`
	TimeSpent      int       `json:"time_spent"`
	Attempts       int       `json:"attempts"`
	FirstAttemptAt time.Time `json:"first_attempt_at"`
}

// AttemptResult is what recording an attempt reports back
type AttemptResult struct {
	Success       bool `json:"success"`
	AttemptNumber int  `json:"attempt_number"`
	AttemptsUsed  int  `json:"attempts_used"`
	AttemptsLeft  int  `json:"attempts_left"`
	Rank          int  `json:"rank"`
	IsBest        bool `json:"is_best"`
	IsFirstPass   bool `json:"is_first_pass"`
	XPAwarded     int  `json:"xp_awarded"`
	GemsAwarded   int  `json:"gems_awarded"`
	BestScore     int  `json:"best_score"`
	BestTimeSpent int  `json:"best_time_spent"`
}

// ChallengeStats aggregates passing participants only
type ChallengeStats struct {
	ChallengeID       uint    `json:"challenge_id"`
	TotalParticipants int64   `json:"total_participants"`
	AvgScore          float64 `json:"avg_score"`
	AvgTimeSpent      float64 `json:"avg_time_spent"`
}

// ChallengeView is the merged per-user view of one day's challenge
type ChallengeView struct {
	HasChallenge  bool            `json:"has_challenge"`
	Date          string          `json:"date"`
	Tier          Difficulty      `json:"tier"`
	Challenge     *DailyChallenge `json:"challenge,omitempty"`
	Status        ChallengeStatus `json:"status,omitempty"`
	MaxAttempts   int             `json:"max_attempts"`
	AttemptsUsed  int             `json:"attempts_used"`
	AttemptsLeft  int             `json:"attempts_left"`
	BestScore     *int            `json:"best_score,omitempty"`
	BestTimeSpent *int            `json:"best_time_spent,omitempty"`
	Rank          int             `json:"rank,omitempty"`
	HasPassed     bool            `json:"has_passed"`
	IsLocked      bool            `json:"is_locked"`
	CanAttempt    bool            `json:"can_attempt"`
}

// AwardedPrize is one podium grant made by prize distribution
type AwardedPrize struct {
	Rank          int   `json:"rank"`
	UserID        uint  `json:"user_id"`
	Score         int   `json:"score"`
	TimeSpent     int   `json:"time_spent"`
	AchievementID *uint `json:"achievement_id,omitempty"`
	XPAwarded     int   `json:"xp_awarded"`
	GemsAwarded   int   `json:"gems_awarded"`
}

// AwardResult is what prize distribution reports. A repeated call on an
// awarded challenge succeeds with an empty Awarded list.
type AwardResult struct {
	Success        bool           `json:"success"`
	ChallengeID    uint           `json:"challenge_id"`
	AlreadyAwarded bool           `json:"already_awarded"`
	Awarded        []AwardedPrize `json:"awarded"`
}
