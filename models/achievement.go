// models/achievement.go
package models

import "time"

// AchievementRuleKind names the unlock rule variant an achievement uses
type AchievementRuleKind string

const (
	RuleExerciseCount AchievementRuleKind = "exercise_count"
	RuleStreak        AchievementRuleKind = "streak"
	RuleTotalXP       AchievementRuleKind = "total_xp"
	RuleChallengeRank AchievementRuleKind = "challenge_rank"
)

type Achievement struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null;uniqueIndex" json:"name"`
	Description string `gorm:"not null" json:"description"`
	Category    string `gorm:"not null;index" json:"category"` // Challenge, Streak, Progress, Special
	Icon        string `json:"icon"`

	// Unlock rule. Threshold is a count, a streak length, an XP total or a rank
	// depending on RuleKind. ChallengeTier scopes challenge_rank rules ("" = any tier).
	RuleKind      AchievementRuleKind `gorm:"type:varchar(32);not null;index" json:"rule_kind"`
	Threshold     int                 `gorm:"default:0" json:"threshold"`
	ChallengeTier Difficulty          `gorm:"type:varchar(20)" json:"challenge_tier,omitempty"`

	// Rewards
	XPReward  int `gorm:"default:0" json:"xp_reward"`
	GemReward int `gorm:"default:0" json:"gem_reward"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Achievement) TableName() string {
	return "achievements"
}
