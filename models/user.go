// models/user.go
package models

import (
	"time"
)

type User struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Username    string  `gorm:"uniqueIndex;not null" json:"username"`
	Email       *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password    string  `gorm:"not null" json:"-"`
	DisplayName string  `json:"display_name"`
	Avatar      string  `json:"avatar"`
	IsAdmin     bool    `gorm:"default:false" json:"is_admin"`
	IsBanned    bool    `gorm:"default:false" json:"is_banned"`

	// Progression
	Level int `gorm:"default:1" json:"level"`
	XP    int `gorm:"default:0" json:"xp"` // cumulative
	Gems  int `gorm:"default:0" json:"gems"`

	// Daily challenge streak, keyed on challenge dates (YYYY-MM-DD in the challenge zone)
	CurrentStreak     int    `gorm:"default:0" json:"current_streak"`
	BestStreak        int    `gorm:"default:0" json:"best_streak"`
	LastChallengeDate string `gorm:"type:varchar(10)" json:"last_challenge_date,omitempty"`

	// Timestamps
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`

	// Relationships
	Achievements []UserAchievement `gorm:"foreignKey:UserID" json:"achievements,omitempty"`
}

// UserAchievement is an unlocked achievement. One row per (user, achievement).
type UserAchievement struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_user_achievements_pair" json:"user_id"`
	AchievementID uint       `gorm:"not null;uniqueIndex:idx_user_achievements_pair;index" json:"achievement_id"`
	UnlockedAt    time.Time  `json:"unlocked_at"`
	Claimed       bool       `gorm:"default:false" json:"claimed"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
	Source        string     `gorm:"size:64" json:"source,omitempty"`

	Achievement Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
