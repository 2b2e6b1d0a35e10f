// services/rewards.go - XP / gem ledger on the user row, level curve, challenge streak
package services

import (
	"errors"
	"math"

	"lingoquest/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Grant is the outcome of a reward grant
type Grant struct {
	XP           int `json:"xp"`
	Gems         int `json:"gems"`
	LevelBonus   int `json:"level_bonus_gems"`
	NewLevel     int `json:"new_level"`
	LevelsGained int `json:"levels_gained"`
}

type Rewards struct {
	logger *zap.Logger
}

func NewRewards(logger *zap.Logger) *Rewards {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewards{logger: logger}
}

// XPForLevel is the XP needed to climb from level-1 to level
func XPForLevel(level int) int {
	return int(100 * math.Pow(float64(level), 1.5))
}

// LevelForXP maps cumulative XP onto the level curve
func LevelForXP(totalXP int) int {
	level, _, _ := LevelProgress(totalXP)
	return level
}

// LevelProgress splits cumulative XP into the level reached, the XP earned
// inside that level and the XP the next level costs
func LevelProgress(totalXP int) (level, into, needed int) {
	level = 1
	into = totalXP
	for {
		needed = XPForLevel(level + 1)
		if into < needed {
			return level, into, needed
		}
		into -= needed
		level++
	}
}

// LevelUpBonus is the gem bonus for reaching level
func LevelUpBonus(level int) int {
	return 50 + level*10
}

// Grant atomically adds xp and gems to the user inside tx and settles the level
func (r *Rewards) Grant(tx *gorm.DB, userID uint, xp, gems int) (*Grant, error) {
	if xp < 0 || gems < 0 {
		return nil, invalid("reward", "xp and gems must be non-negative")
	}

	if xp != 0 || gems != 0 {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"xp":   gorm.Expr("xp + ?", xp),
				"gems": gorm.Expr("gems + ?", gems),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}

	var user models.User
	if err := tx.Select("id", "xp", "level").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	grant := &Grant{XP: xp, Gems: gems, NewLevel: user.Level}
	newLevel := LevelForXP(user.XP)
	if newLevel <= user.Level {
		return grant, nil
	}

	for l := user.Level + 1; l <= newLevel; l++ {
		grant.LevelBonus += LevelUpBonus(l)
	}
	// level only moves up; a concurrent grant that already raised it wins
	res := tx.Model(&models.User{}).
		Where("id = ? AND level < ?", userID, newLevel).
		Updates(map[string]any{
			"level": newLevel,
			"gems":  gorm.Expr("gems + ?", grant.LevelBonus),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		grant.LevelBonus = 0
		return grant, nil
	}

	grant.LevelsGained = newLevel - user.Level
	grant.NewLevel = newLevel
	r.logger.Info("User leveled up",
		zap.Uint("user_id", userID),
		zap.Int("level", newLevel),
		zap.Int("bonus_gems", grant.LevelBonus))
	return grant, nil
}

// AdvanceStreak updates the daily challenge streak for a first pass on challengeDate
func (r *Rewards) AdvanceStreak(tx *gorm.DB, cal *Calendar, userID uint, challengeDate string) (int, error) {
	var user models.User
	if err := tx.Select("id", "current_streak", "best_streak", "last_challenge_date").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	if user.LastChallengeDate != "" && challengeDate <= user.LastChallengeDate && user.CurrentStreak > 0 {
		return user.CurrentStreak, nil
	}
	streak := NextStreak(cal, user.CurrentStreak, user.LastChallengeDate, challengeDate)
	best := user.BestStreak
	if streak > best {
		best = streak
	}

	err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"current_streak":      streak,
		"best_streak":         best,
		"last_challenge_date": challengeDate,
	}).Error
	return streak, err
}

// NextStreak is the streak after passing challengeDate given the last passed date
func NextStreak(cal *Calendar, current int, lastDate, challengeDate string) int {
	if lastDate == "" {
		return 1
	}
	gap, err := cal.DaysBetweenDates(lastDate, challengeDate)
	switch {
	case err != nil:
		return 1
	case gap == 0:
		if current == 0 {
			return 1
		}
		return current
	case gap == 1:
		return current + 1
	case gap < 0:
		// an older challenge passed late does not touch the streak
		return current
	}
	return 1
}
