// services/achievements.go - Achievement unlock rules and idempotent unlocking
package services

import (
	"fmt"
	"time"

	"lingoquest/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserStats is everything an unlock rule may look at
type UserStats struct {
	UserID           uint
	ChallengesPassed int
	CurrentStreak    int
	BestStreak       int
	TotalXP          int
	Level            int
	Podiums          []Podium
}

// Podium is one prize-winning finish
type Podium struct {
	Tier models.Difficulty
	Rank int
}

// Rule is a closed set of unlock predicates
type Rule interface {
	isRule()
}

type ExerciseCountRule struct{ Min int }
type StreakRule struct{ Min int }
type XPRule struct{ Min int }

// ChallengeRankRule is satisfied by a prize finish at exactly Rank.
// An empty Tier accepts any tier.
type ChallengeRankRule struct {
	Rank int
	Tier models.Difficulty
}

func (ExerciseCountRule) isRule() {}
func (StreakRule) isRule()        {}
func (XPRule) isRule()            {}
func (ChallengeRankRule) isRule() {}

// RuleFor builds the typed rule an achievement row describes
func RuleFor(a models.Achievement) (Rule, error) {
	switch a.RuleKind {
	case models.RuleExerciseCount:
		return ExerciseCountRule{Min: a.Threshold}, nil
	case models.RuleStreak:
		return StreakRule{Min: a.Threshold}, nil
	case models.RuleTotalXP:
		return XPRule{Min: a.Threshold}, nil
	case models.RuleChallengeRank:
		if a.Threshold < 1 || a.Threshold > 3 {
			return nil, invalid("threshold", "challenge_rank rule needs a rank within 1-3, got %d", a.Threshold)
		}
		if a.ChallengeTier != "" && !a.ChallengeTier.Valid() {
			return nil, invalid("challenge_tier", "unknown tier %q", a.ChallengeTier)
		}
		return ChallengeRankRule{Rank: a.Threshold, Tier: a.ChallengeTier}, nil
	}
	return nil, invalid("rule_kind", "unknown rule kind %q", a.RuleKind)
}

// Satisfied evaluates rule against stats
func Satisfied(rule Rule, stats UserStats) bool {
	switch r := rule.(type) {
	case ExerciseCountRule:
		return stats.ChallengesPassed >= r.Min
	case StreakRule:
		return stats.CurrentStreak >= r.Min || stats.BestStreak >= r.Min
	case XPRule:
		return stats.TotalXP >= r.Min
	case ChallengeRankRule:
		for _, p := range stats.Podiums {
			if p.Rank == r.Rank && (r.Tier == "" || p.Tier == r.Tier) {
				return true
			}
		}
	}
	return false
}

type Achievements struct {
	rewards *Rewards
	logger  *zap.Logger
}

func NewAchievements(rewards *Rewards, logger *zap.Logger) *Achievements {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Achievements{rewards: rewards, logger: logger}
}

// Stats gathers UserStats inside tx
func (a *Achievements) Stats(tx *gorm.DB, userID uint) (UserStats, error) {
	var user models.User
	if err := tx.Select("id", "xp", "level", "current_streak", "best_streak").First(&user, userID).Error; err != nil {
		return UserStats{}, err
	}
	stats := UserStats{
		UserID:        userID,
		CurrentStreak: user.CurrentStreak,
		BestStreak:    user.BestStreak,
		TotalXP:       user.XP,
		Level:         user.Level,
	}

	var passed int64
	if err := tx.Model(&models.ChallengeParticipation{}).
		Where("user_id = ? AND passed_at IS NOT NULL", userID).
		Count(&passed).Error; err != nil {
		return UserStats{}, err
	}
	stats.ChallengesPassed = int(passed)

	if err := tx.Table("challenge_prizes p").
		Select("DISTINCT c.difficulty_level AS tier, p.rank AS rank").
		Joins("JOIN daily_challenges c ON c.id = p.challenge_id").
		Where("p.user_id = ?", userID).
		Scan(&stats.Podiums).Error; err != nil {
		return UserStats{}, err
	}
	return stats, nil
}

// Unlock records the achievement for the user. It reports false when the
// user already had it. No reward is granted here.
func (a *Achievements) Unlock(tx *gorm.DB, userID, achievementID uint, source string, claimed bool) (bool, error) {
	now := time.Now()
	ua := models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    now,
		Claimed:       claimed,
		Source:        source,
	}
	if claimed {
		ua.ClaimedAt = &now
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ua)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if claimed {
		// already unlocked: make sure it ends up claimed
		err := tx.Model(&models.UserAchievement{}).
			Where("user_id = ? AND achievement_id = ? AND claimed = ?", userID, achievementID, false).
			Updates(map[string]any{"claimed": true, "claimed_at": now}).Error
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

// Evaluate unlocks every rule-satisfied achievement the user does not hold yet
// and grants its reward. Rewards can satisfy further XP rules, so it repeats
// until nothing new unlocks.
func (a *Achievements) Evaluate(tx *gorm.DB, userID uint, source string) ([]models.Achievement, error) {
	var all []models.Achievement
	if err := tx.Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}

	var held []uint
	if err := tx.Model(&models.UserAchievement{}).Where("user_id = ?", userID).Pluck("achievement_id", &held).Error; err != nil {
		return nil, err
	}
	owned := make(map[uint]bool, len(held))
	for _, id := range held {
		owned[id] = true
	}

	var unlocked []models.Achievement
	for pass := 0; pass <= len(all); pass++ {
		stats, err := a.Stats(tx, userID)
		if err != nil {
			return nil, err
		}

		progressed := false
		for _, ach := range all {
			if owned[ach.ID] {
				continue
			}
			rule, err := RuleFor(ach)
			if err != nil {
				a.logger.Warn("Skipping achievement with bad rule", zap.Uint("achievement_id", ach.ID), zap.Error(err))
				owned[ach.ID] = true
				continue
			}
			if !Satisfied(rule, stats) {
				continue
			}

			isNew, err := a.Unlock(tx, userID, ach.ID, source, false)
			if err != nil {
				return nil, fmt.Errorf("unlock achievement %d: %w", ach.ID, err)
			}
			owned[ach.ID] = true
			if !isNew {
				continue
			}
			if _, err := a.rewards.Grant(tx, userID, ach.XPReward, ach.GemReward); err != nil {
				return nil, err
			}
			unlocked = append(unlocked, ach)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if len(unlocked) > 0 {
		a.logger.Info("Achievements unlocked", zap.Uint("user_id", userID), zap.Int("count", len(unlocked)))
	}
	return unlocked, nil
}
