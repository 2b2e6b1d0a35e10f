// services/prizes.go - One-shot podium awarding for closed challenges
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lingoquest/events"
	"lingoquest/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PodiumSize is the number of ranks that receive prizes
const PodiumSize = 3

type Prizes struct {
	db           *gorm.DB
	cal          *Calendar
	ranking      *Ranking
	rewards      *Rewards
	achievements *Achievements
	events       events.Publisher
	logger       *zap.Logger
}

func NewPrizes(db *gorm.DB, cal *Calendar, ranking *Ranking, rewards *Rewards,
	achievements *Achievements, pub events.Publisher, logger *zap.Logger) *Prizes {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Nop()
	}
	return &Prizes{
		db:           db,
		cal:          cal,
		ranking:      ranking,
		rewards:      rewards,
		achievements: achievements,
		events:       pub,
		logger:       logger,
	}
}

// AwardWinners grants the podium bonuses of a challenge exactly once.
// The winners_awarded flag is flipped by a conditional update inside the same
// transaction as the grants: a repeated or concurrent call finds it set and
// returns success with nothing awarded, and a failed run leaves it false.
func (s *Prizes) AwardWinners(ctx context.Context, challengeID uint) (*models.AwardResult, error) {
	result := &models.AwardResult{Success: true, ChallengeID: challengeID, Awarded: []models.AwardedPrize{}}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DailyChallenge{}).
			Where("id = ? AND winners_awarded = ?", challengeID, false).
			Update("winners_awarded", true)
		if res.Error != nil {
			return res.Error
		}

		var challenge models.DailyChallenge
		if err := tx.First(&challenge, challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			result.AlreadyAwarded = true
			return nil
		}

		entries, err := s.ranking.EntriesTx(tx, challengeID)
		if err != nil {
			return err
		}
		if len(entries) > PodiumSize {
			entries = entries[:PodiumSize]
		}

		now := time.Now()
		for _, entry := range entries {
			prize, err := s.awardRank(tx, &challenge, entry, now)
			if err != nil {
				return fmt.Errorf("award rank %d: %w", entry.Rank, err)
			}
			result.Awarded = append(result.Awarded, *prize)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to award challenge winners", zap.Uint("challenge_id", challengeID), zap.Error(err))
		return nil, classifyStoreError(err)
	}

	if result.AlreadyAwarded {
		s.logger.Info("Challenge winners already awarded", zap.Uint("challenge_id", challengeID))
		return result, nil
	}

	s.ranking.Invalidate(ctx, challengeID)
	s.events.Publish(events.Event{
		Type:        events.TypeWinnersAwarded,
		ChallengeID: challengeID,
		Data:        map[string]any{"awarded": result.Awarded},
	})
	s.logger.Info("Challenge winners awarded",
		zap.Uint("challenge_id", challengeID),
		zap.Int("winners", len(result.Awarded)))
	return result, nil
}

func (s *Prizes) awardRank(tx *gorm.DB, challenge *models.DailyChallenge, entry models.LeaderboardEntry, now time.Time) (*models.AwardedPrize, error) {
	prize := &models.AwardedPrize{
		Rank:      entry.Rank,
		UserID:    entry.UserID,
		Score:     entry.Score,
		TimeSpent: entry.TimeSpent,
	}

	var achievement *models.Achievement
	if id := challenge.PrizeAchievementID(entry.Rank); id != nil {
		var a models.Achievement
		err := tx.First(&a, *id).Error
		switch {
		case err == nil:
			achievement = &a
			prize.AchievementID = &a.ID
			prize.XPAwarded = a.XPReward
			prize.GemsAwarded = a.GemReward
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.logger.Warn("Prize achievement missing, awarding rank without it",
				zap.Uint("challenge_id", challenge.ID),
				zap.Int("rank", entry.Rank),
				zap.Uint("achievement_id", *id))
		default:
			return nil, err
		}
	}

	// (challenge_id, rank) is unique, a second writer cannot slip a duplicate in
	record := models.ChallengePrize{
		ChallengeID:   challenge.ID,
		Rank:          entry.Rank,
		UserID:        entry.UserID,
		Score:         entry.Score,
		TimeSpent:     entry.TimeSpent,
		AchievementID: prize.AchievementID,
		XPAwarded:     prize.XPAwarded,
		GemsAwarded:   prize.GemsAwarded,
		AwardedAt:     now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("prize for challenge %d rank %d already recorded", challenge.ID, entry.Rank)
	}

	if _, err := s.rewards.Grant(tx, entry.UserID, prize.XPAwarded, prize.GemsAwarded); err != nil {
		return nil, err
	}
	if achievement != nil {
		if _, err := s.achievements.Unlock(tx, entry.UserID, achievement.ID, "challenge_prize", true); err != nil {
			return nil, err
		}
	}
	if _, err := s.achievements.Evaluate(tx, entry.UserID, "challenge_prize"); err != nil {
		return nil, err
	}
	return prize, nil
}

// AwardFailure is one challenge the pending sweep could not award
type AwardFailure struct {
	ChallengeID uint   `json:"challenge_id"`
	Error       string `json:"error"`
}

// PendingReport summarizes one sweep
type PendingReport struct {
	Today    string               `json:"today"`
	Awarded  []models.AwardResult `json:"awarded"`
	Failures []AwardFailure       `json:"failures"`
}

// AwardPending awards every active challenge dated before today whose winners
// are still pending. Each challenge runs in its own transaction and a failure
// does not stop the sweep.
func (s *Prizes) AwardPending(ctx context.Context) (*PendingReport, error) {
	report := &PendingReport{Today: s.cal.Today(), Awarded: []models.AwardResult{}, Failures: []AwardFailure{}}

	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.DailyChallenge{}).
		Where("winners_awarded = ? AND is_active = ? AND challenge_date < ?", false, true, report.Today).
		Order("challenge_date ASC, id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, classifyStoreError(err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := s.AwardWinners(ctx, id)
		if err != nil {
			report.Failures = append(report.Failures, AwardFailure{ChallengeID: id, Error: err.Error()})
			continue
		}
		if !res.AlreadyAwarded {
			report.Awarded = append(report.Awarded, *res)
		}
	}

	s.logger.Info("Pending challenge awards processed",
		zap.String("today", report.Today),
		zap.Int("awarded", len(report.Awarded)),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}
