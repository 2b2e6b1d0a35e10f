// services/ledger.go - Participation ledger: attempts, best result, first-pass rewards
package services

import (
	"context"
	"errors"
	"math"

	"lingoquest/events"
	"lingoquest/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Ledger struct {
	db           *gorm.DB
	cal          *Calendar
	policy       Policy
	ranking      *Ranking
	rewards      *Rewards
	achievements *Achievements
	events       events.Publisher
	logger       *zap.Logger
}

func NewLedger(db *gorm.DB, cal *Calendar, policy Policy, ranking *Ranking, rewards *Rewards,
	achievements *Achievements, pub events.Publisher, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.Nop()
	}
	return &Ledger{
		db:           db,
		cal:          cal,
		policy:       policy,
		ranking:      ranking,
		rewards:      rewards,
		achievements: achievements,
		events:       pub,
		logger:       logger,
	}
}

// CheckOpen reports why a challenge cannot take attempts today, nil if it can
func CheckOpen(c *models.DailyChallenge, today string) error {
	switch {
	case !c.IsActive, c.WinnersAwarded:
		return ErrChallengeClosed
	case c.ChallengeDate > today:
		return ErrChallengeNotOpen
	case c.ChallengeDate < today:
		return ErrChallengeClosed
	}
	return nil
}

// RecordAttempt appends one attempt and refreshes the user's best result.
// The attempt counter and the attempt row are written in one transaction,
// so a failed call never consumes an attempt.
func (l *Ledger) RecordAttempt(ctx context.Context, challengeID, userID uint, score, timeSpent int) (*models.AttemptResult, error) {
	if score < 0 || score > 100 {
		return nil, invalid("score", "must be within 0-100, got %d", score)
	}
	if timeSpent < 0 {
		return nil, invalid("time_spent", "must be non-negative, got %d", timeSpent)
	}

	result := &models.AttemptResult{}
	var levelsGained int
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var challenge models.DailyChallenge
		if err := tx.First(&challenge, challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		if err := CheckOpen(&challenge, l.cal.Today()); err != nil {
			return err
		}

		var user models.User
		if err := tx.Select("id", "level").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// the first challenge entered on a date pins the user's tier for that date
		entered, err := enteredOn(tx, userID, challenge.ChallengeDate)
		if err != nil {
			return err
		}
		switch {
		case entered != nil && entered.ID != challenge.ID:
			return ErrWrongTier
		case entered == nil && l.policy.Tiers.TierFor(user.Level) != challenge.DifficultyLevel:
			return ErrWrongTier
		}

		now := l.cal.Now().UTC()
		seed := models.ChallengeParticipation{
			ChallengeID:    challengeID,
			UserID:         userID,
			FirstAttemptAt: now,
			LastAttemptAt:  now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		// check-and-increment in one statement; the row lock serializes concurrent submissions
		res := tx.Model(&models.ChallengeParticipation{}).
			Where("challenge_id = ? AND user_id = ? AND attempts_used < ?", challengeID, userID, l.policy.MaxAttempts).
			Updates(map[string]any{
				"attempts_used":   gorm.Expr("attempts_used + 1"),
				"last_attempt_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAttemptLimitExceeded
		}

		var p models.ChallengeParticipation
		if err := tx.Where("challenge_id = ? AND user_id = ?", challengeID, userID).First(&p).Error; err != nil {
			return err
		}

		isBest := p.BestAttemptID == nil ||
			score > p.BestScore ||
			(score == p.BestScore && timeSpent < p.BestTimeSpent)
		passing := score >= l.policy.PassingScore

		firstPass := false
		if passing {
			res := tx.Model(&models.ChallengeParticipation{}).
				Where("id = ? AND passed_at IS NULL", p.ID).
				Update("passed_at", now)
			if res.Error != nil {
				return res.Error
			}
			firstPass = res.RowsAffected == 1
		}

		attempt := models.ChallengeAttempt{
			ChallengeID:   challengeID,
			UserID:        userID,
			AttemptNumber: p.AttemptsUsed,
			Score:         score,
			TimeSpent:     timeSpent,
			IsBest:        isBest,
			IsPassing:     passing,
			CreatedAt:     now,
		}
		if firstPass {
			attempt.XPAwarded = challenge.BaseXPReward
			attempt.GemsAwarded = challenge.BaseGemReward
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}

		if isBest {
			if err := tx.Model(&models.ChallengeAttempt{}).
				Where("challenge_id = ? AND user_id = ? AND id <> ?", challengeID, userID, attempt.ID).
				Update("is_best", false).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.ChallengeParticipation{}).
				Where("id = ?", p.ID).
				Updates(map[string]any{
					"best_score":      score,
					"best_time_spent": timeSpent,
					"best_attempt_id": attempt.ID,
				}).Error; err != nil {
				return err
			}
			p.BestScore, p.BestTimeSpent = score, timeSpent
		}

		if firstPass {
			grant, err := l.rewards.Grant(tx, userID, challenge.BaseXPReward, challenge.BaseGemReward)
			if err != nil {
				return err
			}
			levelsGained = grant.LevelsGained
			if _, err := l.rewards.AdvanceStreak(tx, l.cal, userID, challenge.ChallengeDate); err != nil {
				return err
			}
			if _, err := l.achievements.Evaluate(tx, userID, "daily_challenge"); err != nil {
				return err
			}
		}

		rank, err := l.ranking.RankTx(tx, challengeID, userID)
		if err != nil {
			return err
		}

		*result = models.AttemptResult{
			Success:       true,
			AttemptNumber: attempt.AttemptNumber,
			AttemptsUsed:  p.AttemptsUsed,
			AttemptsLeft:  l.policy.MaxAttempts - p.AttemptsUsed,
			Rank:          rank,
			IsBest:        isBest,
			IsFirstPass:   firstPass,
			XPAwarded:     attempt.XPAwarded,
			GemsAwarded:   attempt.GemsAwarded,
			BestScore:     p.BestScore,
			BestTimeSpent: p.BestTimeSpent,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAttemptLimitExceeded) {
			l.logger.Info("Attempt rejected, limit reached", zap.Uint("challenge_id", challengeID), zap.Uint("user_id", userID))
		}
		return nil, classifyStoreError(err)
	}

	l.ranking.Invalidate(ctx, challengeID)
	l.events.Publish(events.Event{
		Type:        events.TypeAttemptRecorded,
		ChallengeID: challengeID,
		Data: map[string]any{
			"user_id":        userID,
			"attempt_number": result.AttemptNumber,
			"score":          score,
			"time_spent":     timeSpent,
			"rank":           result.Rank,
			"is_best":        result.IsBest,
		},
	})

	l.logger.Info("Challenge attempt recorded",
		zap.Uint("challenge_id", challengeID),
		zap.Uint("user_id", userID),
		zap.Int("attempt_number", result.AttemptNumber),
		zap.Int("score", score),
		zap.Int("rank", result.Rank),
		zap.Bool("first_pass", result.IsFirstPass),
		zap.Int("levels_gained", levelsGained))
	return result, nil
}

// EnteredOn returns the challenge the user has attempted on date, nil if none
func (l *Ledger) EnteredOn(ctx context.Context, userID uint, date string) (*models.DailyChallenge, error) {
	c, err := enteredOn(l.db.WithContext(ctx), userID, date)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return c, nil
}

func enteredOn(tx *gorm.DB, userID uint, date string) (*models.DailyChallenge, error) {
	var c models.DailyChallenge
	err := tx.Select("daily_challenges.*").
		Joins("JOIN challenge_participations ON challenge_participations.challenge_id = daily_challenges.id").
		Where("challenge_participations.user_id = ? AND challenge_participations.attempts_used > 0", userID).
		Where("daily_challenges.challenge_date = ?", date).
		Order("challenge_participations.first_attempt_at ASC").
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AttemptHistory lists the user's attempts, most recent first
func (l *Ledger) AttemptHistory(ctx context.Context, challengeID, userID uint) ([]models.ChallengeAttempt, error) {
	var attempts []models.ChallengeAttempt
	err := l.db.WithContext(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Order("attempt_number DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return attempts, nil
}

// Participation returns the user's record for the challenge, nil when absent
func (l *Ledger) Participation(ctx context.Context, challengeID, userID uint) (*models.ChallengeParticipation, error) {
	var p models.ChallengeParticipation
	err := l.db.WithContext(ctx).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return &p, nil
}

// Stats aggregates only participants whose best result passes
func (l *Ledger) Stats(ctx context.Context, challengeID uint) (*models.ChallengeStats, error) {
	var row struct {
		Total    int64
		AvgScore float64
		AvgTime  float64
	}
	err := l.db.WithContext(ctx).
		Model(&models.ChallengeParticipation{}).
		Select("COUNT(*) AS total, COALESCE(AVG(best_score), 0.0) AS avg_score, COALESCE(AVG(best_time_spent), 0.0) AS avg_time").
		Where("challenge_id = ? AND attempts_used > 0 AND best_score >= ?", challengeID, l.policy.PassingScore).
		Scan(&row).Error
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return &models.ChallengeStats{
		ChallengeID:       challengeID,
		TotalParticipants: row.Total,
		AvgScore:          round2(row.AvgScore),
		AvgTimeSpent:      round2(row.AvgTime),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
