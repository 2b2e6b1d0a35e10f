// services/resolver.go - Merges calendar, catalog, ledger and ranking into one per-user view
package services

import (
	"context"
	"errors"

	"lingoquest/models"

	"gorm.io/gorm"
)

type Resolver struct {
	db      *gorm.DB
	cal     *Calendar
	policy  Policy
	catalog *Catalog
	ledger  *Ledger
	ranking *Ranking
}

func NewResolver(db *gorm.DB, cal *Calendar, policy Policy, catalog *Catalog, ledger *Ledger, ranking *Ranking) *Resolver {
	return &Resolver{db: db, cal: cal, policy: policy, catalog: catalog, ledger: ledger, ranking: ranking}
}

// GetChallengeForUser resolves today's challenge for the user's tier
func (r *Resolver) GetChallengeForUser(ctx context.Context, userID uint) (*models.ChallengeView, error) {
	return r.GetChallengeForUserOn(ctx, userID, r.cal.Today())
}

// GetChallengeForUserOn resolves the challenge of any date: the one the user
// already entered that day, otherwise the one for their current tier.
// A day without a challenge yields HasChallenge=false, not an error.
func (r *Resolver) GetChallengeForUserOn(ctx context.Context, userID uint, date string) (*models.ChallengeView, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "level").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, classifyStoreError(err)
	}

	view := &models.ChallengeView{
		Date:         date,
		Tier:         r.policy.Tiers.TierFor(user.Level),
		MaxAttempts:  r.policy.MaxAttempts,
		AttemptsLeft: r.policy.MaxAttempts,
	}

	// a challenge already entered that day keeps its tier, even after a level-up
	entered, err := r.ledger.EnteredOn(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	var challenge *models.DailyChallenge
	if entered != nil {
		view.Tier = entered.DifficultyLevel
		challenge, err = r.catalog.Get(ctx, entered.ID)
	} else {
		challenge, err = r.catalog.GetChallengeFor(ctx, date, view.Tier)
	}
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return view, nil
	}
	view.HasChallenge = true
	view.Challenge = challenge

	participation, err := r.ledger.Participation(ctx, challenge.ID, userID)
	if err != nil {
		return nil, err
	}
	if participation != nil && participation.AttemptsUsed > 0 {
		view.AttemptsUsed = participation.AttemptsUsed
		view.AttemptsLeft = max(r.policy.MaxAttempts-participation.AttemptsUsed, 0)
		best, bestTime := participation.BestScore, participation.BestTimeSpent
		view.BestScore = &best
		view.BestTimeSpent = &bestTime
		view.HasPassed = participation.PassedAt != nil

		entry, err := r.ranking.UserRank(ctx, challenge.ID, userID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			view.Rank = entry.Rank
		}
	}

	today := r.cal.Today()
	view.IsLocked = date < today && challenge.WinnersAwarded
	view.CanAttempt = view.AttemptsLeft > 0 && CheckOpen(challenge, today) == nil
	view.Status = statusOf(view)
	return view, nil
}

func statusOf(v *models.ChallengeView) models.ChallengeStatus {
	switch {
	case v.IsLocked:
		return models.StatusLocked
	case v.AttemptsUsed == 0:
		return models.StatusNotStarted
	case v.HasPassed:
		return models.StatusCompleted
	case v.AttemptsLeft == 0:
		return models.StatusExhausted
	}
	return models.StatusInProgress
}
