// services/catalog.go - Daily challenge catalog: one challenge per (date, tier)
package services

import (
	"context"
	"errors"
	"fmt"

	"lingoquest/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TierBundle is what an operator configures for one tier of one day
type TierBundle struct {
	ExerciseID        uint  `json:"exercise_id"`
	BaseXPReward      int   `json:"base_xp_reward"`
	BaseGemReward     int   `json:"base_gem_reward"`
	Top1AchievementID *uint `json:"top1_achievement_id"`
	Top2AchievementID *uint `json:"top2_achievement_id"`
	Top3AchievementID *uint `json:"top3_achievement_id"`
}

// ChallengeInput creates a single challenge
type ChallengeInput struct {
	Date string            `json:"challenge_date"`
	Tier models.Difficulty `json:"difficulty_level"`
	TierBundle
}

// BatchInput creates the three tiers of one day together
type BatchInput struct {
	Date         string     `json:"challenge_date"`
	Beginner     TierBundle `json:"beginner"`
	Intermediate TierBundle `json:"intermediate"`
	Advanced     TierBundle `json:"advanced"`
}

func (b BatchInput) inputs() []ChallengeInput {
	return []ChallengeInput{
		{Date: b.Date, Tier: models.DifficultyBeginner, TierBundle: b.Beginner},
		{Date: b.Date, Tier: models.DifficultyIntermediate, TierBundle: b.Intermediate},
		{Date: b.Date, Tier: models.DifficultyAdvanced, TierBundle: b.Advanced},
	}
}

type Catalog struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCatalog(db *gorm.DB, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{db: db, logger: logger}
}

// CreateChallenge stores one challenge. A second challenge for the same
// (date, tier) fails with ErrDuplicateChallenge.
func (s *Catalog) CreateChallenge(ctx context.Context, in ChallengeInput) (*models.DailyChallenge, error) {
	var created *models.DailyChallenge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.create(tx, in)
		created = c
		return err
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}

	s.logger.Info("Daily challenge created",
		zap.Uint("challenge_id", created.ID),
		zap.String("date", created.ChallengeDate),
		zap.String("tier", string(created.DifficultyLevel)))
	return created, nil
}

// BatchCreate stores beginner, intermediate and advanced for one date,
// all or nothing.
func (s *Catalog) BatchCreate(ctx context.Context, in BatchInput) ([]models.DailyChallenge, error) {
	if _, err := ParseDate(in.Date); err != nil {
		return nil, err
	}

	created := make([]models.DailyChallenge, 0, len(models.Difficulties))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.DailyChallenge{}).Where("challenge_date = ?", in.Date).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateChallenge
		}

		for _, item := range in.inputs() {
			c, err := s.create(tx, item)
			if err != nil {
				return fmt.Errorf("%s: %w", item.Tier, err)
			}
			created = append(created, *c)
		}
		return nil
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}

	s.logger.Info("Daily challenges batch created", zap.String("date", in.Date), zap.Int("count", len(created)))
	return created, nil
}

func (s *Catalog) create(tx *gorm.DB, in ChallengeInput) (*models.DailyChallenge, error) {
	if err := s.validate(tx, in); err != nil {
		return nil, err
	}

	var existing int64
	if err := tx.Model(&models.DailyChallenge{}).
		Where("challenge_date = ? AND difficulty_level = ?", in.Date, in.Tier).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrDuplicateChallenge
	}

	challenge := &models.DailyChallenge{
		ChallengeDate:     in.Date,
		DifficultyLevel:   in.Tier,
		ExerciseID:        in.ExerciseID,
		BaseXPReward:      in.BaseXPReward,
		BaseGemReward:     in.BaseGemReward,
		Top1AchievementID: in.Top1AchievementID,
		Top2AchievementID: in.Top2AchievementID,
		Top3AchievementID: in.Top3AchievementID,
		IsActive:          true,
	}
	if err := insertChallenge(tx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// insertChallenge relies on the (date, tier) unique index, which decides races the count cannot see
func insertChallenge(tx *gorm.DB, challenge *models.DailyChallenge) error {
	if err := tx.Create(challenge).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateChallenge
		}
		return err
	}
	return nil
}

func (s *Catalog) validate(tx *gorm.DB, in ChallengeInput) error {
	if _, err := ParseDate(in.Date); err != nil {
		return err
	}
	if !in.Tier.Valid() {
		return invalid("difficulty_level", "must be beginner, intermediate or advanced, got %q", in.Tier)
	}
	if in.BaseXPReward < 0 || in.BaseGemReward < 0 {
		return invalid("reward", "base rewards must be non-negative")
	}
	if in.ExerciseID == 0 {
		return invalid("exercise_id", "is required")
	}

	var exercises int64
	if err := tx.Model(&models.Exercise{}).Where("id = ?", in.ExerciseID).Count(&exercises).Error; err != nil {
		return err
	}
	if exercises == 0 {
		return invalid("exercise_id", "exercise %d does not exist", in.ExerciseID)
	}

	for rank, id := range []*uint{in.Top1AchievementID, in.Top2AchievementID, in.Top3AchievementID} {
		if id == nil {
			continue
		}
		var n int64
		if err := tx.Model(&models.Achievement{}).Where("id = ?", *id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return invalid(fmt.Sprintf("top%d_achievement_id", rank+1), "achievement %d does not exist", *id)
		}
	}
	return nil
}

// DeleteChallenge hard-deletes the challenge. Participation rows are left in place.
func (s *Catalog) DeleteChallenge(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.DailyChallenge{}, id)
	if res.Error != nil {
		return classifyStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrChallengeNotFound
	}
	s.logger.Info("Daily challenge deleted", zap.Uint("challenge_id", id))
	return nil
}

// ListChallenges returns challenges dated within [from, to]. Empty bounds and
// an empty tier do not filter.
func (s *Catalog) ListChallenges(ctx context.Context, from, to string, tier models.Difficulty) ([]models.DailyChallenge, error) {
	query := s.db.WithContext(ctx).Model(&models.DailyChallenge{}).Preload("Exercise")

	if from != "" {
		if _, err := ParseDate(from); err != nil {
			return nil, err
		}
		query = query.Where("challenge_date >= ?", from)
	}
	if to != "" {
		if _, err := ParseDate(to); err != nil {
			return nil, err
		}
		query = query.Where("challenge_date <= ?", to)
	}
	if tier != "" {
		if !tier.Valid() {
			return nil, invalid("tier", "unknown tier %q", tier)
		}
		query = query.Where("difficulty_level = ?", tier)
	}

	var challenges []models.DailyChallenge
	err := query.
		Order("challenge_date ASC").
		Order("CASE difficulty_level WHEN 'beginner' THEN 1 WHEN 'intermediate' THEN 2 ELSE 3 END").
		Find(&challenges).Error
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return challenges, nil
}

// GetChallengeFor returns the active challenge for (date, tier), or nil when there is none
func (s *Catalog) GetChallengeFor(ctx context.Context, date string, tier models.Difficulty) (*models.DailyChallenge, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	if !tier.Valid() {
		return nil, invalid("tier", "unknown tier %q", tier)
	}

	var challenge models.DailyChallenge
	err := s.db.WithContext(ctx).
		Preload("Exercise").
		Where("challenge_date = ? AND difficulty_level = ? AND is_active = ?", date, tier, true).
		First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return &challenge, nil
}

// Get loads a challenge by id
func (s *Catalog) Get(ctx context.Context, id uint) (*models.DailyChallenge, error) {
	var challenge models.DailyChallenge
	err := s.db.WithContext(ctx).Preload("Exercise").First(&challenge, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return &challenge, nil
}
