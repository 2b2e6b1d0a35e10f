package services

import (
	"time"

	"lingoquest/models"
)

// TierPolicy maps a user level onto a challenge tier
type TierPolicy struct {
	IntermediateLevel int
	AdvancedLevel     int
}

func (p TierPolicy) TierFor(level int) models.Difficulty {
	switch {
	case level >= p.AdvancedLevel:
		return models.DifficultyAdvanced
	case level >= p.IntermediateLevel:
		return models.DifficultyIntermediate
	}
	return models.DifficultyBeginner
}

// Policy holds the challenge rules shared by the ledger and the resolver
type Policy struct {
	MaxAttempts    int
	PassingScore   int
	Tiers          TierPolicy
	LeaderboardTTL time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		PassingScore:   75,
		Tiers:          TierPolicy{IntermediateLevel: 6, AdvancedLevel: 16},
		LeaderboardTTL: 30 * time.Second,
	}
}
