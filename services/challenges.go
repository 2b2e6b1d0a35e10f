package services

import (
	"lingoquest/cache"
	"lingoquest/events"
	applog "lingoquest/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Challenges wires the daily challenge services together
type Challenges struct {
	Policy       Policy
	Calendar     *Calendar
	Catalog      *Catalog
	Ledger       *Ledger
	Ranking      *Ranking
	Prizes       *Prizes
	Resolver     *Resolver
	Rewards      *Rewards
	Achievements *Achievements
}

// NewChallenges builds the service graph. c and pub may be nil.
func NewChallenges(db *gorm.DB, cal *Calendar, policy Policy, c cache.Cache, pub events.Publisher, logger *zap.Logger) *Challenges {
	logger = applog.OrNop(logger)
	rewards := NewRewards(logger.Named("rewards"))
	achievements := NewAchievements(rewards, logger.Named("achievements"))
	ranking := NewRanking(db, c, policy.LeaderboardTTL, logger.Named("ranking"))
	catalog := NewCatalog(db, logger.Named("catalog"))
	ledger := NewLedger(db, cal, policy, ranking, rewards, achievements, pub, logger.Named("ledger"))
	prizes := NewPrizes(db, cal, ranking, rewards, achievements, pub, logger.Named("prizes"))

	return &Challenges{
		Policy:       policy,
		Calendar:     cal,
		Catalog:      catalog,
		Ledger:       ledger,
		Ranking:      ranking,
		Prizes:       prizes,
		Resolver:     NewResolver(db, cal, policy, catalog, ledger, ranking),
		Rewards:      rewards,
		Achievements: achievements,
	}
}
