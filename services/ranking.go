// services/ranking.go - Deterministic leaderboard computed from participation records
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"lingoquest/cache"
	"lingoquest/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompareEntries orders by score desc, time asc, first attempt asc, user id asc.
// It is a total order over distinct users.
func CompareEntries(a, b models.LeaderboardEntry) int {
	switch {
	case a.Score != b.Score:
		if a.Score > b.Score {
			return -1
		}
		return 1
	case a.TimeSpent != b.TimeSpent:
		if a.TimeSpent < b.TimeSpent {
			return -1
		}
		return 1
	case !a.FirstAttemptAt.Equal(b.FirstAttemptAt):
		if a.FirstAttemptAt.Before(b.FirstAttemptAt) {
			return -1
		}
		return 1
	case a.UserID != b.UserID:
		if a.UserID < b.UserID {
			return -1
		}
		return 1
	}
	return 0
}

// RankEntries sorts entries in place and assigns positional ranks 1..n
func RankEntries(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	slices.SortStableFunc(entries, CompareEntries)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

type Ranking struct {
	db     *gorm.DB
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewRanking builds the ranking engine. A nil cache disables snapshots.
func NewRanking(db *gorm.DB, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Ranking {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranking{db: db, cache: c, ttl: ttl, logger: logger}
}

func versionKey(challengeID uint) string {
	return fmt.Sprintf("leaderboard:%d:v", challengeID)
}

func snapshotKey(challengeID uint, version string) string {
	return fmt.Sprintf("leaderboard:%d:snapshot:%s", challengeID, version)
}

// EntriesTx computes the full ranked list using tx, so uncommitted writes of
// the same transaction are visible.
func (r *Ranking) EntriesTx(tx *gorm.DB, challengeID uint) ([]models.LeaderboardEntry, error) {
	var rows []models.ChallengeParticipation
	err := tx.Preload("User").
		Where("challenge_id = ? AND attempts_used > 0", challengeID).
		Order("best_score DESC, best_time_spent ASC, first_attempt_at ASC, user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, p := range rows {
		if p.User == nil {
			// user row gone
			continue
		}
		entry := models.LeaderboardEntry{
			UserID:         p.UserID,
			Score:          p.BestScore,
			TimeSpent:      p.BestTimeSpent,
			Attempts:       p.AttemptsUsed,
			FirstAttemptAt: p.FirstAttemptAt,
			Username:       p.User.Username,
			DisplayName:    p.User.DisplayName,
			Avatar:         p.User.Avatar,
			Level:          p.User.Level,
		}
		entries = append(entries, entry)
	}
	return RankEntries(entries), nil
}

// RankTx is the user's current rank inside tx, 0 when not ranked
func (r *Ranking) RankTx(tx *gorm.DB, challengeID, userID uint) (int, error) {
	entries, err := r.EntriesTx(tx, challengeID)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e.Rank, nil
		}
	}
	return 0, nil
}

// Leaderboard returns the top limit entries (all when limit <= 0)
func (r *Ranking) Leaderboard(ctx context.Context, challengeID uint, limit int) ([]models.LeaderboardEntry, error) {
	entries, err := r.full(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// UserRank finds the user's entry, nil when the user has not attempted
func (r *Ranking) UserRank(ctx context.Context, challengeID, userID uint) (*models.LeaderboardEntry, error) {
	entries, err := r.full(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].UserID == userID {
			e := entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

// Invalidate moves the challenge to a new snapshot version
func (r *Ranking) Invalidate(ctx context.Context, challengeID uint) {
	if r.cache == nil {
		return
	}
	if _, err := r.cache.Incr(ctx, versionKey(challengeID)); err != nil {
		r.logger.Warn("Failed to bump leaderboard version", zap.Uint("challenge_id", challengeID), zap.Error(err))
		r.dropSnapshot(ctx, challengeID)
	}
}

// dropSnapshot deletes the snapshot of the current version so the next read reloads
func (r *Ranking) dropSnapshot(ctx context.Context, challengeID uint) {
	version, ok, err := r.cache.Get(ctx, versionKey(challengeID))
	if err != nil {
		return
	}
	if !ok {
		version = "0"
	}
	if err := r.cache.Delete(ctx, snapshotKey(challengeID, version)); err != nil {
		r.logger.Warn("Failed to drop leaderboard snapshot", zap.Uint("challenge_id", challengeID), zap.Error(err))
	}
}

func (r *Ranking) full(ctx context.Context, challengeID uint) ([]models.LeaderboardEntry, error) {
	if r.cache == nil {
		return r.load(ctx, challengeID)
	}

	version, ok, err := r.cache.Get(ctx, versionKey(challengeID))
	if err != nil {
		r.logger.Warn("Leaderboard cache unavailable", zap.Uint("challenge_id", challengeID), zap.Error(err))
		return r.load(ctx, challengeID)
	}
	if !ok {
		version = "0"
	}
	key := snapshotKey(challengeID, version)

	if raw, hit, err := r.cache.Get(ctx, key); err == nil && hit {
		var entries []models.LeaderboardEntry
		if err := json.Unmarshal([]byte(raw), &entries); err == nil {
			return entries, nil
		}
		r.logger.Warn("Discarding corrupt leaderboard snapshot", zap.String("key", key))
	}

	entries, err := r.load(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(entries); err == nil {
		if err := r.cache.Set(ctx, key, string(raw), r.ttl); err != nil {
			r.logger.Warn("Failed to store leaderboard snapshot", zap.String("key", key), zap.Error(err))
		}
	}
	return entries, nil
}

func (r *Ranking) load(ctx context.Context, challengeID uint) ([]models.LeaderboardEntry, error) {
	entries, err := r.EntriesTx(r.db.WithContext(ctx), challengeID)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return entries, nil
}
