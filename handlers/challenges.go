// handlers/challenges.go - Daily challenge endpoints for signed-in users
package handlers

import (
	"lingoquest/events"
	"lingoquest/middleware"
	"lingoquest/services"
	"lingoquest/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

var (
	challengeSvc *services.Challenges
	liveHub      *events.Hub
	handlerLog   = zap.NewNop()
)

// InitChallengeHandlers sets the services the handlers in this package use
func InitChallengeHandlers(svc *services.Challenges, hub *events.Hub, logger *zap.Logger) {
	challengeSvc = svc
	liveHub = hub
	if logger != nil {
		handlerLog = logger
	}
}

type AttemptRequest struct {
	Score     int `json:"score"`
	TimeSpent int `json:"time_spent"`
}

// GetTodayChallenge returns today's challenge for the caller's tier
// GET /api/challenges/today
func GetTodayChallenge(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	view, err := challengeSvc.Resolver.GetChallengeForUser(c.UserContext(), userID)
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    view,
	})
}

// GetChallengeByDate returns the caller's view of another day's challenge
// GET /api/challenges/date/:date
func GetChallengeByDate(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	view, err := challengeSvc.Resolver.GetChallengeForUserOn(c.UserContext(), userID, c.Params("date"))
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    view,
	})
}

// SubmitAttempt records one attempt
// POST /api/challenges/:id/attempts
func SubmitAttempt(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	challengeID, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	var req AttemptRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	result, err := challengeSvc.Ledger.RecordAttempt(c.UserContext(), challengeID, userID, req.Score, req.TimeSpent)
	if err != nil {
		handlerLog.Info("Attempt rejected",
			zap.Uint("challenge_id", challengeID),
			zap.Uint("user_id", userID),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		return utils.JSONError(c, err)
	}

	return c.JSON(result)
}

// GetAttemptHistory lists the caller's attempts, most recent first
// GET /api/challenges/:id/attempts
func GetAttemptHistory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	challengeID, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	attempts, err := challengeSvc.Ledger.AttemptHistory(c.UserContext(), challengeID, userID)
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"attempts": attempts,
		"count":    len(attempts),
	})
}

// GetChallengeLeaderboard returns the ranked participants and the caller's own entry
// GET /api/challenges/:id/leaderboard?limit=50
func GetChallengeLeaderboard(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	challengeID, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	limit := utils.QueryInt(c, "limit", defaultLeaderboardLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := challengeSvc.Ranking.Leaderboard(c.UserContext(), challengeID, limit)
	if err != nil {
		return utils.JSONError(c, err)
	}

	mine, err := challengeSvc.Ranking.UserRank(c.UserContext(), challengeID, userID)
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"leaderboard": entries,
		"my_rank":     mine,
	})
}

// GetChallengeStats returns participation stats over passing participants
// GET /api/challenges/:id/stats
func GetChallengeStats(c *fiber.Ctx) error {
	challengeID, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	stats, err := challengeSvc.Ledger.Stats(c.UserContext(), challengeID)
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
