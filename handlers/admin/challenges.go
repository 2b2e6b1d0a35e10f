// handlers/admin/challenges.go - Operator endpoints for the daily challenge schedule
package admin

import (
	"lingoquest/middleware"
	"lingoquest/models"
	"lingoquest/services"
	"lingoquest/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	adminDB     *gorm.DB
	adminTokens *middleware.Auth
	challenges  *services.Challenges
	adminLog    = zap.NewNop()
)

// Init sets the dependencies of the admin handlers
func Init(db *gorm.DB, svc *services.Challenges, auth *middleware.Auth, logger *zap.Logger) {
	adminDB = db
	challenges = svc
	adminTokens = auth
	if logger != nil {
		adminLog = logger
	}
}

// ListChallenges lists scheduled challenges
// GET /api/admin/challenges?from=2024-01-01&to=2024-01-31&tier=beginner
func ListChallenges(c *fiber.Ctx) error {
	list, err := challenges.Catalog.ListChallenges(c.UserContext(), c.Query("from"), c.Query("to"), models.Difficulty(c.Query("tier")))
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"challenges": list,
		"count":      len(list),
	})
}

// CreateChallenge schedules one challenge
// POST /api/admin/challenges
func CreateChallenge(c *fiber.Ctx) error {
	var in services.ChallengeInput
	if err := c.BodyParser(&in); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	challenge, err := challenges.Catalog.CreateChallenge(c.UserContext(), in)
	if err != nil {
		return utils.JSONError(c, err)
	}

	adminLog.Info("Challenge created",
		zap.Uint("challenge_id", challenge.ID),
		zap.String("date", challenge.ChallengeDate),
		zap.String("tier", string(challenge.DifficultyLevel)),
		zap.String("request_id", middleware.GetRequestID(c)))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"challenge": challenge,
	})
}

// BatchCreateChallenges schedules all three tiers of one day atomically
// POST /api/admin/challenges/batch
func BatchCreateChallenges(c *fiber.Ctx) error {
	var in services.BatchInput
	if err := c.BodyParser(&in); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	created, err := challenges.Catalog.BatchCreate(c.UserContext(), in)
	if err != nil {
		return utils.JSONError(c, err)
	}

	adminLog.Info("Challenge day created", zap.String("date", in.Date), zap.Int("count", len(created)))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"challenges": created,
	})
}

// DeleteChallenge hard-deletes a challenge. Ledger rows are kept.
// DELETE /api/admin/challenges/:id
func DeleteChallenge(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	if err := challenges.Catalog.DeleteChallenge(c.UserContext(), id); err != nil {
		return utils.JSONError(c, err)
	}

	adminLog.Info("Challenge deleted", zap.Uint("challenge_id", id))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Challenge deleted",
	})
}

// AwardWinners grants the podium prizes of one challenge. Repeated calls succeed
// with an empty award list.
// POST /api/admin/challenges/:id/award
func AwardWinners(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	result, err := challenges.Prizes.AwardWinners(c.UserContext(), id)
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(result)
}

// AwardPending awards every closed challenge whose winners are still pending
// POST /api/admin/challenges/award-pending
func AwardPending(c *fiber.Ctx) error {
	report, err := challenges.Prizes.AwardPending(c.UserContext())
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": len(report.Failures) == 0,
		"report":  report,
	})
}

// GetChallengeStats returns passing participant stats for one challenge
// GET /api/admin/challenges/:id/stats
func GetChallengeStats(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	if _, err := challenges.Catalog.Get(c.UserContext(), id); err != nil {
		return utils.JSONError(c, err)
	}

	stats, err := challenges.Ledger.Stats(c.UserContext(), id)
	if err != nil {
		return utils.JSONError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
