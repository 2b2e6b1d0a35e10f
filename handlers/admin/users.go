package admin

import (
	"errors"

	"lingoquest/models"
	"lingoquest/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetUsers returns all users with pagination
func GetUsers(c *fiber.Ctx) error {
	db := adminDB.WithContext(c.UserContext())

	// Get pagination parameters
	page := utils.QueryInt(c, "page", 1)
	limit := utils.QueryInt(c, "limit", 20)
	search := c.Query("search", "")
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit

	var users []models.User
	var total int64

	query := db.Model(&models.User{})

	// Apply search filter if provided
	if search != "" {
		query = query.Where("username LIKE ? OR display_name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch users"})
	}

	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch users"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetUser returns a single user with their challenge participation count
func GetUser(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	db := adminDB.WithContext(c.UserContext())
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "User not found"})
	}

	var participations int64
	db.Model(&models.ChallengeParticipation{}).Where("user_id = ?", id).Count(&participations)

	return c.JSON(fiber.Map{
		"success":        true,
		"user":           user,
		"participations": participations,
	})
}

// DeleteUser hard-deletes a player. Their ledger rows stay and leaderboards skip them.
func DeleteUser(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	db := adminDB.WithContext(c.UserContext())

	// Check if user exists
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "User not found"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete user"})
	}

	// Prevent deleting admin users
	if user.IsAdmin {
		return c.Status(403).JSON(fiber.Map{"success": false, "error": "Cannot delete admin users"})
	}

	if err := db.Delete(&user).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete user"})
	}

	// leaderboards of every challenge the user played must drop them
	var challengeIDs []uint
	db.Model(&models.ChallengeParticipation{}).Where("user_id = ?", id).Pluck("challenge_id", &challengeIDs)
	for _, challengeID := range challengeIDs {
		challenges.Ranking.Invalidate(c.UserContext(), challengeID)
	}

	adminLog.Info("User deleted", zap.Uint("user_id", id), zap.Int("challenges", len(challengeIDs)))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}

// BanUser bans or unbans a user
func BanUser(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	var banData struct {
		IsBanned bool `json:"is_banned"`
	}
	if err := c.BodyParser(&banData); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	res := adminDB.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", id).Update("is_banned", banData.IsBanned)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to update ban status"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "User not found"})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"user_id":   id,
		"is_banned": banData.IsBanned,
	})
}
