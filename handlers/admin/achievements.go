package admin

import (
	"errors"

	"lingoquest/models"
	"lingoquest/services"
	"lingoquest/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetAchievements returns all achievements
func GetAchievements(c *fiber.Ctx) error {
	var achievements []models.Achievement
	if err := adminDB.WithContext(c.UserContext()).Order("id ASC").Find(&achievements).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch achievements"})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"achievements": achievements,
	})
}

// CreateAchievement creates a new achievement. The unlock rule must be valid.
func CreateAchievement(c *fiber.Ctx) error {
	var achievement models.Achievement
	if err := c.BodyParser(&achievement); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	achievement.ID = 0

	if err := validateAchievement(achievement); err != nil {
		return utils.JSONError(c, err)
	}

	if err := adminDB.WithContext(c.UserContext()).Create(&achievement).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(409).JSON(fiber.Map{"success": false, "error": "Achievement name already exists"})
		}
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to create achievement"})
	}

	adminLog.Info("Achievement created", zap.Uint("achievement_id", achievement.ID), zap.String("rule_kind", string(achievement.RuleKind)))
	return c.Status(201).JSON(fiber.Map{
		"success":     true,
		"achievement": achievement,
	})
}

// UpdateAchievement updates an existing achievement
func UpdateAchievement(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	db := adminDB.WithContext(c.UserContext())
	var achievement models.Achievement
	if err := db.First(&achievement, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "Achievement not found"})
	}

	if err := c.BodyParser(&achievement); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	achievement.ID = id

	if err := validateAchievement(achievement); err != nil {
		return utils.JSONError(c, err)
	}

	if err := db.Save(&achievement).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to update achievement"})
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"achievement": achievement,
	})
}

// DeleteAchievement deletes an achievement that no challenge or prize refers to
func DeleteAchievement(c *fiber.Ctx) error {
	id, err := utils.ParseUintParam(c, "id")
	if err != nil {
		return utils.JSONError(c, err)
	}

	db := adminDB.WithContext(c.UserContext())

	var refs int64
	if err := db.Model(&models.DailyChallenge{}).
		Where("top1_achievement_id = ? OR top2_achievement_id = ? OR top3_achievement_id = ?", id, id, id).
		Count(&refs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete achievement"})
	}
	if refs > 0 {
		return c.Status(409).JSON(fiber.Map{"success": false, "error": "Achievement is used by scheduled challenges"})
	}

	res := db.Delete(&models.Achievement{}, id)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to delete achievement"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "Achievement not found"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Achievement deleted successfully",
	})
}

func validateAchievement(a models.Achievement) error {
	if a.Name == "" || a.Description == "" {
		return &services.ValidationError{Field: "name", Message: "name and description are required"}
	}
	if a.XPReward < 0 || a.GemReward < 0 {
		return &services.ValidationError{Field: "reward", Message: "rewards must be non-negative"}
	}
	_, err := services.RuleFor(a)
	return err
}
