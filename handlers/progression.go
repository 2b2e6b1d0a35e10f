package handlers

import (
	"lingoquest/middleware"
	"lingoquest/models"
	"lingoquest/services"

	"github.com/gofiber/fiber/v2"
)

// GetProgression returns the caller's level, currencies and challenge streak
// GET /api/users/me/progression
func GetProgression(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	var user models.User
	if err := usersDB.WithContext(c.UserContext()).First(&user, userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"success": false, "error": "User not found"})
	}

	_, into, needed := services.LevelProgress(user.XP)
	progress := float64(into) / float64(needed) * 100

	return c.JSON(fiber.Map{
		"success":             true,
		"level":               user.Level,
		"xp":                  user.XP,
		"xp_into_level":       into,
		"xp_to_next_level":    needed,
		"progress_percent":    progress,
		"gems":                user.Gems,
		"tier":                challengeSvc.Policy.Tiers.TierFor(user.Level),
		"current_streak":      user.CurrentStreak,
		"best_streak":         user.BestStreak,
		"last_challenge_date": user.LastChallengeDate,
	})
}

// GetUserAchievements lists every achievement with the caller's unlock state
// GET /api/users/me/achievements
func GetUserAchievements(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	db := usersDB.WithContext(c.UserContext())

	var unlocked []models.UserAchievement
	if err := db.Where("user_id = ?", userID).Order("unlocked_at DESC").Find(&unlocked).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch achievements"})
	}

	var allAchievements []models.Achievement
	if err := db.Order("id ASC").Find(&allAchievements).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"success": false, "error": "Failed to fetch all achievements"})
	}

	unlockedMap := make(map[uint]models.UserAchievement)
	for _, ua := range unlocked {
		unlockedMap[ua.AchievementID] = ua
	}

	achievements := make([]fiber.Map, 0, len(allAchievements))
	for _, achievement := range allAchievements {
		achData := fiber.Map{
			"id":          achievement.ID,
			"name":        achievement.Name,
			"description": achievement.Description,
			"category":    achievement.Category,
			"icon":        achievement.Icon,
			"rule_kind":   achievement.RuleKind,
			"threshold":   achievement.Threshold,
			"xp_reward":   achievement.XPReward,
			"gem_reward":  achievement.GemReward,
			"unlocked":    false,
		}

		if ua, ok := unlockedMap[achievement.ID]; ok {
			achData["unlocked"] = true
			achData["unlocked_at"] = ua.UnlockedAt
			achData["claimed"] = ua.Claimed
			achData["source"] = ua.Source
		}

		achievements = append(achievements, achData)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"achievements": achievements,
		"total":        len(allAchievements),
		"unlocked":     len(unlocked),
	})
}
