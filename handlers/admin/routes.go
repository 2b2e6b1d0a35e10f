package admin

import (
	"lingoquest/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the operator routes under /api/admin
func RegisterRoutes(app *fiber.App, auth *middleware.Auth) {
	app.Post("/api/admin/login", Login)
	app.Get("/api/admin/verify", auth.AdminRequired(), VerifyToken)

	achievements := app.Group("/api/admin/achievements", auth.AdminRequired())
	achievements.Get("/", GetAchievements)
	achievements.Post("/", CreateAchievement)
	achievements.Put("/:id", UpdateAchievement)
	achievements.Delete("/:id", DeleteAchievement)

	users := app.Group("/api/admin/users", auth.AdminRequired())
	users.Get("/", GetUsers)
	users.Get("/:id", GetUser)
	users.Delete("/:id", DeleteUser)
	users.Post("/:id/ban", BanUser)

	group := app.Group("/api/admin/challenges", auth.AdminRequired())
	group.Get("/", ListChallenges)
	group.Post("/", CreateChallenge)
	group.Post("/batch", BatchCreateChallenges)
	group.Post("/award-pending", AwardPending)
	group.Delete("/:id", DeleteChallenge)
	group.Post("/:id/award", AwardWinners)
	group.Get("/:id/stats", GetChallengeStats)
}
