package handlers

import (
	"lingoquest/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the player routes and the live leaderboard socket
func RegisterRoutes(app *fiber.App, auth *middleware.Auth) {
	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", Register)
	authGroup.Post("/login", Login)

	me := app.Group("/api/users/me", auth.Required())
	me.Get("/progression", GetProgression)
	me.Get("/achievements", GetUserAchievements)

	api := app.Group("/api/challenges", auth.Required())
	api.Get("/today", GetTodayChallenge)
	api.Get("/date/:date", GetChallengeByDate)
	api.Post("/:id/attempts", SubmitAttempt)
	api.Get("/:id/attempts", GetAttemptHistory)
	api.Get("/:id/leaderboard", GetChallengeLeaderboard)
	api.Get("/:id/stats", GetChallengeStats)

	app.Get("/ws/challenges/:id/leaderboard", RequireWebSocketUpgrade, auth.WebSocket(), LiveLeaderboard())
}
