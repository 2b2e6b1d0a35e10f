package admin

import (
	"time"

	"lingoquest/middleware"
	"lingoquest/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresAt int64  `json:"expires_at"`
}

// Login authenticates an admin user
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	// Validate input
	if req.Username == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Username and password are required",
		})
	}

	// Find admin user
	var user models.User
	if err := adminDB.WithContext(c.UserContext()).Where("username = ? AND is_admin = ?", req.Username, true).First(&user).Error; err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid credentials",
		})
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid credentials",
		})
	}

	adminDB.Model(&user).Update("last_login", time.Now())

	token, expiresAt, err := adminTokens.IssueToken(user.ID, user.Username, true)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to generate token",
		})
	}

	return c.JSON(LoginResponse{
		Success:   true,
		Token:     token,
		Username:  user.Username,
		ExpiresAt: expiresAt,
	})
}

// VerifyToken echoes the identity of a valid admin token
func VerifyToken(c *fiber.Ctx) error {
	username, _ := middleware.GetUsername(c)
	userID, _ := middleware.GetUserID(c)
	return c.JSON(fiber.Map{
		"valid":    true,
		"user_id":  userID,
		"username": username,
		"is_admin": c.Locals("isAdmin"),
	})
}
