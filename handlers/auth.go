// handlers/auth.go - Player sign-up and sign-in
package handlers

import (
	"time"

	"lingoquest/middleware"
	"lingoquest/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	usersDB    *gorm.DB
	authTokens *middleware.Auth
)

// InitAuthHandlers sets the store and token issuer for Login and Register
func InitAuthHandlers(db *gorm.DB, auth *middleware.Auth) {
	usersDB = db
	authTokens = auth
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type AuthResponse struct {
	Success   bool     `json:"success"`
	Token     string   `json:"token,omitempty"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
	User      UserInfo `json:"user,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type UserInfo struct {
	ID            uint      `json:"id"`
	Username      string    `json:"username"`
	DisplayName   string    `json:"display_name"`
	Level         int       `json:"level"`
	XP            int       `json:"xp"`
	Gems          int       `json:"gems"`
	CurrentStreak int       `json:"current_streak"`
	CreatedAt     time.Time `json:"created_at"`
}

func userInfo(u models.User) UserInfo {
	return UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Level:         u.Level,
		XP:            u.XP,
		Gems:          u.Gems,
		CurrentStreak: u.CurrentStreak,
		CreatedAt:     u.CreatedAt,
	}
}

// Login authenticates a player
// POST /api/auth/login
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Invalid request body"})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Username and password required"})
	}

	var user models.User
	if err := usersDB.WithContext(c.UserContext()).Where("username = ?", req.Username).First(&user).Error; err != nil {
		return c.Status(401).JSON(AuthResponse{Success: false, Error: "Invalid credentials"})
	}

	if user.IsBanned {
		return c.Status(403).JSON(AuthResponse{Success: false, Error: "Account suspended"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(AuthResponse{Success: false, Error: "Invalid credentials"})
	}

	usersDB.Model(&user).Update("last_login", time.Now())

	token, expiresAt, err := authTokens.IssueToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		handlerLog.Error("Failed to sign token", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to generate token"})
	}

	return c.JSON(AuthResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userInfo(user),
	})
}

// Register creates a player account and signs it in
// POST /api/auth/register
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Invalid request body"})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Username and password required"})
	}

	if len(req.Password) < 6 {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Password must be at least 6 characters"})
	}

	var existing int64
	if err := usersDB.Model(&models.User{}).Where("username = ?", req.Username).Count(&existing).Error; err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to create account"})
	}
	if existing > 0 {
		return c.Status(400).JSON(AuthResponse{Success: false, Error: "Username already taken"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to hash password"})
	}

	user := models.User{
		Username:    req.Username,
		Password:    string(hashedPassword),
		DisplayName: req.DisplayName,
		Level:       1,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if user.DisplayName == "" {
		user.DisplayName = req.Username
	}

	if err := usersDB.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		handlerLog.Warn("Failed to create account", zap.String("username", req.Username), zap.Error(err))
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to create account"})
	}

	token, expiresAt, err := authTokens.IssueToken(user.ID, user.Username, false)
	if err != nil {
		return c.Status(500).JSON(AuthResponse{Success: false, Error: "Failed to generate token"})
	}

	return c.Status(201).JSON(AuthResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userInfo(user),
	})
}
