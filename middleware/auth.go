// middleware/auth.go
package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Auth issues and verifies HS256 bearer tokens
type Auth struct {
	secret []byte
	ttl    time.Duration
}

func NewAuth(secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{secret: []byte(secret), ttl: ttl}
}

// IssueToken signs a token for the user and returns it with its expiry (unix seconds)
func (a *Auth) IssueToken(userID uint, username string, isAdmin bool) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(a.ttl).Unix()

	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"is_admin": isAdmin,
		"exp":      expiresAt,
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", 0, err
	}
	return tokenString, expiresAt, nil
}

func (a *Auth) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}

// Required rejects requests without a valid user token
func (a *Auth) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": err.Error()})
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid or expired token"})
		}

		setIdentity(c, claims)
		return c.Next()
	}
}

// AdminRequired rejects requests without a valid admin token
func (a *Auth) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": err.Error()})
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid or expired token"})
		}

		isAdmin, ok := claims["is_admin"].(bool)
		if !ok || !isAdmin {
			return c.Status(403).JSON(fiber.Map{"success": false, "error": "Access denied. Admin privileges required."})
		}

		setIdentity(c, claims)
		c.Locals("isAdmin", true)
		return c.Next()
	}
}

// WebSocket accepts a token from the Authorization header, the token cookie or
// the token query parameter. Connections without a valid token continue as guests.
func (a *Auth) WebSocket() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, _ := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Cookies("token")
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString != "" {
			if claims, err := a.parse(tokenString); err == nil {
				setIdentity(c, claims)
				c.Locals("isGuest", false)
				return c.Next()
			}
		}

		c.Locals("userId", nil)
		c.Locals("username", "Guest")
		c.Locals("isGuest", true)
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, claims jwt.MapClaims) {
	c.Locals("userId", claims["user_id"])
	c.Locals("username", claims["username"])
}

func GetUserID(c *fiber.Ctx) (uint, error) {
	userID := c.Locals("userId")
	if userID == nil {
		return 0, fiber.NewError(401, "User not authenticated")
	}

	if id, ok := userID.(float64); ok {
		return uint(id), nil
	}

	if id, ok := userID.(uint); ok {
		return id, nil
	}

	return 0, fiber.NewError(401, "Invalid user ID format")
}

func GetUsername(c *fiber.Ctx) (string, error) {
	username := c.Locals("username")
	if username == nil {
		return "", fiber.NewError(401, "User not authenticated")
	}

	if name, ok := username.(string); ok {
		return name, nil
	}

	return "", fiber.NewError(401, "Invalid username format")
}

func IsGuest(c *fiber.Ctx) bool {
	isGuest := c.Locals("isGuest")
	if isGuest == nil {
		return false
	}

	if guest, ok := isGuest.(bool); ok {
		return guest
	}

	return false
}
