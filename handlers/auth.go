package handlers

import (
	"crypto/rand"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"sentryfw/models"
	"sentryfw/system"
)

// jwtSecret signs API tokens. Taken from the environment when set so tokens
// survive restarts; otherwise random per process.
var jwtSecret = loadJWTSecret()

func loadJWTSecret() []byte {
	if secret := os.Getenv("SENTRYFW_JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		system.Warn("Failed to generate JWT secret: %v", err)
	}
	return secret
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an admin and issues a 24h JWT. When no admin exists
// yet, the default admin/sentry123! bootstrap login creates one.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid input"})
	}
	if h.DB == nil {
		return c.Status(503).JSON(fiber.Map{"error": "Database unavailable"})
	}

	var admin models.Admin
	if err := h.DB.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		var count int64
		h.DB.Model(&models.Admin{}).Count(&count)
		if count == 0 && req.Username == "admin" && req.Password == "sentry123!" {
			hashed, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			admin = models.Admin{Username: req.Username, Password: string(hashed)}
			if err := h.DB.Create(&admin).Error; err != nil {
				system.Error("Failed to create default admin user: %v", err)
			} else {
				system.Info("Default admin login - created persistent 'admin' user")
			}
			return h.issueToken(c, req.Username)
		}
		system.Warn("Failed login attempt for user: %s", req.Username)
		return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	if admin.LockedUntil != nil && time.Now().Before(*admin.LockedUntil) {
		return c.Status(403).JSON(fiber.Map{"error": "Account is locked, try again later"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		admin.FailedAttempts++
		if admin.FailedAttempts >= 5 {
			lockUntil := time.Now().Add(5 * time.Minute)
			admin.LockedUntil = &lockUntil
		}
		h.DB.Save(&admin)

		msg := "Invalid credentials"
		if admin.FailedAttempts >= 5 {
			msg = "Account locked for 5 minutes"
		}
		system.Warn("Failed login attempt for user: %s (attempt %d)", req.Username, admin.FailedAttempts)
		return c.Status(401).JSON(fiber.Map{"error": msg})
	}

	admin.FailedAttempts = 0
	admin.LockedUntil = nil
	h.DB.Save(&admin)
	system.Info("User logged in: %s", req.Username)

	return h.issueToken(c, req.Username)
}

func (h *Handler) issueToken(c *fiber.Ctx, username string) error {
	claims := jwt.MapClaims{
		"user": username,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString(jwtSecret)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Could not login"})
	}
	return c.JSON(fiber.Map{"token": t})
}

// ChangePassword updates the authenticated admin's password.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	username := claims["user"].(string)

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid input"})
	}
	if h.DB == nil {
		return c.Status(503).JSON(fiber.Map{"error": "Database unavailable"})
	}

	var admin models.Admin
	if err := h.DB.Where("username = ?", username).First(&admin).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.OldPassword)); err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Incorrect old password"})
	}

	hashed, _ := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	admin.Password = string(hashed)
	admin.FailedAttempts = 0
	admin.LockedUntil = nil
	h.DB.Save(&admin)
	system.Info("User changed password: %s", username)

	return c.JSON(fiber.Map{"message": "Password updated"})
}

// JWTAuthMiddleware validates JWT tokens on protected routes.
func JWTAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization header"})
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format"})
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(401, "Invalid signing method")
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals("user", token)
		return c.Next()
	}
}
