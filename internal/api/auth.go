package api

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/brunocserra/extincor-pdf-function/internal/models"
)

// handleLogin validates the configured API credential and issues a JWT for
// the job routes. There is no user directory; a single machine credential
// authenticates the upstream automation.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	slog.Info("authentication attempt", "email", req.Email)

	if s.cfg.Auth.Password == "" || !credentialsMatch(req, s.cfg.Auth.Email, s.cfg.Auth.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	claims := jwt.MapClaims{
		"sub": req.Email,
		"exp": time.Now().Add(s.cfg.JWT.Expiration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		slog.Error("failed to sign token", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(models.LoginResponse{Token: signed, TokenType: "Bearer"})
}

func credentialsMatch(req models.LoginRequest, email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(password)) == 1
	return emailOK && passOK
}
