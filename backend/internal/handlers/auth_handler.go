package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/accounts"
	"github.com/user/nftmarket/backend/internal/auth"
	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
)

// CredentialsRequest is the JSON body for signup and login
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse defines the JSON response for successful auth
type AuthResponse struct {
	Token     string           `json:"token"`
	Principal models.Principal `json:"principal"`
	User      *models.User     `json:"user"`
	IssuedAt  time.Time        `json:"issued_at"`
}

// Signup handles user registration.
func (h *Handler) Signup(c *fiber.Ctx) error {
	req := new(CredentialsRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	user, err := h.accounts.Signup(c.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidInput), errors.Is(err, auth.ErrPasswordLength):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, accounts.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Username already taken"})
	case err != nil:
		logger.Error("error creating user", zap.String("username", req.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	return h.issueToken(c, fiber.StatusCreated, user)
}

// Login handles user authentication.
func (h *Handler) Login(c *fiber.Ctx) error {
	req := new(CredentialsRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	user, err := h.accounts.Login(c.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	case err != nil:
		logger.Error("error finding user", zap.String("username", req.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error finding user"})
	}

	return h.issueToken(c, fiber.StatusOK, user)
}

func (h *Handler) issueToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := h.signer.GenerateJWT(user.Principal(), user.Username)
	if err != nil {
		logger.Error("error generating jwt", zap.String("username", user.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	// Don't send password hash back
	user.Password = ""

	return c.Status(status).JSON(AuthResponse{
		Token:     token,
		Principal: user.Principal(),
		User:      user,
		IssuedAt:  time.Now(),
	})
}
