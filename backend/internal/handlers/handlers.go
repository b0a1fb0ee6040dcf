package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/accounts"
	"github.com/user/nftmarket/backend/internal/auth"
	"github.com/user/nftmarket/backend/internal/ledger"
	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/middleware"
	"github.com/user/nftmarket/backend/internal/models"
	"github.com/user/nftmarket/backend/internal/registry"
	ws "github.com/user/nftmarket/backend/internal/websocket"
)

// Handler serves the marketplace API. It only marshals requests into ledger
// and registry calls; all rules live there.
type Handler struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	accounts *accounts.Service
	signer   *auth.Signer
	hub      *ws.Hub
}

func New(l *ledger.Ledger, r *registry.Registry, a *accounts.Service, s *auth.Signer, hub *ws.Hub) *Handler {
	return &Handler{ledger: l, registry: r, accounts: a, signer: s, hub: hub}
}

// principal returns the authenticated caller set by middleware.Protected.
func principal(c *fiber.Ctx) (models.Principal, bool) {
	p, ok := c.Locals(middleware.LocalPrincipal).(models.Principal)
	return p, ok && p != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid principal in token"})
}

// statusFor maps ledger error kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInsufficientFee),
		errors.Is(err, models.ErrIncorrectPayment):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrNotOwner):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrAlreadySold):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ledgerError reports a failed ledger call. Internal errors are logged and hidden.
func ledgerError(c *fiber.Ctx, op string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Error("ledger operation failed", zap.String("op", op), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "Internal error, operation was not applied"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
