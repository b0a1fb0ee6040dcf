package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/user/nftmarket/backend/internal/middleware"
)

// GetMe returns the identity carried by the caller's token.
func (h *Handler) GetMe(c *fiber.Ctx) error {
	p, ok := principal(c)
	username, ok2 := c.Locals(middleware.LocalUsername).(string)
	if !ok || !ok2 {
		return unauthorized(c)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"principal": p,
		"username":  username,
	})
}

// GetMyListings returns the caller's listings. The view query parameter
// selects "created" (listed by the caller), "owned" (bought by the caller)
// or, by default, every listing the caller is seller or holder of.
func (h *Handler) GetMyListings(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}

	switch c.Query("view") {
	case "created":
		return c.Status(fiber.StatusOK).JSON(h.ledger.FetchListingsCreated(p))
	case "owned":
		return c.Status(fiber.StatusOK).JSON(h.ledger.FetchOwnedListings(p))
	case "", "all":
		return c.Status(fiber.StatusOK).JSON(h.ledger.FetchListingsForPrincipal(p))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "view must be one of all, created, owned"})
	}
}

// GetMyBalance returns the caller's accumulated proceeds.
func (h *Handler) GetMyBalance(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"principal": p,
		"balance":   h.ledger.Balance(p),
	})
}
