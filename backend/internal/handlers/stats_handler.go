package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// GetStats returns market counters plus the number of live feed subscribers.
func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats := h.ledger.Stats()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"stats":       stats,
		"subscribers": h.hub.ClientCount(),
	})
}
