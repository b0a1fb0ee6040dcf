package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/user/nftmarket/backend/internal/middleware"
)

// Register mounts every route on app.
func (h *Handler) Register(app *fiber.App) {
	// --- WebSocket Routes ---
	wsGroup := app.Group("/ws")
	wsGroup.Use("/", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	wsGroup.Get("/market", websocket.New(h.MarketWSEndpoint))

	// --- API Routes ---
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("NFT market API is healthy!")
	})

	// Public reads
	api.Get("/fee", h.GetFee)
	api.Get("/stats", h.GetStats)
	api.Get("/assets/:id", h.GetAsset)
	api.Get("/listings", h.GetListings)
	api.Get("/listings/:id", h.GetListing)

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", h.Signup)
	authGroup.Post("/login", h.Login)

	// --- Protected Routes ---
	protected := middleware.Protected(h.signer)

	api.Post("/assets", protected, h.MintAsset)
	api.Post("/listings", protected, h.CreateListing)
	api.Post("/listings/:id/buy", protected, h.BuyListing)

	me := api.Group("/me", protected)
	me.Get("/", h.GetMe)
	me.Get("/listings", h.GetMyListings)
	me.Get("/balance", h.GetMyBalance)
}
