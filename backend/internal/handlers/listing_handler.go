package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/user/nftmarket/backend/internal/models"
)

// MintRequest is the JSON body for minting an asset
type MintRequest struct {
	URI string `json:"uri"` // Metadata location, e.g. an IPFS gateway URL
}

// CreateListingRequest is the JSON body for listing an asset
type CreateListingRequest struct {
	AssetID int64         `json:"asset_id"`
	Price   models.Amount `json:"price"`    // Smallest unit
	FeePaid models.Amount `json:"fee_paid"` // Must equal the listing fee
}

// BuyRequest is the JSON body for buying a listing
type BuyRequest struct {
	Payment models.Amount `json:"payment"` // Must equal the asking price
}

// GetFee returns the listing fee and its custodian.
func (h *Handler) GetFee(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.ledger.Fees().Config())
}

// MintAsset mints an asset owned by the caller.
func (h *Handler) MintAsset(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}

	req := new(MintRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	assetID, err := h.registry.Mint(c.Context(), req.URI, p)
	if err != nil {
		return ledgerError(c, "mint", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"asset_id": assetID})
}

// GetAsset returns one asset including its metadata URI.
func (h *Handler) GetAsset(c *fiber.Ctx) error {
	assetID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset ID format"})
	}

	asset, err := h.registry.Get(int64(assetID))
	if err != nil {
		return ledgerError(c, "get_asset", err)
	}
	return c.Status(fiber.StatusOK).JSON(asset)
}

// CreateListing escrows the caller's asset and lists it.
func (h *Handler) CreateListing(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}

	req := new(CreateListingRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	listingID, err := h.ledger.CreateListing(c.Context(), req.AssetID, p, req.Price, req.FeePaid)
	if err != nil {
		return ledgerError(c, "create_listing", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"listing_id": listingID})
}

// BuyListing settles a listing with the caller as buyer.
func (h *Handler) BuyListing(c *fiber.Ctx) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}

	listingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID format"})
	}

	req := new(BuyRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse request body"})
	}

	if err := h.ledger.ExecuteSale(c.Context(), int64(listingID), p, req.Payment); err != nil {
		return ledgerError(c, "execute_sale", err)
	}

	listing, err := h.ledger.GetListing(int64(listingID))
	if err != nil {
		return ledgerError(c, "get_listing", err)
	}
	return c.Status(fiber.StatusOK).JSON(listing)
}

// GetListings returns every unsold listing.
func (h *Handler) GetListings(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.ledger.FetchUnsoldListings())
}

// GetListing returns one listing, sold or not.
func (h *Handler) GetListing(c *fiber.Ctx) error {
	listingID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid listing ID format"})
	}

	listing, err := h.ledger.GetListing(int64(listingID))
	if err != nil {
		return ledgerError(c, "get_listing", err)
	}
	return c.Status(fiber.StatusOK).JSON(listing)
}
