package models

import (
	"time"

	"github.com/google/uuid"
)

// Principal identifies anyone who can own assets or hold balances.
type Principal string

// Amount is a value in the smallest indivisible unit.
type Amount int64

// User represents a marketplace account. Its principal is the account id.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // Store hash, exclude from JSON responses
	CreatedAt time.Time `json:"created_at"`
}

// Principal returns the identity the user trades under.
func (u *User) Principal() Principal {
	return Principal(u.ID.String())
}

// Asset is a minted token record.
type Asset struct {
	ID       int64     `json:"asset_id"`
	Owner    Principal `json:"owner"`
	URI      string    `json:"uri"` // Pointer to off-chain metadata
	MintedAt time.Time `json:"minted_at"`
}

// Listing escrows one asset at a fixed price until it is sold.
type Listing struct {
	ID        int64      `json:"listing_id"`
	AssetID   int64      `json:"asset_id"`
	Seller    Principal  `json:"seller"`
	Holder    Principal  `json:"holder"` // Ledger while unsold, buyer once sold
	Price     Amount     `json:"price"`
	Sold      bool       `json:"sold"`
	CreatedAt time.Time  `json:"created_at"`
	SoldAt    *time.Time `json:"sold_at,omitempty"`
}

// ListingView is a listing as returned to callers, with the asset URI resolved.
type ListingView struct {
	Listing
	AssetURI string `json:"asset_uri"`
}

// FeeConfig is the fixed listing fee and the principal that collects it.
type FeeConfig struct {
	Fee       Amount    `json:"listing_fee"`
	Custodian Principal `json:"custodian"`
}

// MarketStats summarises ledger counters.
type MarketStats struct {
	Assets   int   `json:"assets"`
	Listings int   `json:"listings"`
	Unsold   int   `json:"unsold"`
	Sold     int   `json:"sold"`
	Ts       int64 `json:"ts"` // Unix timestamp milliseconds
}
