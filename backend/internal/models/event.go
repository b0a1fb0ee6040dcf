package models

import "time"

// EventType names a committed ledger mutation.
type EventType string

const (
	EventMinted EventType = "minted"
	EventListed EventType = "listed"
	EventSold   EventType = "sold"
)

// Event records one committed mutation. Replaying the events of a ledger in
// Seq order rebuilds its state.
type Event struct {
	Seq       int64     `json:"seq,omitempty"` // Assigned by the journal
	Type      EventType `json:"type"`
	AssetID   int64     `json:"asset_id"`
	ListingID int64     `json:"listing_id,omitempty"`
	Actor     Principal `json:"actor"` // Minter, seller or buyer
	URI       string    `json:"uri,omitempty"`
	Amount    Amount    `json:"amount"` // Fee paid when listed, payment when sold
	Price     Amount    `json:"price,omitempty"`
	Ts        time.Time `json:"ts"`
}
