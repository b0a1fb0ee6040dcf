package ledger

import (
	"github.com/user/nftmarket/backend/internal/models"
)

// Read-only projections over the listing table. Results are consistent as of
// the call and ordered by ascending listing id.

// GetListing returns one listing.
func (l *Ledger) GetListing(listingID int64) (*models.ListingView, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	listing, err := l.lookup(listingID)
	if err != nil {
		return nil, err
	}
	view := l.view(listing)
	return &view, nil
}

// FetchUnsoldListings returns every listing still for sale.
func (l *Ledger) FetchUnsoldListings() []models.ListingView {
	return l.collect(func(listing *models.Listing) bool {
		return !listing.Sold
	})
}

// FetchListingsForPrincipal returns listings p created or now holds.
func (l *Ledger) FetchListingsForPrincipal(p models.Principal) []models.ListingView {
	return l.collect(func(listing *models.Listing) bool {
		return listing.Seller == p || listing.Holder == p
	})
}

// FetchListingsCreated returns listings p created, sold or not.
func (l *Ledger) FetchListingsCreated(p models.Principal) []models.ListingView {
	return l.collect(func(listing *models.Listing) bool {
		return listing.Seller == p
	})
}

// FetchOwnedListings returns listings p bought.
func (l *Ledger) FetchOwnedListings(p models.Principal) []models.ListingView {
	return l.collect(func(listing *models.Listing) bool {
		return listing.Sold && listing.Holder == p
	})
}

func (l *Ledger) collect(keep func(*models.Listing) bool) []models.ListingView {
	l.mu.RLock()
	defer l.mu.RUnlock()

	views := make([]models.ListingView, 0)
	for _, listing := range l.listings {
		if keep(listing) {
			views = append(views, l.view(listing))
		}
	}
	return views
}

// view copies a listing out; mu must be held.
func (l *Ledger) view(listing *models.Listing) models.ListingView {
	cp := *listing
	if listing.SoldAt != nil {
		soldAt := *listing.SoldAt
		cp.SoldAt = &soldAt
	}
	uri, _ := l.registry.TokenURI(listing.AssetID)
	return models.ListingView{Listing: cp, AssetURI: uri}
}
