package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nftmarket/backend/internal/models"
)

func listingIDs(views []models.ListingView) []int64 {
	ids := make([]int64, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestFetchUnsoldListings(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.ledger.FetchUnsoldListings())

	for i := 0; i < 5; i++ {
		f.list(t, f.mint(t, "ipfs://asset", seller), 100)
	}
	require.NoError(t, f.ledger.ExecuteSale(f.ctx, 1, buyer, 100))
	require.NoError(t, f.ledger.ExecuteSale(f.ctx, 4, buyer, 100))

	unsold := f.ledger.FetchUnsoldListings()
	assert.Equal(t, []int64{2, 3, 5}, listingIDs(unsold))
	for _, v := range unsold {
		assert.False(t, v.Sold)
		assert.Equal(t, market, v.Holder)
		assert.Equal(t, "ipfs://asset", v.AssetURI)
	}
	assert.Equal(t, f.ledger.Stats().Unsold, len(unsold))
}

func TestFetchListingsForPrincipal(t *testing.T) {
	f := newFixture(t)

	// Listings 1-3 by seller, listing 4 by another seller.
	for i := 0; i < 3; i++ {
		f.list(t, f.mint(t, "ipfs://asset", seller), 100)
	}
	otherAsset := f.mint(t, "ipfs://other", "other-seller")
	_, err := f.ledger.CreateListing(f.ctx, otherAsset, "other-seller", 300, fee)
	require.NoError(t, err)

	require.NoError(t, f.ledger.ExecuteSale(f.ctx, 2, buyer, 100))
	require.NoError(t, f.ledger.ExecuteSale(f.ctx, 4, buyer, 300))

	assert.Equal(t, []int64{1, 2, 3}, listingIDs(f.ledger.FetchListingsForPrincipal(seller)))
	assert.Equal(t, []int64{2, 4}, listingIDs(f.ledger.FetchListingsForPrincipal(buyer)))
	assert.Equal(t, []int64{4}, listingIDs(f.ledger.FetchListingsForPrincipal("other-seller")))
	assert.Empty(t, f.ledger.FetchListingsForPrincipal("nobody"))

	assert.Equal(t, []int64{1, 2, 3}, listingIDs(f.ledger.FetchListingsCreated(seller)))
	assert.Equal(t, []int64{2, 4}, listingIDs(f.ledger.FetchOwnedListings(buyer)))
	assert.Empty(t, f.ledger.FetchOwnedListings(seller))
}

func TestViewsAreCopies(t *testing.T) {
	f := newFixture(t)
	listingID := f.list(t, f.mint(t, "ipfs://one", seller), 100)

	views := f.ledger.FetchUnsoldListings()
	require.Len(t, views, 1)
	views[0].Sold = true
	views[0].Holder = "thief"

	listing, err := f.ledger.GetListing(listingID)
	require.NoError(t, err)
	assert.False(t, listing.Sold)
	assert.Equal(t, market, listing.Holder)

	_, err = f.ledger.GetListing(2)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
