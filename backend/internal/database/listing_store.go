package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/nftmarket/backend/internal/models"
)

//go:generate mockgen -source=listing_store.go -destination=../mocks/mock_querier.go -package=mocks

// PgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// InsertAsset adds a minted asset to the projection.
func InsertAsset(ctx context.Context, q PgxQuerier, assetID int64, owner models.Principal, uri string, mintedAt time.Time) error {
	query := `INSERT INTO assets (asset_id, owner, uri, minted_at) VALUES ($1, $2, $3, $4)`
	if _, err := q.Exec(ctx, query, assetID, string(owner), uri, mintedAt); err != nil {
		return fmt.Errorf("error inserting asset %d: %w", assetID, err)
	}
	return nil
}

// SetAssetOwner moves an asset from one owner to another.
func SetAssetOwner(ctx context.Context, q PgxQuerier, assetID int64, from, to models.Principal) error {
	query := `UPDATE assets SET owner = $1 WHERE asset_id = $2 AND owner = $3`
	cmdTag, err := q.Exec(ctx, query, string(to), assetID, string(from))
	if err != nil {
		return fmt.Errorf("error updating owner of asset %d: %w", assetID, err)
	}
	// Exactly one row, or the projection disagrees with the ledger
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("asset %d is not held by %s in the projection", assetID, from)
	}
	return nil
}

// InsertListing adds a new unsold listing held by ledger.
func InsertListing(ctx context.Context, q PgxQuerier, ev *models.Event, ledger models.Principal) error {
	query := `INSERT INTO listings (listing_id, asset_id, seller, holder, price, sold, created_at)
			  VALUES ($1, $2, $3, $4, $5, FALSE, $6)`
	_, err := q.Exec(ctx, query, ev.ListingID, ev.AssetID, string(ev.Actor), string(ledger), int64(ev.Price), ev.Ts)
	if err != nil {
		return fmt.Errorf("error inserting listing %d: %w", ev.ListingID, err)
	}
	return nil
}

// MarkListingSold flips an unsold listing to sold and returns its seller.
func MarkListingSold(ctx context.Context, q PgxQuerier, listingID int64, buyer models.Principal, soldAt time.Time) (models.Principal, error) {
	query := `UPDATE listings SET sold = TRUE, holder = $1, sold_at = $2
			  WHERE listing_id = $3 AND sold = FALSE
			  RETURNING seller`
	var seller string
	err := q.QueryRow(ctx, query, string(buyer), soldAt, listingID).Scan(&seller)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("listing %d is missing or already sold in the projection", listingID)
		}
		return "", fmt.Errorf("error marking listing %d sold: %w", listingID, err)
	}
	return models.Principal(seller), nil
}
