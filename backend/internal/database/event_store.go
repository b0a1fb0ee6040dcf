package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/nftmarket/backend/internal/models"
)

// EventStore is the Postgres journal. Each Append writes the event and its
// projection updates in one transaction.
type EventStore struct {
	pool      *pgxpool.Pool
	ledger    models.Principal
	custodian models.Principal
}

// NewEventStore needs the ledger and custodian principals to maintain the
// asset owner and balance projections.
func NewEventStore(pool *pgxpool.Pool, ledger, custodian models.Principal) *EventStore {
	return &EventStore{pool: pool, ledger: ledger, custodian: custodian}
}

// Append records ev and sets ev.Seq.
func (s *EventStore) Append(ctx context.Context, ev *models.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	// Ensure rollback happens if anything goes wrong before commit
	defer tx.Rollback(ctx)

	query := `INSERT INTO market_events (type, asset_id, listing_id, actor, uri, amount, price, ts)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING seq`
	var seq int64
	err = tx.QueryRow(ctx, query,
		string(ev.Type), ev.AssetID, ev.ListingID, string(ev.Actor),
		ev.URI, int64(ev.Amount), int64(ev.Price), ev.Ts,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("error inserting %s event for asset %d: %w", ev.Type, ev.AssetID, err)
	}

	if err := s.project(ctx, tx, ev); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing %s event for asset %d: %w", ev.Type, ev.AssetID, err)
	}
	ev.Seq = seq
	return nil
}

// project applies ev to the assets, listings and balances tables.
func (s *EventStore) project(ctx context.Context, q PgxQuerier, ev *models.Event) error {
	switch ev.Type {
	case models.EventMinted:
		return InsertAsset(ctx, q, ev.AssetID, ev.Actor, ev.URI, ev.Ts)
	case models.EventListed:
		if err := SetAssetOwner(ctx, q, ev.AssetID, ev.Actor, s.ledger); err != nil {
			return err
		}
		if err := InsertListing(ctx, q, ev, s.ledger); err != nil {
			return err
		}
		return CreditBalance(ctx, q, s.custodian, ev.Amount)
	case models.EventSold:
		seller, err := MarkListingSold(ctx, q, ev.ListingID, ev.Actor, ev.Ts)
		if err != nil {
			return err
		}
		if err := SetAssetOwner(ctx, q, ev.AssetID, s.ledger, ev.Actor); err != nil {
			return err
		}
		return CreditBalance(ctx, q, seller, ev.Amount)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// LoadEvents returns every recorded event in seq order.
func (s *EventStore) LoadEvents(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	query := `SELECT seq, type, asset_id, listing_id, actor, uri, amount, price, ts
			  FROM market_events ORDER BY seq`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying market events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev            models.Event
			typ, actor    string
			amount, price int64
			ts            time.Time
		)
		err := rows.Scan(&ev.Seq, &typ, &ev.AssetID, &ev.ListingID, &actor, &ev.URI, &amount, &price, &ts)
		if err != nil {
			return nil, fmt.Errorf("error scanning market event row: %w", err)
		}
		ev.Type = models.EventType(typ)
		ev.Actor = models.Principal(actor)
		ev.Amount = models.Amount(amount)
		ev.Price = models.Amount(price)
		ev.Ts = ts.UTC()
		events = append(events, ev)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating market event rows: %w", rows.Err())
	}
	return events, nil
}
