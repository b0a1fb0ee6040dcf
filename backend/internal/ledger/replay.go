package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
)

// Replay rebuilds state from journaled events, oldest first. It runs the same
// checks as the live operations but neither journals nor publishes. Replay is
// meant for an empty ledger at startup.
//
// Events before a failing one stay applied, in the ledger and in its
// registry. On error both must be discarded.
func (l *Ledger) Replay(ctx context.Context, events []models.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ev := range events {
		if err := l.replayOne(ctx, ev); err != nil {
			return fmt.Errorf("error replaying event %d (%s): %w", ev.Seq, ev.Type, err)
		}
	}
	logger.Info("ledger replayed",
		zap.Int("events", len(events)),
		zap.Int("listings", len(l.listings)),
		zap.Int("sold", l.soldCount))
	return nil
}

func (l *Ledger) replayOne(ctx context.Context, ev models.Event) error {
	switch ev.Type {
	case models.EventMinted:
		return l.registry.Restore(models.Asset{
			ID:       ev.AssetID,
			Owner:    ev.Actor,
			URI:      ev.URI,
			MintedAt: ev.Ts,
		})
	case models.EventListed:
		id, err := l.createListing(ctx, ev.AssetID, ev.Actor, ev.Price, ev.Amount, ev.Ts, false)
		if err != nil {
			return err
		}
		if id != ev.ListingID {
			return fmt.Errorf("listing id diverged: journal has %d, ledger assigned %d", ev.ListingID, id)
		}
		return nil
	case models.EventSold:
		return l.executeSale(ctx, ev.ListingID, ev.Actor, ev.Amount, ev.Ts, false)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}
