package ticker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
)

// StatsSource supplies the current market counters.
type StatsSource interface {
	Stats() models.MarketStats
}

// StatsPublisher receives each summary.
type StatsPublisher interface {
	PublishStats(stats models.MarketStats)
}

// Ticker periodically broadcasts a market summary.
type Ticker struct {
	source    StatsSource
	publisher StatsPublisher
	interval  time.Duration
}

func New(source StatsSource, publisher StatsPublisher, interval time.Duration) *Ticker {
	return &Ticker{source: source, publisher: publisher, interval: interval}
}

// Run publishes a summary every interval until ctx is done.
func (t *Ticker) Run(ctx context.Context) {
	logger.Info("starting market stats ticker", zap.Duration("interval", t.interval))

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			stats := t.source.Stats()
			t.publisher.PublishStats(stats)
			logger.Debug("market stats published",
				zap.Int("listings", stats.Listings),
				zap.Int("unsold", stats.Unsold))
		}
	}
}
