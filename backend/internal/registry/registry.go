package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/journal"
	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
)

// Registry mints assets and tracks who holds each one.
// Assets are never removed; asset id N lives at index N-1.
type Registry struct {
	mu       sync.RWMutex
	assets   []*models.Asset
	journal  journal.Journal
	notifier journal.Notifier
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithJournal records every mint before it is applied.
func WithJournal(j journal.Journal) Option {
	return func(r *Registry) { r.journal = j }
}

// WithNotifier publishes committed mints.
func WithNotifier(n journal.Notifier) Option {
	return func(r *Registry) { r.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		assets:   make([]*models.Asset, 0),
		journal:  journal.Nop{},
		notifier: journal.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mint creates an asset owned by minter and returns its id.
func (r *Registry) Mint(ctx context.Context, uri string, minter models.Principal) (int64, error) {
	if strings.TrimSpace(uri) == "" {
		return 0, fmt.Errorf("%w: asset uri must not be empty", models.ErrValidation)
	}
	if minter == "" {
		return 0, fmt.Errorf("%w: minter is required", models.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	asset := &models.Asset{
		ID:       int64(len(r.assets) + 1),
		Owner:    minter,
		URI:      uri,
		MintedAt: r.now().UTC(),
	}
	ev := models.Event{
		Type:    models.EventMinted,
		AssetID: asset.ID,
		Actor:   minter,
		URI:     uri,
		Ts:      asset.MintedAt,
	}
	// Nothing is applied until the journal has accepted the mint.
	if err := r.journal.Append(ctx, &ev); err != nil {
		return 0, fmt.Errorf("error recording mint of asset %d: %w", asset.ID, err)
	}
	r.assets = append(r.assets, asset)

	logger.Info("asset minted",
		zap.Int64("asset_id", asset.ID),
		zap.String("owner", string(minter)),
		zap.String("uri", uri))
	r.notifier.Publish(ev)
	return asset.ID, nil
}

// TransferOwnership moves an asset from one principal to another.
// Only the listing ledger calls this; it is not exposed to end callers.
func (r *Registry) TransferOwnership(assetID int64, from, to models.Principal) error {
	if to == "" {
		return fmt.Errorf("%w: transfer recipient is required", models.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	asset, err := r.lookup(assetID)
	if err != nil {
		return err
	}
	if asset.Owner != from {
		return fmt.Errorf("%w: asset %d is held by %s, not %s", models.ErrNotOwner, assetID, asset.Owner, from)
	}
	asset.Owner = to
	logger.Debug("asset ownership transferred",
		zap.Int64("asset_id", assetID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

// Get returns a copy of an asset.
func (r *Registry) Get(assetID int64) (*models.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, err := r.lookup(assetID)
	if err != nil {
		return nil, err
	}
	cp := *asset
	return &cp, nil
}

// OwnerOf returns the current holder of an asset.
func (r *Registry) OwnerOf(assetID int64) (models.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, err := r.lookup(assetID)
	if err != nil {
		return "", err
	}
	return asset.Owner, nil
}

// TokenURI returns the metadata pointer of an asset.
func (r *Registry) TokenURI(assetID int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, err := r.lookup(assetID)
	if err != nil {
		return "", err
	}
	return asset.URI, nil
}

// Count returns the number of minted assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

// Restore re-inserts a journaled asset. Assets must arrive in id order.
func (r *Registry) Restore(asset models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := int64(len(r.assets) + 1)
	if asset.ID != next {
		return fmt.Errorf("%w: restoring asset %d, expected id %d", models.ErrValidation, asset.ID, next)
	}
	if asset.URI == "" || asset.Owner == "" {
		return fmt.Errorf("%w: restored asset %d is incomplete", models.ErrValidation, asset.ID)
	}
	cp := asset
	r.assets = append(r.assets, &cp)
	return nil
}

// lookup expects r.mu to be held.
func (r *Registry) lookup(assetID int64) (*models.Asset, error) {
	if assetID < 1 || assetID > int64(len(r.assets)) {
		return nil, fmt.Errorf("%w: asset %d", models.ErrNotFound, assetID)
	}
	return r.assets[assetID-1], nil
}
