package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/fees"
	"github.com/user/nftmarket/backend/internal/journal"
	"github.com/user/nftmarket/backend/internal/logger"
	"github.com/user/nftmarket/backend/internal/models"
)

// AssetRegistry is what the ledger needs from the asset registry.
type AssetRegistry interface {
	OwnerOf(assetID int64) (models.Principal, error)
	TokenURI(assetID int64) (string, error)
	TransferOwnership(assetID int64, from, to models.Principal) error
	Restore(asset models.Asset) error
	Count() int
}

// Stage names a point inside a mutating operation, after its preconditions
// have passed and before it commits.
type Stage string

const (
	StageEscrowed     Stage = "listing.escrowed"      // asset moved into ledger custody
	StageFeeCollected Stage = "listing.fee_collected" // listing appended, fee credited
	StageSellerPaid   Stage = "sale.seller_paid"      // seller credited, asset not yet delivered
	StageDelivered    Stage = "sale.delivered"        // asset moved to the buyer
)

// Ledger is the marketplace state machine. A listing is created Unsold,
// escrowing its asset, and moves to Sold exactly once.
//
// Every mutating call holds mu for its whole duration, checks all
// preconditions before writing, and applies its writes through an undo log
// so that a failure at any later point leaves no trace.
type Ledger struct {
	mu        sync.RWMutex
	self      models.Principal
	fees      *fees.Policy
	registry  AssetRegistry
	listings  []*models.Listing // listing id N lives at index N-1
	soldCount int
	balances  map[models.Principal]models.Amount

	journal    journal.Journal
	notifier   journal.Notifier
	now        func() time.Time
	checkpoint func(Stage) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJournal records every mutation inside its transaction boundary.
func WithJournal(j journal.Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithNotifier publishes committed mutations.
func WithNotifier(n journal.Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithCheckpoint installs a hook called at each Stage. A non-nil error
// aborts the operation and rolls it back. Used for fault injection.
func WithCheckpoint(fn func(Stage) error) Option {
	return func(l *Ledger) { l.checkpoint = fn }
}

// New creates a ledger that holds escrowed assets as self.
func New(self models.Principal, policy *fees.Policy, registry AssetRegistry, opts ...Option) (*Ledger, error) {
	if self == "" {
		return nil, fmt.Errorf("%w: ledger principal is required", models.ErrValidation)
	}
	if policy == nil || registry == nil {
		return nil, fmt.Errorf("%w: fee policy and asset registry are required", models.ErrValidation)
	}
	if policy.Custodian() == self {
		return nil, fmt.Errorf("%w: fee custodian must differ from the ledger principal", models.ErrValidation)
	}

	l := &Ledger{
		self:       self,
		fees:       policy,
		registry:   registry,
		listings:   make([]*models.Listing, 0),
		balances:   make(map[models.Principal]models.Amount),
		journal:    journal.Nop{},
		notifier:   journal.Nop{},
		now:        time.Now,
		checkpoint: func(Stage) error { return nil },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Principal returns the identity the ledger holds escrowed assets under.
func (l *Ledger) Principal() models.Principal {
	return l.self
}

// ListingFee returns the fee a seller must pay to list.
func (l *Ledger) ListingFee() models.Amount {
	return l.fees.ListingFee()
}

// Fees returns the fee policy.
func (l *Ledger) Fees() *fees.Policy {
	return l.fees
}

// CreateListing escrows assetID from seller and lists it at price.
// Checks, in order: exact fee, non-negative price, seller owns the asset.
func (l *Ledger) CreateListing(ctx context.Context, assetID int64, seller models.Principal, price, feePaid models.Amount) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.createListing(ctx, assetID, seller, price, feePaid, l.now().UTC(), true)
}

func (l *Ledger) createListing(ctx context.Context, assetID int64, seller models.Principal, price, feePaid models.Amount, at time.Time, record bool) (int64, error) {
	if err := l.fees.Check(feePaid); err != nil {
		return 0, err
	}
	if price < 0 {
		return 0, fmt.Errorf("%w: price must not be negative (got %d)", models.ErrValidation, price)
	}
	owner, err := l.registry.OwnerOf(assetID)
	if err != nil {
		return 0, err
	}
	// Escrowed assets are owned by the ledger but belong to their listing.
	if owner != seller || seller == l.self {
		return 0, fmt.Errorf("%w: %s does not own asset %d", models.ErrNotOwner, seller, assetID)
	}
	if err := l.checkCredit(l.fees.Custodian(), feePaid); err != nil {
		return 0, err
	}

	t := newTx()
	defer t.Rollback()

	if err := l.registry.TransferOwnership(assetID, seller, l.self); err != nil {
		return 0, fmt.Errorf("error escrowing asset %d: %w", assetID, err)
	}
	t.onRollback(func() { l.restoreOwner(assetID, l.self, seller) })
	if err := l.checkpoint(StageEscrowed); err != nil {
		return 0, fmt.Errorf("listing of asset %d aborted at %s: %w", assetID, StageEscrowed, err)
	}

	listing := &models.Listing{
		ID:        int64(len(l.listings) + 1),
		AssetID:   assetID,
		Seller:    seller,
		Holder:    l.self,
		Price:     price,
		CreatedAt: at,
	}
	l.listings = append(l.listings, listing)
	t.onRollback(func() { l.listings = l.listings[:len(l.listings)-1] })

	l.credit(t, l.fees.Custodian(), feePaid)
	if err := l.checkpoint(StageFeeCollected); err != nil {
		return 0, fmt.Errorf("listing of asset %d aborted at %s: %w", assetID, StageFeeCollected, err)
	}

	ev := models.Event{
		Type:      models.EventListed,
		AssetID:   assetID,
		ListingID: listing.ID,
		Actor:     seller,
		Amount:    feePaid,
		Price:     price,
		Ts:        at,
	}
	if record {
		if err := l.journal.Append(ctx, &ev); err != nil {
			return 0, fmt.Errorf("error recording listing %d: %w", listing.ID, err)
		}
	}
	t.Commit()

	logger.Info("listing created",
		zap.Int64("listing_id", listing.ID),
		zap.Int64("asset_id", assetID),
		zap.String("seller", string(seller)),
		zap.Int64("price", int64(price)),
		zap.Int64("fee", int64(feePaid)))
	if record {
		l.notifier.Publish(ev)
	}
	return listing.ID, nil
}

// ExecuteSale settles listingID: the seller is credited with payment and
// buyer receives the asset. Checks, in order: listing exists, not sold,
// exact payment.
func (l *Ledger) ExecuteSale(ctx context.Context, listingID int64, buyer models.Principal, payment models.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.executeSale(ctx, listingID, buyer, payment, l.now().UTC(), true)
}

func (l *Ledger) executeSale(ctx context.Context, listingID int64, buyer models.Principal, payment models.Amount, at time.Time, record bool) error {
	listing, err := l.lookup(listingID)
	if err != nil {
		return err
	}
	if listing.Sold {
		return fmt.Errorf("%w: listing %d", models.ErrAlreadySold, listingID)
	}
	if payment != listing.Price {
		return fmt.Errorf("%w: paid %d, listing %d asks %d", models.ErrIncorrectPayment, payment, listingID, listing.Price)
	}
	if buyer == "" {
		return fmt.Errorf("%w: buyer is required", models.ErrValidation)
	}
	if buyer == l.self {
		return fmt.Errorf("%w: ledger %s cannot buy listing %d", models.ErrValidation, buyer, listingID)
	}
	if err := l.checkCredit(listing.Seller, payment); err != nil {
		return err
	}

	t := newTx()
	defer t.Rollback()

	l.credit(t, listing.Seller, payment)
	if err := l.checkpoint(StageSellerPaid); err != nil {
		return fmt.Errorf("sale of listing %d aborted at %s: %w", listingID, StageSellerPaid, err)
	}

	if err := l.registry.TransferOwnership(listing.AssetID, l.self, buyer); err != nil {
		return fmt.Errorf("error delivering asset %d: %w", listing.AssetID, err)
	}
	t.onRollback(func() { l.restoreOwner(listing.AssetID, buyer, l.self) })
	if err := l.checkpoint(StageDelivered); err != nil {
		return fmt.Errorf("sale of listing %d aborted at %s: %w", listingID, StageDelivered, err)
	}

	prevHolder := listing.Holder
	listing.Holder = buyer
	listing.Sold = true
	soldAt := at
	listing.SoldAt = &soldAt
	l.soldCount++
	t.onRollback(func() {
		listing.Holder = prevHolder
		listing.Sold = false
		listing.SoldAt = nil
		l.soldCount--
	})

	ev := models.Event{
		Type:      models.EventSold,
		AssetID:   listing.AssetID,
		ListingID: listingID,
		Actor:     buyer,
		Amount:    payment,
		Price:     listing.Price,
		Ts:        at,
	}
	if record {
		if err := l.journal.Append(ctx, &ev); err != nil {
			return fmt.Errorf("error recording sale of listing %d: %w", listingID, err)
		}
	}
	t.Commit()

	logger.Info("listing sold",
		zap.Int64("listing_id", listingID),
		zap.Int64("asset_id", listing.AssetID),
		zap.String("seller", string(listing.Seller)),
		zap.String("buyer", string(buyer)),
		zap.Int64("payment", int64(payment)))
	if record {
		l.notifier.Publish(ev)
	}
	return nil
}

// Balance returns the proceeds and fees credited to p.
func (l *Ledger) Balance(p models.Principal) models.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[p]
}

// Stats returns the ledger counters. Unsold is derived from the counters, not a scan.
func (l *Ledger) Stats() models.MarketStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.MarketStats{
		Assets:   l.registry.Count(),
		Listings: len(l.listings),
		Unsold:   len(l.listings) - l.soldCount,
		Sold:     l.soldCount,
		Ts:       l.now().UnixMilli(),
	}
}

// Snapshot is a deep copy of the ledger state.
type Snapshot struct {
	Listings []models.Listing
	Sold     int
	Balances map[models.Principal]models.Amount
}

// Snapshot copies the current ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		Listings: make([]models.Listing, 0, len(l.listings)),
		Sold:     l.soldCount,
		Balances: make(map[models.Principal]models.Amount, len(l.balances)),
	}
	for _, listing := range l.listings {
		cp := *listing
		if listing.SoldAt != nil {
			soldAt := *listing.SoldAt
			cp.SoldAt = &soldAt
		}
		s.Listings = append(s.Listings, cp)
	}
	for p, amt := range l.balances {
		s.Balances[p] = amt
	}
	return s
}

// checkCredit rejects a credit that would overflow p's balance.
func (l *Ledger) checkCredit(p models.Principal, amt models.Amount) error {
	if amt > 0 && l.balances[p] > math.MaxInt64-amt {
		return fmt.Errorf("%w: crediting %d would overflow the balance of %s", models.ErrValidation, amt, p)
	}
	return nil
}

// credit adds amt to p's balance and registers the inverse on t.
// Callers run checkCredit first.
func (l *Ledger) credit(t *tx, p models.Principal, amt models.Amount) {
	if amt == 0 {
		return
	}
	prev, had := l.balances[p]
	l.balances[p] = prev + amt
	t.onRollback(func() {
		if had {
			l.balances[p] = prev
		} else {
			delete(l.balances, p)
		}
	})
}

// restoreOwner undoes a transfer made earlier in the same operation.
// It cannot fail while mu is held, since only the ledger moves escrowed assets.
func (l *Ledger) restoreOwner(assetID int64, from, to models.Principal) {
	if err := l.registry.TransferOwnership(assetID, from, to); err != nil {
		logger.Error("failed to roll back asset transfer",
			zap.Int64("asset_id", assetID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

// lookup expects mu to be held.
func (l *Ledger) lookup(listingID int64) (*models.Listing, error) {
	if listingID < 1 || listingID > int64(len(l.listings)) {
		return nil, fmt.Errorf("%w: listing %d", models.ErrNotFound, listingID)
	}
	return l.listings[listingID-1], nil
}
