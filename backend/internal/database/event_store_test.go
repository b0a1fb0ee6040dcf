package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nftmarket/backend/internal/mocks"
	"github.com/user/nftmarket/backend/internal/models"
)

var eventTs = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// sqlPrefix matches a statement by its leading keywords.
type sqlPrefix string

func (p sqlPrefix) Matches(x interface{}) bool {
	s, ok := x.(string)
	return ok && strings.HasPrefix(strings.TrimSpace(s), string(p))
}

func (p sqlPrefix) String() string { return fmt.Sprintf("sql starting with %q", string(p)) }

// sellerRow answers the RETURNING seller clause.
type sellerRow struct {
	seller string
	err    error
}

func (r sellerRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.seller
	return nil
}

func tag(s string) pgconn.CommandTag { return pgconn.NewCommandTag(s) }

func newProjector() *EventStore {
	return &EventStore{ledger: "market", custodian: "market-owner"}
}

func TestProjectMinted(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	q.EXPECT().Exec(gomock.Any(), sqlPrefix("INSERT INTO assets"), int64(1), "alice", "ipfs://cat", eventTs).
		Return(tag("INSERT 0 1"), nil)

	ev := &models.Event{Type: models.EventMinted, AssetID: 1, Actor: "alice", URI: "ipfs://cat", Ts: eventTs}
	require.NoError(t, newProjector().project(context.Background(), q, ev))
}

func TestProjectListed(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	gomock.InOrder(
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("UPDATE assets"), "market", int64(3), "alice").
			Return(tag("UPDATE 1"), nil),
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("INSERT INTO listings"), int64(2), int64(3), "alice", "market", int64(500), eventTs).
			Return(tag("INSERT 0 1"), nil),
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("INSERT INTO balances"), "market-owner", int64(25)).
			Return(tag("INSERT 0 1"), nil),
	)

	ev := &models.Event{Type: models.EventListed, AssetID: 3, ListingID: 2, Actor: "alice", Amount: 25, Price: 500, Ts: eventTs}
	require.NoError(t, newProjector().project(context.Background(), q, ev))
}

func TestProjectListedWithoutFee(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	gomock.InOrder(
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("UPDATE assets"), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(tag("UPDATE 1"), nil),
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("INSERT INTO listings"), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(tag("INSERT 0 1"), nil),
	)

	ev := &models.Event{Type: models.EventListed, AssetID: 3, ListingID: 1, Actor: "alice", Amount: 0, Price: 500, Ts: eventTs}
	require.NoError(t, newProjector().project(context.Background(), q, ev))
}

func TestProjectSoldCreditsReturnedSeller(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	gomock.InOrder(
		q.EXPECT().QueryRow(gomock.Any(), sqlPrefix("UPDATE listings"), "bob", eventTs, int64(2)).
			Return(sellerRow{seller: "alice"}),
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("UPDATE assets"), "bob", int64(3), "market").
			Return(tag("UPDATE 1"), nil),
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("INSERT INTO balances"), "alice", int64(500)).
			Return(tag("INSERT 0 1"), nil),
	)

	ev := &models.Event{Type: models.EventSold, AssetID: 3, ListingID: 2, Actor: "bob", Amount: 500, Ts: eventTs}
	require.NoError(t, newProjector().project(context.Background(), q, ev))
}

func TestProjectOwnerMismatchAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	// No listing insert or credit may follow.
	q.EXPECT().Exec(gomock.Any(), sqlPrefix("UPDATE assets"), "market", int64(3), "alice").
		Return(tag("UPDATE 0"), nil)

	ev := &models.Event{Type: models.EventListed, AssetID: 3, ListingID: 1, Actor: "alice", Amount: 25, Price: 500, Ts: eventTs}
	err := newProjector().project(context.Background(), q, ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not held by alice")
}

func TestProjectSoldMissingListingAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	q.EXPECT().QueryRow(gomock.Any(), sqlPrefix("UPDATE listings"), "bob", eventTs, int64(9)).
		Return(sellerRow{err: pgx.ErrNoRows})

	ev := &models.Event{Type: models.EventSold, AssetID: 3, ListingID: 9, Actor: "bob", Amount: 500, Ts: eventTs}
	err := newProjector().project(context.Background(), q, ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing or already sold")
}

func TestProjectExecErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)
	boom := errors.New("connection reset")

	gomock.InOrder(
		q.EXPECT().QueryRow(gomock.Any(), sqlPrefix("UPDATE listings"), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(sellerRow{seller: "alice"}),
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("UPDATE assets"), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(tag("UPDATE 1"), nil),
		q.EXPECT().Exec(gomock.Any(), sqlPrefix("INSERT INTO balances"), gomock.Any(), gomock.Any()).
			Return(pgconn.CommandTag{}, boom),
	)

	ev := &models.Event{Type: models.EventSold, AssetID: 3, ListingID: 2, Actor: "bob", Amount: 500, Ts: eventTs}
	assert.ErrorIs(t, newProjector().project(context.Background(), q, ev), boom)
}

func TestProjectUnknownEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	err := newProjector().project(context.Background(), q, &models.Event{Type: "burned", AssetID: 1})
	assert.ErrorContains(t, err, "unknown event type")
}

func TestCreditBalanceRejectsNegative(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockPgxQuerier(ctrl)

	assert.Error(t, CreditBalance(context.Background(), q, "alice", -1))
	assert.NoError(t, CreditBalance(context.Background(), q, "alice", 0))
}
