package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nftmarket/backend/internal/accounts"
	"github.com/user/nftmarket/backend/internal/auth"
	"github.com/user/nftmarket/backend/internal/fees"
	"github.com/user/nftmarket/backend/internal/ledger"
	"github.com/user/nftmarket/backend/internal/models"
	"github.com/user/nftmarket/backend/internal/registry"
	ws "github.com/user/nftmarket/backend/internal/websocket"
)

const listingFee models.Amount = 25

type testServer struct {
	app    *fiber.App
	ledger *ledger.Ledger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	policy, err := fees.NewPolicy(models.FeeConfig{Fee: listingFee, Custodian: "market-owner"})
	require.NoError(t, err)
	reg := registry.New()
	led, err := ledger.New("market", policy, reg)
	require.NoError(t, err)

	h := New(led, reg, accounts.NewService(accounts.NewMemoryStore()), auth.NewSigner("test-secret", time.Hour), ws.NewHub())
	app := fiber.New()
	h.Register(app)
	return &testServer{app: app, ledger: led}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) signup(t *testing.T, username string) AuthResponse {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/signup", "", CredentialsRequest{Username: username, Password: "correct-horse"})
	require.Equal(t, http.StatusCreated, status, string(body))

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestMarketFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	status, body := s.do(t, http.MethodPost, "/api/assets", alice.Token, MintRequest{URI: "ipfs://cat"})
	require.Equal(t, http.StatusCreated, status, string(body))
	assetID := decode[map[string]int64](t, body)["asset_id"]
	assert.EqualValues(t, 1, assetID)

	status, body = s.do(t, http.MethodGet, "/api/fee", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, listingFee, decode[models.FeeConfig](t, body).Fee)

	status, body = s.do(t, http.MethodPost, "/api/listings", alice.Token,
		CreateListingRequest{AssetID: assetID, Price: 100, FeePaid: listingFee})
	require.Equal(t, http.StatusCreated, status, string(body))
	listingID := decode[map[string]int64](t, body)["listing_id"]

	status, body = s.do(t, http.MethodGet, "/api/listings", "", nil)
	require.Equal(t, http.StatusOK, status)
	unsold := decode[[]models.ListingView](t, body)
	require.Len(t, unsold, 1)
	assert.Equal(t, "ipfs://cat", unsold[0].AssetURI)
	assert.Equal(t, models.Principal("market"), unsold[0].Holder)

	status, body = s.do(t, http.MethodGet, "/api/assets/1", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.Principal("market"), decode[models.Asset](t, body).Owner)

	path := fmt.Sprintf("/api/listings/%d/buy", listingID)
	status, body = s.do(t, http.MethodPost, path, bob.Token, BuyRequest{Payment: 100})
	require.Equal(t, http.StatusOK, status, string(body))
	sold := decode[models.ListingView](t, body)
	assert.True(t, sold.Sold)
	assert.Equal(t, bob.Principal, sold.Holder)

	status, _ = s.do(t, http.MethodPost, path, bob.Token, BuyRequest{Payment: 100})
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(t, http.MethodGet, "/api/me/balance", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, decode[map[string]interface{}](t, body)["balance"])

	status, body = s.do(t, http.MethodGet, "/api/me/listings?view=owned", bob.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.ListingView](t, body), 1)

	status, body = s.do(t, http.MethodGet, "/api/me/listings?view=owned", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.ListingView](t, body))

	status, body = s.do(t, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, status)
	stats := decode[struct {
		Stats models.MarketStats `json:"stats"`
	}](t, body).Stats
	assert.Equal(t, 1, stats.Listings)
	assert.Equal(t, 1, stats.Sold)
	assert.Equal(t, 0, stats.Unsold)
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	_, body := s.do(t, http.MethodPost, "/api/assets", alice.Token, MintRequest{URI: "ipfs://dog"})
	assetID := decode[map[string]int64](t, body)["asset_id"]

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"mint without token", http.MethodPost, "/api/assets", "", MintRequest{URI: "ipfs://x"}, http.StatusUnauthorized},
		{"mint empty uri", http.MethodPost, "/api/assets", alice.Token, MintRequest{URI: ""}, http.StatusBadRequest},
		{"wrong fee", http.MethodPost, "/api/listings", alice.Token, CreateListingRequest{AssetID: assetID, Price: 5, FeePaid: listingFee + 1}, http.StatusBadRequest},
		{"not owner", http.MethodPost, "/api/listings", bob.Token, CreateListingRequest{AssetID: assetID, Price: 5, FeePaid: listingFee}, http.StatusForbidden},
		{"missing asset", http.MethodPost, "/api/listings", alice.Token, CreateListingRequest{AssetID: 99, Price: 5, FeePaid: listingFee}, http.StatusNotFound},
		{"missing listing", http.MethodPost, "/api/listings/42/buy", bob.Token, BuyRequest{Payment: 5}, http.StatusNotFound},
		{"bad listing id", http.MethodGet, "/api/listings/abc", "", nil, http.StatusBadRequest},
		{"unknown asset", http.MethodGet, "/api/assets/7", "", nil, http.StatusNotFound},
		{"bad view", http.MethodGet, "/api/me/listings?view=nope", alice.Token, nil, http.StatusBadRequest},
		{"bad token", http.MethodGet, "/api/me/balance", "garbage", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, status, string(body))
		})
	}

	// Rejected listings never reach the ledger.
	_, err := s.ledger.GetListing(1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIncorrectPayment(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	_, body := s.do(t, http.MethodPost, "/api/assets", alice.Token, MintRequest{URI: "ipfs://owl"})
	assetID := decode[map[string]int64](t, body)["asset_id"]
	_, body = s.do(t, http.MethodPost, "/api/listings", alice.Token, CreateListingRequest{AssetID: assetID, Price: 50, FeePaid: listingFee})
	listingID := decode[map[string]int64](t, body)["listing_id"]

	status, _ := s.do(t, http.MethodPost, fmt.Sprintf("/api/listings/%d/buy", listingID), bob.Token, BuyRequest{Payment: 49})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/listings/%d", listingID), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[models.ListingView](t, body).Sold)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "carol")

	status, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", CredentialsRequest{Username: "carol", Password: "correct-horse"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/signup", "", CredentialsRequest{Username: "dave", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Username: "carol", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, status)
	resp := decode[AuthResponse](t, body)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "carol", resp.User.Username)

	status, body = s.do(t, http.MethodGet, "/api/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	me := decode[map[string]string](t, body)
	assert.Equal(t, "carol", me["username"])
	assert.Equal(t, string(resp.Principal), me["principal"])

	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{Username: "carol", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, statusFor(fmt.Errorf("wrap: %w", models.ErrIncorrectPayment)))
	assert.Equal(t, fiber.StatusConflict, statusFor(models.ErrAlreadySold))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(fmt.Errorf("disk on fire")))
}
