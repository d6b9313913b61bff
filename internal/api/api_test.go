package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkermesse/stallpoints/internal/api"
	"github.com/openkermesse/stallpoints/internal/api/response"
	"github.com/openkermesse/stallpoints/internal/factory"
	"github.com/openkermesse/stallpoints/internal/services/auth"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	adminHash, err := auth.HashCredential("admin-pass")
	require.NoError(t, err)
	giftHash, err := auth.HashCredential("gift-pass")
	require.NoError(t, err)

	authCfg := auth.DefaultConfig()
	authCfg.AdminPasswordHash = adminHash
	authCfg.GiftCounterPasswordHash = giftHash

	// API tests are integration tests - use the production factory
	app, err := factory.New(factory.Config{AuthConfig: authCfg})
	require.NoError(t, err)
	app.Start()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Ledger:      app.Ledger,
		Registry:    app.Registry,
		Leaderboard: app.Leaderboard,
		Hub:         app.Hub,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()

	body := map[string]string{"username": username, "password": password}
	rr := ts.request(http.MethodPost, "/api/v1/auth/login", body, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.SessionToken
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	token := ts.login(t, "admin", "admin-pass")
	assert.NotEmpty(t, token)
}

func TestLoginBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"username": "admin", "password": "wrong"}
	rr := ts.request(http.MethodPost, "/api/v1/auth/login", body, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPlayerEndpointsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players", map[string]string{"player_id": "p1", "name": "Asha"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateAndGetPlayer(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{"player_id": "p1", "name": "Asha"}, admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created response.PlayerRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "p1", created.ID)
	assert.Equal(t, "Asha", created.Name)
	assert.Zero(t, created.Total)

	rr = ts.request(http.MethodGet, "/api/v1/players/p1", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestCreatePlayerDuplicate(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	body := map[string]string{"player_id": "p1", "name": "Asha"}
	rr := ts.request(http.MethodPost, "/api/v1/players", body, admin)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players", body, admin)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetPlayerNotFound(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	rr := ts.request(http.MethodGet, "/api/v1/players/ghost", nil, admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "PLAYER_NOT_FOUND")
}

func TestAwardAndDeductFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	// Register a stall and a player
	rr := ts.request(http.MethodPost, "/api/v1/stalls", map[string]string{
		"stall_id":     "ring_toss",
		"display_name": "Ring Toss",
		"incharge":     "Maya",
		"credential":   "stall-pass",
	}, admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodPost, "/api/v1/players", map[string]string{"player_id": "p1", "name": "Asha"}, admin)
	require.Equal(t, http.StatusCreated, rr.Code)

	// The stall operator logs in with the stall id and awards points
	stallToken := ts.login(t, "ring_toss", "stall-pass")

	rr = ts.request(http.MethodPost, "/api/v1/players/p1/award", map[string]any{
		"stall_id": "ring_toss",
		"amount":   30,
	}, stallToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec response.PlayerRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, 30, rec.Total)
	assert.Equal(t, 30, rec.Balance)
	assert.Equal(t, 30, rec.PerStall["ring_toss"])

	// The gift counter deducts from the balance
	giftToken := ts.login(t, "giftcounter", "gift-pass")

	rr = ts.request(http.MethodPost, "/api/v1/players/p1/deduct", map[string]any{"amount": 10}, giftToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, 30, rec.Total)
	assert.Equal(t, 20, rec.Balance)
	assert.Equal(t, 10, rec.Deducted)
}

func TestStallCannotAwardForOtherStall(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	for _, stall := range []string{"ring_toss", "dunk_tank"} {
		rr := ts.request(http.MethodPost, "/api/v1/stalls", map[string]string{
			"stall_id":     stall,
			"display_name": stall,
			"incharge":     "Maya",
			"credential":   "stall-pass",
		}, admin)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{"player_id": "p1", "name": "Asha"}, admin)
	require.Equal(t, http.StatusCreated, rr.Code)

	stallToken := ts.login(t, "ring_toss", "stall-pass")

	rr = ts.request(http.MethodPost, "/api/v1/players/p1/award", map[string]any{
		"stall_id": "dunk_tank",
		"amount":   5,
	}, stallToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDeductInsufficientBalance(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{"player_id": "p1", "name": "Asha"}, admin)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/players/p1/deduct", map[string]any{"amount": 5}, admin)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "INSUFFICIENT_BALANCE")
}

func TestStallLifecycle(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	rr := ts.request(http.MethodPost, "/api/v1/stalls", map[string]string{
		"stall_id":     "ring_toss",
		"display_name": "Ring Toss",
		"incharge":     "Maya",
		"credential":   "stall-pass",
	}, admin)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodPatch, "/api/v1/stalls/ring_toss", map[string]string{
		"display_name": "Ring Toss Deluxe",
		"incharge":     "Ravi",
	}, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var stall response.Stall
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stall))
	assert.Equal(t, "Ring Toss Deluxe", stall.DisplayName)

	rr = ts.request(http.MethodDelete, "/api/v1/stalls/ring_toss", nil, admin)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/stalls/ring_toss", nil, admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStallManagementRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	gift := ts.login(t, "giftcounter", "gift-pass")

	rr := ts.request(http.MethodPost, "/api/v1/stalls", map[string]string{
		"stall_id":     "ring_toss",
		"display_name": "Ring Toss",
		"incharge":     "Maya",
		"credential":   "stall-pass",
	}, gift)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestInvalidStallID(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	rr := ts.request(http.MethodPost, "/api/v1/stalls", map[string]string{
		"stall_id":     "has space",
		"display_name": "Bad",
		"incharge":     "Maya",
		"credential":   "stall-pass",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_STALL_ID")
}

func TestScoresArePublic(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/scores", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var board response.Scoreboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &board))
	assert.Empty(t, board.Players)
}

func TestScoresAdmitAnyViewer(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	// A logged-in operator sees the same board as a spectator
	rr := ts.request(http.MethodGet, "/api/v1/scores", nil, admin)
	assert.Equal(t, http.StatusOK, rr.Code)

	// An expired or bogus token must not lock anyone out of the board
	rr = ts.request(http.MethodGet, "/api/v1/scores", nil, "sess_bogus")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestScoresRefresh(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/scores/refresh", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin", "admin-pass")

	rr := ts.request(http.MethodPost, "/api/v1/auth/logout", nil, admin)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Token is dead afterwards
	rr = ts.request(http.MethodGet, "/api/v1/players", nil, admin)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
