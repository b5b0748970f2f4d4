package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/config"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/app"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "tradejournal-server-test-*")
	require.NoError(t, err)

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	})

	cfg := &config.Config{
		InitialCapital:      10000,
		RRFallbackDivisor:   2,
		MonthlyWindowMonths: 6,
	}
	svc, err := app.NewJournalService(cfg, &mockLogger{}, repo, repo)
	require.NoError(t, err)

	return NewServer(svc, &mockLogger{}).Router()
}

func doRequest(t *testing.T, router http.Handler, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func newTradeBody() map[string]interface{} {
	return map[string]interface{}{
		"symbol":      "AAPL",
		"direction":   "long",
		"entry_date":  "2025-03-01",
		"entry_price": 100.0,
		"quantity":    10.0,
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMissingUserHeader(t *testing.T) {
	router := setupRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/trades", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGetTrade(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", newTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created tradeResponse
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "open", created.Status)
	assert.Equal(t, "2025-03-01", created.EntryDate)
	require.NotNil(t, created.RemainingQuantity)
	assert.Equal(t, 10.0, *created.RemainingQuantity)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/trades/"+created.ID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got tradeResponse
	decodeBody(t, rec, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "AAPL", got.Symbol)
}

func TestCreateTrade_BadRequests(t *testing.T) {
	router := setupRouter(t)

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/trades", bytes.NewBufferString("{not json"))
		req.Header.Set(userHeader, "u1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unparseable entry date", func(t *testing.T) {
		body := newTradeBody()
		body["entry_date"] = "03/01/2025"
		rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		body := newTradeBody()
		body["quantity"] = 0.0
		rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetTrade_NotFound(t *testing.T) {
	router := setupRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/trades/missing", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserScoping(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", newTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created tradeResponse
	decodeBody(t, rec, &created)

	// Another user cannot see the trade.
	rec = doRequest(t, router, http.MethodGet, "/api/v1/trades/"+created.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/trades", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []tradeResponse
	decodeBody(t, rec, &list)
	assert.Empty(t, list)
}

func TestExitLifecycleOverHTTP(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", newTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var trade tradeResponse
	decodeBody(t, rec, &trade)

	exitsPath := "/api/v1/trades/" + trade.ID + "/exits"

	// Partial exit keeps the trade open.
	rec = doRequest(t, router, http.MethodPost, exitsPath, "u1", map[string]interface{}{
		"exit_date":  "2025-03-05",
		"exit_price": 105.0,
		"quantity":   4.0,
		"trigger":    "manual",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var exit exitResponse
	decodeBody(t, rec, &exit)
	assert.Equal(t, "manual", exit.Trigger)

	// Over-sized exit is rejected.
	rec = doRequest(t, router, http.MethodPost, exitsPath, "u1", map[string]interface{}{
		"exit_date":  "2025-03-06",
		"exit_price": 105.0,
		"quantity":   7.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Closing exit transitions the trade and back-fills exit fields.
	rec = doRequest(t, router, http.MethodPost, exitsPath, "u1", map[string]interface{}{
		"exit_date":  "2025-03-08",
		"exit_price": 112.0,
		"quantity":   6.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/trades/"+trade.ID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var closed tradeResponse
	decodeBody(t, rec, &closed)
	assert.Equal(t, "closed", closed.Status)
	require.NotNil(t, closed.ExitPrice)
	assert.Equal(t, 112.0, *closed.ExitPrice)
	require.Len(t, closed.Exits, 2)

	// Deleting the closing exit reopens the trade.
	rec = doRequest(t, router, http.MethodDelete, exitsPath+"/"+closed.Exits[1].ID, "u1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/trades/"+trade.ID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reopened tradeResponse
	decodeBody(t, rec, &reopened)
	assert.Equal(t, "open", reopened.Status)
	assert.Nil(t, reopened.ExitPrice)
}

func TestTradeStatsEndpoint(t *testing.T) {
	router := setupRouter(t)

	body := newTradeBody()
	body["exit_date"] = "2025-03-10"
	body["exit_price"] = 110.0
	body["fees"] = 5.0
	body["stop_loss"] = 90.0
	rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var trade tradeResponse
	decodeBody(t, rec, &trade)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/trades/"+trade.ID+"/stats", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats tradeStatsResponse
	decodeBody(t, rec, &stats)
	assert.InDelta(t, 95, stats.ProfitLoss, 1e-9)
	assert.InDelta(t, 10, stats.ProfitLossPct, 1e-9)
	require.NotNil(t, stats.RiskReward)
	assert.InDelta(t, 1.0, *stats.RiskReward, 1e-9)
}

func TestPortfolioEndpoint(t *testing.T) {
	router := setupRouter(t)

	body := newTradeBody()
	body["exit_date"] = "2025-03-10"
	body["exit_price"] = 110.0
	rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/analytics/portfolio", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var m portfolioResponse
	decodeBody(t, rec, &m)
	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 1, m.ClosedTrades)
	assert.InDelta(t, 100, m.TotalProfit, 1e-9)
	assert.InDelta(t, 10100, m.FinalEquity, 1e-9)
	require.Len(t, m.EquityCurve, 1)
	assert.Equal(t, "2025-03-01", m.EquityCurve[0].Date)
}

func TestUpdateTradeOverHTTP(t *testing.T) {
	router := setupRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/trades", "u1", newTradeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var trade tradeResponse
	decodeBody(t, rec, &trade)

	body := newTradeBody()
	body["notes"] = "revised thesis"
	body["stop_loss"] = 92.0
	rec = doRequest(t, router, http.MethodPut, "/api/v1/trades/"+trade.ID, "u1", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated tradeResponse
	decodeBody(t, rec, &updated)
	assert.Equal(t, "revised thesis", updated.Notes)
	require.NotNil(t, updated.StopLoss)
	assert.Equal(t, 92.0, *updated.StopLoss)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/trades/"+trade.ID, "u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/trades/"+trade.ID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
