package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpulse/portfolio-engine/internal/analytics"
	"github.com/stockpulse/portfolio-engine/internal/api"
	"github.com/stockpulse/portfolio-engine/internal/auth"
	"github.com/stockpulse/portfolio-engine/internal/cache"
	"github.com/stockpulse/portfolio-engine/internal/market"
	"github.com/stockpulse/portfolio-engine/internal/model"
	"github.com/stockpulse/portfolio-engine/internal/predict"
	"github.com/stockpulse/portfolio-engine/internal/store"
	"github.com/stockpulse/portfolio-engine/internal/trade"
	"github.com/stockpulse/portfolio-engine/internal/watchlist"
)

// stubSource serves a fixed daily series for AAPL and fails for DOWN.
type stubSource struct {
	mu   sync.Mutex
	bars []model.Bar
}

func newStubSource() *stubSource {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 30)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: c - 1, High: c + 1, Low: c - 2, Close: c, Volume: 1000}
	}
	return &stubSource{bars: bars}
}

var errDown = errors.New("provider down")

func (s *stubSource) series(sym string) ([]model.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch sym {
	case "DOWN":
		return nil, errDown
	case "AAPL":
		return s.bars, nil
	}
	return nil, nil
}

func (s *stubSource) LatestBar(_ context.Context, sym string) (*model.Bar, error) {
	bars, err := s.series(sym)
	if err != nil || len(bars) == 0 {
		return nil, err
	}
	b := bars[len(bars)-1]
	return &b, nil
}

func (s *stubSource) History(_ context.Context, sym, _, _ string) ([]model.Bar, error) {
	return s.series(sym)
}

func (s *stubSource) CompanyInfo(_ context.Context, sym string) (*model.Fundamentals, error) {
	if sym != "AAPL" {
		return nil, nil
	}
	prev := 128.0
	return &model.Fundamentals{LongName: "Apple Inc.", ShortName: "Apple", PreviousClose: &prev}, nil
}

func (s *stubSource) News(context.Context, string) ([]json.RawMessage, error) {
	return nil, nil
}

func newTestDeps(t *testing.T, hub *trade.WSHub) api.Deps {
	t.Helper()
	c := cache.New(cache.NewMemoryStore(), nil)
	mkt := market.NewService(newStubSource(), nil, c, nil)
	st := store.NewMemoryStore()

	return api.Deps{
		Market:    mkt,
		Predict:   predict.NewService(mkt, predict.NewHeuristic(rand.New(rand.NewSource(7))), c),
		Trades:    trade.NewService(st, mkt, hub, nil),
		Analytics: analytics.NewService(st, mkt, nil, nil),
		Watchlist: watchlist.NewService(st, mkt, nil),
		Hub:       hub,
		Auth:      auth.HeaderMiddleware,
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return api.NewRouter(newTestDeps(t, nil))
}

func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.UserHeader, "user-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	h := newTestServer(t)

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestAPIRequiresUser(t *testing.T) {
	h := newTestServer(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/portfolio", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBuySellFlow(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodPost, "/api/v1/portfolio/buy", map[string]any{"symbol": "aapl", "quantity": 10, "price": 100})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, h, http.MethodPost, "/api/v1/portfolio/buy", map[string]any{"symbol": "AAPL", "quantity": 10, "price": "200"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pos := decodeBody(t, w)
	assert.Equal(t, "AAPL", pos["symbol"])
	assert.Equal(t, float64(20), pos["quantity"])
	assert.Equal(t, "150", pos["average_cost"])

	w = call(t, h, http.MethodPost, "/api/v1/portfolio/sell", map[string]any{"symbol": "AAPL", "quantity": 25, "price": 180})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_position", decodeBody(t, w)["error"])

	// Price omitted: the live price (last close 129) is used.
	w = call(t, h, http.MethodPost, "/api/v1/portfolio/sell", map[string]any{"symbol": "AAPL", "quantity": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(15), decodeBody(t, w)["quantity"])

	w = call(t, h, http.MethodGet, "/api/v1/portfolio/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []model.LedgerEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, model.SideSell, entries[0].Side)
	assert.Equal(t, "129", entries[0].Price.String())
}

func TestBuy_InvalidInput(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"zero quantity", map[string]any{"symbol": "AAPL", "quantity": 0, "price": 10}},
		{"negative price", map[string]any{"symbol": "AAPL", "quantity": 1, "price": -5}},
		{"bad symbol", map[string]any{"symbol": "$$$", "quantity": 1, "price": 10}},
		{"unknown field", map[string]any{"symbol": "AAPL", "qty": 1}},
		{"no price for unknown symbol", map[string]any{"symbol": "ZZZZ", "quantity": 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := call(t, h, http.MethodPost, "/api/v1/portfolio/buy", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "invalid_input", decodeBody(t, w)["error"])
		})
	}
}

func TestOrderFlow(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodPost, "/api/v1/market/order", map[string]any{"symbol": "AAPL", "type": "BUY", "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	assert.Equal(t, "Order Executed Successfully", resp["status"])
	assert.Equal(t, "129", resp["executed_price"])
	assert.NotEmpty(t, resp["order_id"])

	w = call(t, h, http.MethodPost, "/api/v1/market/order", map[string]any{"symbol": "AAPL", "type": "SELL", "quantity": 5})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, h, http.MethodGet, "/api/v1/market/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	statuses := []model.OrderStatus{orders[0].Status, orders[1].Status}
	assert.ElementsMatch(t, []model.OrderStatus{model.OrderCompleted, model.OrderFailed}, statuses)

	w = call(t, h, http.MethodPost, "/api/v1/market/order", map[string]any{"symbol": "DOWN", "type": "BUY", "quantity": 1})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "upstream_unavailable", decodeBody(t, w)["error"])

	w = call(t, h, http.MethodPost, "/api/v1/market/order", map[string]any{"symbol": "AAPL", "type": "HOLD", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrder_TypeIsCaseInsensitive(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodPost, "/api/v1/market/order", map[string]any{"symbol": "aapl", "type": "buy", "quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, h, http.MethodPost, "/api/v1/market/order", map[string]any{"symbol": "AAPL", "type": "Sell", "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(t, h, http.MethodGet, "/api/v1/portfolio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var positions []model.Position
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, int64(2), positions[0].Quantity)
}

func TestWebSocketRequiresUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := trade.NewWSHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(api.NewRouter(newTestDeps(t, hub)))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set(auth.UserHeader, "user-1")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestWatchlistFlow(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodPost, "/api/v1/watchlist", map[string]any{"symbol": "aapl"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "AAPL", decodeBody(t, w)["symbol"])

	w = call(t, h, http.MethodPost, "/api/v1/watchlist", map[string]any{"symbol": "AAPL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, h, http.MethodGet, "/api/v1/watchlist", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 129.0, list[0]["price"])

	w = call(t, h, http.MethodDelete, "/api/v1/watchlist/AAPL", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(t, h, http.MethodDelete, "/api/v1/watchlist/AAPL", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["error"])
}

func TestMarketEndpoints(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodGet, "/api/v1/market/live/AAPL", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	live := decodeBody(t, w)
	assert.Equal(t, 129.0, live["price"])
	assert.Equal(t, 1.0, live["change"])
	assert.Equal(t, "Apple Inc.", live["long_name"])
	assert.NotContains(t, live, "previous_close")

	for _, path := range []string{
		"/api/v1/market/branding/AAPL",
		"/api/v1/market/history/AAPL?period=1mo&interval=1d",
		"/api/v1/market/sparkline/AAPL",
		"/api/v1/market/chart/AAPL",
		"/api/v1/market/news/AAPL",
		"/api/v1/market/indicators/AAPL",
		"/api/v1/market/predict/AAPL",
	} {
		w := call(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, "%s: %s", path, w.Body.String())
	}

	w = call(t, h, http.MethodGet, "/api/v1/market/live/ZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, h, http.MethodGet, "/api/v1/market/live/DOWN", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = call(t, h, http.MethodGet, "/api/v1/market/history/AAPL?period=7y", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, h, http.MethodGet, "/api/v1/market/chart/ZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodGet, "/api/v1/market/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, analytics.NoDataMessage, decodeBody(t, w)["message"])

	call(t, h, http.MethodPost, "/api/v1/portfolio/buy", map[string]any{"symbol": "AAPL", "quantity": 10, "price": 100})

	w = call(t, h, http.MethodGet, "/api/v1/portfolio/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report model.PortfolioReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Summary.StockCount)
	assert.Equal(t, "1290", report.Summary.TotalCurrentValue.String())
	assert.Equal(t, "29", report.Summary.TotalPLPct.String())
	require.Len(t, report.Holdings, 1)
	assert.Len(t, report.Holdings[0].Sparkline, 30)

	w = call(t, h, http.MethodGet, "/api/v1/market/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	perf := decodeBody(t, w)
	assert.Equal(t, "Medium", perf["volatility"])
	assert.Equal(t, float64(1), perf["diversification_count"])
}
