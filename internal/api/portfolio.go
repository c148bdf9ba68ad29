package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/portfolio-engine/internal/auth"
	"github.com/stockpulse/portfolio-engine/internal/model"
)

// TradeRequest is the body of POST /portfolio/buy and /portfolio/sell.
// A missing price uses the live quote.
type TradeRequest struct {
	Symbol   string           `json:"symbol"`
	Quantity int64            `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// OrderRequest is the body of POST /market/order.
type OrderRequest struct {
	Symbol   string     `json:"symbol"`
	Type     model.Side `json:"type"`
	Quantity int64      `json:"quantity"`
}

// OrderResponse acknowledges an executed order.
type OrderResponse struct {
	Status        string          `json:"status"`
	OrderID       string          `json:"order_id"`
	ExecutedPrice decimal.Decimal `json:"executed_price"`
}

const orderExecuted = "Order Executed Successfully"

// listPositions handles GET /api/v1/portfolio
func (s *server) listPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.Trades.Positions(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// buy handles POST /api/v1/portfolio/buy
func (s *server) buy(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, model.SideBuy)
}

// sell handles POST /api/v1/portfolio/sell
func (s *server) sell(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, model.SideSell)
}

func (s *server) trade(w http.ResponseWriter, r *http.Request, side model.Side) {
	var req TradeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, reasonInvalidInput, "invalid request body", http.StatusBadRequest)
		return
	}
	price := decimal.Zero
	if req.Price != nil {
		price = *req.Price
	}

	ctx := r.Context()
	user := auth.UserID(ctx)
	var (
		pos *model.Position
		err error
	)
	if side == model.SideBuy {
		pos, err = s.Trades.Buy(ctx, user, req.Symbol, req.Quantity, price)
	} else {
		pos, err = s.Trades.Sell(ctx, user, req.Symbol, req.Quantity, price)
	}
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// listTransactions handles GET /api/v1/portfolio/transactions
func (s *server) listTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Trades.Transactions(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// getAnalytics handles GET /api/v1/portfolio/analytics
func (s *server) getAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.Analytics.Portfolio(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// getPerformance handles GET /api/v1/market/performance
func (s *server) getPerformance(w http.ResponseWriter, r *http.Request) {
	report, err := s.Analytics.Performance(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	if report.Message != "" {
		writeJSON(w, http.StatusOK, map[string]string{"message": report.Message})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// placeOrder handles POST /api/v1/market/order
func (s *server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, reasonInvalidInput, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Type = model.Side(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	if req.Symbol == "" || req.Type == "" || req.Quantity <= 0 {
		writeError(w, reasonInvalidInput, "symbol, type and a positive quantity are required", http.StatusBadRequest)
		return
	}

	order, err := s.Trades.PlaceOrder(r.Context(), auth.UserID(r.Context()), req.Symbol, req.Type, req.Quantity)
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, OrderResponse{
		Status:        orderExecuted,
		OrderID:       order.ID,
		ExecutedPrice: order.Price,
	})
}

// listOrders handles GET /api/v1/market/orders
func (s *server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Trades.Orders(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
