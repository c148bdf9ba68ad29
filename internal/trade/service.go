// Package trade is the ledger engine: it executes buys, sells and orders
// against a user's positions and appends the immutable ledger.
//
// All monetary values use shopspring/decimal, never float64 for money.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/portfolio-engine/internal/keylock"
	"github.com/stockpulse/portfolio-engine/internal/metrics"
	"github.com/stockpulse/portfolio-engine/internal/model"
	"github.com/stockpulse/portfolio-engine/internal/store"
	"github.com/stockpulse/portfolio-engine/internal/symbol"
)

// PriceResolver supplies the live price used when a trade names none.
type PriceResolver interface {
	// LivePrice returns the current price, or false when the symbol has no
	// quote.
	LivePrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
}

// Service executes trades. Operations on the same (user, symbol) pair are
// serialized in-process by a keyed lock; the store's transaction makes the
// position update and its ledger entry a single unit.
type Service struct {
	store  store.Store
	prices PriceResolver
	locks  *keylock.Locker
	wsHub  *WSHub // optional WebSocket hub for real-time broadcasts
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, prices PriceResolver, hub *WSHub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		prices: prices,
		locks:  keylock.New(),
		wsHub:  hub,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source used to stamp ledger entries and orders.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Buy adds qty shares of symbol to the user's position. A zero price uses
// the live quote.
func (s *Service) Buy(ctx context.Context, userID, rawSymbol string, qty int64, price decimal.Decimal) (*model.Position, error) {
	return s.trade(ctx, userID, rawSymbol, model.SideBuy, qty, price)
}

// Sell removes qty shares of symbol from the user's position. A zero price
// uses the live quote.
func (s *Service) Sell(ctx context.Context, userID, rawSymbol string, qty int64, price decimal.Decimal) (*model.Position, error) {
	return s.trade(ctx, userID, rawSymbol, model.SideSell, qty, price)
}

func (s *Service) trade(ctx context.Context, userID, rawSymbol string, side model.Side, qty int64, price decimal.Decimal) (*model.Position, error) {
	sym, err := validate(userID, rawSymbol, side, qty)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be positive", model.ErrInvalidInput)
	}
	if price.IsZero() {
		live, ok, err := s.prices.LivePrice(ctx, sym)
		if err != nil || !ok || !live.IsPositive() {
			s.logger.Warn("no price for trade", "symbol", sym, "err", err)
			return nil, fmt.Errorf("%w: no price available for %s", model.ErrInvalidInput, sym)
		}
		price = live
	}

	pos, _, err := s.execute(ctx, userID, sym, side, qty, price, nil)
	return pos, err
}

// PlaceOrder executes a market order at the live price and records it with
// its terminal status. When the live price cannot be fetched nothing is
// persisted. A sell exceeding the held quantity persists a FAILED order,
// leaves the position untouched and returns ErrInsufficientPosition.
func (s *Service) PlaceOrder(ctx context.Context, userID, rawSymbol string, side model.Side, qty int64) (*model.Order, error) {
	sym, err := validate(userID, rawSymbol, side, qty)
	if err != nil {
		return nil, err
	}

	price, ok, err := s.prices.LivePrice(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("%w: could not fetch live price for %s", model.ErrUpstreamUnavailable, sym)
	}
	if !ok || !price.IsPositive() {
		return nil, fmt.Errorf("%w: no live price for %s", model.ErrInvalidInput, sym)
	}

	order := &model.Order{
		ID:       uuid.New().String(),
		UserID:   userID,
		Symbol:   sym,
		Side:     side,
		Quantity: qty,
		Price:    price,
		Status:   model.OrderCompleted,
	}
	_, order, err = s.execute(ctx, userID, sym, side, qty, price, order)
	if order != nil {
		metrics.OrdersTotal.WithLabelValues(string(order.Status)).Inc()
	}
	return order, err
}

// execute runs one ledger unit. When order is non-nil it is inserted in the
// same transaction; a rejected sell then commits the order as FAILED and
// nothing else.
func (s *Service) execute(ctx context.Context, userID, sym string, side model.Side, qty int64, price decimal.Decimal, order *model.Order) (*model.Position, *model.Order, error) {
	unlock := s.locks.Lock(keylock.PositionKey(userID, sym))
	defer unlock()

	start := time.Now()
	now := s.now().UTC()
	if order != nil {
		order.Timestamp = now
	}

	var next model.Position
	var rejected error
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := tx.GetPositionForUpdate(ctx, userID, sym)
		if errors.Is(err, model.ErrNotFound) {
			cur = &model.Position{ID: uuid.New().String(), UserID: userID, Symbol: sym}
		} else if err != nil {
			return err
		}

		if side == model.SideBuy {
			if next, err = ApplyBuy(*cur, qty, price); err != nil {
				return err
			}
		} else if next, err = ApplySell(*cur, qty); err != nil {
			if order == nil {
				return err
			}
			rejected = err
			order.Status = model.OrderFailed
			return tx.InsertOrder(ctx, order)
		}
		next.UpdatedAt = now

		if err := tx.UpsertPosition(ctx, &next); err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		entry := &model.LedgerEntry{
			ID:        uuid.New().String(),
			UserID:    userID,
			Symbol:    sym,
			Side:      side,
			Quantity:  qty,
			Price:     price,
			Timestamp: now,
		}
		if err := tx.InsertLedgerEntry(ctx, entry); err != nil {
			return fmt.Errorf("record trade: %w", err)
		}
		if order != nil {
			if err := tx.InsertOrder(ctx, order); err != nil {
				return fmt.Errorf("record order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if rejected != nil {
		s.logger.Info("order rejected", "order_id", order.ID, "user", userID, "symbol", sym, "qty", qty, "err", rejected)
		return nil, order, rejected
	}

	metrics.TradesTotal.WithLabelValues(string(side)).Inc()
	metrics.TradeLatency.WithLabelValues(string(side)).Observe(time.Since(start).Seconds())

	s.logger.Info("trade executed",
		"user", userID,
		"symbol", sym,
		"side", side,
		"qty", qty,
		"price", price.String(),
		"new_qty", next.Quantity,
		"avg_cost", next.AverageCost.StringFixed(4),
	)

	// Broadcast the fill via WebSocket.
	if s.wsHub != nil {
		msg := WSMessage{
			Type:     "trade_executed",
			Symbol:   sym,
			Side:     string(side),
			Quantity: qty,
			Price:    price.String(),
		}
		if order != nil {
			msg.OrderID = order.ID
		}
		s.wsHub.Broadcast(msg)
	}

	return &next, order, nil
}

// Positions returns the user's positions, zero rows included.
func (s *Service) Positions(ctx context.Context, userID string) ([]model.Position, error) {
	positions, err := s.store.ListPositions(ctx, userID)
	if positions == nil && err == nil {
		positions = []model.Position{}
	}
	return positions, err
}

// Transactions returns the user's ledger, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	entries, err := s.store.ListLedgerEntries(ctx, userID)
	if entries == nil && err == nil {
		entries = []model.LedgerEntry{}
	}
	return entries, err
}

// Orders returns the user's orders, newest first.
func (s *Service) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.store.ListOrders(ctx, userID)
	if orders == nil && err == nil {
		orders = []model.Order{}
	}
	return orders, err
}

func validate(userID, rawSymbol string, side model.Side, qty int64) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user is required", model.ErrInvalidInput)
	}
	if !side.Valid() {
		return "", fmt.Errorf("%w: side must be BUY or SELL", model.ErrInvalidInput)
	}
	if qty <= 0 {
		return "", fmt.Errorf("%w: quantity must be positive", model.ErrInvalidInput)
	}
	return symbol.Normalize(rawSymbol)
}
