// Package watchlist tracks the symbols a user follows.
package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stockpulse/portfolio-engine/internal/model"
	"github.com/stockpulse/portfolio-engine/internal/store"
	"github.com/stockpulse/portfolio-engine/internal/symbol"
)

// QuoteSource supplies the live quote shown next to each watched symbol.
type QuoteSource interface {
	GetLiveData(ctx context.Context, symbol string) (*model.Quote, error)
}

// Entry is a watchlist item with its live quote, when one is available.
type Entry struct {
	model.WatchlistItem
	Price     *float64 `json:"price"`
	ChangePct *float64 `json:"change_pct"`
}

// Service manages watchlists.
type Service struct {
	store  store.Store
	quotes QuoteSource
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a watchlist service. quotes may be nil, in which case
// listings carry no prices.
func NewService(st store.Store, quotes QuoteSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, quotes: quotes, logger: logger, now: time.Now}
}

// Add starts watching a symbol. Watching the same symbol twice fails with
// ErrInvalidInput.
func (s *Service) Add(ctx context.Context, userID, rawSymbol string) (*model.WatchlistItem, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", model.ErrInvalidInput)
	}
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return nil, err
	}

	item := &model.WatchlistItem{
		ID:      uuid.New().String(),
		UserID:  userID,
		Symbol:  sym,
		AddedAt: s.now().UTC(),
	}
	if err := s.store.AddWatchlistItem(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("watchlist add", "user", userID, "symbol", sym)
	return item, nil
}

// Remove stops watching a symbol, or returns ErrNotFound.
func (s *Service) Remove(ctx context.Context, userID, rawSymbol string) error {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return err
	}
	if err := s.store.RemoveWatchlistItem(ctx, userID, sym); err != nil {
		return err
	}
	s.logger.Info("watchlist remove", "user", userID, "symbol", sym)
	return nil
}

// List returns the user's watchlist, newest first, with live prices where
// the quote source has them. Quote failures leave the price empty.
func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	items, err := s.store.ListWatchlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(items))
	for i, item := range items {
		entries[i].WatchlistItem = item
		if s.quotes == nil {
			continue
		}
		q, err := s.quotes.GetLiveData(ctx, item.Symbol)
		if err != nil {
			s.logger.Warn("watchlist quote unavailable", "symbol", item.Symbol, "err", err)
			continue
		}
		if q != nil {
			price, pct := q.Price, q.ChangePct
			entries[i].Price = &price
			entries[i].ChangePct = &pct
		}
	}
	return entries, nil
}

// SetClock replaces the time source used to stamp new items.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
