// Package store defines the persistence interface for the portfolio engine.
// Implementations include PostgreSQL (source of truth) and in-memory (for
// testing and development).
package store

import (
	"context"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// Store is the persistence interface. Position changes and their ledger
// entries are written through WithTx so they commit or roll back together.
type Store interface {
	// --- Ledger unit ---

	// WithTx runs fn in a transaction. It commits when fn returns nil and
	// rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// --- Positions ---

	// GetPosition returns the user's position in symbol, or an error
	// wrapping model.ErrNotFound.
	GetPosition(ctx context.Context, userID, symbol string) (*model.Position, error)

	// ListPositions returns all the user's positions, zero rows included,
	// ordered by symbol.
	ListPositions(ctx context.Context, userID string) ([]model.Position, error)

	// --- Immutable ledger ---

	// ListLedgerEntries returns the user's transactions, newest first.
	ListLedgerEntries(ctx context.Context, userID string) ([]model.LedgerEntry, error)

	// ListOrders returns the user's orders, newest first.
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)

	// --- Watchlist ---

	// AddWatchlistItem inserts an item, or fails with model.ErrInvalidInput
	// when the pair already exists.
	AddWatchlistItem(ctx context.Context, item *model.WatchlistItem) error

	// RemoveWatchlistItem deletes an item, or fails with model.ErrNotFound.
	RemoveWatchlistItem(ctx context.Context, userID, symbol string) error

	// ListWatchlist returns the user's items, newest first.
	ListWatchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error)

	// ListWatchedSymbols returns every distinct symbol on any watchlist.
	ListWatchedSymbols(ctx context.Context) ([]string, error)
}

// Tx is the write side of one ledger unit.
type Tx interface {
	// GetPositionForUpdate reads a position and holds it against concurrent
	// writers until the transaction ends. Absent positions return an error
	// wrapping model.ErrNotFound.
	GetPositionForUpdate(ctx context.Context, userID, symbol string) (*model.Position, error)

	// UpsertPosition creates or replaces the (user, symbol) position.
	UpsertPosition(ctx context.Context, p *model.Position) error

	// InsertLedgerEntry appends an immutable trade record.
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error

	// InsertOrder appends an order with its terminal status.
	InsertOrder(ctx context.Context, order *model.Order) error
}
