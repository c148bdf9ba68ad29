package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Transactions take the write lock for their whole duration and stage
// their writes, which are applied only on commit.
type MemoryStore struct {
	mu        sync.RWMutex
	positions map[posKey]model.Position
	ledger    []model.LedgerEntry
	orders    []model.Order
	watchlist []model.WatchlistItem
}

type posKey struct {
	userID string
	symbol string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[posKey]model.Position),
	}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, positions: make(map[posKey]model.Position)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Commit.
	for k, p := range tx.positions {
		s.positions[k] = p
	}
	s.ledger = append(s.ledger, tx.ledger...)
	s.orders = append(s.orders, tx.orders...)
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, userID, symbol string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[posKey{userID, symbol}]
	if !ok {
		return nil, fmt.Errorf("%w: no position in %s", model.ErrNotFound, symbol)
	}
	return &p, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Position
	for k, p := range s.positions {
		if k.userID == userID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}

func (s *MemoryStore) ListLedgerEntries(_ context.Context, userID string) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.LedgerEntry
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID == userID {
			result = append(result, s.ledger[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return result, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, userID string) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].UserID == userID {
			result = append(result, s.orders[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return result, nil
}

func (s *MemoryStore) AddWatchlistItem(_ context.Context, item *model.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.watchlist {
		if w.UserID == item.UserID && w.Symbol == item.Symbol {
			return fmt.Errorf("%w: %s already in watchlist", model.ErrInvalidInput, item.Symbol)
		}
	}
	s.watchlist = append(s.watchlist, *item)
	return nil
}

func (s *MemoryStore) RemoveWatchlistItem(_ context.Context, userID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.watchlist {
		if w.UserID == userID && w.Symbol == symbol {
			s.watchlist = append(s.watchlist[:i], s.watchlist[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s not in watchlist", model.ErrNotFound, symbol)
}

func (s *MemoryStore) ListWatchlist(_ context.Context, userID string) ([]model.WatchlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.WatchlistItem
	for i := len(s.watchlist) - 1; i >= 0; i-- {
		if s.watchlist[i].UserID == userID {
			result = append(result, s.watchlist[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].AddedAt.After(result[j].AddedAt) })
	return result, nil
}

func (s *MemoryStore) ListWatchedSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var result []string
	for _, w := range s.watchlist {
		if !seen[w.Symbol] {
			seen[w.Symbol] = true
			result = append(result, w.Symbol)
		}
	}
	sort.Strings(result)
	return result, nil
}

// memoryTx stages writes until WithTx commits. The store's write lock is
// held by WithTx, so reads go straight to the maps.
type memoryTx struct {
	store     *MemoryStore
	positions map[posKey]model.Position
	ledger    []model.LedgerEntry
	orders    []model.Order
}

func (tx *memoryTx) GetPositionForUpdate(_ context.Context, userID, symbol string) (*model.Position, error) {
	k := posKey{userID, symbol}
	if p, ok := tx.positions[k]; ok {
		return &p, nil
	}
	if p, ok := tx.store.positions[k]; ok {
		return &p, nil
	}
	return nil, fmt.Errorf("%w: no position in %s", model.ErrNotFound, symbol)
}

func (tx *memoryTx) UpsertPosition(_ context.Context, p *model.Position) error {
	tx.positions[posKey{p.UserID, p.Symbol}] = *p
	return nil
}

func (tx *memoryTx) InsertLedgerEntry(_ context.Context, entry *model.LedgerEntry) error {
	tx.ledger = append(tx.ledger, *entry)
	return nil
}

func (tx *memoryTx) InsertOrder(_ context.Context, order *model.Order) error {
	tx.orders = append(tx.orders, *order)
	return nil
}
