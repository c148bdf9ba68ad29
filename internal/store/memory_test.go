package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

func TestMemoryStore_TxCommit(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	err := ms.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetPositionForUpdate(ctx, "u1", "AAPL"); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for a new position, got %v", err)
		}
		if err := tx.UpsertPosition(ctx, &model.Position{ID: "p1", UserID: "u1", Symbol: "AAPL", Quantity: 10, AverageCost: decimal.NewFromInt(100), UpdatedAt: now}); err != nil {
			return err
		}
		p, err := tx.GetPositionForUpdate(ctx, "u1", "AAPL")
		if err != nil || p.Quantity != 10 {
			t.Errorf("tx should read its own write, got %v, %v", p, err)
		}
		return tx.InsertLedgerEntry(ctx, &model.LedgerEntry{ID: "l1", UserID: "u1", Symbol: "AAPL", Side: model.SideBuy, Quantity: 10, Price: decimal.NewFromInt(100), Timestamp: now})
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	p, err := ms.GetPosition(ctx, "u1", "AAPL")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if p.Quantity != 10 || !p.AverageCost.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected position %+v", p)
	}
	entries, _ := ms.ListLedgerEntries(ctx, "u1")
	if len(entries) != 1 {
		t.Errorf("expected 1 ledger entry, got %d", len(entries))
	}
}

func TestMemoryStore_TxRollback(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := ms.WithTx(ctx, func(tx Tx) error {
		tx.UpsertPosition(ctx, &model.Position{ID: "p1", UserID: "u1", Symbol: "AAPL", Quantity: 5})
		tx.InsertLedgerEntry(ctx, &model.LedgerEntry{ID: "l1", UserID: "u1", Symbol: "AAPL", Side: model.SideBuy, Quantity: 5})
		tx.InsertOrder(ctx, &model.Order{ID: "o1", UserID: "u1", Symbol: "AAPL"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := ms.GetPosition(ctx, "u1", "AAPL"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("rolled back position should not exist, got %v", err)
	}
	entries, _ := ms.ListLedgerEntries(ctx, "u1")
	orders, _ := ms.ListOrders(ctx, "u1")
	if len(entries) != 0 || len(orders) != 0 {
		t.Errorf("rolled back writes leaked: %d entries, %d orders", len(entries), len(orders))
	}
}

func TestMemoryStore_LedgerNewestFirstPerUser(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	for i, user := range []string{"u1", "u2", "u1"} {
		ms.WithTx(ctx, func(tx Tx) error {
			return tx.InsertLedgerEntry(ctx, &model.LedgerEntry{
				ID: string(rune('a' + i)), UserID: user, Symbol: "MSFT", Side: model.SideBuy,
				Quantity: 1, Timestamp: base.Add(time.Duration(i) * time.Hour),
			})
		})
	}

	entries, _ := ms.ListLedgerEntries(ctx, "u1")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for u1, got %d", len(entries))
	}
	if entries[0].ID != "c" || entries[1].ID != "a" {
		t.Errorf("expected newest first [c a], got [%s %s]", entries[0].ID, entries[1].ID)
	}
}

func TestMemoryStore_Watchlist(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := ms.AddWatchlistItem(ctx, &model.WatchlistItem{ID: "w1", UserID: "u1", Symbol: "AAPL", AddedAt: now}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ms.AddWatchlistItem(ctx, &model.WatchlistItem{ID: "w2", UserID: "u1", Symbol: "AAPL", AddedAt: now}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("duplicate add should fail with ErrInvalidInput, got %v", err)
	}
	ms.AddWatchlistItem(ctx, &model.WatchlistItem{ID: "w3", UserID: "u2", Symbol: "AAPL", AddedAt: now})
	ms.AddWatchlistItem(ctx, &model.WatchlistItem{ID: "w4", UserID: "u2", Symbol: "TSLA", AddedAt: now.Add(time.Second)})

	items, _ := ms.ListWatchlist(ctx, "u2")
	if len(items) != 2 || items[0].Symbol != "TSLA" {
		t.Errorf("expected [TSLA AAPL] for u2, got %+v", items)
	}

	symbols, _ := ms.ListWatchedSymbols(ctx)
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "TSLA" {
		t.Errorf("expected distinct [AAPL TSLA], got %v", symbols)
	}

	if err := ms.RemoveWatchlistItem(ctx, "u1", "AAPL"); err != nil {
		t.Errorf("remove: %v", err)
	}
	if err := ms.RemoveWatchlistItem(ctx, "u1", "AAPL"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second remove should fail with ErrNotFound, got %v", err)
	}
}
