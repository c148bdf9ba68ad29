// Package model defines the core domain types shared across the portfolio engine.
// Ledger money values use shopspring/decimal; market data from the quote source
// stays float64 and is rounded to 2 decimals at the normalization boundary.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a ledger entry or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderFailed    OrderStatus = "FAILED"
)

// Position is a user's current holding of one symbol. Unique per (user, symbol).
// Created on first buy and never deleted; a fully sold position stays as a
// zero row with AverageCost reset to zero.
type Position struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Quantity    int64           `json:"quantity" db:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost" db:"average_cost"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// LedgerEntry is an immutable record of an executed buy or sell.
// Once created, these are never modified or deleted.
type LedgerEntry struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Side      Side            `json:"side" db:"side"`
	Quantity  int64           `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// Order is the trading-endpoint variant of a ledger entry that also carries
// a terminal status.
type Order struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Side      Side            `json:"type" db:"side"`
	Quantity  int64           `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Status    OrderStatus     `json:"status" db:"status"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// WatchlistItem records that a user tracks a symbol. Unique per (user, symbol).
type WatchlistItem struct {
	ID      string    `json:"id" db:"id"`
	UserID  string    `json:"-" db:"user_id"`
	Symbol  string    `json:"symbol" db:"symbol"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}
