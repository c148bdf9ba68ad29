package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// querier is the subset of pgxpool.Pool and pgx.Tx used by the scan helpers.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const positionColumns = `id, user_id, symbol, quantity, average_cost::TEXT, updated_at`

func scanPosition(row pgx.Row) (*model.Position, error) {
	var p model.Position
	var avg string
	if err := row.Scan(&p.ID, &p.UserID, &p.Symbol, &p.Quantity, &avg, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.AverageCost, _ = decimal.NewFromString(avg)
	return &p, nil
}

func getPosition(ctx context.Context, q querier, sql, userID, symbol string) (*model.Position, error) {
	p, err := scanPosition(q.QueryRow(ctx, sql, userID, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no position in %s", model.ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", symbol, err)
	}
	return p, nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, userID, symbol string) (*model.Position, error) {
	return getPosition(ctx, s.pool, `SELECT `+positionColumns+` FROM positions WHERE user_id = $1 AND symbol = $2`, userID, symbol)
}

func (s *PostgresStore) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE user_id = $1 ORDER BY symbol`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) ListLedgerEntries(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, side, quantity, price::TEXT, timestamp
		 FROM ledger_entries WHERE user_id = $1 ORDER BY timestamp DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var price string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Symbol, &e.Side, &e.Quantity, &price, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Price, _ = decimal.NewFromString(price)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, side, quantity, price::TEXT, status, timestamp
		 FROM orders WHERE user_id = $1 ORDER BY timestamp DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var price string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Symbol, &o.Side, &o.Quantity, &price, &o.Status, &o.Timestamp); err != nil {
			return nil, err
		}
		o.Price, _ = decimal.NewFromString(price)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) AddWatchlistItem(ctx context.Context, item *model.WatchlistItem) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO watchlist_items (id, user_id, symbol, added_at) VALUES ($1, $2, $3, $4)`,
		item.ID, item.UserID, item.Symbol, item.AddedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s already in watchlist", model.ErrInvalidInput, item.Symbol)
	}
	return err
}

func (s *PostgresStore) RemoveWatchlistItem(ctx context.Context, userID, symbol string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM watchlist_items WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s not in watchlist", model.ErrNotFound, symbol)
	}
	return nil
}

func (s *PostgresStore) ListWatchlist(ctx context.Context, userID string) ([]model.WatchlistItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, added_at FROM watchlist_items
		 WHERE user_id = $1 ORDER BY added_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.WatchlistItem
	for rows.Next() {
		var w model.WatchlistItem
		if err := rows.Scan(&w.ID, &w.UserID, &w.Symbol, &w.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListWatchedSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM watchlist_items ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// postgresTx is one ledger unit inside a pgx transaction.
type postgresTx struct {
	tx pgx.Tx
}

// GetPositionForUpdate takes a transaction-scoped advisory lock on the
// (user, symbol) pair before reading, so a first buy with no row yet is
// serialized too.
func (t *postgresTx) GetPositionForUpdate(ctx context.Context, userID, symbol string) (*model.Position, error) {
	if _, err := t.tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`, userID, symbol); err != nil {
		return nil, fmt.Errorf("lock position %s: %w", symbol, err)
	}
	return getPosition(ctx, t.tx,
		`SELECT `+positionColumns+` FROM positions WHERE user_id = $1 AND symbol = $2 FOR UPDATE`, userID, symbol)
}

func (t *postgresTx) UpsertPosition(ctx context.Context, p *model.Position) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO positions (id, user_id, symbol, quantity, average_cost, updated_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6)
		 ON CONFLICT (user_id, symbol) DO UPDATE
		 SET quantity = EXCLUDED.quantity,
		     average_cost = EXCLUDED.average_cost,
		     updated_at = EXCLUDED.updated_at`,
		p.ID, p.UserID, p.Symbol, p.Quantity, p.AverageCost.String(), p.UpdatedAt)
	return err
}

func (t *postgresTx) InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ledger_entries (id, user_id, symbol, side, quantity, price, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7)`,
		e.ID, e.UserID, e.Symbol, e.Side, e.Quantity, e.Price.String(), e.Timestamp)
	return err
}

func (t *postgresTx) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO orders (id, user_id, symbol, side, quantity, price, status, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8)`,
		o.ID, o.UserID, o.Symbol, o.Side, o.Quantity, o.Price.String(), o.Status, o.Timestamp)
	return err
}
