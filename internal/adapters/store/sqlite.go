package store

// sqlite.go — pure-Go (modernc.org/sqlite) persistence for bars, signals,
// orders, and positions.
//
// Layout:
//   - `bars`: one row per closed (symbol, timeframe, openTime) candle, source
//     of truth for the signal generator.
//   - `signals`: one row per generated Signal, status transitions enforced
//     by UpdateSignalStatus's conditional UPDATE (invariant I2).
//   - `orders`: one row per (groupId, accountId), unique, enforcing executor
//     idempotency (P3).
//   - `positions`: the Position Monitor's read-through mirror of exchange
//     state, keyed by the originating order id.
//
// A small in-memory cache of each position's last-written unrealized PnL
// (adapted from the donor's cachedState map) avoids redundant UPDATEs when
// the Position Monitor polls an account whose positions haven't moved.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
    symbol     TEXT    NOT NULL,
    timeframe  TEXT    NOT NULL,
    open_time  INTEGER NOT NULL,
    open       REAL    NOT NULL,
    high       REAL    NOT NULL,
    low        REAL    NOT NULL,
    close      REAL    NOT NULL,
    volume     REAL    NOT NULL,
    PRIMARY KEY (symbol, timeframe, open_time)
);
CREATE INDEX IF NOT EXISTS idx_bars_lookup ON bars(symbol, timeframe, open_time DESC);

CREATE TABLE IF NOT EXISTS signals (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id    TEXT    NOT NULL,
    symbol      TEXT    NOT NULL,
    timeframe   TEXT    NOT NULL,
    created_at  DATETIME NOT NULL,
    direction   TEXT    NOT NULL,
    score       REAL    NOT NULL,
    entry       REAL    NOT NULL,
    stop_loss   REAL    NOT NULL,
    tp1         REAL    NOT NULL,
    tp2         REAL    NOT NULL,
    tp3         REAL    NOT NULL,
    confluence_count INTEGER NOT NULL DEFAULT 0,
    status      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_status_age ON signals(status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);

CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    group_id         TEXT    NOT NULL,
    account_id       TEXT    NOT NULL,
    symbol           TEXT    NOT NULL,
    market_type      TEXT    NOT NULL,
    direction        TEXT    NOT NULL,
    quantity         REAL    NOT NULL,
    entry_price      REAL    NOT NULL,
    stop_loss        REAL    NOT NULL,
    take_profit      REAL    NOT NULL,
    status           TEXT    NOT NULL,
    error_kind       TEXT    NOT NULL DEFAULT '',
    error_detail     TEXT    NOT NULL DEFAULT '',
    exchange_order_id TEXT   NOT NULL DEFAULT '',
    filled_quantity  REAL    NOT NULL DEFAULT 0,
    filled_price     REAL    NOT NULL DEFAULT 0,
    pnl              REAL,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME,
    closed_at        DATETIME,
    UNIQUE (group_id, account_id)
);
CREATE INDEX IF NOT EXISTS idx_orders_group ON orders(group_id);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at DESC);

CREATE TABLE IF NOT EXISTS positions (
    order_id        TEXT PRIMARY KEY,
    account_id      TEXT    NOT NULL,
    symbol          TEXT    NOT NULL,
    market_type     TEXT    NOT NULL,
    direction       TEXT    NOT NULL,
    quantity        REAL    NOT NULL,
    entry_price     REAL    NOT NULL,
    stop_loss       REAL    NOT NULL,
    take_profit     REAL    NOT NULL,
    unrealized_pnl  REAL    NOT NULL DEFAULT 0,
    realized_pnl    REAL    NOT NULL DEFAULT 0,
    status          TEXT    NOT NULL,
    exit_reason     TEXT    NOT NULL DEFAULT '',
    opened_at       DATETIME NOT NULL,
    closed_at       DATETIME
);
CREATE INDEX IF NOT EXISTS idx_positions_account_status ON positions(account_id, status);
`

// Store implements ports.BarStore, ports.SignalStore, ports.OrderStore and
// ports.PositionStore over a single SQLite database, grounded on the
// donor's SQLiteStorage (schema-as-const-string, single-writer connection,
// in-memory cache to skip redundant writes).
type Store struct {
	db *sql.DB

	mu            sync.Mutex
	lastPositionPnL map[string]float64 // order id -> last-written unrealized PnL
}

// Open creates (or reuses) the SQLite database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: apply schema: %w", err)
	}

	return &Store{db: db, lastPositionPnL: make(map[string]float64)}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- BarStore ---

func (s *Store) ReadBars(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, open_time, open, high, low, close, volume
		FROM (
			SELECT * FROM bars WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC LIMIT ?
		) ORDER BY open_time ASC
	`, symbol, string(tf), limit)
	if err != nil {
		return nil, fmt.Errorf("store.ReadBars: query: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var tfStr string
		if err := rows.Scan(&b.Symbol, &tfStr, &b.OpenTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("store.ReadBars: scan: %w", err)
		}
		b.Timeframe = domain.Timeframe(tfStr)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// InsertBar upserts one closed candle, used by the ingestion path feeding
// the signal generator.
func (s *Store) InsertBar(ctx context.Context, bar domain.Bar) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bars (symbol, timeframe, open_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, timeframe, open_time) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume
	`, bar.Symbol, string(bar.Timeframe), bar.OpenTime, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("store.InsertBar: %w", err)
	}
	return nil
}

// --- SignalStore ---

func (s *Store) InsertSignal(ctx context.Context, sig domain.Signal) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (group_id, symbol, timeframe, created_at, direction, score,
			entry, stop_loss, tp1, tp2, tp3, confluence_count, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sig.GroupID, sig.Symbol, string(sig.Timeframe), sig.CreatedAt.UTC(), string(sig.Direction), sig.Score,
		sig.Levels.Entry, sig.Levels.StopLoss, sig.Levels.TP1, sig.Levels.TP2, sig.Levels.TP3,
		sig.Confluence.Count(), string(sig.Status))
	if err != nil {
		return 0, fmt.Errorf("store.InsertSignal: %w", err)
	}
	return res.LastInsertId()
}

// UpdateSignalStatus is the conditional transition anchoring invariant I2
// (no double-consumption): it only applies when the row is still in
// fromStatus.
func (s *Store) UpdateSignalStatus(ctx context.Context, id int64, from, to domain.SignalStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("store.UpdateSignalStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store.UpdateSignalStatus: rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) ListActiveSignals(ctx context.Context, notOlderThan time.Time) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, symbol, timeframe, created_at, direction, score,
		       entry, stop_loss, tp1, tp2, tp3, status
		FROM signals WHERE status = ? AND created_at >= ?
		ORDER BY score DESC
	`, string(domain.SignalActive), notOlderThan.UTC())
	if err != nil {
		return nil, fmt.Errorf("store.ListActiveSignals: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var sig domain.Signal
		var tfStr, dirStr, statusStr string
		var createdAt time.Time
		if err := rows.Scan(&sig.ID, &sig.GroupID, &sig.Symbol, &tfStr, &createdAt, &dirStr, &sig.Score,
			&sig.Levels.Entry, &sig.Levels.StopLoss, &sig.Levels.TP1, &sig.Levels.TP2, &sig.Levels.TP3, &statusStr); err != nil {
			return nil, fmt.Errorf("store.ListActiveSignals: scan: %w", err)
		}
		sig.Timeframe = domain.Timeframe(tfStr)
		sig.Direction = domain.Direction(dirStr)
		sig.Status = domain.SignalStatus(statusStr)
		sig.CreatedAt = createdAt
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Store) CountSignalsToday(ctx context.Context) (int, error) {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signals WHERE status = ? AND created_at >= ?`,
		string(domain.SignalConsumed), startOfDay,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store.CountSignalsToday: %w", err)
	}
	return n, nil
}

func (s *Store) ExpireStaleSignals(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = ? WHERE status = ? AND created_at < ?`,
		string(domain.SignalExpired), string(domain.SignalActive), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("store.ExpireStaleSignals: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// --- OrderStore ---

func (s *Store) InsertOrder(ctx context.Context, order domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, group_id, account_id, symbol, market_type, direction,
			quantity, entry_price, stop_loss, take_profit, status, error_kind, error_detail,
			exchange_order_id, filled_quantity, filled_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id, account_id) DO UPDATE SET
			status = excluded.status, error_kind = excluded.error_kind,
			error_detail = excluded.error_detail, exchange_order_id = excluded.exchange_order_id,
			filled_quantity = excluded.filled_quantity, filled_price = excluded.filled_price,
			updated_at = excluded.updated_at
	`, order.ID, order.GroupID, order.AccountID, order.Symbol, string(order.MarketType), string(order.Direction),
		order.Quantity, order.EntryPrice, order.StopLoss, order.TakeProfit, string(order.Status),
		string(order.ErrorKind), order.ErrorDetail, order.ExchangeOrderID, order.FilledQuantity, order.FilledPrice,
		order.CreatedAt.UTC(), nullableTime(order.UpdatedAt))
	if err != nil {
		return fmt.Errorf("store.InsertOrder: %w", err)
	}
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, order domain.Order) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, error_kind = ?, error_detail = ?, exchange_order_id = ?,
			filled_quantity = ?, filled_price = ?, pnl = ?, updated_at = ?, closed_at = ?
		WHERE id = ?
	`, string(order.Status), string(order.ErrorKind), order.ErrorDetail, order.ExchangeOrderID,
		order.FilledQuantity, order.FilledPrice, order.PnL, nullableTime(order.UpdatedAt), nullableTime(order.ClosedAt), order.ID)
	if err != nil {
		return fmt.Errorf("store.UpdateOrderStatus: %w", err)
	}
	return nil
}

func (s *Store) FindByGroupAndAccount(ctx context.Context, groupID, accountID string) (domain.Order, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, account_id, symbol, market_type, direction, quantity, entry_price,
		       stop_loss, take_profit, status, error_kind, error_detail, exchange_order_id,
		       filled_quantity, filled_price, created_at
		FROM orders WHERE group_id = ? AND account_id = ?
	`, groupID, accountID)

	var o domain.Order
	var marketStr, dirStr, statusStr, errKindStr string
	var createdAt time.Time
	err := row.Scan(&o.ID, &o.GroupID, &o.AccountID, &o.Symbol, &marketStr, &dirStr, &o.Quantity, &o.EntryPrice,
		&o.StopLoss, &o.TakeProfit, &statusStr, &errKindStr, &o.ErrorDetail, &o.ExchangeOrderID,
		&o.FilledQuantity, &o.FilledPrice, &createdAt)
	if err == sql.ErrNoRows {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("store.FindByGroupAndAccount: %w", err)
	}
	o.MarketType = domain.MarketType(marketStr)
	o.Direction = domain.Direction(dirStr)
	o.Status = domain.OrderStatus(statusStr)
	o.ErrorKind = domain.ErrorKind(errKindStr)
	o.CreatedAt = createdAt
	return o, true, nil
}

func (s *Store) OrdersForGroup(ctx context.Context, groupID string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, account_id, symbol, market_type, direction, quantity, entry_price,
		       stop_loss, take_profit, status, error_kind, error_detail, exchange_order_id,
		       filled_quantity, filled_price, created_at
		FROM orders WHERE group_id = ?
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("store.OrdersForGroup: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var marketStr, dirStr, statusStr, errKindStr string
		var createdAt time.Time
		if err := rows.Scan(&o.ID, &o.GroupID, &o.AccountID, &o.Symbol, &marketStr, &dirStr, &o.Quantity, &o.EntryPrice,
			&o.StopLoss, &o.TakeProfit, &statusStr, &errKindStr, &o.ErrorDetail, &o.ExchangeOrderID,
			&o.FilledQuantity, &o.FilledPrice, &createdAt); err != nil {
			return nil, fmt.Errorf("store.OrdersForGroup: scan: %w", err)
		}
		o.MarketType = domain.MarketType(marketStr)
		o.Direction = domain.Direction(dirStr)
		o.Status = domain.OrderStatus(statusStr)
		o.ErrorKind = domain.ErrorKind(errKindStr)
		o.CreatedAt = createdAt
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) DailyStats(ctx context.Context) (domain.DailyStats, error) {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, pnl FROM orders WHERE created_at >= ?`, startOfDay)
	if err != nil {
		return domain.DailyStats{}, fmt.Errorf("store.DailyStats: query: %w", err)
	}
	defer rows.Close()

	var stats domain.DailyStats
	var wins, closedTrades int
	for rows.Next() {
		var statusStr string
		var pnl sql.NullFloat64
		if err := rows.Scan(&statusStr, &pnl); err != nil {
			return domain.DailyStats{}, fmt.Errorf("store.DailyStats: scan: %w", err)
		}
		stats.TotalOrders++
		switch domain.OrderStatus(statusStr) {
		case domain.OrderFilled:
			stats.Filled++
		case domain.OrderFailed:
			stats.Failed++
		}
		if pnl.Valid {
			closedTrades++
			if pnl.Float64 > 0 {
				wins++
			}
			stats.TotalPnL += pnl.Float64
			if pnl.Float64 > stats.BestTradePnL {
				stats.BestTradePnL = pnl.Float64
			}
			if pnl.Float64 < stats.WorstTradePnL {
				stats.WorstTradePnL = pnl.Float64
			}
		}
	}
	if closedTrades > 0 {
		stats.WinRate = float64(wins) / float64(closedTrades)
	}
	return stats, rows.Err()
}

func (s *Store) AccountDailyStats(ctx context.Context, accountID string) (float64, int, error) {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	rows, err := s.db.QueryContext(ctx,
		`SELECT pnl FROM orders WHERE account_id = ? AND status = ? AND created_at >= ?`,
		accountID, string(domain.OrderFilled), startOfDay)
	if err != nil {
		return 0, 0, fmt.Errorf("store.AccountDailyStats: query: %w", err)
	}
	defer rows.Close()

	var realizedPnL float64
	var trades int
	for rows.Next() {
		var pnl sql.NullFloat64
		if err := rows.Scan(&pnl); err != nil {
			return 0, 0, fmt.Errorf("store.AccountDailyStats: scan: %w", err)
		}
		trades++
		if pnl.Valid {
			realizedPnL += pnl.Float64
		}
	}
	return realizedPnL, trades, rows.Err()
}

// --- PositionStore ---

func (s *Store) UpsertPosition(ctx context.Context, p domain.Position) error {
	s.mu.Lock()
	if last, ok := s.lastPositionPnL[p.OrderID]; ok && last == p.UnrealizedPnL {
		s.mu.Unlock()
		return nil
	}
	s.lastPositionPnL[p.OrderID] = p.UnrealizedPnL
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (order_id, account_id, symbol, market_type, direction, quantity,
			entry_price, stop_loss, take_profit, unrealized_pnl, realized_pnl, status, exit_reason, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			unrealized_pnl = excluded.unrealized_pnl, entry_price = excluded.entry_price
	`, p.OrderID, p.AccountID, p.Symbol, string(p.MarketType), string(p.Direction), p.Quantity,
		p.EntryPrice, p.StopLoss, p.TakeProfit, p.UnrealizedPnL, p.RealizedPnL, string(domain.PositionOpen), "", p.OpenedAt.UTC())
	if err != nil {
		return fmt.Errorf("store.UpsertPosition: %w", err)
	}
	return nil
}

func (s *Store) ListOpenByAccount(ctx context.Context, accountID string) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, account_id, symbol, market_type, direction, quantity, entry_price,
		       stop_loss, take_profit, unrealized_pnl, realized_pnl, opened_at
		FROM positions WHERE account_id = ? AND status = ?
	`, accountID, string(domain.PositionOpen))
	if err != nil {
		return nil, fmt.Errorf("store.ListOpenByAccount: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var marketStr, dirStr string
		var openedAt time.Time
		if err := rows.Scan(&p.OrderID, &p.AccountID, &p.Symbol, &marketStr, &dirStr, &p.Quantity, &p.EntryPrice,
			&p.StopLoss, &p.TakeProfit, &p.UnrealizedPnL, &p.RealizedPnL, &openedAt); err != nil {
			return nil, fmt.Errorf("store.ListOpenByAccount: scan: %w", err)
		}
		p.MarketType = domain.MarketType(marketStr)
		p.Direction = domain.Direction(dirStr)
		p.Status = domain.PositionOpen
		p.OpenedAt = openedAt
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ClosePosition(ctx context.Context, orderID string, exitReason domain.ExitReason, realizedPnL float64) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store.ClosePosition: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE positions SET status = ?, exit_reason = ?, realized_pnl = ?, closed_at = ?
		WHERE order_id = ?
	`, string(domain.PositionClosed), string(exitReason), realizedPnL, now, orderID); err != nil {
		return fmt.Errorf("store.ClosePosition: update position: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET pnl = ?, closed_at = ? WHERE id = ?
	`, realizedPnL, now, orderID); err != nil {
		return fmt.Errorf("store.ClosePosition: update order: %w", err)
	}

	s.mu.Lock()
	delete(s.lastPositionPnL, orderID)
	s.mu.Unlock()

	return tx.Commit()
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
