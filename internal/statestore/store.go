// Package statestore persists order intents, positions and completed trades
// in a DuckDB database so the engine can reconcile after a restart or a
// timed-out submission.
package statestore

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/trendbox/internal/logger"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"go.uber.org/zap"
)

// IntentStatus tracks the persisted lifecycle of an order intent.
type IntentStatus string

const (
	// IntentStatusPending means the intent was recorded before submission
	// and no outcome is known yet. A pending intent found at startup means
	// the process died mid-submission and the position must be reconciled.
	IntentStatusPending  IntentStatus = "PENDING"
	IntentStatusAccepted IntentStatus = "ACCEPTED"
	IntentStatusRejected IntentStatus = "REJECTED"
	// IntentStatusUnknown means the submission timed out; the venue may or
	// may not have the order.
	IntentStatusUnknown IntentStatus = "UNKNOWN"
)

// IntentRecord is one persisted order intent.
type IntentRecord struct {
	ID         string
	Symbol     string
	Side       types.PurchaseType
	Quantity   float64
	Price      float64
	Reason     string
	Status     IntentStatus
	CreatedAt  time.Time
	ResolvedAt sql.NullTime
}

// Store is the DuckDB-backed state store. Safe for use from a single
// goroutine per symbol; cross-symbol writes go through database/sql's
// connection pool.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewStore opens (or creates) the database at path and initializes the
// schema. Use ":memory:" for an ephemeral store.
func NewStore(path string, logger *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreInit, "failed to open state database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStateStoreInit, "failed to connect to state database", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	if logger != nil {
		logger.Debug("state store initialized", zap.String("path", path))
	}

	return store, nil
}

// RecordIntent persists an intent as PENDING before it is submitted.
// Write-ahead ordering matters: the marker must hit disk before the order
// hits the venue, otherwise a crash between the two leaves an untracked
// order.
func (s *Store) RecordIntent(order types.ExecuteOrder) error {
	insertQuery := s.sq.
		Insert("intents").
		Columns("id", "symbol", "side", "quantity", "price", "reason", "status", "created_at").
		Values(order.ID, order.Symbol, string(order.Side), order.Quantity, order.Price,
			order.Reason, string(IntentStatusPending), order.Timestamp).
		RunWith(s.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreWrite, "failed to record intent", err)
	}

	return nil
}

// ResolveIntent marks an intent's final status.
func (s *Store) ResolveIntent(intentID string, status IntentStatus) error {
	updateQuery := s.sq.
		Update("intents").
		Set("status", string(status)).
		Set("resolved_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": intentID}).
		RunWith(s.db)

	result, err := updateQuery.Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreWrite, "failed to resolve intent", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.Newf(errors.ErrCodeOrderNotFound, "intent not found: %s", intentID)
	}

	return nil
}

// UnresolvedIntents returns the intents for a symbol whose outcome is not
// final (PENDING or UNKNOWN), oldest first.
func (s *Store) UnresolvedIntents(symbol string) ([]IntentRecord, error) {
	selectQuery := s.sq.
		Select("id", "symbol", "side", "quantity", "price", "reason", "status", "created_at", "resolved_at").
		From("intents").
		Where(squirrel.Eq{
			"symbol": symbol,
			"status": []string{string(IntentStatusPending), string(IntentStatusUnknown)},
		}).
		OrderBy("created_at ASC").
		RunWith(s.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreQuery, "failed to query intents", err)
	}
	defer rows.Close()

	var records []IntentRecord

	for rows.Next() {
		var rec IntentRecord

		var side, status string

		err := rows.Scan(&rec.ID, &rec.Symbol, &side, &rec.Quantity, &rec.Price,
			&rec.Reason, &status, &rec.CreatedAt, &rec.ResolvedAt)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStateStoreQuery, "failed to scan intent", err)
		}

		rec.Side = types.PurchaseType(side)
		rec.Status = IntentStatus(status)
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreQuery, "error iterating intents", err)
	}

	return records, nil
}

// SavePosition upserts the position for its symbol.
func (s *Store) SavePosition(pos types.Position) error {
	deleteQuery := s.sq.
		Delete("positions").
		Where(squirrel.Eq{"symbol": pos.Symbol}).
		RunWith(s.db)

	if _, err := deleteQuery.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreWrite, "failed to replace position", err)
	}

	insertQuery := s.sq.
		Insert("positions").
		Columns("symbol", "side", "entry_price", "size", "stop_loss", "take_profit",
			"status", "intent_id", "transition_at", "opened_at").
		Values(pos.Symbol, string(pos.Side), pos.EntryPrice, pos.Size, pos.StopLoss,
			pos.TakeProfit, string(pos.Status), pos.IntentID, pos.TransitionAt, pos.OpenedAt).
		RunWith(s.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreWrite, "failed to save position", err)
	}

	return nil
}

// LoadPosition returns the stored position for a symbol. The second return
// value is false when no position is stored.
func (s *Store) LoadPosition(symbol string) (types.Position, bool, error) {
	selectQuery := s.sq.
		Select("symbol", "side", "entry_price", "size", "stop_loss", "take_profit",
			"status", "intent_id", "transition_at", "opened_at").
		From("positions").
		Where(squirrel.Eq{"symbol": symbol}).
		RunWith(s.db)

	var pos types.Position

	var side, status string

	err := selectQuery.QueryRow().Scan(&pos.Symbol, &side, &pos.EntryPrice, &pos.Size,
		&pos.StopLoss, &pos.TakeProfit, &status, &pos.IntentID, &pos.TransitionAt, &pos.OpenedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Position{}, false, nil
	}

	if err != nil {
		return types.Position{}, false, errors.Wrap(errors.ErrCodeStateStoreQuery, "failed to load position", err)
	}

	pos.Side = types.PositionSide(side)
	pos.Status = types.PositionStatus(status)

	return pos, true, nil
}

// RecordTrade persists a completed round trip.
func (s *Store) RecordTrade(trade types.TradeRecord) error {
	var nextID int

	if err := s.db.QueryRow("SELECT nextval('trade_id_seq')").Scan(&nextID); err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreWrite, "failed to get next trade ID", err)
	}

	insertQuery := s.sq.
		Insert("trades").
		Columns("id", "symbol", "side", "entry_price", "exit_price", "size", "pnl",
			"reason", "opened_at", "closed_at").
		Values(nextID, trade.Symbol, string(trade.Side), trade.EntryPrice, trade.ExitPrice,
			trade.Size, trade.PnL, trade.Reason, trade.OpenedAt, trade.ClosedAt).
		RunWith(s.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreWrite, "failed to record trade", err)
	}

	return nil
}

// Trades returns all recorded trades for a symbol, oldest first. An empty
// symbol returns every trade.
func (s *Store) Trades(symbol string) ([]types.TradeRecord, error) {
	selectQuery := s.sq.
		Select("symbol", "side", "entry_price", "exit_price", "size", "pnl",
			"reason", "opened_at", "closed_at").
		From("trades").
		OrderBy("closed_at ASC")

	if symbol != "" {
		selectQuery = selectQuery.Where(squirrel.Eq{"symbol": symbol})
	}

	rows, err := selectQuery.RunWith(s.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreQuery, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var trade types.TradeRecord

		var side string

		err := rows.Scan(&trade.Symbol, &side, &trade.EntryPrice, &trade.ExitPrice,
			&trade.Size, &trade.PnL, &trade.Reason, &trade.OpenedAt, &trade.ClosedAt)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStateStoreQuery, "failed to scan trade", err)
		}

		trade.Side = types.PositionSide(side)
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStateStoreQuery, "error iterating trades", err)
	}

	return trades, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// initialize creates the schema.
func (s *Store) initialize() error {
	_, err := s.db.Exec(`CREATE SEQUENCE IF NOT EXISTS trade_id_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreInit, "failed to create trade sequence", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS intents (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			price DOUBLE,
			reason TEXT,
			status TEXT,
			created_at TIMESTAMP,
			resolved_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreInit, "failed to create intents table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			symbol TEXT PRIMARY KEY,
			side TEXT,
			entry_price DOUBLE,
			size DOUBLE,
			stop_loss DOUBLE,
			take_profit DOUBLE,
			status TEXT,
			intent_id TEXT,
			transition_at TIMESTAMP,
			opened_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreInit, "failed to create positions table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			entry_price DOUBLE,
			exit_price DOUBLE,
			size DOUBLE,
			pnl DOUBLE,
			reason TEXT,
			opened_at TIMESTAMP,
			closed_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStateStoreInit, "failed to create trades table", err)
	}

	return nil
}
