package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradejournal/internal/domain"
	"tradejournal/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.TradeRepository and ports.ExitRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/tradejournal.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL for concurrency, foreign keys on so exits cascade with their trade.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_date TIMESTAMP NOT NULL,
		entry_price REAL DEFAULT NULL,
		quantity REAL NOT NULL,
		exit_date TIMESTAMP DEFAULT NULL,
		exit_price REAL DEFAULT NULL,
		stop_loss REAL DEFAULT NULL,
		take_profit REAL DEFAULT NULL,
		remaining_quantity REAL DEFAULT NULL,
		fees REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		strategy TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_exits (
		id TEXT PRIMARY KEY,
		trade_id TEXT NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		exit_date TIMESTAMP NOT NULL,
		exit_price REAL NOT NULL,
		quantity REAL NOT NULL,
		fees REAL NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		exit_trigger TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_entry ON trades (user_id, entry_date);
	CREATE INDEX IF NOT EXISTS idx_trade_exits_trade ON trade_exits (trade_id, exit_date);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeRepository Implementation ---

// CreateTrade saves a new trade.
func (r *Repository) CreateTrade(ctx context.Context, t *domain.Trade) error {
	const query = `
	INSERT INTO trades (id, user_id, symbol, direction, entry_date, entry_price, quantity,
	                    exit_date, exit_price, stop_loss, take_profit, remaining_quantity,
	                    fees, status, notes, strategy, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Symbol, string(t.Direction), t.EntryDate,
		nullFloat(t.EntryPrice), t.Quantity,
		nullTime(t.ExitDate), nullFloat(t.ExitPrice), nullFloat(t.StopLoss),
		nullFloat(t.TakeProfit), nullFloat(t.RemainingQuantity),
		t.Fees, string(t.Status), t.Notes, t.Strategy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s for symbol %s: %w", t.ID, t.Symbol, err)
	}
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": t.ID, "symbol": t.Symbol})
	return nil
}

// UpdateTrade modifies an existing trade by ID.
func (r *Repository) UpdateTrade(ctx context.Context, t *domain.Trade) error {
	const query = `
	UPDATE trades
	SET symbol = ?, direction = ?, entry_date = ?, entry_price = ?, quantity = ?,
	    exit_date = ?, exit_price = ?, stop_loss = ?, take_profit = ?,
	    remaining_quantity = ?, fees = ?, status = ?, notes = ?, strategy = ?, updated_at = ?
	WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		t.Symbol, string(t.Direction), t.EntryDate, nullFloat(t.EntryPrice), t.Quantity,
		nullTime(t.ExitDate), nullFloat(t.ExitPrice), nullFloat(t.StopLoss),
		nullFloat(t.TakeProfit), nullFloat(t.RemainingQuantity),
		t.Fees, string(t.Status), t.Notes, t.Strategy, t.UpdatedAt,
		t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w", t.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade %s: %w", t.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for update: %w", t.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade updated", map[string]interface{}{"tradeID": t.ID, "status": t.Status})
	return nil
}

// DeleteTrade removes a trade; its exits cascade via the foreign key.
func (r *Repository) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ? AND user_id = ?`, tradeID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade %s: %w", tradeID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete trade %s: %w", tradeID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for delete: %w", tradeID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": tradeID})
	return nil
}

const tradeColumns = `id, user_id, symbol, direction, entry_date, entry_price, quantity,
	exit_date, exit_price, stop_loss, take_profit, remaining_quantity,
	fees, status, notes, strategy, created_at, updated_at`

// FindTradeByID retrieves a trade with its exits. Returns nil, nil when not found.
func (r *Repository) FindTradeByID(ctx context.Context, userID, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ? AND user_id = ?`

	row := r.db.QueryRowContext(ctx, query, tradeID, userID)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade not found", map[string]interface{}{"tradeID": tradeID})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query trade %s: %w", tradeID, err)
	}

	exits, err := r.FindExitsByTrade(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Exits = exits
	return t, nil
}

// FindTradesByUser retrieves all of a user's trades with their exits,
// ordered by entry date ascending.
func (r *Repository) FindTradesByUser(ctx context.Context, userID string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE user_id = ? ORDER BY entry_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for user %s: %w", userID, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	byID := make(map[string]*domain.Trade)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindTradesByUser: %w", err)
		}
		trades = append(trades, t)
		byID[t.ID] = t
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}

	// One pass over the user's exits instead of a query per trade.
	const exitQuery = `
	SELECT id, trade_id, user_id, exit_date, exit_price, quantity, fees, notes, exit_trigger, created_at
	FROM trade_exits WHERE user_id = ? ORDER BY exit_date ASC, created_at ASC`

	exitRows, err := r.db.QueryContext(ctx, exitQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exits for user %s: %w", userID, err)
	}
	defer exitRows.Close()

	for exitRows.Next() {
		e, err := scanExit(exitRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exit during FindTradesByUser: %w", err)
		}
		if t, ok := byID[e.TradeID]; ok {
			t.Exits = append(t.Exits, e)
		}
	}
	if err = exitRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exit rows: %w", err)
	}
	return trades, nil
}

// --- ExitRepository Implementation ---

// CreateExit saves a new exit against a trade.
func (r *Repository) CreateExit(ctx context.Context, e *domain.TradeExit) error {
	const query = `
	INSERT INTO trade_exits (id, trade_id, user_id, exit_date, exit_price, quantity, fees, notes, exit_trigger, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.TradeID, e.UserID, e.ExitDate, e.ExitPrice, e.Quantity, e.Fees,
		e.Notes, string(e.Trigger), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert exit %s for trade %s: %w", e.ID, e.TradeID, err)
	}
	r.logger.Debug(ctx, "Exit created", map[string]interface{}{"exitID": e.ID, "tradeID": e.TradeID})
	return nil
}

// UpdateExit modifies an existing exit by ID.
func (r *Repository) UpdateExit(ctx context.Context, e *domain.TradeExit) error {
	const query = `
	UPDATE trade_exits
	SET exit_date = ?, exit_price = ?, quantity = ?, fees = ?, notes = ?, exit_trigger = ?
	WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		e.ExitDate, e.ExitPrice, e.Quantity, e.Fees, e.Notes, string(e.Trigger),
		e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("failed to update exit %s: %w", e.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for exit %s: %w", e.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("exit %s not found for update: %w", e.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Exit updated", map[string]interface{}{"exitID": e.ID})
	return nil
}

// DeleteExit removes a single exit.
func (r *Repository) DeleteExit(ctx context.Context, userID, exitID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trade_exits WHERE id = ? AND user_id = ?`, exitID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete exit %s: %w", exitID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete exit %s: %w", exitID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("exit %s not found for delete: %w", exitID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Exit deleted", map[string]interface{}{"exitID": exitID})
	return nil
}

// FindExitsByTrade retrieves a trade's exits ordered by exit date ascending.
func (r *Repository) FindExitsByTrade(ctx context.Context, tradeID string) ([]*domain.TradeExit, error) {
	const query = `
	SELECT id, trade_id, user_id, exit_date, exit_price, quantity, fees, notes, exit_trigger, created_at
	FROM trade_exits WHERE trade_id = ? ORDER BY exit_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exits for trade %s: %w", tradeID, err)
	}
	defer rows.Close()

	exits := make([]*domain.TradeExit, 0)
	for rows.Next() {
		e, err := scanExit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exit for trade %s: %w", tradeID, err)
		}
		exits = append(exits, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exit rows for trade %s: %w", tradeID, err)
	}
	return exits, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var direction, status string
	var entryPrice, exitPrice, stopLoss, takeProfit, remaining sql.NullFloat64
	var exitDate sql.NullTime
	err := s.Scan(
		&t.ID, &t.UserID, &t.Symbol, &direction, &t.EntryDate, &entryPrice, &t.Quantity,
		&exitDate, &exitPrice, &stopLoss, &takeProfit, &remaining,
		&t.Fees, &status, &t.Notes, &t.Strategy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Direction = domain.Direction(direction)
	t.Status = domain.TradeStatus(status)
	t.EntryPrice = floatPtr(entryPrice)
	t.ExitPrice = floatPtr(exitPrice)
	t.StopLoss = floatPtr(stopLoss)
	t.TakeProfit = floatPtr(takeProfit)
	t.RemainingQuantity = floatPtr(remaining)
	if exitDate.Valid {
		d := exitDate.Time
		t.ExitDate = &d
	}
	return t, nil
}

func scanExit(s scanner) (*domain.TradeExit, error) {
	e := &domain.TradeExit{}
	var trigger string
	err := s.Scan(
		&e.ID, &e.TradeID, &e.UserID, &e.ExitDate, &e.ExitPrice, &e.Quantity,
		&e.Fees, &e.Notes, &trigger, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Trigger = domain.ExitTrigger(trigger)
	return e, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
