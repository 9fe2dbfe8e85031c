package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"atrDipBot/internal/domain"
	"atrDipBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeRepository interface using SQLite.
// It is an append-mostly audit log of executed fills.
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
		dbPath = "./data/atrdipbot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
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

	// SQLite handles concurrency internally; the Go driver benefits from
	// limiting connections.
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
	cfg.Logger.Info(context.Background(), "SQLite trade log ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		price REAL NOT NULL,
		quantity REAL NOT NULL,
		order_id INTEGER NOT NULL,
		executed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_executed_at ON trades (symbol, executed_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
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

// Record appends an executed fill and returns its assigned ID.
func (r *Repository) Record(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (symbol, action, price, quantity, order_id, executed_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.Action, trade.Price, trade.Quantity, trade.OrderID, trade.ExecutedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w", trade.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.Symbol, err)
	}
	trade.ID = id // Update the domain object with the ID
	r.logger.Debug(ctx, "Trade recorded", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol, "action": trade.Action})
	return id, nil
}

// FindRecent retrieves the most recent trades for a given symbol, up to a limit.
func (r *Repository) FindRecent(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	const query = `
	SELECT id, symbol, action, price, quantity, order_id, executed_at
	FROM trades
	WHERE symbol = ? ORDER BY executed_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for symbol %s: %w", symbol, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		t := &domain.Trade{}
		var action string
		if err := rows.Scan(&t.ID, &t.Symbol, &action, &t.Price, &t.Quantity, &t.OrderID, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindRecent: %w", err)
		}
		t.Action = domain.TradeAction(action)
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// RealizedProfit computes sell notional minus buy notional over all
// recorded trades for a symbol.
func (r *Repository) RealizedProfit(ctx context.Context, symbol string) (float64, error) {
	const query = `
	SELECT COALESCE(SUM(CASE WHEN action = ? THEN price * quantity ELSE -price * quantity END), 0)
	FROM trades WHERE symbol = ?`

	var profit float64
	err := r.db.QueryRowContext(ctx, query, domain.ActionSell, symbol).Scan(&profit)
	if err != nil {
		return 0, fmt.Errorf("failed to compute realized profit for symbol %s: %w", symbol, err)
	}
	return profit, nil
}
