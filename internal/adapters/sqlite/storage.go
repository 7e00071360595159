// Package sqlite implements the trade and config storage contracts on a
// relational SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"riskTracker/internal/domain"
	"riskTracker/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const settingsKey = "risk_settings"

// Storage implements ports.TradeStorage and ports.ConfigStorage using SQLite.
// The database handle is opened lazily on first use and reused for the
// process lifetime.
type Storage struct {
	cfg    Config
	logger ports.Logger
	db     *sql.DB
}

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DBPath     string
	AppVersion string
	Logger     ports.Logger
}

// New creates a SQLite storage backend. No connection is opened until Init
// or the first operation.
func New(cfg Config) (*Storage, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite storage")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./data/risk_tracker.db"
	}
	return &Storage{cfg: cfg, logger: cfg.Logger}, nil
}

// Name identifies the backend for export metadata.
func (s *Storage) Name() string { return "sqlite" }

// Init opens the database and initializes the schema. Idempotent: calling it
// again after a successful open is a no-op.
func (s *Storage) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(s.cfg.DBPath), err)
	}

	db, err := sql.Open("sqlite3", s.cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("%w: failed to open database at '%s': %w", ports.ErrStorage, s.cfg.DBPath, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrStorage, s.cfg.DBPath, err)
	}

	// SQLite serializes writers internally; one connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result REAL NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades (timestamp);

	CREATE TABLE IF NOT EXISTS app_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("%w: failed to initialize database schema: %w", ports.ErrStorage, err)
	}

	s.db = db
	s.logger.Info(ctx, "SQLite storage initialized", map[string]interface{}{"path": s.cfg.DBPath})
	return nil
}

// Close closes the database connection. Safe to call when never opened.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	s.logger.Info(context.Background(), "Closing SQLite storage")
	return db.Close()
}

func (s *Storage) ensure(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	return s.Init(ctx)
}

// --- TradeStorage implementation ---

const tradeColumns = "id, result, timestamp, created_at, updated_at"

// Save inserts a new trade record and returns the assigned id.
func (s *Storage) Save(ctx context.Context, rec ports.TradeRecord) (int64, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	const query = `INSERT INTO trades (result, timestamp, created_at, updated_at) VALUES (?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, rec.Result, rec.Timestamp, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade: %w", err)
	}
	s.logger.Debug(ctx, "Trade record inserted", map[string]interface{}{"tradeID": id})
	return id, nil
}

// Update replaces an existing trade record.
func (s *Storage) Update(ctx context.Context, rec ports.TradeRecord) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	const query = `UPDATE trades SET result = ?, timestamp = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, rec.Result, rec.Timestamp, rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade ID %d: %w", rec.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade ID %d: %w", rec.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("trade ID %d not found for update: %w", rec.ID, ports.ErrNotFound)
	}
	return nil
}

// Delete removes a trade record by id.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade ID %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade ID %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("trade ID %d not found for delete: %w", id, ports.ErrNotFound)
	}
	return nil
}

// GetByID retrieves a trade record by id. Returns nil, nil when absent.
func (s *Storage) GetByID(ctx context.Context, id int64) (*ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query trade ID %d: %w", id, err)
	}
	return rec, nil
}

// GetAll retrieves all trade records ordered by timestamp ascending.
func (s *Storage) GetAll(ctx context.Context) ([]ports.TradeRecord, error) {
	return s.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY timestamp ASC`)
}

// GetByDateRange retrieves records within [start, end], timestamp ascending.
func (s *Storage) GetByDateRange(ctx context.Context, start, end time.Time) ([]ports.TradeRecord, error) {
	const query = `SELECT ` + tradeColumns + ` FROM trades WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`
	return s.queryTrades(ctx, query, start, end)
}

// GetRecent retrieves the most recent records, timestamp descending.
func (s *Storage) GetRecent(ctx context.Context, limit int) ([]ports.TradeRecord, error) {
	// A negative LIMIT means "no limit" to SQLite; clamp for contract parity.
	if limit < 0 {
		limit = 0
	}
	const query = `SELECT ` + tradeColumns + ` FROM trades ORDER BY timestamp DESC LIMIT ?`
	return s.queryTrades(ctx, query, limit)
}

// Count returns the number of trade records.
func (s *Storage) Count(ctx context.Context) (int, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// ClearAll removes every trade record.
func (s *Storage) ClearAll(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM trades`); err != nil {
		return fmt.Errorf("failed to clear trades: %w", err)
	}
	return nil
}

// Export returns all trade records for an export bundle.
func (s *Storage) Export(ctx context.Context) ([]ports.TradeRecord, error) {
	return s.GetAll(ctx)
}

// Import bulk-inserts records, letting the table re-assign ids.
func (s *Storage) Import(ctx context.Context, recs []ports.TradeRecord) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	const query = `INSERT INTO trades (result, timestamp, created_at, updated_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	for _, rec := range recs {
		created := rec.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := tx.ExecContext(ctx, query, rec.Result, rec.Timestamp, created, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to import trade record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import transaction: %w", err)
	}
	s.logger.Info(ctx, "Trades imported", map[string]interface{}{"count": len(recs)})
	return nil
}

func (s *Storage) queryTrades(ctx context.Context, query string, args ...interface{}) ([]ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	recs := make([]ports.TradeRecord, 0)
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return recs, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(sc scanner) (*ports.TradeRecord, error) {
	rec := &ports.TradeRecord{}
	if err := sc.Scan(&rec.ID, &rec.Result, &rec.Timestamp, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

// --- ConfigStorage implementation ---

// settingsDocument is the JSON payload stored in app_config, stamped with the
// app version for forward migration.
type settingsDocument struct {
	Version string `json:"version"`
	domain.RiskSettings
}

// SaveSettings stores the risk settings under the fixed config key.
func (s *Storage) SaveSettings(ctx context.Context, settings domain.RiskSettings) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(settingsDocument{Version: s.cfg.AppVersion, RiskSettings: settings})
	if err != nil {
		return fmt.Errorf("failed to encode risk settings: %w", err)
	}
	const query = `INSERT INTO app_config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, settingsKey, string(payload), time.Now()); err != nil {
		return fmt.Errorf("failed to save risk settings: %w", err)
	}
	return nil
}

// LoadSettings retrieves the stored risk settings. Returns nil, nil when none
// have been stored yet.
func (s *Storage) LoadSettings(ctx context.Context) (*domain.RiskSettings, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = ?`, settingsKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load risk settings: %w", err)
	}
	var doc settingsDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode risk settings: %w", err)
	}
	return &doc.RiskSettings, nil
}

// ClearSettings removes the stored risk settings.
func (s *Storage) ClearSettings(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_config WHERE key = ?`, settingsKey); err != nil {
		return fmt.Errorf("failed to clear risk settings: %w", err)
	}
	return nil
}

// HasSettings reports whether risk settings have been stored.
func (s *Storage) HasSettings(ctx context.Context) (bool, error) {
	if err := s.ensure(ctx); err != nil {
		return false, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM app_config WHERE key = ?`, settingsKey).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to probe risk settings: %w", err)
	}
	return count > 0, nil
}
