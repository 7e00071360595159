// Package prefstore implements the trade and config storage contracts on a
// flat preference file: a single JSON document of string keys, in the manner
// of a mobile shared-preferences store. Collections are stored as JSON text
// under one key each, so every value in the file stays a scalar.
package prefstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"riskTracker/internal/domain"
	"riskTracker/internal/ports"
)

const (
	keyTrades     = "trades"
	keyNextID     = "trades_next_id"
	keySettings   = "risk_settings"
	keyAppVersion = "app_version"
)

// Storage implements ports.TradeStorage and ports.ConfigStorage over a flat
// JSON preference file. The file is loaded lazily and rewritten atomically on
// every mutation.
type Storage struct {
	cfg    Config
	logger ports.Logger

	opened bool
	prefs  map[string]string
}

// Config holds configuration for the preference store backend.
type Config struct {
	Path       string
	AppVersion string
	Logger     ports.Logger
}

// New creates a preference store backend. The file is not touched until Init
// or the first operation.
func New(cfg Config) (*Storage, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for preference store")
	}
	if cfg.Path == "" {
		cfg.Path = "./data/preferences.json"
	}
	return &Storage{cfg: cfg, logger: cfg.Logger}, nil
}

// Name identifies the backend for export metadata.
func (s *Storage) Name() string { return "prefstore" }

// Init loads the preference file, creating an empty store when none exists.
// Idempotent.
func (s *Storage) Init(ctx context.Context) error {
	if s.opened {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0755); err != nil {
		return fmt.Errorf("failed to create preference directory '%s': %w", filepath.Dir(s.cfg.Path), err)
	}

	prefs := make(map[string]string)
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read preference file '%s': %w", s.cfg.Path, err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &prefs); err != nil {
			return fmt.Errorf("%w: failed to decode preference file '%s': %w", ports.ErrStorage, s.cfg.Path, err)
		}
	}

	s.prefs = prefs
	s.opened = true
	s.logger.Info(ctx, "Preference store initialized", map[string]interface{}{"path": s.cfg.Path})
	return nil
}

// Close releases the in-memory preference map. Safe to call when never
// opened; mutations are flushed eagerly.
func (s *Storage) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	s.prefs = nil
	s.logger.Info(context.Background(), "Preference store closed")
	return nil
}

func (s *Storage) ensure(ctx context.Context) error {
	if s.opened {
		return nil
	}
	return s.Init(ctx)
}

// flush atomically rewrites the preference file.
func (s *Storage) flush() error {
	data, err := json.MarshalIndent(s.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	tmp := s.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write preference file: %w", ports.ErrStorage, err)
	}
	if err := os.Rename(tmp, s.cfg.Path); err != nil {
		return fmt.Errorf("%w: failed to replace preference file: %w", ports.ErrStorage, err)
	}
	return nil
}

// loadTrades decodes the trade list preference. Missing key means empty.
func (s *Storage) loadTrades() ([]ports.TradeRecord, error) {
	raw, ok := s.prefs[keyTrades]
	if !ok || raw == "" {
		return []ports.TradeRecord{}, nil
	}
	var recs []ports.TradeRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("failed to decode trades preference: %w", err)
	}
	return recs, nil
}

// storeTrades encodes the trade list preference and flushes the file.
func (s *Storage) storeTrades(recs []ports.TradeRecord) error {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode trades preference: %w", err)
	}
	s.prefs[keyTrades] = string(data)
	return s.flush()
}

func (s *Storage) nextID() int64 {
	var next int64 = 1
	if raw, ok := s.prefs[keyNextID]; ok {
		fmt.Sscanf(raw, "%d", &next)
	}
	s.prefs[keyNextID] = fmt.Sprintf("%d", next+1)
	return next
}

// --- TradeStorage implementation ---

// Save appends a record under a fresh id.
func (s *Storage) Save(ctx context.Context, rec ports.TradeRecord) (int64, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	recs, err := s.loadTrades()
	if err != nil {
		return 0, err
	}
	rec.ID = s.nextID()
	if err := s.storeTrades(append(recs, rec)); err != nil {
		return 0, err
	}
	s.logger.Debug(ctx, "Trade preference saved", map[string]interface{}{"tradeID": rec.ID})
	return rec.ID, nil
}

// Update replaces an existing record.
func (s *Storage) Update(ctx context.Context, rec ports.TradeRecord) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	recs, err := s.loadTrades()
	if err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID == rec.ID {
			recs[i] = rec
			return s.storeTrades(recs)
		}
	}
	return fmt.Errorf("trade ID %d not found for update: %w", rec.ID, ports.ErrNotFound)
}

// Delete removes a record by id.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	recs, err := s.loadTrades()
	if err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID == id {
			return s.storeTrades(append(recs[:i], recs[i+1:]...))
		}
	}
	return fmt.Errorf("trade ID %d not found for delete: %w", id, ports.ErrNotFound)
}

// GetByID retrieves a record by id. Returns nil, nil when absent.
func (s *Storage) GetByID(ctx context.Context, id int64) (*ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	recs, err := s.loadTrades()
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].ID == id {
			rec := recs[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// GetAll retrieves all records ordered by timestamp ascending.
func (s *Storage) GetAll(ctx context.Context) ([]ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return s.loadTrades()
}

// GetByDateRange retrieves records within [start, end], timestamp ascending.
func (s *Storage) GetByDateRange(ctx context.Context, start, end time.Time) ([]ports.TradeRecord, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]ports.TradeRecord, 0)
	for _, rec := range all {
		if rec.Timestamp.Before(start) || rec.Timestamp.After(end) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// GetRecent retrieves the most recent records, timestamp descending.
func (s *Storage) GetRecent(ctx context.Context, limit int) ([]ports.TradeRecord, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = 0
	}
	recs := make([]ports.TradeRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(recs) < limit; i-- {
		recs = append(recs, all[i])
	}
	return recs, nil
}

// Count returns the number of records.
func (s *Storage) Count(ctx context.Context) (int, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// ClearAll removes every record and resets the id counter.
func (s *Storage) ClearAll(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	delete(s.prefs, keyTrades)
	delete(s.prefs, keyNextID)
	return s.flush()
}

// Export returns all records for an export bundle.
func (s *Storage) Export(ctx context.Context) ([]ports.TradeRecord, error) {
	return s.GetAll(ctx)
}

// Import bulk-adds records under fresh ids.
func (s *Storage) Import(ctx context.Context, imported []ports.TradeRecord) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	recs, err := s.loadTrades()
	if err != nil {
		return err
	}
	now := time.Now()
	for _, rec := range imported {
		rec.ID = s.nextID()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		recs = append(recs, rec)
	}
	if err := s.storeTrades(recs); err != nil {
		return err
	}
	s.logger.Info(ctx, "Trades imported", map[string]interface{}{"count": len(imported)})
	return nil
}

// --- ConfigStorage implementation ---

// SaveSettings stores the settings JSON under the fixed preference key and
// stamps the app version marker.
func (s *Storage) SaveSettings(ctx context.Context, settings domain.RiskSettings) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode risk settings: %w", err)
	}
	s.prefs[keySettings] = string(data)
	s.prefs[keyAppVersion] = s.cfg.AppVersion
	return s.flush()
}

// LoadSettings reads the settings preference. Returns nil, nil when absent.
func (s *Storage) LoadSettings(ctx context.Context) (*domain.RiskSettings, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	raw, ok := s.prefs[keySettings]
	if !ok || raw == "" {
		return nil, nil
	}
	var settings domain.RiskSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("failed to decode risk settings preference: %w", err)
	}
	return &settings, nil
}

// ClearSettings removes the settings preference.
func (s *Storage) ClearSettings(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	delete(s.prefs, keySettings)
	return s.flush()
}

// HasSettings reports whether a settings preference exists.
func (s *Storage) HasSettings(ctx context.Context) (bool, error) {
	if err := s.ensure(ctx); err != nil {
		return false, err
	}
	raw, ok := s.prefs[keySettings]
	return ok && raw != "", nil
}
