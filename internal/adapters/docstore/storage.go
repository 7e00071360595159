// Package docstore implements the trade and config storage contracts on a
// key-value document store: msgpack-encoded box files holding id-keyed trade
// documents and a settings document. Each mutation rewrites the affected box
// atomically (temp file + rename), so a crash never leaves a torn box.
package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"riskTracker/internal/domain"
	"riskTracker/internal/ports"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	tradesBoxFile   = "trades.box"
	settingsBoxFile = "settings.box"
)

// tradeBox is the on-disk document collection for trades.
type tradeBox struct {
	Seq     int64                       `msgpack:"seq"`
	Records map[int64]ports.TradeRecord `msgpack:"records"`
}

// settingsBox is the on-disk settings document.
type settingsBox struct {
	Version  string               `msgpack:"version"`
	Settings *domain.RiskSettings `msgpack:"settings"`
}

// Storage implements ports.TradeStorage and ports.ConfigStorage over box
// files. Boxes are loaded lazily on first use and kept in memory; the process
// is the single writer, so no cross-process coordination is attempted.
type Storage struct {
	cfg    Config
	logger ports.Logger

	opened bool
	trades tradeBox
}

// Config holds configuration for the document store backend.
type Config struct {
	Dir        string
	AppVersion string
	Logger     ports.Logger
}

// New creates a document store backend rooted at cfg.Dir. Nothing is read
// from disk until Init or the first operation.
func New(cfg Config) (*Storage, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for document store")
	}
	if cfg.Dir == "" {
		cfg.Dir = "./data/docstore"
	}
	return &Storage{cfg: cfg, logger: cfg.Logger}, nil
}

// Name identifies the backend for export metadata.
func (s *Storage) Name() string { return "docstore" }

// Init creates the store directory and loads the trade box. Idempotent.
func (s *Storage) Init(ctx context.Context) error {
	if s.opened {
		return nil
	}
	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create document store directory '%s': %w", s.cfg.Dir, err)
	}

	box := tradeBox{Records: make(map[int64]ports.TradeRecord)}
	if err := s.readBox(tradesBoxFile, &box); err != nil {
		return fmt.Errorf("failed to load trade box: %w", err)
	}
	if box.Records == nil {
		box.Records = make(map[int64]ports.TradeRecord)
	}

	s.trades = box
	s.opened = true
	s.logger.Info(ctx, "Document store initialized", map[string]interface{}{
		"dir": s.cfg.Dir, "documents": len(box.Records),
	})
	return nil
}

// Close releases the in-memory boxes. Safe to call when never opened; all
// mutations are flushed eagerly so there is nothing to write here.
func (s *Storage) Close() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	s.trades = tradeBox{}
	s.logger.Info(context.Background(), "Document store closed")
	return nil
}

func (s *Storage) ensure(ctx context.Context) error {
	if s.opened {
		return nil
	}
	return s.Init(ctx)
}

// readBox decodes a box file into out. A missing file leaves out untouched.
func (s *Storage) readBox(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.cfg.Dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode box '%s': %w", ports.ErrStorage, name, err)
	}
	return nil
}

// writeBox atomically replaces a box file with the encoded value.
func (s *Storage) writeBox(name string, v interface{}) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode box '%s': %w", name, err)
	}
	path := filepath.Join(s.cfg.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write box '%s': %w", ports.ErrStorage, name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: failed to replace box '%s': %w", ports.ErrStorage, name, err)
	}
	return nil
}

func (s *Storage) flushTrades() error {
	return s.writeBox(tradesBoxFile, s.trades)
}

// --- TradeStorage implementation ---

// Save assigns the next sequence id and persists the record.
func (s *Storage) Save(ctx context.Context, rec ports.TradeRecord) (int64, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	s.trades.Seq++
	rec.ID = s.trades.Seq
	s.trades.Records[rec.ID] = rec
	if err := s.flushTrades(); err != nil {
		delete(s.trades.Records, rec.ID)
		s.trades.Seq--
		return 0, err
	}
	s.logger.Debug(ctx, "Trade document saved", map[string]interface{}{"tradeID": rec.ID})
	return rec.ID, nil
}

// Update replaces an existing trade document.
func (s *Storage) Update(ctx context.Context, rec ports.TradeRecord) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	prev, ok := s.trades.Records[rec.ID]
	if !ok {
		return fmt.Errorf("trade ID %d not found for update: %w", rec.ID, ports.ErrNotFound)
	}
	s.trades.Records[rec.ID] = rec
	if err := s.flushTrades(); err != nil {
		s.trades.Records[rec.ID] = prev
		return err
	}
	return nil
}

// Delete removes a trade document by id.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	prev, ok := s.trades.Records[id]
	if !ok {
		return fmt.Errorf("trade ID %d not found for delete: %w", id, ports.ErrNotFound)
	}
	delete(s.trades.Records, id)
	if err := s.flushTrades(); err != nil {
		s.trades.Records[id] = prev
		return err
	}
	return nil
}

// GetByID retrieves a trade document. Returns nil, nil when absent.
func (s *Storage) GetByID(ctx context.Context, id int64) (*ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	rec, ok := s.trades.Records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetAll retrieves all trade documents ordered by timestamp ascending.
func (s *Storage) GetAll(ctx context.Context) ([]ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return s.sorted(), nil
}

// GetByDateRange retrieves documents within [start, end], timestamp ascending.
func (s *Storage) GetByDateRange(ctx context.Context, start, end time.Time) ([]ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	recs := make([]ports.TradeRecord, 0)
	for _, rec := range s.sorted() {
		if rec.Timestamp.Before(start) || rec.Timestamp.After(end) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// GetRecent retrieves the most recent documents, timestamp descending.
func (s *Storage) GetRecent(ctx context.Context, limit int) ([]ports.TradeRecord, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = 0
	}
	asc := s.sorted()
	recs := make([]ports.TradeRecord, 0, limit)
	for i := len(asc) - 1; i >= 0 && len(recs) < limit; i-- {
		recs = append(recs, asc[i])
	}
	return recs, nil
}

// Count returns the number of trade documents.
func (s *Storage) Count(ctx context.Context) (int, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	return len(s.trades.Records), nil
}

// ClearAll removes every trade document and resets the sequence.
func (s *Storage) ClearAll(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	prev := s.trades
	s.trades = tradeBox{Records: make(map[int64]ports.TradeRecord)}
	if err := s.flushTrades(); err != nil {
		s.trades = prev
		return err
	}
	return nil
}

// Export returns all trade documents for an export bundle.
func (s *Storage) Export(ctx context.Context) ([]ports.TradeRecord, error) {
	return s.GetAll(ctx)
}

// Import bulk-adds records under fresh sequence ids.
func (s *Storage) Import(ctx context.Context, recs []ports.TradeRecord) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	now := time.Now()
	for _, rec := range recs {
		s.trades.Seq++
		rec.ID = s.trades.Seq
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		s.trades.Records[rec.ID] = rec
	}
	if err := s.flushTrades(); err != nil {
		return err
	}
	s.logger.Info(ctx, "Trades imported", map[string]interface{}{"count": len(recs)})
	return nil
}

// sorted returns the records ordered by timestamp ascending, id as tiebreak.
func (s *Storage) sorted() []ports.TradeRecord {
	recs := make([]ports.TradeRecord, 0, len(s.trades.Records))
	for _, rec := range s.trades.Records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
	return recs
}

// --- ConfigStorage implementation ---

// SaveSettings writes the settings document, stamped with the app version.
func (s *Storage) SaveSettings(ctx context.Context, settings domain.RiskSettings) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	return s.writeBox(settingsBoxFile, settingsBox{Version: s.cfg.AppVersion, Settings: &settings})
}

// LoadSettings reads the settings document. Returns nil, nil when absent.
func (s *Storage) LoadSettings(ctx context.Context) (*domain.RiskSettings, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	var box settingsBox
	if err := s.readBox(settingsBoxFile, &box); err != nil {
		return nil, fmt.Errorf("failed to load settings box: %w", err)
	}
	return box.Settings, nil
}

// ClearSettings removes the settings document.
func (s *Storage) ClearSettings(ctx context.Context) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.cfg.Dir, settingsBoxFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear settings box: %w", err)
	}
	return nil
}

// HasSettings reports whether a settings document exists.
func (s *Storage) HasSettings(ctx context.Context) (bool, error) {
	if err := s.ensure(ctx); err != nil {
		return false, err
	}
	settings, err := s.LoadSettings(ctx)
	if err != nil {
		return false, err
	}
	return settings != nil, nil
}
