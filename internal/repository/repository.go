// Package repository adapts a record-level storage backend to the
// trade-oriented domain contract. It owns the translation between
// ports.TradeRecord and domain.Trade and stamps the storage bookkeeping
// timestamps; the backends and the service stay ignorant of each other's
// representations.
package repository

import (
	"context"
	"fmt"
	"time"

	"riskTracker/internal/domain"
	"riskTracker/internal/ports"
)

// TradeRepository implements ports.TradeRepository over any ports.TradeStorage.
type TradeRepository struct {
	store  ports.TradeStorage
	logger ports.Logger
}

// New creates a repository over the given backend.
func New(store ports.TradeStorage, logger ports.Logger) (*TradeRepository, error) {
	if store == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for trade repository")
	}
	return &TradeRepository{store: store, logger: logger}, nil
}

// Create persists a new trade and returns it with the assigned ID.
func (r *TradeRepository) Create(ctx context.Context, trade domain.Trade) (domain.Trade, error) {
	if trade.Timestamp.IsZero() {
		trade = trade.WithTimestamp(time.Now())
	}

	now := time.Now()
	id, err := r.store.Save(ctx, ports.TradeRecord{
		Result:    trade.Result,
		Timestamp: trade.Timestamp,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Trade{}, fmt.Errorf("failed to save trade: %w", err)
	}
	r.logger.Debug(ctx, "Trade persisted", map[string]interface{}{"tradeID": id, "result": trade.Result})
	return trade.WithID(id), nil
}

// Update replaces an existing trade's result and timestamp.
func (r *TradeRepository) Update(ctx context.Context, trade domain.Trade) error {
	rec, err := r.store.GetByID(ctx, trade.ID)
	if err != nil {
		return fmt.Errorf("failed to load trade ID %d for update: %w", trade.ID, err)
	}
	if rec == nil {
		return fmt.Errorf("trade ID %d not found for update: %w", trade.ID, ports.ErrNotFound)
	}

	rec.Result = trade.Result
	rec.Timestamp = trade.Timestamp
	rec.UpdatedAt = time.Now()
	if err := r.store.Update(ctx, *rec); err != nil {
		return fmt.Errorf("failed to update trade ID %d: %w", trade.ID, err)
	}
	return nil
}

// Delete removes a trade by ID.
func (r *TradeRepository) Delete(ctx context.Context, id int64) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete trade ID %d: %w", id, err)
	}
	return nil
}

// FindByID retrieves a trade by its unique ID. Returns nil, nil if absent.
func (r *TradeRepository) FindByID(ctx context.Context, id int64) (*domain.Trade, error) {
	rec, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade ID %d: %w", id, err)
	}
	if rec == nil {
		return nil, nil
	}
	t := toTrade(*rec)
	return &t, nil
}

// FindAll retrieves all trades, ordered by timestamp ascending.
func (r *TradeRepository) FindAll(ctx context.Context) ([]domain.Trade, error) {
	recs, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query all trades: %w", err)
	}
	return toTrades(recs), nil
}

// FindByDateRange retrieves trades within [start, end], timestamp ascending.
func (r *TradeRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]domain.Trade, error) {
	recs, err := r.store.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades by date range: %w", err)
	}
	return toTrades(recs), nil
}

// FindRecent retrieves the most recent trades, timestamp descending.
func (r *TradeRepository) FindRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	recs, err := r.store.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent trades: %w", err)
	}
	return toTrades(recs), nil
}

// Count returns the number of persisted trades.
func (r *TradeRepository) Count(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}

// ClearAll removes every trade.
func (r *TradeRepository) ClearAll(ctx context.Context) error {
	if err := r.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear trades: %w", err)
	}
	r.logger.Info(ctx, "All trades cleared")
	return nil
}

func toTrade(rec ports.TradeRecord) domain.Trade {
	return domain.Trade{ID: rec.ID, Result: rec.Result, Timestamp: rec.Timestamp}
}

func toTrades(recs []ports.TradeRecord) []domain.Trade {
	trades := make([]domain.Trade, 0, len(recs))
	for _, rec := range recs {
		trades = append(trades, toTrade(rec))
	}
	return trades
}
