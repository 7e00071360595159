package ports

import (
	"context"
	"time"

	"riskTracker/internal/domain"
)

// TradeRepository defines the trade-oriented domain contract the service
// depends on. Implementations translate raw storage records into Trade
// entities; the service never sees a TradeRecord.
type TradeRepository interface {
	// Create persists a new trade and returns it with the assigned ID.
	Create(ctx context.Context, trade domain.Trade) (domain.Trade, error)
	// Update replaces an existing trade. Fails with ErrNotFound if absent.
	Update(ctx context.Context, trade domain.Trade) error
	// Delete removes a trade by ID. Fails with ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error
	// FindByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*domain.Trade, error)
	// FindAll retrieves all trades, ordered by timestamp ascending.
	FindAll(ctx context.Context) ([]domain.Trade, error)
	// FindByDateRange retrieves trades within [start, end], timestamp ascending.
	FindByDateRange(ctx context.Context, start, end time.Time) ([]domain.Trade, error)
	// FindRecent retrieves the most recent trades, timestamp descending.
	FindRecent(ctx context.Context, limit int) ([]domain.Trade, error)
	// Count returns the number of persisted trades.
	Count(ctx context.Context) (int, error)
	// ClearAll removes every trade.
	ClearAll(ctx context.Context) error
}
