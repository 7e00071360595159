package ports

import (
	"context"
	"time"

	"riskTracker/internal/domain"
)

// TradeRecord is the raw storage representation of a trade. The bookkeeping
// timestamps are storage-internal and never surface on the domain entity.
// JSON tags define the persisted and exported wire format (ISO-8601 times).
type TradeRecord struct {
	ID        int64     `json:"id"`
	Result    float64   `json:"result"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TradeStorage is the record-level contract every physical backend must
// satisfy identically, whatever its storage engine.
//
// Behavioral requirements:
//   - Init is idempotent; every other method may rely on it lazily.
//   - GetAll and GetByDateRange return records ordered by timestamp
//     ascending; GetRecent is timestamp descending, limited. A negative
//     limit yields no records.
//   - Save assigns a unique, monotonically increasing id.
//   - Update and Delete on an absent id fail with ErrNotFound.
//   - GetByID returns (nil, nil) when the id is absent.
//   - Close is idempotent and safe to call when the backend never opened.
type TradeStorage interface {
	Init(ctx context.Context) error
	GetAll(ctx context.Context) ([]TradeRecord, error)
	Save(ctx context.Context, rec TradeRecord) (int64, error)
	Update(ctx context.Context, rec TradeRecord) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*TradeRecord, error)
	ClearAll(ctx context.Context) error
	GetByDateRange(ctx context.Context, start, end time.Time) ([]TradeRecord, error)
	Count(ctx context.Context) (int, error)
	GetRecent(ctx context.Context, limit int) ([]TradeRecord, error)
	Export(ctx context.Context) ([]TradeRecord, error)
	Import(ctx context.Context, recs []TradeRecord) error
	Close() error

	// Name identifies the backend (e.g. "sqlite") for export metadata.
	Name() string
}

// ConfigStorage persists the risk policy configuration under a fixed key.
// Load distinguishes three outcomes: (settings, nil) on success, (nil, nil)
// when nothing has been stored yet, and (nil, err) on a real failure, so
// callers can tell "no data yet" from "corrupt data".
type ConfigStorage interface {
	SaveSettings(ctx context.Context, s domain.RiskSettings) error
	LoadSettings(ctx context.Context) (*domain.RiskSettings, error)
	ClearSettings(ctx context.Context) error
	HasSettings(ctx context.Context) (bool, error)
}
