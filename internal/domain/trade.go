package domain

import "time"

// Trade represents a single closed trade outcome.
// Instances are treated as values: storage assigns the ID on first persist,
// and any change is expressed by deriving a new value rather than mutating
// an existing one.
type Trade struct {
	ID        int64     // Unique identifier, assigned by storage (0 = unassigned)
	Result    float64   // Signed profit or loss of the trade
	Timestamp time.Time // When the trade was closed
}

// NewTrade creates a trade with the given result. The timestamp defaults to
// the creation instant so it is always present.
func NewTrade(result float64) Trade {
	return Trade{Result: result, Timestamp: time.Now()}
}

// WithID returns a copy of the trade with the assigned storage identifier.
func (t Trade) WithID(id int64) Trade {
	t.ID = id
	return t
}

// WithTimestamp returns a copy of the trade with the given timestamp.
func (t Trade) WithTimestamp(ts time.Time) Trade {
	t.Timestamp = ts
	return t
}

// IsPersisted reports whether storage has assigned an identifier yet.
func (t Trade) IsPersisted() bool {
	return t.ID != 0
}
