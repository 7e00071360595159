package ports

import "errors"

// Standard application-level errors.
// Adapters and the service wrap underlying failures with these sentinels so
// callers can branch on the error class without knowing the backend.
var (
	// ErrValidation marks malformed input: bad date ranges, invalid risk
	// settings, non-finite trade results. Rejected before any mutation.
	ErrValidation = errors.New("invalid request parameters or format")

	// ErrRiskLimitExceeded marks a trade rejected by policy rules. The
	// concrete error carries the breached rule and the numeric bounds.
	ErrRiskLimitExceeded = errors.New("trade rejected by risk limits")

	// ErrNotFound marks an update or delete referencing an absent record.
	ErrNotFound = errors.New("record not found")

	// ErrStorage marks a backend failure (I/O, schema/init, codec).
	ErrStorage = errors.New("storage operation failed")

	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("invalid or missing configuration")
)
