package app

import (
	"fmt"

	"riskTracker/internal/ports"
)

// RiskLimitError reports a trade rejected by policy rules. It carries the
// breached rule and the numeric bounds involved so callers can present the
// exact reason.
type RiskLimitError struct {
	Rule      string  // which limit was breached
	Limit     float64 // the bound in force
	Attempted float64 // the value that breached it
}

func (e *RiskLimitError) Error() string {
	return fmt.Sprintf("%s: attempted loss %.2f exceeds limit %.2f", e.Rule, e.Attempted, e.Limit)
}

// Unwrap lets errors.Is match ports.ErrRiskLimitExceeded.
func (e *RiskLimitError) Unwrap() error {
	return ports.ErrRiskLimitExceeded
}
