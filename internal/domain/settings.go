package domain

import (
	"fmt"
	"strings"
)

// RiskSettings is the persisted configuration subset of a risk policy.
// It mirrors the JSON document written to the config store and the
// riskSettings section of an export bundle.
//
// CurrentBalance and CurrentDrawdownThreshold are pointers because absence
// and zero mean different things: a nil field marks a fresh policy, while 0
// is a legitimate persisted value (the fixed-mode ratchet clamps the floor to
// exactly 0). A float zero-value sentinel would silently retreat a ratcheted
// floor on rehydration.
type RiskSettings struct {
	AccountBalance           float64  `json:"accountBalance"`
	MaxDrawdown              float64  `json:"maxDrawdown"`
	LossPerTradePercentage   float64  `json:"lossPerTradePercentage"`
	IsDynamicMaxDrawdown     bool     `json:"isDynamicMaxDrawdown"`
	CurrentBalance           *float64 `json:"currentBalance"`
	CurrentDrawdownThreshold *float64 `json:"currentDrawdownThreshold"`
}

// Validate checks the configuration invariants. All violations are collected
// so the caller sees every problem at once.
func (s RiskSettings) Validate() error {
	var errs []string

	if s.AccountBalance <= 0 {
		errs = append(errs, "accountBalance must be positive")
	}
	if s.MaxDrawdown < 0 {
		errs = append(errs, "maxDrawdown cannot be negative")
	}
	if s.MaxDrawdown > s.AccountBalance {
		errs = append(errs, "maxDrawdown cannot exceed accountBalance")
	}
	if s.LossPerTradePercentage <= 0 || s.LossPerTradePercentage > 1 {
		errs = append(errs, "lossPerTradePercentage must be within (0, 1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("risk settings validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
