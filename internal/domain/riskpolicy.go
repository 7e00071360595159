package domain

import "math"

// RiskPolicy holds the account's risk configuration together with its running
// balance and ratcheting drawdown threshold. It is an immutable value: every
// state transition returns a new policy, so the previous state stays valid
// until the caller commits the replacement.
type RiskPolicy struct {
	AccountBalance           float64 // Reference balance fixed at policy creation
	CurrentBalance           float64 // AccountBalance plus cumulative trade results
	MaxDrawdown              float64 // Absolute loss budget
	LossPerTradePercentage   float64 // Single-trade loss bound as fraction of balance
	IsDynamicMaxDrawdown     bool    // Budget expands as balance rises above reference
	CurrentDrawdownThreshold float64 // Ratcheting floor, starts at -MaxDrawdown
}

// NewRiskPolicy builds a policy from validated settings. Nil CurrentBalance
// and CurrentDrawdownThreshold mean "fresh policy" and default to the initial
// balance and -MaxDrawdown; present values are taken verbatim, so a floor
// legitimately ratcheted to 0 survives rehydration intact.
func NewRiskPolicy(s RiskSettings) (RiskPolicy, error) {
	if err := s.Validate(); err != nil {
		return RiskPolicy{}, err
	}

	balance := s.AccountBalance
	if s.CurrentBalance != nil {
		balance = *s.CurrentBalance
	}
	threshold := -s.MaxDrawdown
	if s.CurrentDrawdownThreshold != nil {
		threshold = *s.CurrentDrawdownThreshold
	}

	return RiskPolicy{
		AccountBalance:           s.AccountBalance,
		CurrentBalance:           balance,
		MaxDrawdown:              s.MaxDrawdown,
		LossPerTradePercentage:   s.LossPerTradePercentage,
		IsDynamicMaxDrawdown:     s.IsDynamicMaxDrawdown,
		CurrentDrawdownThreshold: threshold,
	}, nil
}

// Settings returns the persisted configuration subset of the policy. The
// live state fields are always present so a persisted document rehydrates
// verbatim.
func (p RiskPolicy) Settings() RiskSettings {
	balance := p.CurrentBalance
	threshold := p.CurrentDrawdownThreshold
	return RiskSettings{
		AccountBalance:           p.AccountBalance,
		MaxDrawdown:              p.MaxDrawdown,
		LossPerTradePercentage:   p.LossPerTradePercentage,
		IsDynamicMaxDrawdown:     p.IsDynamicMaxDrawdown,
		CurrentBalance:           &balance,
		CurrentDrawdownThreshold: &threshold,
	}
}

// MaxLossPerTrade is the largest single-trade loss the policy permits,
// recomputed from the current balance on every call.
func (p RiskPolicy) MaxLossPerTrade() float64 {
	return p.CurrentBalance * p.LossPerTradePercentage
}

// CumulativePnL is the running profit or loss relative to the reference
// balance.
func (p RiskPolicy) CumulativePnL() float64 {
	return p.CurrentBalance - p.AccountBalance
}

// dynamicAllowance is the extra drawdown room granted in dynamic mode when
// the balance has grown above the reference balance.
func (p RiskPolicy) dynamicAllowance() float64 {
	if p.IsDynamicMaxDrawdown && p.CurrentBalance > p.AccountBalance {
		return p.CurrentBalance - p.AccountBalance
	}
	return 0
}

// EffectiveMaxDrawdown is the loss budget currently in force: the configured
// MaxDrawdown, expanded by the balance excess in dynamic mode.
func (p RiskPolicy) EffectiveMaxDrawdown() float64 {
	return p.MaxDrawdown + p.dynamicAllowance()
}

// IsTradeWithinRiskLimits reports whether a trade result passes the per-trade
// loss limit. Profits and break-even trades are never limited.
func (p RiskPolicy) IsTradeWithinRiskLimits(result float64) bool {
	if result >= 0 {
		return true
	}
	return math.Abs(result) <= p.MaxLossPerTrade()
}

// WouldExceedMaxDrawdown reports whether applying the result would push the
// cumulative P&L onto or below the ratcheted floor. In dynamic mode the floor
// is lowered by the balance excess, mirroring the expanded loss budget.
func (p RiskPolicy) WouldExceedMaxDrawdown(result float64) bool {
	hypothetical := p.CumulativePnL() + result
	return hypothetical <= p.CurrentDrawdownThreshold-p.dynamicAllowance()
}

// UpdateBalance returns a new policy with the trade result applied to the
// running balance. The threshold is left untouched; AdvanceThreshold handles
// the ratchet separately.
func (p RiskPolicy) UpdateBalance(result float64) RiskPolicy {
	p.CurrentBalance += result
	return p
}

// AdvanceThreshold returns a new policy with the drawdown floor ratcheted
// forward if the cumulative P&L has pulled far enough ahead of it. The floor
// only ever advances; in fixed mode it is additionally clamped so it never
// rises above break-even.
func (p RiskPolicy) AdvanceThreshold() RiskPolicy {
	distance := p.CumulativePnL() - p.CurrentDrawdownThreshold
	if distance < p.MaxDrawdown {
		return p
	}

	next := p.CumulativePnL() - p.MaxDrawdown
	if !p.IsDynamicMaxDrawdown && next > 0 {
		next = 0
	}
	if next > p.CurrentDrawdownThreshold {
		p.CurrentDrawdownThreshold = next
	}
	return p
}

// RemainingRiskCapacity is how much more can be lost before the effective
// floor is breached.
func (p RiskPolicy) RemainingRiskCapacity() float64 {
	return p.CumulativePnL() - (p.CurrentDrawdownThreshold - p.dynamicAllowance())
}

// CurrentDrawdown is the amount the running balance sits below the reference
// balance, zero while in profit.
func (p RiskPolicy) CurrentDrawdown() float64 {
	return math.Max(0, p.AccountBalance-p.CurrentBalance)
}

// CalculatePositionSize returns the position size that risks at most
// MaxLossPerTrade between entry and stop. The result is not finite when the
// two prices coincide.
func (p RiskPolicy) CalculatePositionSize(entryPrice, stopLoss float64) float64 {
	return p.MaxLossPerTrade() / math.Abs(entryPrice-stopLoss)
}

// CalculateRequiredWinRate returns the break-even win rate for the given
// average win and average loss magnitude. Degenerate inputs collapse to 0.
func CalculateRequiredWinRate(avgWin, avgLossAbs float64) float64 {
	if avgWin <= 0 || avgLossAbs <= 0 {
		return 0
	}
	if math.IsInf(avgWin, 0) || math.IsInf(avgLossAbs, 0) || math.IsNaN(avgWin) || math.IsNaN(avgLossAbs) {
		return 0
	}
	return avgLossAbs / (avgWin + avgLossAbs)
}
