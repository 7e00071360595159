package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"riskTracker/internal/domain"
	"riskTracker/internal/ports"
)

// maxTradeMagnitude bounds a single trade result to a sane order of
// magnitude; anything beyond it is treated as malformed input.
const maxTradeMagnitude = 1e9

// RiskService orchestrates the repository and the risk policy model: it
// admits or rejects trades, advances the policy state, computes aggregate
// statistics and classifies risk exposure.
//
// The in-memory policy is read-then-replaced on every accepted trade.
// Operations are expected to be serialized by the caller (single logical
// writer); the service provides no internal mutual exclusion, so concurrent
// AddTrade calls would race on the policy state.
type RiskService struct {
	logger ports.Logger
	trades ports.TradeRepository
	store  ports.TradeStorage
	config ports.ConfigStorage

	policy domain.RiskPolicy
}

// NewRiskService creates the service with its dependencies and the initial
// risk settings. Settings validation here is the critical path and fails
// with a ValidationError.
func NewRiskService(
	logger ports.Logger,
	trades ports.TradeRepository,
	store ports.TradeStorage,
	config ports.ConfigStorage,
	settings domain.RiskSettings,
) (*RiskService, error) {
	if logger == nil || trades == nil || store == nil || config == nil {
		return nil, fmt.Errorf("missing required dependencies for RiskService")
	}

	policy, err := domain.NewRiskPolicy(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrValidation, err)
	}

	return &RiskService{
		logger: logger,
		trades: trades,
		store:  store,
		config: config,
		policy: policy,
	}, nil
}

// CurrentPolicy returns the policy state the service currently holds.
func (s *RiskService) CurrentPolicy() domain.RiskPolicy {
	return s.policy
}

// AddTrade validates and admits a trade result. Losses are checked against
// the per-trade limit and the drawdown floor; a rejected trade is never
// persisted and leaves the policy untouched. On acceptance the trade is
// persisted first, and only then is the in-memory policy replaced, so a
// storage failure cannot advance the balance.
func (s *RiskService) AddTrade(ctx context.Context, result float64) (domain.Trade, error) {
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return domain.Trade{}, fmt.Errorf("%w: trade result must be finite", ports.ErrValidation)
	}
	if math.Abs(result) > maxTradeMagnitude {
		return domain.Trade{}, fmt.Errorf("%w: trade result magnitude %g exceeds %g", ports.ErrValidation, math.Abs(result), float64(maxTradeMagnitude))
	}

	policy := s.policy
	if result < 0 {
		if !policy.IsTradeWithinRiskLimits(result) {
			err := &RiskLimitError{
				Rule:      "per-trade loss limit",
				Limit:     policy.MaxLossPerTrade(),
				Attempted: math.Abs(result),
			}
			s.logger.Warn(ctx, "Trade rejected by per-trade loss limit", map[string]interface{}{
				"result": result, "maxLossPerTrade": policy.MaxLossPerTrade(),
			})
			return domain.Trade{}, err
		}
		if policy.WouldExceedMaxDrawdown(result) {
			err := &RiskLimitError{
				Rule:      "max drawdown limit",
				Limit:     policy.EffectiveMaxDrawdown(),
				Attempted: math.Abs(policy.CumulativePnL() + result),
			}
			s.logger.Warn(ctx, "Trade rejected by drawdown limit", map[string]interface{}{
				"result":    result,
				"threshold": policy.CurrentDrawdownThreshold,
				"effective": policy.EffectiveMaxDrawdown(),
			})
			return domain.Trade{}, err
		}
	}

	persisted, err := s.trades.Create(ctx, domain.NewTrade(result))
	if err != nil {
		return domain.Trade{}, fmt.Errorf("addTrade: %w", err)
	}

	next := policy.UpdateBalance(result)
	if result > 0 {
		next = next.AdvanceThreshold()
	}
	s.policy = next

	s.logger.Info(ctx, "Trade recorded", map[string]interface{}{
		"tradeID":        persisted.ID,
		"result":         result,
		"currentBalance": next.CurrentBalance,
		"threshold":      next.CurrentDrawdownThreshold,
	})
	return persisted, nil
}

// GetAllTrades returns every persisted trade, timestamp ascending.
func (s *RiskService) GetAllTrades(ctx context.Context) ([]domain.Trade, error) {
	trades, err := s.trades.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("getAllTrades: %w", err)
	}
	return trades, nil
}

// GetTradesByDateRange returns trades within [start, end].
func (s *RiskService) GetTradesByDateRange(ctx context.Context, start, end time.Time) ([]domain.Trade, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date must not be after end date", ports.ErrValidation)
	}
	trades, err := s.trades.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("getTradesByDateRange: %w", err)
	}
	return trades, nil
}

// GetRecentTrades returns the most recent trades, newest first.
func (s *RiskService) GetRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit cannot be negative", ports.ErrValidation)
	}
	trades, err := s.trades.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("getRecentTrades: %w", err)
	}
	return trades, nil
}

// GetTradingStatistics aggregates the persisted trades and the current policy
// into one statistics snapshot.
func (s *RiskService) GetTradingStatistics(ctx context.Context) (domain.TradingStatistics, error) {
	trades, err := s.trades.FindAll(ctx)
	if err != nil {
		return domain.TradingStatistics{}, fmt.Errorf("getTradingStatistics: %w", err)
	}

	policy := s.policy
	stats := domain.TradingStatistics{
		TotalTrades:           len(trades),
		CurrentDrawdown:       policy.CurrentDrawdown(),
		EffectiveMaxDrawdown:  policy.EffectiveMaxDrawdown(),
		RemainingRiskCapacity: policy.RemainingRiskCapacity(),
		MaxLossPerTrade:       policy.MaxLossPerTrade(),
	}

	var sumWins, sumLosses float64
	for _, t := range trades {
		stats.TotalProfitLoss += t.Result
		switch {
		case t.Result > 0:
			stats.WinningTrades++
			sumWins += t.Result
			if t.Result > stats.BestWin {
				stats.BestWin = t.Result
			}
		case t.Result < 0:
			stats.LosingTrades++
			sumLosses += -t.Result
			if t.Result < stats.WorstLoss {
				stats.WorstLoss = t.Result
			}
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
		stats.LossRate = float64(stats.LosingTrades) / float64(stats.TotalTrades)
	}
	if stats.WinningTrades > 0 {
		stats.AverageWin = sumWins / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = sumLosses / float64(stats.LosingTrades)
	}

	switch {
	case sumLosses > 0:
		stats.ProfitFactor = sumWins / sumLosses
	case sumWins > 0:
		stats.ProfitFactor = math.Inf(1)
	}
	switch {
	case stats.AverageLoss > 0:
		stats.RiskRewardRatio = stats.AverageWin / stats.AverageLoss
	case stats.AverageWin > 0:
		stats.RiskRewardRatio = math.Inf(1)
	}
	stats.RequiredWinRate = domain.CalculateRequiredWinRate(stats.AverageWin, stats.AverageLoss)

	return stats, nil
}

// CheckRiskStatus classifies the current exposure on the low/medium/high/
// critical scale.
func (s *RiskService) CheckRiskStatus(ctx context.Context) domain.RiskStatus {
	return domain.ClassifyRiskStatus(s.policy)
}

// ClearAllTrades wipes the trade history and resets the policy to its
// initial balance and threshold. Idempotent.
func (s *RiskService) ClearAllTrades(ctx context.Context) error {
	if err := s.trades.ClearAll(ctx); err != nil {
		return fmt.Errorf("clearAllTrades: %w", err)
	}

	settings := s.policy.Settings()
	settings.CurrentBalance = nil
	settings.CurrentDrawdownThreshold = nil
	policy, err := domain.NewRiskPolicy(settings)
	if err != nil {
		return fmt.Errorf("clearAllTrades: %w", err)
	}
	s.policy = policy
	s.logger.Info(ctx, "Trade history cleared, policy reset", map[string]interface{}{
		"currentBalance": policy.CurrentBalance,
	})
	return nil
}

// InitializeCurrentBalance recomputes the running balance from the persisted
// trades. Used to rehydrate state after a restart where only trades survive.
func (s *RiskService) InitializeCurrentBalance(ctx context.Context) error {
	trades, err := s.trades.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("initializeCurrentBalance: %w", err)
	}

	var total float64
	for _, t := range trades {
		total += t.Result
	}

	policy := s.policy
	policy.CurrentBalance = policy.AccountBalance + total
	s.policy = policy
	s.logger.Info(ctx, "Current balance rehydrated", map[string]interface{}{
		"trades": len(trades), "totalPnL": total, "currentBalance": policy.CurrentBalance,
	})
	return nil
}

// ValidateRiskSettings is the non-critical validation path: failures are
// logged and reported as a boolean so UI hints can degrade gracefully.
func (s *RiskService) ValidateRiskSettings(ctx context.Context, settings domain.RiskSettings) bool {
	if err := settings.Validate(); err != nil {
		s.logger.Warn(ctx, "Risk settings validation failed", map[string]interface{}{"reason": err.Error()})
		return false
	}
	return true
}

// UpdateRiskSettings validates new settings (critical path), persists them
// and replaces the in-memory policy. The accumulated balance carries over
// when the reference balance is unchanged.
func (s *RiskService) UpdateRiskSettings(ctx context.Context, settings domain.RiskSettings) error {
	if settings.CurrentBalance == nil && settings.AccountBalance == s.policy.AccountBalance {
		balance := s.policy.CurrentBalance
		settings.CurrentBalance = &balance
	}

	policy, err := domain.NewRiskPolicy(settings)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrValidation, err)
	}
	if err := s.config.SaveSettings(ctx, policy.Settings()); err != nil {
		return fmt.Errorf("updateRiskSettings: %w", err)
	}

	s.policy = policy
	s.logger.Info(ctx, "Risk settings updated", map[string]interface{}{
		"accountBalance": policy.AccountBalance,
		"maxDrawdown":    policy.MaxDrawdown,
		"dynamic":        policy.IsDynamicMaxDrawdown,
	})
	return nil
}

// PersistSettings writes the current policy configuration to the config
// store without modifying service state.
func (s *RiskService) PersistSettings(ctx context.Context) error {
	if err := s.config.SaveSettings(ctx, s.policy.Settings()); err != nil {
		return fmt.Errorf("persistSettings: %w", err)
	}
	return nil
}
