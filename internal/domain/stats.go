package domain

// TradingStatistics aggregates the persisted trade history together with the
// policy-derived risk figures for the current state.
type TradingStatistics struct {
	TotalTrades     int
	TotalProfitLoss float64
	WinningTrades   int
	LosingTrades    int
	WinRate         float64
	LossRate        float64
	AverageWin      float64
	AverageLoss     float64 // magnitude, >= 0
	BestWin         float64
	WorstLoss       float64
	ProfitFactor    float64 // +Inf when there are no losses
	RiskRewardRatio float64

	CurrentDrawdown       float64
	EffectiveMaxDrawdown  float64
	RemainingRiskCapacity float64
	MaxLossPerTrade       float64
	RequiredWinRate       float64
}

// RiskStatus classifies the current risk exposure on an ordered scale.
type RiskStatus string

const (
	RiskStatusLow      RiskStatus = "low"
	RiskStatusMedium   RiskStatus = "medium"
	RiskStatusHigh     RiskStatus = "high"
	RiskStatusCritical RiskStatus = "critical"
)

// ClassifyRiskStatus maps the policy's distance to its drawdown floor onto
// the status scale. A zero loss budget means the drawdown rule is disabled.
func ClassifyRiskStatus(p RiskPolicy) RiskStatus {
	if p.MaxDrawdown == 0 {
		return RiskStatusLow
	}

	ratio := (p.CumulativePnL() - p.CurrentDrawdownThreshold) / p.MaxDrawdown
	switch {
	case ratio <= 0:
		return RiskStatusCritical
	case ratio <= 0.2:
		return RiskStatusHigh
	case ratio <= 0.5:
		return RiskStatusMedium
	default:
		return RiskStatusLow
	}
}
