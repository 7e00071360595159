package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func basePolicy(t *testing.T) RiskPolicy {
	t.Helper()
	policy, err := NewRiskPolicy(RiskSettings{
		AccountBalance:         10000,
		MaxDrawdown:            500,
		LossPerTradePercentage: 0.02,
	})
	require.NoError(t, err)
	return policy
}

func TestNewRiskPolicy(t *testing.T) {
	tests := []struct {
		name     string
		settings RiskSettings
		wantErr  bool
	}{
		{
			name:     "valid fresh policy",
			settings: RiskSettings{AccountBalance: 10000, MaxDrawdown: 500, LossPerTradePercentage: 0.02},
		},
		{
			name: "valid rehydrated policy",
			settings: RiskSettings{
				AccountBalance: 10000, MaxDrawdown: 500, LossPerTradePercentage: 0.02,
				CurrentBalance: fptr(9700), CurrentDrawdownThreshold: fptr(-500),
			},
		},
		{
			name:     "zero account balance",
			settings: RiskSettings{MaxDrawdown: 500, LossPerTradePercentage: 0.02},
			wantErr:  true,
		},
		{
			name:     "negative max drawdown",
			settings: RiskSettings{AccountBalance: 10000, MaxDrawdown: -1, LossPerTradePercentage: 0.02},
			wantErr:  true,
		},
		{
			name:     "max drawdown above balance",
			settings: RiskSettings{AccountBalance: 100, MaxDrawdown: 500, LossPerTradePercentage: 0.02},
			wantErr:  true,
		},
		{
			name:     "loss percentage zero",
			settings: RiskSettings{AccountBalance: 10000, MaxDrawdown: 500},
			wantErr:  true,
		},
		{
			name:     "loss percentage above one",
			settings: RiskSettings{AccountBalance: 10000, MaxDrawdown: 500, LossPerTradePercentage: 1.5},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewRiskPolicy(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.settings.CurrentBalance == nil {
				assert.Equal(t, tt.settings.AccountBalance, policy.CurrentBalance)
				assert.Equal(t, -tt.settings.MaxDrawdown, policy.CurrentDrawdownThreshold)
			} else {
				assert.Equal(t, *tt.settings.CurrentBalance, policy.CurrentBalance)
				assert.Equal(t, *tt.settings.CurrentDrawdownThreshold, policy.CurrentDrawdownThreshold)
			}
		})
	}
}

func TestIsTradeWithinRiskLimits(t *testing.T) {
	policy := basePolicy(t) // maxLossPerTrade = 200

	tests := []struct {
		name   string
		result float64
		want   bool
	}{
		{"profit is never limited", 500, true},
		{"break-even is never limited", 0, true},
		{"loss within limit", -150, true},
		{"loss at limit", -200, true},
		{"loss above limit", -250, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.IsTradeWithinRiskLimits(tt.result))
		})
	}
}

func TestWouldExceedMaxDrawdown(t *testing.T) {
	t.Run("fixed mode floor", func(t *testing.T) {
		policy := basePolicy(t) // threshold -500

		assert.False(t, policy.WouldExceedMaxDrawdown(-499))
		assert.True(t, policy.WouldExceedMaxDrawdown(-500), "touching the floor is a breach")
		assert.True(t, policy.WouldExceedMaxDrawdown(-600))
		assert.False(t, policy.WouldExceedMaxDrawdown(100))
	})

	t.Run("worked example sequence", func(t *testing.T) {
		policy := basePolicy(t)

		// -150 accepted, balance 9850.
		require.False(t, policy.WouldExceedMaxDrawdown(-150))
		policy = policy.UpdateBalance(-150)
		assert.Equal(t, 9850.0, policy.CurrentBalance)

		// -400 would take cumulative P&L to -550, past the -500 floor.
		assert.True(t, policy.WouldExceedMaxDrawdown(-400))

		// -150 keeps distance at 200, accepted.
		require.False(t, policy.WouldExceedMaxDrawdown(-150))
		policy = policy.UpdateBalance(-150)
		assert.Equal(t, 9700.0, policy.CurrentBalance)
	})

	t.Run("dynamic mode grants balance excess", func(t *testing.T) {
		policy, err := NewRiskPolicy(RiskSettings{
			AccountBalance: 10000, MaxDrawdown: 500, LossPerTradePercentage: 0.1,
			IsDynamicMaxDrawdown: true,
		})
		require.NoError(t, err)

		policy = policy.UpdateBalance(300) // excess 300
		assert.Equal(t, 800.0, policy.EffectiveMaxDrawdown())
		// Floor moves to -800 relative to cumulative P&L of 300.
		assert.False(t, policy.WouldExceedMaxDrawdown(-1000))
		assert.True(t, policy.WouldExceedMaxDrawdown(-1100))
	})
}

func TestAdvanceThreshold(t *testing.T) {
	t.Run("advances after sufficient profit", func(t *testing.T) {
		policy := basePolicy(t)
		policy = policy.UpdateBalance(600).AdvanceThreshold()
		// cumulative 600, distance 1100 >= 500, new threshold 600-500=100
		// clamped to 0 in fixed mode.
		assert.Equal(t, 0.0, policy.CurrentDrawdownThreshold)
	})

	t.Run("no advance below the budget distance", func(t *testing.T) {
		policy := basePolicy(t)
		policy = policy.UpdateBalance(-100).AdvanceThreshold()
		assert.Equal(t, -500.0, policy.CurrentDrawdownThreshold)
	})

	t.Run("dynamic mode rises above break-even", func(t *testing.T) {
		policy, err := NewRiskPolicy(RiskSettings{
			AccountBalance: 10000, MaxDrawdown: 500, LossPerTradePercentage: 0.02,
			IsDynamicMaxDrawdown: true,
		})
		require.NoError(t, err)

		policy = policy.UpdateBalance(1200).AdvanceThreshold()
		assert.Equal(t, 700.0, policy.CurrentDrawdownThreshold)
	})

	t.Run("monotonic across a trade sequence", func(t *testing.T) {
		policy := basePolicy(t)
		results := []float64{100, -150, 600, -50, 200, -199, 150, 120}

		prev := policy.CurrentDrawdownThreshold
		for _, r := range results {
			if r < 0 {
				require.True(t, policy.IsTradeWithinRiskLimits(r))
				require.False(t, policy.WouldExceedMaxDrawdown(r))
			}
			policy = policy.UpdateBalance(r)
			if r > 0 {
				policy = policy.AdvanceThreshold()
			}
			assert.GreaterOrEqual(t, policy.CurrentDrawdownThreshold, prev, "ratchet must never retreat")
			assert.LessOrEqual(t, policy.CurrentDrawdownThreshold, 0.0, "fixed mode never rises above break-even")
			prev = policy.CurrentDrawdownThreshold
		}
	})
}

func TestDerivedQuantities(t *testing.T) {
	policy := basePolicy(t)

	assert.Equal(t, 200.0, policy.MaxLossPerTrade())
	assert.Equal(t, 0.0, policy.CumulativePnL())
	assert.Equal(t, 500.0, policy.EffectiveMaxDrawdown())
	assert.Equal(t, 500.0, policy.RemainingRiskCapacity())
	assert.Equal(t, 0.0, policy.CurrentDrawdown())

	policy = policy.UpdateBalance(-300)
	assert.Equal(t, 194.0, policy.MaxLossPerTrade())
	assert.Equal(t, 300.0, policy.CurrentDrawdown())
	assert.Equal(t, 200.0, policy.RemainingRiskCapacity())
}

func TestCalculatePositionSize(t *testing.T) {
	policy := basePolicy(t) // maxLossPerTrade = 200

	assert.Equal(t, 100.0, policy.CalculatePositionSize(50, 48))
	assert.Equal(t, 100.0, policy.CalculatePositionSize(48, 50), "direction must not matter")
	assert.True(t, math.IsInf(policy.CalculatePositionSize(50, 50), 1), "zero stop distance is not finite")
}

func TestCalculateRequiredWinRate(t *testing.T) {
	tests := []struct {
		name       string
		avgWin     float64
		avgLossAbs float64
		want       float64
	}{
		{"balanced", 100, 100, 0.5},
		{"wins twice losses", 200, 100, 1.0 / 3.0},
		{"zero win degenerates", 0, 100, 0},
		{"zero loss degenerates", 100, 0, 0},
		{"infinite input degenerates", math.Inf(1), 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateRequiredWinRate(tt.avgWin, tt.avgLossAbs), 1e-12)
		})
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	policy := basePolicy(t).UpdateBalance(-250)
	settings := policy.Settings()

	rebuilt, err := NewRiskPolicy(settings)
	require.NoError(t, err)
	assert.Equal(t, policy, rebuilt)
}

func TestRehydrationPreservesRatchet(t *testing.T) {
	// A ratcheted floor of exactly 0 is legal persisted state, not a fresh
	// policy marker; rebuilding from settings must not retreat it.
	policy := basePolicy(t).UpdateBalance(600).AdvanceThreshold()
	require.Equal(t, 0.0, policy.CurrentDrawdownThreshold)

	rebuilt, err := NewRiskPolicy(policy.Settings())
	require.NoError(t, err)
	assert.Equal(t, 0.0, rebuilt.CurrentDrawdownThreshold, "ratchet must survive rehydration")
	assert.Equal(t, policy.CurrentBalance, rebuilt.CurrentBalance)
	assert.Equal(t, policy, rebuilt)
}
