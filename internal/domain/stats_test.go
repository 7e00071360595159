package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRiskStatus(t *testing.T) {
	newPolicy := func(maxDrawdown, cumulativePnL float64) RiskPolicy {
		policy, err := NewRiskPolicy(RiskSettings{
			AccountBalance:         10000,
			MaxDrawdown:            maxDrawdown,
			LossPerTradePercentage: 0.02,
		})
		require.NoError(t, err)
		return policy.UpdateBalance(cumulativePnL)
	}

	tests := []struct {
		name          string
		maxDrawdown   float64
		cumulativePnL float64
		want          RiskStatus
	}{
		{"zero budget disables the rule", 0, -9000, RiskStatusLow},
		{"at the floor", 500, -500, RiskStatusCritical},
		{"below the floor", 500, -600, RiskStatusCritical},
		{"at the high boundary", 500, -400, RiskStatusHigh}, // ratio 0.2
		{"just above critical", 500, -499, RiskStatusHigh},
		{"at the medium boundary", 500, -250, RiskStatusMedium}, // ratio 0.5
		{"comfortably inside", 500, -100, RiskStatusLow},
		{"fresh policy", 500, 0, RiskStatusLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRiskStatus(newPolicy(tt.maxDrawdown, tt.cumulativePnL)))
		})
	}
}
