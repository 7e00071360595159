package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskTracker/internal/ports"
)

func TestExportData(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, defaultSettings())

	_, err := svc.AddTrade(ctx, 100)
	require.NoError(t, err)
	_, err = svc.AddTrade(ctx, -50)
	require.NoError(t, err)

	data, err := svc.ExportData(ctx)
	require.NoError(t, err)

	var bundle ExportBundle
	require.NoError(t, json.Unmarshal(data, &bundle))
	assert.Equal(t, BundleVersion, bundle.Version)
	assert.False(t, bundle.ExportDate.IsZero())
	require.NotNil(t, bundle.RiskSettings)
	assert.Equal(t, 10000.0, bundle.RiskSettings.AccountBalance)
	assert.Len(t, bundle.Trades, 2)
	assert.Equal(t, "memory", bundle.Metadata.Platform)
	assert.Equal(t, 2, bundle.Metadata.TradeCount)
}

func TestImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, defaultSettings())

	for _, r := range []float64{100, -50, 25} {
		_, err := svc.AddTrade(ctx, r)
		require.NoError(t, err)
	}
	data, err := svc.ExportData(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.ClearAllTrades(ctx))
	require.NoError(t, svc.ImportData(ctx, data))

	trades, err := svc.GetAllTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, 100.0, trades[0].Result)
	assert.Equal(t, -50.0, trades[1].Result)
	assert.Equal(t, 25.0, trades[2].Result)

	// Policy is rehydrated from the imported history.
	assert.Equal(t, 10075.0, svc.CurrentPolicy().CurrentBalance)
	require.NotNil(t, store.settings)
	assert.Equal(t, 10000.0, store.settings.AccountBalance)
}

func TestImportValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"trade missing result", `{"version":"1.0.0","trades":[{"timestamp":"2024-03-01T12:00:00Z"}]}`},
		{"trade missing timestamp", `{"version":"1.0.0","trades":[{"result":5}]}`},
		{"settings missing accountBalance", `{"version":"1.0.0","trades":[],"riskSettings":{"maxDrawdown":500,"lossPerTradePercentage":0.02}}`},
		{"settings missing maxDrawdown", `{"version":"1.0.0","trades":[],"riskSettings":{"accountBalance":10000,"lossPerTradePercentage":0.02}}`},
		{"settings missing lossPerTradePercentage", `{"version":"1.0.0","trades":[],"riskSettings":{"accountBalance":10000,"maxDrawdown":500}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, defaultSettings())
			_, err := svc.AddTrade(ctx, 100)
			require.NoError(t, err)

			err = svc.ImportData(ctx, []byte(tt.data))
			assert.ErrorIs(t, err, ports.ErrValidation)

			// Validation failures happen before any mutation.
			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestImportReportsRehydrationFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, defaultSettings())

	bundle := `{"version":"1.0.0","trades":[{"result":10,"timestamp":"2024-03-01T12:00:00Z"}]}`
	store.getAllErr = errors.New("read failed")

	err := svc.ImportData(ctx, []byte(bundle))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importData")
}

func TestImportWithoutSettingsKeepsPolicyConfig(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, defaultSettings())

	bundle := `{"version":"1.0.0","trades":[{"result":-100,"timestamp":"2024-03-01T12:00:00Z"}]}`
	require.NoError(t, svc.ImportData(ctx, []byte(bundle)))

	assert.Equal(t, 500.0, svc.CurrentPolicy().MaxDrawdown)
	assert.Equal(t, 9900.0, svc.CurrentPolicy().CurrentBalance)
}
