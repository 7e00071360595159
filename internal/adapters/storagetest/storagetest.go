// Package storagetest holds the conformance suite every storage backend must
// pass. Each adapter's tests construct a fresh backend and run the same
// assertions, keeping the three engines behaviorally identical.
package storagetest

import (
	"context"
	"testing"
	"time"

	"riskTracker/internal/domain"
	"riskTracker/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend is the combined surface the suite exercises.
type Backend interface {
	ports.TradeStorage
	ports.ConfigStorage
}

// Factory builds a fresh, empty backend for one test case.
type Factory func(t *testing.T) Backend

// MockLogger implements ports.Logger for adapter construction in tests.
type MockLogger struct{}

func (m *MockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *MockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *MockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *MockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func record(result float64, ts time.Time) ports.TradeRecord {
	return ports.TradeRecord{Result: result, Timestamp: ts, CreatedAt: ts, UpdatedAt: ts}
}

// Run executes the full conformance suite against backends built by factory.
func Run(t *testing.T, factory Factory) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("init and close are idempotent", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Init(ctx))
		require.NoError(t, store.Init(ctx))
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())
	})

	t.Run("close is safe when never opened", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())
	})

	t.Run("save assigns increasing ids", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id1, err := store.Save(ctx, record(100, base))
		require.NoError(t, err)
		id2, err := store.Save(ctx, record(-50, base.Add(time.Hour)))
		require.NoError(t, err)
		assert.Greater(t, id1, int64(0))
		assert.Greater(t, id2, id1)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("get all is timestamp ascending", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		// Insert out of chronological order.
		_, err := store.Save(ctx, record(3, base.Add(2*time.Hour)))
		require.NoError(t, err)
		_, err = store.Save(ctx, record(1, base))
		require.NoError(t, err)
		_, err = store.Save(ctx, record(2, base.Add(time.Hour)))
		require.NoError(t, err)

		recs, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []float64{1, 2, 3}, []float64{recs[0].Result, recs[1].Result, recs[2].Result})
	})

	t.Run("get recent is timestamp descending and limited", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i := 0; i < 5; i++ {
			_, err := store.Save(ctx, record(float64(i), base.Add(time.Duration(i)*time.Hour)))
			require.NoError(t, err)
		}

		recs, err := store.GetRecent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, 4.0, recs[0].Result)
		assert.Equal(t, 3.0, recs[1].Result)
		assert.Equal(t, 2.0, recs[2].Result)
	})

	t.Run("get recent treats a negative limit as zero", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Save(ctx, record(1, base))
		require.NoError(t, err)

		recs, err := store.GetRecent(ctx, -1)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("date range is inclusive and ascending", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i := 0; i < 4; i++ {
			_, err := store.Save(ctx, record(float64(i), base.AddDate(0, 0, i)))
			require.NoError(t, err)
		}

		recs, err := store.GetByDateRange(ctx, base.AddDate(0, 0, 1), base.AddDate(0, 0, 2))
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, 1.0, recs[0].Result)
		assert.Equal(t, 2.0, recs[1].Result)
	})

	t.Run("get by id", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id, err := store.Save(ctx, record(42, base))
		require.NoError(t, err)

		rec, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, 42.0, rec.Result)
		assert.True(t, rec.Timestamp.Equal(base))

		missing, err := store.GetByID(ctx, id+999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("update", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id, err := store.Save(ctx, record(10, base))
		require.NoError(t, err)

		updated := record(-20, base.Add(time.Minute))
		updated.ID = id
		require.NoError(t, store.Update(ctx, updated))

		rec, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, -20.0, rec.Result)
	})

	t.Run("update absent id fails with not found", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		rec := record(1, base)
		rec.ID = 12345
		err := store.Update(ctx, rec)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id, err := store.Save(ctx, record(10, base))
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, id))

		rec, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, rec)

		assert.ErrorIs(t, store.Delete(ctx, id), ports.ErrNotFound)
	})

	t.Run("clear all", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Save(ctx, record(1, base))
		require.NoError(t, err)
		require.NoError(t, store.ClearAll(ctx))
		require.NoError(t, store.ClearAll(ctx)) // idempotent

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("export import round trip", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Save(ctx, record(100, base))
		require.NoError(t, err)
		_, err = store.Save(ctx, record(-40, base.Add(time.Hour)))
		require.NoError(t, err)

		exported, err := store.Export(ctx)
		require.NoError(t, err)
		require.Len(t, exported, 2)

		require.NoError(t, store.ClearAll(ctx))
		require.NoError(t, store.Import(ctx, exported))

		recs, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, 100.0, recs[0].Result)
		assert.Equal(t, -40.0, recs[1].Result)
		assert.True(t, recs[0].Timestamp.Equal(base))
	})

	t.Run("settings round trip", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		has, err := store.HasSettings(ctx)
		require.NoError(t, err)
		assert.False(t, has)

		loaded, err := store.LoadSettings(ctx)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		balance, threshold := 9850.0, -500.0
		settings := domain.RiskSettings{
			AccountBalance:           10000,
			MaxDrawdown:              500,
			LossPerTradePercentage:   0.02,
			IsDynamicMaxDrawdown:     true,
			CurrentBalance:           &balance,
			CurrentDrawdownThreshold: &threshold,
		}
		require.NoError(t, store.SaveSettings(ctx, settings))

		has, err = store.HasSettings(ctx)
		require.NoError(t, err)
		assert.True(t, has)

		loaded, err = store.LoadSettings(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, settings, *loaded)

		require.NoError(t, store.ClearSettings(ctx))
		has, err = store.HasSettings(ctx)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("settings overwrite", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		first := domain.RiskSettings{AccountBalance: 10000, MaxDrawdown: 500, LossPerTradePercentage: 0.02}
		require.NoError(t, store.SaveSettings(ctx, first))

		second := first
		second.MaxDrawdown = 800
		require.NoError(t, store.SaveSettings(ctx, second))

		loaded, err := store.LoadSettings(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, 800.0, loaded.MaxDrawdown)
	})
}
