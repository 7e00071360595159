package docstore

import (
	"context"
	"testing"
	"time"

	"riskTracker/internal/adapters/storagetest"
	"riskTracker/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Storage {
	t.Helper()
	store, err := New(Config{
		Dir:        t.TempDir(),
		AppVersion: "test",
		Logger:     &storagetest.MockLogger{},
	})
	require.NoError(t, err)
	return store
}

func TestStorageConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Backend {
		return newTestStore(t)
	})
}

func TestBoxSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store, err := New(Config{Dir: dir, Logger: &storagetest.MockLogger{}})
	require.NoError(t, err)
	id, err := store.Save(ctx, ports.TradeRecord{Result: 75, Timestamp: ts, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(Config{Dir: dir, Logger: &storagetest.MockLogger{}})
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 75.0, rec.Result)
	assert.True(t, rec.Timestamp.Equal(ts))

	// Sequence continues after reopen, no id collision.
	id2, err := reopened.Save(ctx, ports.TradeRecord{Result: 1, Timestamp: ts.Add(time.Hour)})
	require.NoError(t, err)
	assert.Greater(t, id2, id)
}
