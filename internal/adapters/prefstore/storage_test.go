package prefstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"riskTracker/internal/adapters/storagetest"
	"riskTracker/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Backend {
		t.Helper()
		store, err := New(Config{
			Path:       filepath.Join(t.TempDir(), "preferences.json"),
			AppVersion: "test",
			Logger:     &storagetest.MockLogger{},
		})
		require.NoError(t, err)
		return store
	})
}

func TestPreferenceFileIsFlat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "preferences.json")
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store, err := New(Config{Path: path, AppVersion: "test", Logger: &storagetest.MockLogger{}})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save(ctx, ports.TradeRecord{Result: 5, Timestamp: ts, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)

	// Every value in the file must be a plain string, like a mobile
	// preference store.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var prefs map[string]string
	require.NoError(t, json.Unmarshal(data, &prefs))
	assert.Contains(t, prefs, "trades")
	assert.Contains(t, prefs, "trades_next_id")
}

func TestTradesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "preferences.json")
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store, err := New(Config{Path: path, Logger: &storagetest.MockLogger{}})
	require.NoError(t, err)
	id, err := store.Save(ctx, ports.TradeRecord{Result: -12.5, Timestamp: ts, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(Config{Path: path, Logger: &storagetest.MockLogger{}})
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, -12.5, rec.Result)
}
