package sqlite

import (
	"path/filepath"
	"testing"

	"riskTracker/internal/adapters/storagetest"

	"github.com/stretchr/testify/require"
)

func TestStorageConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagetest.Backend {
		t.Helper()
		store, err := New(Config{
			DBPath:     filepath.Join(t.TempDir(), "test.db"),
			AppVersion: "test",
			Logger:     &storagetest.MockLogger{},
		})
		require.NoError(t, err)
		return store
	})
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(Config{DBPath: "x.db"})
	require.Error(t, err)
}
