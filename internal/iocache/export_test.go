package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lambentLogic/spectrum/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunExport(t *testing.T) {
	t.Run("requires an output file", func(t *testing.T) {
		err := ExecuteRunExport("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--output-file", "error should name the missing flag")
	})

	t.Run("empty history is rejected", func(t *testing.T) {
		dir := t.TempDir()
		initOnce = sync.Once{}  // Reset for test
		closeOnce = sync.Once{} // Reset for test
		require.NoError(t, InitStores("", "", schema.SQLiteBackend, filepath.Join(dir, "runs.db")))
		defer CloseStores()

		err := ExecuteRunExport(filepath.Join(dir, "export"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no run data", "an empty store should not export")
	})

	t.Run("exports both parquet files", func(t *testing.T) {
		dir := t.TempDir()
		initOnce = sync.Once{}  // Reset for test
		closeOnce = sync.Once{} // Reset for test
		require.NoError(t, InitStores("", "", schema.SQLiteBackend, filepath.Join(dir, "runs.db")))
		defer CloseStores()

		store := Manager.GetRunStore()
		runID, err := store.BeginRun(time.Now(), map[string]any{"percent": 30})
		require.NoError(t, err)
		require.NoError(t, store.RecordMatrixScore(runID, schema.SNRRecord{
			Name: "model.layers.0.w.weight", Type: "w.weight", SNR: 1.5,
		}))
		require.NoError(t, store.EndRun(runID, time.Now(), 1))

		outputFile := filepath.Join(dir, "export")
		require.NoError(t, ExecuteRunExport(outputFile), "export should succeed")

		for _, suffix := range []string{".scan_runs.parquet", ".matrix_scores.parquet"} {
			info, err := os.Stat(outputFile + suffix)
			require.NoError(t, err, "file %s should exist", suffix)
			assert.Positive(t, info.Size(), "file %s should not be empty", suffix)
		}
	})
}

func TestMigrateRuns(t *testing.T) {
	t.Run("none backend is rejected", func(t *testing.T) {
		err := MigrateRuns(schema.NoneBackend, "", -1)
		assert.Error(t, err, "migrations need a real database")
	})

	t.Run("sqlite up and down", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "runs.db")

		require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, -1), "migrating up should succeed")

		// The migrated schema must accept the run store's writes.
		store, err := NewRunStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		runID, err := store.BeginRun(time.Now(), nil)
		require.NoError(t, err, "migrated tables should accept inserts")
		assert.Positive(t, runID)
		require.NoError(t, store.Close())

		require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, -1), "re-migrating should be a no-op")
		require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, 0), "rolling back should succeed")
	})

	t.Run("sqlite specific version", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "runs.db")
		require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, 1), "migrating to version 1 should succeed")
		require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, 2), "migrating to version 2 should succeed")
		require.NoError(t, MigrateRuns(schema.SQLiteBackend, dbPath, 1), "stepping back to version 1 should succeed")
	})
}
