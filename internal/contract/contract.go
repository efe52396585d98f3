// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/lambentLogic/spectrum/schema"
)

// TensorCatalog enumerates the named weight matrices of a loaded model.
// This allows the core analysis logic to be tested without a real model on
// disk; the production implementation reads safetensors files.
type TensorCatalog interface {
	// Names returns all tensor names in registration order. The order is
	// deterministic across runs of the same model; downstream tie-breaking
	// depends on it.
	Names() []string

	// Load materializes the named tensor as a 2-D matrix. Tensors with
	// fewer than 2 dimensions are reshaped to a single row.
	Load(name string) (*schema.WeightMatrix, error)

	// Fingerprint identifies the model contents for cache keying.
	Fingerprint() string
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetReportStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for cached report storage.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking scan runs and per-matrix scores.
type RunStore interface {
	// BeginRun creates a new scan run and returns its unique ID.
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the scan run with completion data.
	EndRun(runID int64, endTime time.Time, totalMatrices int) error

	// RecordMatrixScore stores the scored record for one matrix.
	RecordMatrixScore(runID int64, rec schema.SNRRecord) error

	// ListRuns returns all recorded runs, most recent first.
	ListRuns() ([]schema.RunExport, error)

	// ListMatrixScores returns all per-matrix score rows.
	ListMatrixScores() ([]schema.MatrixScoreExport, error)

	// GetStatus returns status information about the run store.
	GetStatus() (schema.RunStatus, error)

	Close() error
}
