package schema

import "time"

// RunExport represents one scan run row as stored in the run store.
type RunExport struct {
	RunID           int64
	StartTime       time.Time
	EndTime         *time.Time
	RunDurationMs   *int64
	TotalMatrices   int
	ConfigParamsRaw *string // JSON-encoded config parameters
}

// MatrixScoreExport represents one per-matrix score row as stored in the run store.
type MatrixScoreExport struct {
	RunID      int64
	MatrixName string
	WeightType string
	SNR        float64
	ScoredAt   time.Time
}
