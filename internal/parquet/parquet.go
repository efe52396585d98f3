// Package parquet provides data structures and functions for exporting scan
// run history and SNR scores to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/lambentLogic/spectrum/schema"
	"github.com/parquet-go/parquet-go"
)

// ScanRun represents a single scan run with metadata.
// This struct maps to the spectrum_scan_runs database table.
type ScanRun struct {
	// RunID is the unique identifier for this scan run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the scan began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the scan completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the scan run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	// TotalMatrices is the number of weight matrices scored in this run
	TotalMatrices int32 `parquet:"total_matrices,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// MatrixScore represents one scored weight matrix in a scan run.
// This struct maps to the spectrum_matrix_scores database table.
type MatrixScore struct {
	// RunID references the parent scan run
	RunID int64 `parquet:"run_id,snappy"`

	// MatrixName is the full tensor name in the checkpoint
	MatrixName string `parquet:"matrix_name,snappy"`

	// WeightType is the structural type the matrix groups under
	WeightType string `parquet:"weight_type,snappy"`

	// SNR is the normalized signal-to-noise score
	SNR float64 `parquet:"snr,snappy"`

	// ScoredAt is when this matrix was scored
	ScoredAt time.Time `parquet:"scored_at,snappy"`
}

// MatrixScoreRow represents one ranked row of a scan result export. Unlike
// MatrixScore it carries no run identity; it mirrors the table output.
type MatrixScoreRow struct {
	Rank       int32   `parquet:"rank,snappy"`
	MatrixName string  `parquet:"matrix_name,snappy"`
	WeightType string  `parquet:"weight_type,snappy"`
	SNR        float64 `parquet:"snr,snappy"`
}

// WriteScanRunsParquet writes a slice of ScanRun structs to a Parquet file.
func WriteScanRunsParquet(data []ScanRun, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is derived from the ScanRun struct tags
	writer := parquet.NewGenericWriter[ScanRun](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// WriteMatrixScoresHistoryParquet writes a slice of MatrixScore structs to a
// Parquet file.
func WriteMatrixScoresHistoryParquet(data []MatrixScore, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[MatrixScore](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// WriteMatrixScoresParquet writes ranked scan rows to a Parquet file.
func WriteMatrixScoresParquet(data []MatrixScoreRow, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[MatrixScoreRow](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// MockFetchScanRuns generates sample ScanRun data for demonstration.
func MockFetchScanRuns() []ScanRun {
	now := time.Now()
	startTime1 := now.Add(-2 * time.Hour)
	endTime1 := now.Add(-1*time.Hour - 50*time.Minute)
	durationMs1 := endTime1.Sub(startTime1).Milliseconds()
	configParams1 := `{"percent":30,"workers":8,"types":""}`

	startTime2 := now.Add(-24 * time.Hour)
	endTime2 := now.Add(-23*time.Hour - 55*time.Minute)
	durationMs2 := endTime2.Sub(startTime2).Milliseconds()
	configParams2 := `{"percent":-10,"workers":4,"types":"mlp.down_proj.weight"}`

	startTime3 := now.Add(-10 * time.Minute)
	// Note: endTime3, durationMs3, configParams3 are nil to demonstrate nullable fields

	return []ScanRun{
		{
			RunID:         1,
			StartTime:     startTime1,
			EndTime:       &endTime1,
			RunDurationMs: &durationMs1,
			TotalMatrices: 224,
			ConfigParams:  &configParams1,
		},
		{
			RunID:         2,
			StartTime:     startTime2,
			EndTime:       &endTime2,
			RunDurationMs: &durationMs2,
			TotalMatrices: 32,
			ConfigParams:  &configParams2,
		},
		{
			RunID:         3,
			StartTime:     startTime3,
			EndTime:       nil, // Still running - nullable field
			RunDurationMs: nil, // Not yet calculated - nullable field
			TotalMatrices: 0,
			ConfigParams:  nil, // No config stored - nullable field
		},
	}
}

// MockFetchMatrixScores generates sample MatrixScore data for demonstration.
func MockFetchMatrixScores() []MatrixScore {
	now := time.Now()

	return []MatrixScore{
		{
			RunID:      1,
			MatrixName: "model.layers.0.self_attn.q_proj.weight",
			WeightType: "self_attn.q_proj.weight",
			SNR:        4.2817,
			ScoredAt:   now.Add(-1 * time.Hour),
		},
		{
			RunID:      1,
			MatrixName: "model.layers.0.mlp.down_proj.weight",
			WeightType: "mlp.down_proj.weight",
			SNR:        2.1034,
			ScoredAt:   now.Add(-1 * time.Hour),
		},
		{
			RunID:      2,
			MatrixName: "model.layers.12.mlp.down_proj.weight",
			WeightType: "mlp.down_proj.weight",
			SNR:        1.4478,
			ScoredAt:   now.Add(-23 * time.Hour),
		},
	}
}

// ConvertRunExports converts schema.RunExport rows to ScanRun for Parquet export.
func ConvertRunExports(records []schema.RunExport) []ScanRun {
	result := make([]ScanRun, len(records))
	for i, record := range records {
		result[i] = ScanRun{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalMatrices: int32(record.TotalMatrices),
			ConfigParams:  record.ConfigParamsRaw,
		}
	}
	return result
}

// ConvertMatrixScoreExports converts schema.MatrixScoreExport rows to
// MatrixScore for Parquet export.
func ConvertMatrixScoreExports(records []schema.MatrixScoreExport) []MatrixScore {
	result := make([]MatrixScore, len(records))
	for i, record := range records {
		result[i] = MatrixScore{
			RunID:      record.RunID,
			MatrixName: record.MatrixName,
			WeightType: record.WeightType,
			SNR:        record.SNR,
			ScoredAt:   record.ScoredAt,
		}
	}
	return result
}
