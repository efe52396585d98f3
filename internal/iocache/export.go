package iocache

import (
	"errors"
	"fmt"

	"github.com/lambentLogic/spectrum/internal/parquet"
)

// ExecuteRunExport performs the actual export of run history to Parquet files.
func ExecuteRunExport(outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	// Get the run store
	store := Manager.GetRunStore()

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}

	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total scan runs: %d\n", status.TotalRuns)
	fmt.Printf("Total matrix scores: %d\n", status.TotalMatrixScores)

	// Retrieve all scan runs
	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve scan runs: %w", err)
	}

	// Retrieve all per-matrix scores
	scores, err := store.ListMatrixScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve matrix scores: %w", err)
	}

	// Convert to Parquet format
	parquetRuns := parquet.ConvertRunExports(runs)
	parquetScores := parquet.ConvertMatrixScoreExports(scores)

	// Write scan runs to Parquet
	runsFile := outputFile + ".scan_runs.parquet"
	if err := parquet.WriteScanRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write scan runs: %w", err)
	}
	fmt.Printf("Exported %d scan runs to: %s\n", len(parquetRuns), runsFile)

	// Write matrix scores to Parquet
	scoresFile := outputFile + ".matrix_scores.parquet"
	if err := parquet.WriteMatrixScoresHistoryParquet(parquetScores, scoresFile); err != nil {
		return fmt.Errorf("failed to write matrix scores: %w", err)
	}
	fmt.Printf("Exported %d matrix score records to: %s\n", len(parquetScores), scoresFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Spark")
	fmt.Println("  - Apache Arrow")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
