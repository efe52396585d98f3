// Package core has core logic for spectral analysis, scoring and selection.
package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/internal/outwriter"
	"github.com/lambentLogic/spectrum/internal/safetensors"
	"github.com/lambentLogic/spectrum/schema"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteScan runs the full analysis pipeline: catalog the model, score every
// selected weight matrix, persist the SNR report and its derived documents,
// and display the ranked scores.
// It serves as the main entry point for the 'scan' command.
func ExecuteScan(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()

	catalog, err := safetensors.OpenCatalog(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to open model catalog: %w", err)
	}

	report, summary, err := cachedAggregateSNR(ctx, cfg, catalog, cfg.Types, mgr)
	if err != nil {
		return err
	}
	if report.Len() == 0 {
		return fmt.Errorf("no matrices produced a score (skipped %d degenerate)", summary.Skipped)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", cfg.OutDir, err)
	}

	reportPath := contract.ReportFileName(cfg.OutDir, cfg.ModelPath)
	if err := outwriter.WriteSNRReport(report, reportPath); err != nil {
		return err
	}
	if err := outwriter.WriteSortedReport(report, contract.SortedReportFileName(reportPath)); err != nil {
		return err
	}

	selection := Select(report, PolicyFromSigned(cfg.Percent))
	selectionPath := contract.SelectionFileName(reportPath, selection.Direction, selection.Percent)
	if err := outwriter.WriteSelection(selection, selectionPath); err != nil {
		return err
	}

	return outwriter.WriteScanResults(report, cfg, time.Since(start))
}

// ExecuteSelect re-runs selection against a persisted SNR report without
// touching the model. Malformed reports fail immediately; silently defaulting
// missing fields would corrupt the ranking.
// It serves as the main entry point for the 'select' command.
func ExecuteSelect(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	report, err := outwriter.LoadReport(cfg.ReportPath)
	if err != nil {
		return err
	}

	selection := Select(report, PolicyFromSigned(cfg.Percent))
	selectionPath := contract.SelectionFileName(cfg.ReportPath, selection.Direction, selection.Percent)
	if err := outwriter.WriteSelection(selection, selectionPath); err != nil {
		return err
	}

	fmt.Printf("Selected %d of %d scored matrices (%s %d%%) plus %d fixed entries\n",
		selection.TotalSelected(), report.Len(), selection.Direction, selection.Percent, len(selection.Fixed))
	return nil
}

// ExecuteTypes lists the structural weight types discoverable in a model,
// grouped by leading category.
// It serves as the main entry point for the 'types' command.
func ExecuteTypes(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	catalog, err := safetensors.OpenCatalog(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to open model catalog: %w", err)
	}

	types := SortWeightTypes(ListWeightTypes(catalog))
	if len(types) == 0 {
		return fmt.Errorf("no weight-bearing tensors found in %s", cfg.ModelPath)
	}
	return outwriter.WriteTypeList(types, cfg)
}

// GetScanResults runs the scan pipeline and returns its artifacts without
// writing any files. This is exposed for the MCP server.
func GetScanResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.Report, *schema.SelectionResult, error) {
	catalog, err := safetensors.OpenCatalog(cfg.ModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open model catalog: %w", err)
	}

	report, _, err := cachedAggregateSNR(ctx, cfg, catalog, cfg.Types, mgr)
	if err != nil {
		return nil, nil, err
	}

	selection := Select(report, PolicyFromSigned(cfg.Percent))
	return report, selection, nil
}

// GetWeightTypes returns the sorted structural types of a model.
// This is exposed for the MCP server.
func GetWeightTypes(cfg *contract.Config) ([]string, error) {
	catalog, err := safetensors.OpenCatalog(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open model catalog: %w", err)
	}
	return SortWeightTypes(ListWeightTypes(catalog)), nil
}
