package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/schema"
)

// scoreJob is one matrix to score, already bound to its structural type.
type scoreJob struct {
	name       string
	weightType string
}

// scoreOutcome is the result of scoring one matrix.
type scoreOutcome struct {
	name    string
	rec     schema.SNRRecord
	skipped bool
	err     error
}

// AggregateSNR scores every weight matrix of the selected structural types
// and collects the records into a single report.
//
// Scoring is stateless per matrix, so it runs on a worker pool; a single
// collector loop drains the result channel, which keeps report insertion
// single-threaded. The report is always assembled in catalog order, so worker
// scheduling and batch boundaries never change its content. On cancellation
// the partially filled report is returned alongside the context error; it is
// a valid, inspectable artifact.
func AggregateSNR(ctx context.Context, cfg *contract.Config, catalog contract.TensorCatalog, selectedTypes []string, mgr contract.CacheManager) (*schema.Report, *schema.ScanSummary, error) {
	start := time.Now()

	if len(selectedTypes) == 0 {
		selectedTypes = ListWeightTypes(catalog)
	}

	// Build the ordered job list: types in selection order, matrices in
	// catalog order within each type. Types with no weight matrices simply
	// contribute no jobs.
	var jobs []scoreJob
	for _, t := range selectedTypes {
		for _, name := range MatrixNamesOfType(catalog, t) {
			jobs = append(jobs, scoreJob{name: name, weightType: t})
		}
	}
	if len(jobs) == 0 {
		return nil, nil, fmt.Errorf("no weight matrices match the selected types %v", selectedTypes)
	}

	runID := beginRunTracking(cfg, mgr, len(selectedTypes))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan scoreJob, len(jobs))
	outCh := make(chan scoreOutcome, len(jobs))
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Go(func() {
			for job := range jobCh {
				select {
				case <-ctx.Done():
					outCh <- scoreOutcome{name: job.name, err: ctx.Err()}
					continue
				default:
				}
				outCh <- scoreOne(catalog, job)
			}
		})
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(outCh)
	}()

	// Single collector: no two workers ever race on a report key.
	results := make(map[string]schema.SNRRecord, len(jobs))
	skipped := 0
	done := 0
	var firstErr error
	for out := range outCh {
		done++
		switch {
		case out.err != nil && errors.Is(out.err, errDegenerateMatrix):
			skipped++
			contract.LogWarn(fmt.Sprintf("Skipping %s", out.name), out.err)
		case out.err != nil:
			if firstErr == nil && !errors.Is(out.err, context.Canceled) {
				firstErr = out.err
				cancel()
			}
		case out.skipped:
			skipped++
		default:
			results[out.name] = out.rec
			recordMatrixScore(mgr, runID, out.rec)
		}
		if done%cfg.BatchSize == 0 || done == len(jobs) {
			logProgress(done, len(jobs))
		}
	}

	// Assemble in job (catalog) order regardless of completion order.
	report := schema.NewReport()
	for _, job := range jobs {
		if rec, ok := results[job.name]; ok {
			report.Add(rec)
		}
	}

	summary := &schema.ScanSummary{
		ModelPath: cfg.ModelPath,
		Matrices:  report.Len(),
		Skipped:   skipped,
		Duration:  time.Since(start),
	}
	endRunTracking(mgr, runID, report.Len())

	if firstErr != nil {
		return report, summary, firstErr
	}
	if err := ctx.Err(); err != nil {
		return report, summary, err
	}
	return report, summary, nil
}

// scoreOne loads and scores a single matrix.
func scoreOne(catalog contract.TensorCatalog, job scoreJob) scoreOutcome {
	m, err := catalog.Load(job.name)
	if err != nil {
		return scoreOutcome{name: job.name, err: fmt.Errorf("loading %s: %w", job.name, err)}
	}
	rec, err := scoreMatrix(m, job.weightType)
	if err != nil {
		return scoreOutcome{name: job.name, err: err}
	}
	return scoreOutcome{name: job.name, rec: rec}
}

// logProgress prints a scoring progress line to stderr.
func logProgress(done, total int) {
	fmt.Fprintf(os.Stderr, "Scored %d/%d matrices\r", done, total)
	if done == total {
		fmt.Fprintln(os.Stderr)
	}
}

// beginRunTracking opens a run record if a run store is configured.
// Tracking failures degrade to warnings; they never abort a scan.
func beginRunTracking(cfg *contract.Config, mgr contract.CacheManager, numTypes int) int64 {
	if mgr == nil {
		return 0
	}
	store := mgr.GetRunStore()
	if store == nil {
		return 0
	}
	params := map[string]any{
		"model_path": cfg.ModelPath,
		"percent":    cfg.Percent,
		"workers":    cfg.Workers,
		"batch_size": cfg.BatchSize,
		"num_types":  numTypes,
	}
	runID, err := store.BeginRun(time.Now(), params)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return 0
	}
	return runID
}

// recordMatrixScore stores one scored record if run tracking is active.
func recordMatrixScore(mgr contract.CacheManager, runID int64, rec schema.SNRRecord) {
	if mgr == nil || runID <= 0 {
		return
	}
	store := mgr.GetRunStore()
	if store == nil {
		return
	}
	if err := store.RecordMatrixScore(runID, rec); err != nil {
		contract.LogWarn(fmt.Sprintf("Run tracking failed for %s", rec.Name), err)
	}
}

// endRunTracking finalizes the run record if run tracking is active.
func endRunTracking(mgr contract.CacheManager, runID int64, totalMatrices int) {
	if mgr == nil || runID <= 0 {
		return
	}
	store := mgr.GetRunStore()
	if store == nil {
		return
	}
	if err := store.EndRun(runID, time.Now(), totalMatrices); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}
