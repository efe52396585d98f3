package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/schema"
)

// cachedAggregateSNR wraps AggregateSNR with report caching keyed by the
// model fingerprint and the selected types. Scoring a large model means one
// full SVD per matrix, so an unchanged model should never be decomposed twice.
func cachedAggregateSNR(ctx context.Context, cfg *contract.Config, catalog contract.TensorCatalog, selectedTypes []string, mgr contract.CacheManager) (*schema.Report, *schema.ScanSummary, error) {
	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetReportStore()
	}
	if store == nil {
		return AggregateSNR(ctx, cfg, catalog, selectedTypes, mgr)
	}

	key := reportCacheKey(catalog, selectedTypes)

	if report := checkCacheHit(store, key); report != nil {
		summary := &schema.ScanSummary{
			ModelPath: cfg.ModelPath,
			Matrices:  report.Len(),
		}
		fmt.Println("Using cached SNR report (pass --cache-backend none to rescore)")
		return report, summary, nil
	}

	report, summary, err := AggregateSNR(ctx, cfg, catalog, selectedTypes, mgr)
	if err != nil {
		return report, summary, err
	}

	if data, err := json.Marshal(report); err == nil {
		_ = store.Set(key, data, contract.CacheVersion, time.Now().Unix())
	}
	return report, summary, nil
}

// checkCacheHit attempts to retrieve and validate a cached report.
func checkCacheHit(store contract.CacheStore, key string) *schema.Report {
	data, version, _, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}
	if version != contract.CacheVersion {
		return nil // Scoring pipeline changed since this entry was written
	}
	report := schema.NewReport()
	if err := json.Unmarshal(data, report); err != nil {
		return nil
	}
	return report
}

// reportCacheKey builds a cache key from the model fingerprint and the
// selected types. The type list participates because it changes which
// matrices get scored.
func reportCacheKey(catalog contract.TensorCatalog, selectedTypes []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|v%d|%s", catalog.Fingerprint(), contract.CacheVersion, strings.Join(selectedTypes, ","))
	return fmt.Sprintf("snr:%x", h.Sum(nil))
}
