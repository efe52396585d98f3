package schema

import "time"

// CacheStatus holds status information about the report cache store.
type CacheStatus struct {
	Backend         CacheBackend
	Connected       bool
	TotalEntries    int64
	LastEntryTime   time.Time
	OldestEntryTime time.Time
	TableSizeBytes  int64
}

// RunStatus holds status information about the scan-run tracking store.
type RunStatus struct {
	Backend           CacheBackend
	Connected         bool
	TotalRuns         int64
	LastRunID         int64
	LastRunTime       time.Time
	OldestRunTime     time.Time
	TotalMatrixScores int64
	TableSizes        map[string]int64
}
