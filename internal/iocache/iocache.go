// Package iocache provides durable storage for scan artifacts: cached SNR
// reports keyed by model fingerprint, and a history of scan runs with their
// per-matrix scores.
package iocache

import (
	"sync"

	"github.com/lambentLogic/spectrum/internal/contract"
)

// CacheStoreManager manages the report cache and run tracking stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	report       contract.CacheStore
	runs         contract.RunStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetReportStore returns the report CacheStore.
func (mgr *CacheStoreManager) GetReportStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.report
}

// GetRunStore returns the scan run RunStore.
func (mgr *CacheStoreManager) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
