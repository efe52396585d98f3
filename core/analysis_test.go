package core

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/internal/iocache"
	"github.com/lambentLogic/spectrum/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// analysisCatalog builds a stub catalog with two q_proj layers, one mlp
// layer, a degenerate zero matrix and a bias tensor that must be ignored.
func analysisCatalog() *stubCatalog {
	return &stubCatalog{
		names: []string{
			"model.layers.0.self_attn.q_proj.weight",
			"model.layers.1.self_attn.q_proj.weight",
			"model.layers.0.mlp.up_proj.weight",
			"model.layers.1.mlp.up_proj.weight",
			"model.layers.0.self_attn.q_proj.bias",
		},
		matrices: map[string]*schema.WeightMatrix{
			"model.layers.0.self_attn.q_proj.weight": diagMatrix("model.layers.0.self_attn.q_proj.weight", []float64{10, 0.1, 0.1, 0.1}),
			"model.layers.1.self_attn.q_proj.weight": diagMatrix("model.layers.1.self_attn.q_proj.weight", []float64{8, 0.2, 0.2, 0.2}),
			"model.layers.0.mlp.up_proj.weight":      diagMatrix("model.layers.0.mlp.up_proj.weight", []float64{6, 0.3, 0.3, 0.3}),
			"model.layers.1.mlp.up_proj.weight":      diagMatrix("model.layers.1.mlp.up_proj.weight", []float64{0, 0, 0, 0}),
		},
	}
}

func analysisConfig() *contract.Config {
	return &contract.Config{
		ModelPath: "/tmp/model",
		Percent:   50,
		Workers:   2,
		BatchSize: 1,
	}
}

func TestAggregateSNR(t *testing.T) {
	t.Run("scores all weight types", func(t *testing.T) {
		report, summary, err := AggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), nil, nil)
		require.NoError(t, err, "scan should succeed")

		// The degenerate mlp layer is skipped, the bias never enters.
		assert.Equal(t, 3, report.Len(), "three matrices should score")
		assert.Equal(t, 1, summary.Skipped, "the zero matrix should be skipped")
		assert.Equal(t, 3, summary.Matrices, "summary should match the report")

		rec, ok := report.Get("model.layers.0.self_attn.q_proj.weight")
		require.True(t, ok, "scored matrix should be present")
		assert.Equal(t, "self_attn.q_proj.weight", rec.Type, "record should carry its structural type")
		assert.InDelta(t, (10.0/0.3)/10.0, rec.SNR, 1e-9, "score should match the direct computation")
	})

	t.Run("report follows catalog order", func(t *testing.T) {
		report, _, err := AggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), nil, nil)
		require.NoError(t, err)

		want := []string{
			"model.layers.0.self_attn.q_proj.weight",
			"model.layers.1.self_attn.q_proj.weight",
			"model.layers.0.mlp.up_proj.weight",
		}
		assert.Equal(t, want, report.Names(), "report order should be catalog order regardless of worker scheduling")
	})

	t.Run("type filter restricts jobs", func(t *testing.T) {
		report, _, err := AggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), []string{"self_attn.q_proj.weight"}, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, report.Len(), "only the filtered type should score")
		_, ok := report.Get("model.layers.0.mlp.up_proj.weight")
		assert.False(t, ok, "excluded types should not appear")
	})

	t.Run("no matching matrices", func(t *testing.T) {
		_, _, err := AggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), []string{"does.not.exist"}, nil)
		require.Error(t, err, "an empty job list should fail")
		assert.Contains(t, err.Error(), "no weight matrices match", "error should name the problem")
	})

	t.Run("load failure aborts the scan", func(t *testing.T) {
		catalog := analysisCatalog()
		delete(catalog.matrices, "model.layers.1.self_attn.q_proj.weight")

		_, _, err := AggregateSNR(context.Background(), analysisConfig(), catalog, []string{"self_attn.q_proj.weight"}, nil)
		require.Error(t, err, "a missing tensor should fail the scan")
		assert.Contains(t, err.Error(), "model.layers.1.self_attn.q_proj.weight", "error should name the tensor")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := AggregateSNR(ctx, analysisConfig(), analysisCatalog(), nil, nil)
		assert.ErrorIs(t, err, context.Canceled, "a pre-cancelled context should surface")
	})

	t.Run("run tracking records scores", func(t *testing.T) {
		runStore := &iocache.MockRunStore{}
		runStore.On("BeginRun", mock.Anything, mock.Anything).Return(int64(7), nil)
		runStore.On("RecordMatrixScore", int64(7), mock.Anything).Return(nil)
		runStore.On("EndRun", int64(7), mock.Anything, 3).Return(nil)

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetRunStore").Return(runStore)
		mgr.On("GetReportStore").Return(nil)

		report, _, err := AggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), nil, mgr)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Len())

		runStore.AssertNumberOfCalls(t, "RecordMatrixScore", 3)
		runStore.AssertExpectations(t)
	})

	t.Run("run tracking failure degrades to warning", func(t *testing.T) {
		runStore := &iocache.MockRunStore{}
		runStore.On("BeginRun", mock.Anything, mock.Anything).Return(int64(0), fmt.Errorf("db down"))

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetRunStore").Return(runStore)
		mgr.On("GetReportStore").Return(nil)

		report, _, err := AggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), nil, mgr)
		require.NoError(t, err, "tracking failures should never abort a scan")
		assert.Equal(t, 3, report.Len(), "scan should complete normally")
	})
}

func TestCachedAggregateSNR(t *testing.T) {
	t.Run("miss scores and stores", func(t *testing.T) {
		store := &iocache.MockCacheStore{}
		store.On("Get", mock.Anything).Return([]byte(nil), 0, int64(0), fmt.Errorf("not found"))
		store.On("Set", mock.Anything, mock.Anything, contract.CacheVersion, mock.Anything).Return(nil)

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetReportStore").Return(store)
		mgr.On("GetRunStore").Return(nil)

		report, _, err := cachedAggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), nil, mgr)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Len())
		store.AssertExpectations(t)
	})

	t.Run("hit skips scoring", func(t *testing.T) {
		cached := schema.NewReport()
		cached.Add(schema.SNRRecord{Name: "x.weight", Type: "x.weight", SNR: 1.5})
		data, err := json.Marshal(cached)
		require.NoError(t, err)

		store := &iocache.MockCacheStore{}
		store.On("Get", mock.Anything).Return(data, contract.CacheVersion, int64(123), nil)

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetReportStore").Return(store)

		// An empty catalog would fail a real scan; a cache hit never scans.
		catalog := &stubCatalog{names: []string{"x.weight"}}
		report, summary, err := cachedAggregateSNR(context.Background(), analysisConfig(), catalog, nil, mgr)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Len(), "cached report should come back as-is")
		assert.Equal(t, 1, summary.Matrices, "summary should reflect the cached report")
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stale version rescans", func(t *testing.T) {
		cached := schema.NewReport()
		cached.Add(schema.SNRRecord{Name: "x.weight", Type: "x.weight", SNR: 1.5})
		data, err := json.Marshal(cached)
		require.NoError(t, err)

		store := &iocache.MockCacheStore{}
		store.On("Get", mock.Anything).Return(data, contract.CacheVersion+1, int64(123), nil)
		store.On("Set", mock.Anything, mock.Anything, contract.CacheVersion, mock.Anything).Return(nil)

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetReportStore").Return(store)
		mgr.On("GetRunStore").Return(nil)

		report, _, err := cachedAggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), nil, mgr)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Len(), "a version mismatch should force a rescan")
		store.AssertExpectations(t)
	})

	t.Run("nil manager scans directly", func(t *testing.T) {
		report, _, err := cachedAggregateSNR(context.Background(), analysisConfig(), analysisCatalog(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Len())
	})
}

func TestReportCacheKey(t *testing.T) {
	a := &stubCatalog{names: []string{"x"}}

	keyAll := reportCacheKey(a, nil)
	keyFiltered := reportCacheKey(a, []string{"self_attn.q_proj.weight"})
	assert.NotEqual(t, keyAll, keyFiltered, "type selection should change the key")
	assert.Equal(t, keyAll, reportCacheKey(a, nil), "key should be deterministic")
}
