//go:build basic

// Package integration contains integration tests for spectrum.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Or use: make test-basic
package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lambentLogic/spectrum/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScanVerification runs spectrum scan against a fixture checkpoint and
// verifies the persisted report against hand-computed SNR scores.
func TestScanVerification(t *testing.T) {
	modelDir := writeFixtureModel(t)
	outDir := t.TempDir()
	outputFile := filepath.Join(t.TempDir(), "scan.json")

	err := runSpectrumCommand(t, "scan", modelDir,
		"--out-dir", outDir,
		"--output", "json",
		"--output-file", outputFile,
		"--cache-backend", "none")
	require.NoError(t, err)

	// The fixture directory base becomes the report slug. The persisted
	// report is an object keyed by matrix name.
	reportPath := filepath.Join(outDir, "snr_results_"+filepath.Base(modelDir)+".json")
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report schema.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Equal(t, 2, report.Len())

	// diag(10, 0.1, 0.1, 0.1): signal 10, noise 0.3, normalized by 10.
	qProj, ok := report.Get("model.layers.0.self_attn.q_proj.weight")
	require.True(t, ok, "q_proj should be in the report")
	assert.Equal(t, "self_attn.q_proj.weight", qProj.Type)
	assert.InDelta(t, 10.0/0.3/10.0, qProj.SNR, 1e-4)

	// diag(3, 1): signal 3, noise 1, normalized by 3.
	head, ok := report.Get("lm_head.weight")
	require.True(t, ok, "lm_head should be in the report")
	assert.InDelta(t, 1.0, head.SNR, 1e-4)

	var ranked []struct {
		Rank int    `json:"rank"`
		Name string `json:"name"`
	}
	rankedData, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(rankedData, &ranked))
	require.Len(t, ranked, 2)
	assert.Equal(t, "model.layers.0.self_attn.q_proj.weight", ranked[0].Name,
		"the higher score should rank first")
}

// TestScanSelectionAgainstTypes cross-checks the selection document against
// the types command output.
func TestScanSelectionAgainstTypes(t *testing.T) {
	modelDir := writeFixtureModel(t)
	outDir := t.TempDir()

	err := runSpectrumCommand(t, "scan", modelDir,
		"--out-dir", outDir,
		"--percent", "100",
		"--output", "json",
		"--output-file", filepath.Join(t.TempDir(), "scan.json"),
		"--cache-backend", "none")
	require.NoError(t, err)

	selectionPath := filepath.Join(outDir,
		"snr_results_"+filepath.Base(modelDir)+"_unfrozenparameters_top100percent.yaml")
	selectionData, err := os.ReadFile(selectionPath)
	require.NoError(t, err)
	selection := string(selectionData)

	typesFile := filepath.Join(t.TempDir(), "types.json")
	cmd := exec.Command(getSpectrumBinary(), "types", modelDir,
		"--output", "json", "--output-file", typesFile, "--cache-backend", "none")
	cmd.Dir = "../"
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "types failed: %s", string(output))

	typesData, err := os.ReadFile(typesFile)
	require.NoError(t, err)
	var types []string
	require.NoError(t, json.Unmarshal(typesData, &types))

	// Every reported type must have a labeled block in the full selection.
	for _, typ := range types {
		assert.True(t, strings.Contains(selection, "# "+typ),
			"selection should label a block for type %s", typ)
	}
}
