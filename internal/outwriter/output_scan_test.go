package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanReport() *schema.Report {
	report := schema.NewReport()
	report.Add(schema.SNRRecord{Name: "model.layers.0.w.weight", Type: "w.weight", SNR: 0.5})
	report.Add(schema.SNRRecord{Name: "model.layers.1.w.weight", Type: "w.weight", SNR: 2.5})
	report.Add(schema.SNRRecord{Name: "lm_head.weight", Type: "lm_head.weight", SNR: math.Inf(1)})
	return report
}

func scanConfig(out schema.OutputMode, outputFile string) *contract.Config {
	return &contract.Config{
		Output:      out,
		OutputFile:  outputFile,
		Precision:   2,
		ResultLimit: 25,
		Width:       120,
	}
}

func TestRankRecords(t *testing.T) {
	t.Run("descending by score", func(t *testing.T) {
		ranked := rankRecords(scanReport(), 25)
		require.Len(t, ranked, 3)
		assert.Equal(t, "lm_head.weight", ranked[0].Name, "infinite score should rank first")
		assert.Equal(t, "model.layers.1.w.weight", ranked[1].Name)
		assert.Equal(t, "model.layers.0.w.weight", ranked[2].Name)
	})

	t.Run("limit truncates", func(t *testing.T) {
		ranked := rankRecords(scanReport(), 2)
		assert.Len(t, ranked, 2, "limit should cap the ranking")
	})

	t.Run("ties keep report order", func(t *testing.T) {
		report := schema.NewReport()
		report.Add(schema.SNRRecord{Name: "first", Type: "t", SNR: 1})
		report.Add(schema.SNRRecord{Name: "second", Type: "t", SNR: 1})
		ranked := rankRecords(report, 25)
		assert.Equal(t, "first", ranked[0].Name, "equal scores should keep insertion order")
	})
}

func TestWriteScanResults(t *testing.T) {
	t.Run("json output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scan.json")
		cfg := scanConfig(schema.JSONOut, path)

		require.NoError(t, WriteScanResults(scanReport(), cfg, time.Second))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var entries []struct {
			Rank int             `json:"rank"`
			Name string          `json:"name"`
			Type string          `json:"type"`
			SNR  json.RawMessage `json:"snr"`
		}
		require.NoError(t, json.Unmarshal(data, &entries), "output should be valid JSON")
		require.Len(t, entries, 3)
		assert.Equal(t, 1, entries[0].Rank, "ranks should start at 1")
		assert.Equal(t, "lm_head.weight", entries[0].Name)
		assert.Equal(t, `"inf"`, string(entries[0].SNR), "infinite score should serialize as a marker")
		assert.Equal(t, `2.5`, string(entries[1].SNR), "finite scores should serialize as numbers")
	})

	t.Run("csv output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scan.csv")
		cfg := scanConfig(schema.CSVOut, path)

		require.NoError(t, WriteScanResults(scanReport(), cfg, time.Second))

		f, err := os.Open(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()

		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 4, "header plus three data rows")
		assert.Equal(t, []string{"rank", "name", "type", "snr"}, rows[0])
		assert.Equal(t, []string{"1", "lm_head.weight", "lm_head.weight", "inf"}, rows[1])
		assert.Equal(t, []string{"2", "model.layers.1.w.weight", "w.weight", "2.50"}, rows[2])
	})

	t.Run("table output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scan.txt")
		cfg := scanConfig(schema.TextOut, path)
		cfg.UseColors = false

		require.NoError(t, WriteScanResults(scanReport(), cfg, 1500*time.Millisecond))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		text := string(data)
		assert.Contains(t, text, "lm_head.weight", "table should list the matrices")
		assert.Contains(t, text, "Showing 3 of 3 matrices (1.50s)", "footer should report counts and duration")
	})

	t.Run("parquet requires output file", func(t *testing.T) {
		cfg := scanConfig(schema.ParquetOut, "")
		err := WriteScanResults(scanReport(), cfg, time.Second)
		require.Error(t, err, "parquet without a file target should fail")
		assert.Contains(t, err.Error(), "--output-file")
	})

	t.Run("parquet writes a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scan.parquet")
		cfg := scanConfig(schema.ParquetOut, path)

		require.NoError(t, WriteScanResults(scanReport(), cfg, time.Second))

		info, err := os.Stat(path)
		require.NoError(t, err, "parquet file should exist")
		assert.Positive(t, info.Size(), "parquet file should not be empty")
	})
}

func TestWriteTypeList(t *testing.T) {
	types := []string{"lm_head.weight", "mlp.up_proj.weight", "self_attn.q_proj.weight"}

	t.Run("text output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "types.txt")
		cfg := scanConfig(schema.TextOut, path)

		require.NoError(t, WriteTypeList(types, cfg))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "mlp.up_proj.weight\n", "each type should get its own line")
		assert.Contains(t, string(data), "3 weight types", "footer should count the types")
	})

	t.Run("json output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "types.json")
		cfg := scanConfig(schema.JSONOut, path)

		require.NoError(t, WriteTypeList(types, cfg))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var got []string
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, types, got, "JSON output should round-trip the list")
	})

	t.Run("csv output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "types.csv")
		cfg := scanConfig(schema.CSVOut, path)

		require.NoError(t, WriteTypeList(types, cfg))

		f, err := os.Open(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []string{"type"}, rows[0], "header should name the column")
		assert.Len(t, rows, 4, "header plus one row per type")
	})

	t.Run("parquet unsupported", func(t *testing.T) {
		cfg := scanConfig(schema.ParquetOut, "types.parquet")
		assert.Error(t, WriteTypeList(types, cfg), "parquet type listings should be rejected")
	})
}
