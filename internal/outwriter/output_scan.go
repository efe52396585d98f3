package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/internal/parquet"
	"github.com/lambentLogic/spectrum/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteScanResults outputs the ranked scan results, dispatching based on the
// output format configured. Records rank by descending score with ties kept
// in report order.
func WriteScanResults(report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	ranked := rankRecords(report, cfg.ResultLimit)
	fmtScore := createScoreFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeScanJSON(ranked, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeScanCSV(ranked, cfg, fmtScore); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return fmt.Errorf("parquet output requires --output-file")
		}
		rows := make([]parquet.MatrixScoreRow, 0, len(ranked))
		for i, rec := range ranked {
			rows = append(rows, parquet.MatrixScoreRow{
				Rank:       int32(i + 1),
				MatrixName: rec.Name,
				WeightType: rec.Type,
				SNR:        rec.SNR,
			})
		}
		if err := parquet.WriteMatrixScoresParquet(rows, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScanTable(ranked, report.Len(), cfg, fmtScore, duration, w)
		}, "Wrote table")
	}
	return nil
}

// rankRecords sorts report records by descending score and truncates to limit.
func rankRecords(report *schema.Report, limit int) []schema.SNRRecord {
	records := report.Records()
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SNR > records[j].SNR
	})
	if len(records) > limit {
		return records[:limit]
	}
	return records
}

// writeScanTable generates and writes the human-readable table.
func writeScanTable(ranked []schema.SNRRecord, total int, cfg *contract.Config, fmtScore func(float64) string, duration time.Duration, w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Name", "Type", "SNR"})
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	nameWidth := GetMaxTableNameWidth(cfg)
	infLabel := color.New(color.FgRed).SprintFunc()

	for i, rec := range ranked {
		score := fmtScore(rec.SNR)
		if cfg.UseColors && (math.IsInf(rec.SNR, 0) || math.IsNaN(rec.SNR)) {
			score = infLabel(score)
		}
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			truncateName(rec.Name, nameWidth),
			rec.Type,
			score,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Showing %d of %d matrices (%.2fs)\n", len(ranked), total, duration.Seconds())
	return err
}

// writeScanJSON handles opening the file and calling the JSON writer.
func writeScanJSON(ranked []schema.SNRRecord, cfg *contract.Config) error {
	type scanEntry struct {
		Rank int             `json:"rank"`
		Name string          `json:"name"`
		Type string          `json:"type"`
		SNR  json.RawMessage `json:"snr"`
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		entries := make([]scanEntry, 0, len(ranked))
		for i, rec := range ranked {
			// Non-finite scores serialize as quoted markers, same as the
			// report file.
			raw, err := schema.MarshalScore(rec.SNR)
			if err != nil {
				return err
			}
			entries = append(entries, scanEntry{Rank: i + 1, Name: rec.Name, Type: rec.Type, SNR: raw})
		}
		return writeJSON(w, entries)
	}, "Wrote JSON")
}

// writeScanCSV handles opening the file and calling the CSV writer.
func writeScanCSV(ranked []schema.SNRRecord, cfg *contract.Config, fmtScore func(float64) string) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		header := []string{"rank", "name", "type", "snr"}
		return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
			for i, rec := range ranked {
				row := []string{strconv.Itoa(i + 1), rec.Name, rec.Type, fmtScore(rec.SNR)}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
	}, "Wrote CSV")
}

// WriteTypeList prints the discoverable structural weight types, grouped by
// their leading category in text mode.
func WriteTypeList(types []string, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, types)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"type"}, func(cw *csv.Writer) error {
				for _, t := range types {
					if err := cw.Write([]string{t}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is not supported for type listings")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			for _, t := range types {
				if _, err := fmt.Fprintln(w, t); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(w, "\n%d weight types\n", len(types))
			return err
		}, "Wrote types")
	}
}
