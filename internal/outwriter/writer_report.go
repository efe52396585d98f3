package outwriter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/schema"
)

// WriteSNRReport persists the SNR report as pretty-printed JSON, one entry
// per scored matrix keyed by name. Non-finite scores are flagged on stderr
// rather than written silently.
func WriteSNRReport(report *schema.Report, path string) error {
	if n := report.NonFiniteCount(); n > 0 {
		contract.LogWarn(fmt.Sprintf("%d of %d scores are non-finite; they are flagged as \"inf\" in %s", n, report.Len(), path), nil)
	}
	return writeWithFile(path, func(w io.Writer) error {
		return writeJSON(w, report)
	}, "Results saved")
}

// LoadReport reads a persisted SNR report back for selection-only runs.
// Any structural problem is fatal; selection must never run over a report
// with guessed fields.
func LoadReport(path string) (*schema.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %q: %w", path, err)
	}
	report := schema.NewReport()
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("malformed report %q: %w", path, err)
	}
	return report, nil
}

// WriteSortedReport persists the type-grouped view of a report: structural
// type to {name: score}, entries within each type ordered by descending
// score. It derives purely from the report, independent of any policy.
func WriteSortedReport(report *schema.Report, path string) error {
	return writeWithFile(path, func(w io.Writer) error {
		raw, err := marshalSortedReport(report)
		if err != nil {
			return err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "    "); err != nil {
			return err
		}
		pretty.WriteByte('\n')
		_, err = w.Write(pretty.Bytes())
		return err
	}, "Sorted report saved")
}

// marshalSortedReport renders the sorted report with deterministic key order,
// which encoding/json's map marshalling cannot provide.
func marshalSortedReport(report *schema.Report) ([]byte, error) {
	groups := make(map[string][]schema.SNRRecord)
	var typeOrder []string
	for _, rec := range report.Records() {
		if _, ok := groups[rec.Type]; !ok {
			typeOrder = append(typeOrder, rec.Type)
		}
		groups[rec.Type] = append(groups[rec.Type], rec)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range typeOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		group := groups[t]
		sort.SliceStable(group, func(a, b int) bool { return group[a].SNR > group[b].SNR })

		key, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for j, rec := range group {
			if j > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(rec.Name)
			if err != nil {
				return nil, err
			}
			score, err := schema.MarshalScore(rec.SNR)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(score)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
