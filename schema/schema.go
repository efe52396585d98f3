// Package schema has configs, models and global variables for all parts of spectrum.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// SNRRecord represents the scored spectrum of a single weight matrix.
// The score is the signal-to-noise ratio of the singular values, normalized
// by the spectral norm so that matrices of different scale stay comparable.
type SNRRecord struct {
	Name string  // Full dotted tensor name, e.g. model.layers.5.self_attn.q_proj.weight
	Type string  // Structural type with layer indices stripped, e.g. self_attn.q_proj.weight
	SNR  float64 // Normalized SNR; +Inf when the noise mass is zero
}

// snrRecordJSON is the persisted form of a record value.
// SNR may be +Inf, which encoding/json rejects; it round-trips as "inf".
type snrRecordJSON struct {
	SNR  json.RawMessage `json:"snr"`
	Type *string         `json:"type"`
}

// Report maps matrix names to their SNR records while preserving insertion
// order. Order matters: the selection engine breaks score ties by catalog
// order, and that order must survive a serialize/load round trip.
type Report struct {
	records map[string]SNRRecord
	names   []string
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{records: make(map[string]SNRRecord)}
}

// Add inserts or replaces a record keyed by its name.
func (r *Report) Add(rec SNRRecord) {
	if _, ok := r.records[rec.Name]; !ok {
		r.names = append(r.names, rec.Name)
	}
	r.records[rec.Name] = rec
}

// Get returns the record for a matrix name.
func (r *Report) Get(name string) (SNRRecord, bool) {
	rec, ok := r.records[name]
	return rec, ok
}

// Names returns all matrix names in insertion order.
func (r *Report) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Records returns all records in insertion order.
func (r *Report) Records() []SNRRecord {
	out := make([]SNRRecord, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.records[n])
	}
	return out
}

// Len returns the number of records.
func (r *Report) Len() int {
	return len(r.names)
}

// NonFiniteCount returns how many records carry a non-finite score.
// Callers persisting the report use this to flag infinities instead of
// writing them silently.
func (r *Report) NonFiniteCount() int {
	count := 0
	for _, rec := range r.records {
		if math.IsInf(rec.SNR, 0) || math.IsNaN(rec.SNR) {
			count++
		}
	}
	return count
}

// MarshalJSON renders the report as {name: {"snr": ..., "type": ...}} with
// keys in insertion order. Non-finite scores become flag strings.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		rec := r.records[name]
		val, err := MarshalScore(rec.SNR)
		if err != nil {
			return nil, err
		}
		typeJSON, err := json.Marshal(rec.Type)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, `{"snr":%s,"type":%s}`, val, typeJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a persisted report, preserving document key order.
// A record missing its snr or type field is a fatal parse error; defaulting
// either would corrupt downstream selection ranking.
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("report must be a JSON object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("report must be a JSON object, got %v", tok)
	}

	r.records = make(map[string]SNRRecord)
	r.names = nil

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("malformed report entry: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("malformed report key: %v", keyTok)
		}

		var raw snrRecordJSON
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("malformed record for %q: %w", name, err)
		}
		if raw.SNR == nil {
			return fmt.Errorf("record for %q is missing the snr field", name)
		}
		if raw.Type == nil {
			return fmt.Errorf("record for %q is missing the type field", name)
		}
		snr, err := UnmarshalScore(raw.SNR)
		if err != nil {
			return fmt.Errorf("record for %q has an invalid snr value: %w", name, err)
		}
		r.Add(SNRRecord{Name: name, Type: *raw.Type, SNR: snr})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("malformed report object: %w", err)
	}
	return nil
}

// MarshalScore encodes a score, mapping non-finite values to flag strings.
func MarshalScore(v float64) ([]byte, error) {
	switch {
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	case math.IsNaN(v):
		return []byte(`"nan"`), nil
	default:
		return json.Marshal(v)
	}
}

// UnmarshalScore accepts either a JSON number or a flag string ("inf",
// "-inf", "nan") produced by MarshalScore.
func UnmarshalScore(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("snr must be a number or inf marker, got %s", string(raw))
	}
	switch s {
	case "inf", "Infinity":
		return math.Inf(1), nil
	case "-inf", "-Infinity":
		return math.Inf(-1), nil
	case "nan", "NaN":
		return math.NaN(), nil
	default:
		return 0, fmt.Errorf("unrecognized snr marker %q", s)
	}
}

// SelectionResult holds the names chosen for unfreezing, grouped by
// structural type. Fixed entries are emitted ahead of any scored selection
// and are never subject to ranking.
type SelectionResult struct {
	Direction Direction           // Direction that produced the selection
	Percent   int                 // Magnitude of the selection percentage
	Fixed     []string            // Always-unfrozen parameter names
	TypeOrder []string            // Structural types in first-seen report order
	ByType    map[string][]string // Selected names per type, ranked
}

// TotalSelected returns the number of scored names selected across all types,
// excluding the fixed entries.
func (s *SelectionResult) TotalSelected() int {
	total := 0
	for _, names := range s.ByType {
		total += len(names)
	}
	return total
}

// ScanSummary captures observability data for a completed scan run.
type ScanSummary struct {
	ModelPath string
	Matrices  int
	Skipped   int
	Duration  time.Duration
}
