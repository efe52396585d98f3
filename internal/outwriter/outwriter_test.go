package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"short name untouched", "lm_head.weight", 30, "lm_head.weight"},
		{"exact width untouched", "abcd", 4, "abcd"},
		{"long name keeps tail", "model.layers.31.self_attn.q_proj.weight", 20, "...ttn.q_proj.weight"},
		{"tiny width untouched", "abcdefgh", 3, "abcdefgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateName(tt.input, tt.maxWidth)
			assert.Equal(t, tt.want, got, "truncation mismatch")
			if tt.maxWidth >= 4 && len(tt.input) > tt.maxWidth {
				assert.True(t, strings.HasPrefix(got, "..."), "truncated names should flag the cut")
				assert.True(t, strings.HasSuffix(tt.input, got[3:]), "truncation should keep the trailing segments")
			}
		})
	}
}

func TestCreateScoreFormatter(t *testing.T) {
	fmtScore := createScoreFormatter(3)

	assert.Equal(t, "1.235", fmtScore(1.2349), "finite scores should round to the precision")
	assert.Equal(t, "0.000", fmtScore(0), "zero should respect the precision")
	assert.Equal(t, "inf", fmtScore(math.Inf(1)), "+Inf should render as its marker")
	assert.Equal(t, "-inf", fmtScore(math.Inf(-1)), "-Inf should render as its marker")
	assert.Equal(t, "nan", fmtScore(math.NaN()), "NaN should render as its marker")

	coarse := createScoreFormatter(0)
	assert.Equal(t, "2", coarse(1.6), "zero precision should round to integers")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"a": 1}))

	assert.Contains(t, buf.String(), "    \"a\": 1", "output should be indented with four spaces")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"), "encoder should end with a newline")
}

func TestWriteCSVWithHeader(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"rank", "name"}, func(cw *csv.Writer) error {
		return cw.Write([]string{"1", "lm_head.weight"})
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"rank", "name"}, {"1", "lm_head.weight"}}, rows, "header should precede data rows")
}

func TestWriteWithFile(t *testing.T) {
	t.Run("writes to the named file", func(t *testing.T) {
		path := t.TempDir() + "/out.txt"
		err := writeWithFile(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "hello")
			return err
		}, "Wrote")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("writer errors propagate", func(t *testing.T) {
		path := t.TempDir() + "/out.txt"
		err := writeWithFile(path, func(io.Writer) error {
			return assert.AnError
		}, "Wrote")
		assert.ErrorIs(t, err, assert.AnError, "inner writer failures should propagate")
	})

	t.Run("uncreatable path fails", func(t *testing.T) {
		err := writeWithFile(t.TempDir()+"/missing/out.txt", func(io.Writer) error {
			return nil
		}, "Wrote")
		assert.Error(t, err, "missing parent directory should fail")
	})
}
