package core

import (
	"strconv"
	"strings"
	"testing"
)

// FuzzEstimateSigma fuzzes the sigma estimator with random value arrays.
func FuzzEstimateSigma(f *testing.F) {
	seeds := []string{
		"[1,2,3]",
		"[0,0,0]",
		"[100]",
		"[]",
		"[10,0.1,0.1,0.1]",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(_ *testing.T, valuesJSON string) {
		// Simple parsing, may fail but that's ok for fuzzing
		values := []float64{}
		if valuesJSON != "" && valuesJSON[0] == '[' && valuesJSON[len(valuesJSON)-1] == ']' {
			// Very basic parsing, just for fuzzing
			inner := valuesJSON[1 : len(valuesJSON)-1]
			if inner != "" {
				parts := strings.SplitSeq(inner, ",")
				for p := range parts {
					// Skip parsing errors, just try
					if v, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
						values = append(values, v)
					}
				}
			}
		}
		_ = estimateSigma(values)
	})
}

// FuzzMPThreshold fuzzes the Marchenko-Pastur threshold with random shapes.
func FuzzMPThreshold(f *testing.F) {
	seeds := []struct {
		sigma float64
		rows  int
		cols  int
	}{
		{1.0, 4, 4},
		{0.0, 16, 4},
		{2.5, 1, 4096},
		{0.5, 4096, 11008},
	}
	for _, seed := range seeds {
		f.Add(seed.sigma, seed.rows, seed.cols)
	}

	f.Fuzz(func(_ *testing.T, sigma float64, rows int, cols int) {
		if rows <= 0 || cols <= 0 {
			return
		}
		_ = mpThreshold(sigma, rows, cols)
	})
}

// FuzzWeightType fuzzes structural type derivation with random tensor names.
func FuzzWeightType(f *testing.F) {
	seeds := []string{
		"model.layers.0.self_attn.q_proj.weight",
		"model.embed_tokens.weight",
		"lm_head.weight",
		"transformer.h.11.mlp.c_fc.bias",
		"",
		"...",
		"model.layers.31",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(_ *testing.T, name string) {
		_ = WeightType(name)
		_, _ = RoleOf(name)
	})
}
