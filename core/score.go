package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/lambentLogic/spectrum/schema"
	"gonum.org/v1/gonum/mat"
)

// errDegenerateMatrix marks an all-zero matrix whose spectral norm is zero.
// Normalizing by it is undefined, so such matrices are skipped with a warning
// rather than scored.
var errDegenerateMatrix = errors.New("degenerate matrix: zero spectral norm")

// scoreMatrix computes the normalized SNR record for one weight matrix.
//
// The singular values are split into signal and noise at the Marchenko-Pastur
// threshold derived from the spectrum's own IQR sigma estimate. The raw SNR
// (signal mass over noise mass, +Inf when the noise mass is zero) is divided
// by the largest singular value so scores stay comparable across matrices of
// different scale.
func scoreMatrix(m *schema.WeightMatrix, weightType string) (schema.SNRRecord, error) {
	if err := m.Validate(); err != nil {
		return schema.SNRRecord{}, err
	}

	spectrum, err := singularValues(m)
	if err != nil {
		return schema.SNRRecord{}, err
	}

	maxSV := spectrum[0]
	if maxSV == 0 {
		return schema.SNRRecord{}, fmt.Errorf("%w: %s", errDegenerateMatrix, m.Name)
	}

	sigma := estimateSigma(spectrum)
	threshold := mpThreshold(sigma, m.Rows, m.Cols)

	var signal, noise float64
	for _, s := range spectrum {
		if s > threshold {
			signal += s
		} else {
			noise += s
		}
	}

	snr := math.Inf(1)
	if noise != 0 {
		snr = signal / noise
	}

	return schema.SNRRecord{
		Name: m.Name,
		Type: weightType,
		SNR:  snr / maxSV,
	}, nil
}

// singularValues returns the full singular-value spectrum in descending order.
// Non-convergence is fatal for the matrix; no default value is substituted.
func singularValues(m *schema.WeightMatrix) ([]float64, error) {
	dense := mat.NewDense(m.Rows, m.Cols, m.Data)

	var svd mat.SVD
	if ok := svd.Factorize(dense, mat.SVDNone); !ok {
		return nil, fmt.Errorf("svd failed to converge for %s (%dx%d)", m.Name, m.Rows, m.Cols)
	}
	return svd.Values(nil), nil
}
