package core

import (
	"math"
	"sort"
)

// iqrToSigma converts an interquartile range to a standard deviation under a
// normal-noise assumption.
const iqrToSigma = 1.349

// estimateSigma estimates the noise standard deviation of a singular-value
// spectrum from its interquartile range. A spectrum of length 1 has IQR 0 and
// therefore sigma 0.
func estimateSigma(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0
	}
	sorted := make([]float64, len(spectrum))
	copy(sorted, spectrum)
	sort.Float64s(sorted)

	q75 := quantile(sorted, 0.75)
	q25 := quantile(sorted, 0.25)
	return (q75 - q25) / iqrToSigma
}

// mpThreshold returns the upper edge of the Marchenko-Pastur bulk-noise
// distribution for an n x m matrix, scaled by the estimated noise sigma.
// sigma 0 yields threshold 0, so every singular value counts as signal.
func mpThreshold(sigma float64, n, m int) float64 {
	if n < 1 || m < 1 {
		return 0
	}
	beta := float64(min(n, m)) / float64(max(n, m))
	return sigma * (1 + math.Sqrt(beta))
}

// quantile returns the q-th quantile of an ascending-sorted slice using
// linear interpolation at rank (len-1)*q, the same rule torch.quantile and
// numpy's default method apply.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
