// Package stats holds the order statistics shared by the labeling and
// preprocessing stages.
package stats

import (
	"math"
	"slices"
)

// Quantile returns the q-th quantile of sorted using linear interpolation
// between the closest ranks at position (n-1)*q. sorted must be ascending.
// It returns NaN for an empty slice or q outside [0, 1].
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 || q < 0 || q > 1 || math.IsNaN(q) {
		return math.NaN()
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// QuantileOf sorts a copy of values and returns its q-th quantile.
func QuantileOf(values []float64, q float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Quantile(sorted, q)
}

// Median returns the median of values, averaging the two middle elements
// for even lengths.
func Median(values []float64) float64 {
	return QuantileOf(values, 0.5)
}
