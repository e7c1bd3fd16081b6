// Package stats holds residual diagnostics used between forecast passes.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DetectOutliers returns the indices of values outside of the Tukey fences built from the
// lower and upper percentiles. The fences are widened by tukeyFactor times the inner range.
// NaN values are never reported.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)
	if lowerPerc > upperPerc {
		lowerPerc, upperPerc = upperPerc, lowerPerc
	}

	valid := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return nil
	}
	sort.Float64s(valid)

	lower := stat.Quantile(lowerPerc, stat.Empirical, valid, nil)
	upper := stat.Quantile(upperPerc, stat.Empirical, valid, nil)
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		if v > upper || v < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}
