package forecast

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/aouyang1/go-costcast/feature"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// upper bound on the number of future changepoints drawn per simulation relative to the mean
const maxPoissonFactor = 20

// uncertainty fills the bounds of the result by simulating the trend and the observation noise.
// Each simulation places future changepoints past the training window at the historical rate with
// Laplace distributed slope changes sized like the fitted ones. Zero samples collapse the bounds
// onto the point forecast.
func (f *Forecast) uncertainty(res *Result, eta, capY, floorY []float64) {
	n := res.Len()
	samples := f.opt.NumSamples()
	if samples == 0 || n == 0 {
		copy(res.YHatLower, res.YHat)
		copy(res.YHatUpper, res.YHat)
		copy(res.TrendLower, res.Trend)
		copy(res.TrendUpper, res.Trend)
		return
	}

	tScaled := feature.ScaleEpoch(epochSeconds(res.T), f.trainStartTime, f.trainEndTime)
	tMax := tScaled[0]
	for _, v := range tScaled {
		tMax = math.Max(tMax, v)
	}

	deltas := f.changepointDeltas()
	meanAbs := 0.0
	for _, d := range deltas {
		meanAbs += math.Abs(d)
	}
	if len(deltas) > 0 {
		meanAbs /= float64(len(deltas))
	}
	rate := float64(len(deltas))
	laplace := distuv.Laplace{Mu: 0, Scale: meanAbs + 1e-8}

	rng := rand.New(rand.NewPCG(f.opt.Seed, f.opt.Seed^0x9e3779b97f4a7c15))
	noise := f.scale.Sigma * f.scale.Y

	trendSamples := make([][]float64, n)
	ySamples := make([][]float64, n)
	for i := 0; i < n; i++ {
		trendSamples[i] = make([]float64, samples)
		ySamples[i] = make([]float64, samples)
	}

	var chptT, chptD []float64
	for s := 0; s < samples; s++ {
		chptT = chptT[:0]
		chptD = chptD[:0]
		if tMax > 1 && rate > 0 {
			k := samplePoisson(rng, rate*(tMax-1))
			for j := 0; j < k; j++ {
				chptT = append(chptT, 1+rng.Float64()*(tMax-1))
				chptD = append(chptD, laplace.Quantile(openUniform(rng)))
			}
		}

		for i := 0; i < n; i++ {
			e := eta[i]
			for j, ct := range chptT {
				if tScaled[i] > ct {
					e += chptD[j] * (tScaled[i] - ct)
				}
			}
			trend := f.trendValue(e, capY[i], floorY[i])
			trendSamples[i][s] = trend
			ySamples[i][s] = f.combine(trend, floorY[i], res.MultiplicativeTerms[i], res.AdditiveTerms[i]) + rng.NormFloat64()*noise
		}
	}

	lower := (1 - f.opt.IntervalWidth) / 2
	upper := (1 + f.opt.IntervalWidth) / 2
	for i := 0; i < n; i++ {
		sort.Float64s(trendSamples[i])
		sort.Float64s(ySamples[i])
		res.TrendLower[i] = stat.Quantile(lower, stat.Empirical, trendSamples[i], nil)
		res.TrendUpper[i] = stat.Quantile(upper, stat.Empirical, trendSamples[i], nil)
		res.YHatLower[i] = stat.Quantile(lower, stat.Empirical, ySamples[i], nil)
		res.YHatUpper[i] = stat.Quantile(upper, stat.Empirical, ySamples[i], nil)
	}
}

// changepointDeltas returns the fitted slope changes of the trend
func (f *Forecast) changepointDeltas() []float64 {
	var deltas []float64
	for i, label := range f.fLabels.Labels() {
		if label.Type() == feature.FeatureTypeChangepoint && i < len(f.coef) {
			deltas = append(deltas, f.coef[i])
		}
	}
	return deltas
}

// samplePoisson draws a poisson count by inverting its cumulative distribution
func samplePoisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	dist := distuv.Poisson{Lambda: mean}
	u := rng.Float64()
	limit := int(maxPoissonFactor*mean) + maxPoissonFactor
	for k := 0; k < limit; k++ {
		if dist.CDF(float64(k)) >= u {
			return k
		}
	}
	return limit
}

// openUniform draws from (0, 1)
func openUniform(rng *rand.Rand) float64 {
	for {
		if u := rng.Float64(); u > 0 {
			return u
		}
	}
}
