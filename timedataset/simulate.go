package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

const secondsPerDay = 86400.0

// GenerateT returns n timestamps spaced by interval, ending one interval before the
// minute-truncated time reported by nowFunc.
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

// GenerateMonthlyT returns n month starts beginning with the month holding start.
func GenerateMonthlyT(n int, start time.Time) []time.Time {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, first.AddDate(0, i, 0))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) Mul(src Series) Series {
	floats.Mul(s, src)
	return s
}

func (s Series) Scale(c float64) Series {
	floats.Scale(c, s)
	return s
}

// SetConst overwrites values in [start, end) with val.
func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	for i := range s {
		if !t[i].Before(start) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

// MaskWithTimeRange zeroes every value outside of [start, end].
func (s Series) MaskWithTimeRange(start, end time.Time, t []time.Time) Series {
	for i := range s {
		if t[i].Before(start) || t[i].After(end) {
			s[i] = 0.0
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, n)
	for i := range y {
		y[i] = val
	}
	return Series(y)
}

// GenerateLinearY returns a line through intercept at t[0] rising by slope per day.
func GenerateLinearY(t []time.Time, intercept, slopePerDay float64) Series {
	y := make([]float64, len(t))
	if len(t) == 0 {
		return Series(y)
	}
	for i, tPnt := range t {
		y[i] = intercept + slopePerDay*tPnt.Sub(t[0]).Hours()/24.0
	}
	return Series(y)
}

// GenerateWaveY returns a sine wave of the given amplitude, period in days and harmonic
// order evaluated on absolute time.
func GenerateWaveY(t []time.Time, amp, periodDays, order, offsetDays float64) Series {
	y := make([]float64, len(t))
	for i, tPnt := range t {
		days := float64(tPnt.Unix())/secondsPerDay + offsetDays
		y[i] = amp * math.Sin(2.0*math.Pi*order*days/periodDays)
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise with standard deviation scale drawn from r.
func GenerateNoise(r *rand.Rand, n int, scale float64) Series {
	y := make([]float64, n)
	for i := range y {
		y[i] = r.NormFloat64() * scale
	}
	return Series(y)
}

// GenerateChange returns a series that is zero before chpt and bias + slope per day
// since chpt from then on.
func GenerateChange(t []time.Time, chpt time.Time, bias, slopePerDay float64) Series {
	y := make([]float64, len(t))
	for i, tPnt := range t {
		if !tPnt.Before(chpt) {
			y[i] = bias + slopePerDay*tPnt.Sub(chpt).Hours()/24.0
		}
	}
	return Series(y)
}
