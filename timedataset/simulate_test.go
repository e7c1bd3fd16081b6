package timedataset

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestGenerateT(t *testing.T) {
	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 0, 0, 0, 0, time.UTC)
	}

	numPnts := 7
	res := GenerateT(numPnts, 24*time.Hour, nowFunc)
	assert.Len(t, res, numPnts)

	assert.Equal(t, res[0], time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, res[numPnts-1], time.Date(1970, 1, 7, 0, 0, 0, 0, time.UTC))
}

func TestGenerateMonthlyT(t *testing.T) {
	res := GenerateMonthlyT(3, time.Date(2023, 11, 17, 5, 0, 0, 0, time.UTC))
	expected := []time.Time{
		time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, expected, res)
}

func TestSeries(t *testing.T) {
	numPnts := 7
	s := GenerateConstY(numPnts, 1)

	res := s.Add(GenerateConstY(numPnts, 2))
	require.Equal(t, Series([]float64{3, 3, 3, 3, 3, 3, 3}), res)

	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 0, 0, 0, 0, time.UTC)
	}

	tSeries := GenerateT(numPnts, 24*time.Hour, nowFunc)
	s.SetConst(tSeries, 2.0,
		time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC),
	)
	assert.Equal(t, Series([]float64{3, 3, 2, 2, 3, 3, 3}), s)

	s.MaskWithTimeRange(
		time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC),
		tSeries,
	)
	assert.Equal(t, Series([]float64{0, 0, 2, 2, 3, 0, 0}), s)

	s.Scale(2).Mul(GenerateConstY(numPnts, 0.5))
	assert.Equal(t, Series([]float64{0, 0, 2, 2, 3, 0, 0}), s)
}

func TestGenerateLinearAndChange(t *testing.T) {
	tSeries := GenerateMonthlyT(1, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	tSeries = append(tSeries,
		time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 4, 0, 0, 0, 0, time.UTC),
	)

	assert.InDeltaSlice(t, []float64{1, 3, 5, 7}, GenerateLinearY(tSeries, 1, 2), 1e-9)
	assert.InDeltaSlice(t,
		[]float64{0, 0, 10, 9},
		GenerateChange(tSeries, time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC), 10, -1),
		1e-9,
	)
}

func TestGenerateWaveY(t *testing.T) {
	tSeries := []time.Time{
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 1, 6, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 1, 18, 0, 0, 0, time.UTC),
	}
	res := GenerateWaveY(tSeries, 2.0, 1.0, 1.0, 0.0)
	assert.InDeltaSlice(t, []float64{0, 2, 0, -2}, res, 1e-9)
}

func TestGenerateNoise(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	res := GenerateNoise(r, 10000, 3.0)
	require.Len(t, res, 10000)
	assert.InDelta(t, 0.0, stat.Mean(res, nil), 0.1)
	assert.InDelta(t, 3.0, stat.StdDev(res, nil), 0.1)

	again := GenerateNoise(rand.New(rand.NewPCG(1, 2)), 10000, 3.0)
	assert.Equal(t, res, again)
}
