package options

import (
	"bytes"
	"testing"
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyTimes(n int) []time.Time {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	t := make([]time.Time, n)
	for i := range t {
		t[i] = start.AddDate(0, 0, i)
	}
	return t
}

func TestResolveChangepoints(t *testing.T) {
	tm := dailyTimes(11)

	testData := map[string]struct {
		t        []time.Time
		update   func(o *Options)
		expected []Changepoint
	}{
		"evenly spaced in range": {
			t: tm,
			update: func(o *Options) {
				o.NChangepoints = 4
			},
			// floor(11*0.8) = 8 rows in range so indexes 0..7 are split into 4 steps of 1.75
			expected: []Changepoint{
				NewChangepoint("auto_0", tm[2]),
				NewChangepoint("auto_1", tm[4]),
				NewChangepoint("auto_2", tm[5]),
				NewChangepoint("auto_3", tm[7]),
			},
		},
		"capped at history": {
			t: tm[:5],
			update: func(o *Options) {
				o.ChangepointRange = 1.0
			},
			expected: []Changepoint{
				NewChangepoint("auto_0", tm[1]),
				NewChangepoint("auto_1", tm[2]),
				NewChangepoint("auto_2", tm[3]),
				NewChangepoint("auto_3", tm[4]),
			},
		},
		"no changepoints": {
			t: tm,
			update: func(o *Options) {
				o.NChangepoints = 0
			},
			expected: nil,
		},
		"too little history": {
			t:        tm[:1],
			update:   func(o *Options) {},
			expected: nil,
		},
		"explicit changepoints": {
			t: tm,
			update: func(o *Options) {
				o.Changepoints = []Changepoint{
					{T: tm[3]},
					NewChangepoint("launch", tm[6]),
				}
			},
			expected: []Changepoint{
				NewChangepoint("0", tm[3]),
				NewChangepoint("launch", tm[6]),
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := NewDefaultOptions()
			td.update(opt)
			res := opt.ResolveChangepoints(td.t)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestResolveChangepointsStayInRange(t *testing.T) {
	tm := dailyTimes(1000)
	opt := NewDefaultOptions()
	res := opt.ResolveChangepoints(tm)

	require.Len(t, res, opt.NChangepoints)
	for _, chpt := range res {
		assert.True(t, chpt.T.After(tm[0]))
		assert.False(t, chpt.T.After(tm[799]))
	}
}

func TestFilterChangepoints(t *testing.T) {
	tm := dailyTimes(10)
	chpts := []Changepoint{
		NewChangepoint("start", tm[0]),
		NewChangepoint("mid", tm[4]),
		NewChangepoint("end", tm[9]),
		NewChangepoint("future", tm[9].AddDate(0, 0, 5)),
	}
	res := FilterChangepoints(chpts, tm[0], tm[9])
	assert.Equal(t, []Changepoint{NewChangepoint("mid", tm[4])}, res)
}

func TestGenerateChangepointFeatures(t *testing.T) {
	tm := dailyTimes(5)
	chpts := []Changepoint{NewChangepoint("mid", tm[2])}

	expected := feature.NewSet()
	expected.Set(feature.NewChangepoint("mid", feature.ChangepointCompSlope), []float64{0, 0, 0, 0.25, 0.5})

	res := GenerateChangepointFeatures(tm, chpts, tm[0], tm[4])
	compareFeatureSet(t, expected, res, 1e-9)

	// prediction beyond the training window keeps growing in training units
	future := []time.Time{tm[4].AddDate(0, 0, 4)}
	res = GenerateChangepointFeatures(future, chpts, tm[0], tm[4])
	vals, exists := res.Get(feature.NewChangepoint("mid", feature.ChangepointCompSlope))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{1.5}, vals, 1e-9)
}

func TestChangepointTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ChangepointTable(nil, &buf, "", "  ", 1))
	assert.Equal(t, "  Changepoints: None\n", buf.String())

	buf.Reset()
	chpts := []Changepoint{NewChangepoint("c1", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC))}
	require.NoError(t, ChangepointTable(chpts, &buf, "", "  ", 0))
	expected := "Changepoints:\n" +
		"   Name             Datetime\n" +
		"     c1 2023-01-02T00:00:00Z\n"
	assert.Equal(t, expected, buf.String())
}
