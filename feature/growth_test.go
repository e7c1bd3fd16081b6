package feature

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthString(t *testing.T) {
	assert.Equal(t, "growth_intercept", Intercept().String())
	assert.Equal(t, "growth_linear", Linear().String())
}

func TestGrowthGet(t *testing.T) {
	feat := Linear()

	testData := map[string]struct {
		label     string
		expVal    string
		expExists bool
	}{
		"unknown": {
			label: "unknown",
		},
		"capitalized": {
			label:     "NAME",
			expVal:    "linear",
			expExists: true,
		},
		"exact match": {
			label:     "name",
			expVal:    "linear",
			expExists: true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := feat.Get(td.label)
			assert.Equal(t, td.expExists, exists, "exists")
			assert.Equal(t, td.expVal, val, "value")
		})
	}
}

func TestGrowthUnmarshalJSON(t *testing.T) {
	feat := Intercept()
	out, err := json.Marshal(feat.Decode())
	require.NoError(t, err)

	var nextFeat Growth
	require.NoError(t, json.Unmarshal(out, &nextFeat))

	assert.Equal(t, feat, &nextFeat)
	assert.Equal(t, FeatureTypeGrowth, nextFeat.Type())
}

func TestGrowthGenerate(t *testing.T) {
	startTime := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)

	testData := map[string]struct {
		growth   *Growth
		epoch    []float64
		expected []float64
	}{
		"intercept": {
			growth:   Intercept(),
			epoch:    []float64{1672531200, 1672617600, 1672704000},
			expected: []float64{1, 1, 1},
		},
		"linear boundaries": {
			growth:   Linear(),
			epoch:    []float64{float64(startTime.Unix()), float64(endTime.Unix())},
			expected: []float64{0, 1},
		},
		"linear midpoint": {
			growth:   Linear(),
			epoch:    []float64{float64(startTime.Add(2 * 24 * time.Hour).Unix())},
			expected: []float64{0.5},
		},
		"linear beyond training end": {
			growth:   Linear(),
			epoch:    []float64{float64(endTime.Add(4 * 24 * time.Hour).Unix())},
			expected: []float64{2},
		},
		"unknown growth is zero": {
			growth:   NewGrowth("cubic"),
			epoch:    []float64{1672531200},
			expected: []float64{0},
		},
		"empty": {
			growth:   Linear(),
			epoch:    []float64{},
			expected: []float64{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.growth.Generate(td.epoch, startTime, endTime)
			assert.InDeltaSlice(t, td.expected, res, 1e-10)
		})
	}
}

func TestScaleEpochZeroWidth(t *testing.T) {
	startTime := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	res := ScaleEpoch([]float64{float64(startTime.Unix()), float64(startTime.Unix()) + 2}, startTime, startTime)
	assert.Equal(t, []float64{0, 2}, res)
}
