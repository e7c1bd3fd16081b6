package forecast

import (
	"bytes"
	"testing"
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/forecast/options"
	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelTablePrint(t *testing.T) {
	testData := map[string]struct {
		m        Model
		prefix   string
		indent   string
		expected string
	}{
		"no input": {
			indent: "  ",
			expected: `Forecast:
  Training Window: 0001-01-01T00:00:00Z to 0001-01-01T00:00:00Z
  Changepoints: None
  Seasonality: None
  Holidays: None
Weights:
   Type Labels Value
`,
		},
		"with all options": {
			m: Model{
				TrainStartTime: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
				TrainEndTime:   time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
				Options:        options.NewDefaultOptions(),
				Changepoints: []options.Changepoint{
					options.NewChangepoint("c0", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)),
				},
				Seasonalities: []options.SeasonalityConfig{
					options.NewSeasonalityConfig(options.LabelSeasWeekly, options.WeeklyPeriodDays, options.DefaultWeeklyOrder),
				},
				Holidays: []options.HolidayGroup{
					{Name: "promo", Dates: []time.Time{time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)}, UpperWindow: 1},
				},
				Scores: &Scores{
					MAPE: 0.1234,
					MSE:  1.2345,
					R2:   0.0123,
				},
				Weights: Weights{
					Coef: []FeatureWeight{
						NewFeatureWeight(feature.Intercept(), 1.1),
						NewFeatureWeight(feature.NewChangepoint("c0", feature.ChangepointCompSlope), 0),
						NewFeatureWeight(feature.NewSeasonality(options.LabelSeasWeekly, feature.FourierCompSin, 1), 2.2),
						NewFeatureWeight(feature.NewEvent("promo", 0), -3.3),
					},
				},
			},
			prefix: "  ",
			indent: "  ",
			expected: `  Forecast:
    Training Window: 1970-01-01T00:00:00Z to 1970-01-03T00:00:00Z
    Growth: linear    Seasonality Mode: additive
    Prior Scales: changepoint 0.050    seasonality 10.000    holidays 10.000
    Interval Width: 0.800    Samples: 1000
    Changepoints:
       Name             Datetime
         c0 1970-01-02T00:00:00Z
    Seasonality:
         Name Period Orders Mode
       weekly     7d      3    -
    Holidays:
        Name Dates  Window
       promo     1 [0, +1]
  Scores:
    MAPE: 0.123    MSE: 1.234    R2: 0.012
  Weights:
            Type                                                  Labels  Value
          growth                                    {"name":"intercept"}  1.100
     changepoint           {"changepoint_component":"slope","name":"c0"}    ...
     seasonality {"fourier_component":"sin","name":"weekly","order":"1"}  2.200
           event                           {"name":"promo","offset":"0"} -3.300
`,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := td.m.TablePrint(&buf, td.prefix, td.indent)
			require.NoError(t, err)
			assert.Equal(t, td.expected, buf.String())
		})
	}
}

func TestModelRoundTrip(t *testing.T) {
	tm := dailyT(testStart, 90)
	y := timedataset.GenerateLinearY(tm, 50, -0.2).
		Add(timedataset.GenerateWaveY(tm, 3.0, 7.0, 1.0, 0)).
		Add(timedataset.GenerateChange(tm, tm[40], 0, 0.4))

	opt := options.NewDefaultOptions()
	opt.UncertaintySamples = 200
	opt.Seed = 11
	opt.Holidays = []options.Holiday{{Name: "launch", DS: tm[20], LowerWindow: -1}}

	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(newDataset(t, tm, y)))

	m, err := f.Model()
	require.NoError(t, err)
	assert.Equal(t, len(f.FeatureLabels()), len(m.Weights.Coef))

	out, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Model
	require.NoError(t, json.Unmarshal(out, &decoded))

	restored, err := NewFromModel(decoded)
	require.NoError(t, err)

	future := dailyT(tm[len(tm)-1].AddDate(0, 0, 1), 21)
	expected, err := f.Predict(future)
	require.NoError(t, err)
	actual, err := restored.Predict(future)
	require.NoError(t, err)

	assert.InDeltaSlice(t, expected.YHat, actual.YHat, 1e-9)
	assert.InDeltaSlice(t, expected.YHatLower, actual.YHatLower, 1e-9)
	assert.InDeltaSlice(t, expected.YHatUpper, actual.YHatUpper, 1e-9)
	assert.Equal(t, expected.Columns(), actual.Columns())

	expectedEq, err := f.ModelEq()
	require.NoError(t, err)
	actualEq, err := restored.ModelEq()
	require.NoError(t, err)
	assert.Equal(t, expectedEq, actualEq)
	assert.Equal(t, f.Scores(), restored.Scores())
}

func TestNewFromModelErrors(t *testing.T) {
	testData := map[string]struct {
		m   Model
		err error
	}{
		"no weights": {
			m:   Model{Scaling: Scaling{Y: 1}},
			err: ErrInvalidModel,
		},
		"zero scale": {
			m: Model{
				Weights: Weights{Coef: []FeatureWeight{NewFeatureWeight(feature.Intercept(), 1)}},
			},
			err: ErrInvalidModel,
		},
		"unknown feature type": {
			m: Model{
				Scaling: Scaling{Y: 1},
				Weights: Weights{Coef: []FeatureWeight{{Type: feature.FeatureType(99), Value: 1}}},
			},
			err: ErrUnknownFeatureType,
		},
		"invalid options": {
			m: Model{
				Options: &options.Options{Growth: "exponential"},
				Scaling: Scaling{Y: 1},
				Weights: Weights{Coef: []FeatureWeight{NewFeatureWeight(feature.Intercept(), 1)}},
			},
			err: options.ErrInvalidOptions,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := NewFromModel(td.m)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestFeatureWeightToFeature(t *testing.T) {
	testData := map[string]struct {
		feat feature.Feature
	}{
		"growth":      {feat: feature.Linear()},
		"changepoint": {feat: feature.NewChangepoint("auto_3", feature.ChangepointCompSlope)},
		"seasonality": {feat: feature.NewSeasonality("yearly", feature.FourierCompCos, 10)},
		"event":       {feat: feature.NewEvent("Christmas Day", -2)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			fw := NewFeatureWeight(td.feat, 1.5)
			res, err := fw.ToFeature()
			require.NoError(t, err)
			assert.Equal(t, td.feat.String(), res.String())
			assert.Equal(t, td.feat.Type(), res.Type())
		})
	}

	var fw *FeatureWeight
	_, err := fw.ToFeature()
	assert.ErrorIs(t, err, ErrUnknownFeatureType)
}
