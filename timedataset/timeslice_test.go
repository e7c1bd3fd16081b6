package timedataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTime(t *testing.T) {
	testData := map[string]struct {
		tSlice   TimeSlice
		expected time.Time
	}{
		"nil input for start time": {
			tSlice:   nil,
			expected: time.Time{},
		},
		"valid start time": {
			tSlice: TimeSlice([]time.Time{
				time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
			}),
			expected: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.tSlice.StartTime()
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestEndTime(t *testing.T) {
	testData := map[string]struct {
		tSlice   TimeSlice
		expected time.Time
	}{
		"nil input for end time": {
			tSlice:   nil,
			expected: time.Time{},
		},
		"valid end time": {
			tSlice: TimeSlice([]time.Time{
				time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
			}),
			expected: time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.tSlice.EndTime()
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestEstimateFreq(t *testing.T) {
	testData := map[string]struct {
		tSlice   TimeSlice
		expected time.Duration
		err      error
	}{
		"estimate with nil timedataset": {
			tSlice: nil,
			err:    ErrCannotInferFreq,
		},
		"consistent frequencies": {
			tSlice: TimeSlice([]time.Time{
				time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
			}),
			expected: 24 * time.Hour,
		},
		"multiple frequencies": {
			tSlice: TimeSlice([]time.Time{
				time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 1, 0, 0, 0, time.UTC),
			}),
			expected: 24 * time.Hour,
		},
		"multiple frequencies with same counts": {
			tSlice: TimeSlice([]time.Time{
				time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 1, 0, 0, 0, time.UTC),
				time.Date(1970, 1, 3, 2, 0, 0, 0, time.UTC),
			}),
			expected: time.Hour,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			freq, err := td.tSlice.EstimateFreq()
			if td.err != nil {
				assert.EqualError(t, err, td.err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, freq)
		})
	}
}

func TestInferFrequency(t *testing.T) {
	testData := map[string]struct {
		tSlice   TimeSlice
		expected Frequency
		err      error
	}{
		"too few points": {
			tSlice: TimeSlice([]time.Time{time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)}),
			err:    ErrCannotInferFreq,
		},
		"month starts": {
			tSlice:   TimeSlice(GenerateMonthlyT(14, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))),
			expected: Monthly,
		},
		"month starts with a gap": {
			tSlice: TimeSlice([]time.Time{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			}),
			expected: Monthly,
		},
		"quarters": {
			tSlice: TimeSlice([]time.Time{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
			}),
			expected: Quarterly,
		},
		"daily": {
			tSlice: TimeSlice([]time.Time{
				time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 2, 2, 0, 0, 0, 0, time.UTC),
			}),
			expected: Daily,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			freq, err := td.tSlice.InferFrequency()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, freq)
		})
	}
}

func TestParseFrequency(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected Frequency
		err      error
	}{
		"month start":    {input: "MS", expected: Monthly},
		"lower case day": {input: "d", expected: Daily},
		"week":           {input: "W", expected: Weekly},
		"quarter":        {input: "QS", expected: Quarterly},
		"year":           {input: "YS", expected: Yearly},
		"duration":       {input: "15m", expected: Frequency{Step: 15 * time.Minute}},
		"negative":       {input: "-1h", err: ErrUnknownFrequency},
		"garbage":        {input: "fortnightly", err: ErrUnknownFrequency},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			freq, err := ParseFrequency(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, freq)
		})
	}
}

func TestFrequencyString(t *testing.T) {
	assert.Equal(t, "MS", Monthly.String())
	assert.Equal(t, "D", Daily.String())
	assert.Equal(t, "2MS", Frequency{Months: 2}.String())
	assert.Equal(t, "15m0s", Frequency{Step: 15 * time.Minute}.String())
}

func TestFrequencyNext(t *testing.T) {
	jan31 := time.Date(2023, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 2, 28, 12, 0, 0, 0, time.UTC), Monthly.Next(jan31))
	assert.Equal(t, time.Date(2023, 3, 31, 12, 0, 0, 0, time.UTC), Monthly.Add(jan31, 2))
	assert.Equal(t, time.Date(2022, 12, 31, 12, 0, 0, 0, time.UTC), Monthly.Add(jan31, -1))
	assert.Equal(t, jan31.Add(72*time.Hour), Daily.Add(jan31, 3))
}

func TestFutureTimes(t *testing.T) {
	testData := map[string]struct {
		last     time.Time
		n        int
		freq     Frequency
		expected []time.Time
	}{
		"no periods": {
			last: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			freq: Monthly,
		},
		"zero frequency": {
			last: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			n:    3,
		},
		"month starts across year end": {
			last: time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
			n:    3,
			freq: Monthly,
			expected: []time.Time{
				time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		"month ends": {
			last: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			n:    4,
			freq: Monthly,
			expected: []time.Time{
				time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 4, 30, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC),
			},
		},
		"leap day yearly": {
			last: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			n:    2,
			freq: Yearly,
			expected: []time.Time{
				time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
				time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
			},
		},
		"quarter from the 30th": {
			last: time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC),
			n:    2,
			freq: Quarterly,
			expected: []time.Time{
				time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC),
			},
		},
		"hourly": {
			last: time.Date(2023, 1, 1, 23, 0, 0, 0, time.UTC),
			n:    2,
			freq: Hourly,
			expected: []time.Time{
				time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 1, 2, 1, 0, 0, 0, time.UTC),
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := FutureTimes(td.last, td.n, td.freq)
			assert.Equal(t, td.expected, res)
		})
	}
}
