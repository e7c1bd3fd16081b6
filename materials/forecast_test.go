package materials

import (
	"testing"
	"time"

	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecast(t *testing.T) {
	tm := timedataset.GenerateMonthlyT(48, testStart)
	y := timedataset.GenerateLinearY(tm, 250, 0.1).
		Add(timedataset.GenerateWaveY(tm, 5.0, 365.25, 1.0, 0))
	td, err := timedataset.NewUnivariateDataset(tm, y)
	require.NoError(t, err)

	testData := map[string]struct {
		periods  int
		expected int
	}{
		"default periods": {periods: 0, expected: DefaultForecastPeriods},
		"six months":      {periods: 6, expected: 6},
	}

	for name, tc := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Forecast(td, tc.periods)
			require.NoError(t, err)
			require.Equal(t, tc.expected, res.Len())
			assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), res.T[0])
			for i := 1; i < res.Len(); i++ {
				assert.Equal(t, res.T[i-1].AddDate(0, 1, 0), res.T[i])
			}
			for i := range res.YHat {
				assert.LessOrEqual(t, res.YHatLower[i], res.YHat[i])
				assert.GreaterOrEqual(t, res.YHatUpper[i], res.YHat[i])
			}
			// the trend keeps rising about 3 per month
			assert.InDelta(t, y[len(y)-1]+3, res.YHat[0], 8)
		})
	}

	_, err = Forecast(nil, 3)
	assert.Error(t, err)
}
