package materials

import (
	"fmt"

	"github.com/aouyang1/go-costcast"
	"github.com/aouyang1/go-costcast/forecast"
	"github.com/aouyang1/go-costcast/forecast/options"
	"github.com/aouyang1/go-costcast/timedataset"
)

const DefaultForecastPeriods = 12

// NewForecastOptions returns the pipeline options used for material series. Material costs are
// month start observations so only the yearly seasonality can apply.
func NewForecastOptions(periods int) *costcast.Options {
	opt := costcast.NewDefaultOptions()
	opt.Horizon = periods
	opt.Frequency = timedataset.Monthly.String()
	opt.ForecastOptions.WeeklySeasonality = options.SeasonalityEnabled(false)
	opt.ForecastOptions.DailySeasonality = options.SeasonalityEnabled(false)
	return opt
}

// Forecast fits the series and forecasts the given number of months starting one month after
// the last observation
func Forecast(td *timedataset.TimeDataset, periods int) (*forecast.Result, error) {
	if periods <= 0 {
		periods = DefaultForecastPeriods
	}
	f, err := costcast.New(NewForecastOptions(periods))
	if err != nil {
		return nil, err
	}
	report, err := f.RunDataset(td)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast material, %w", err)
	}
	return report.Forecast, nil
}
