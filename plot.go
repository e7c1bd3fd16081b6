package costcast

import (
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-costcast/forecast"
	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// echarts skips points with this value
const missingValue = "-"

func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data = append(data, opts.LineData{Value: missingValue})
			continue
		}
		data = append(data, opts.LineData{Value: v})
	}
	return data
}

func timeAxis(t []time.Time) []string {
	layout := time.DateOnly
	for _, tPnt := range t {
		if !tPnt.Equal(tPnt.Truncate(24 * time.Hour)) {
			layout = time.DateTime
			break
		}
	}
	res := make([]string, len(t))
	for i, tPnt := range t {
		res[i] = tPnt.UTC().Format(layout)
	}
	return res
}

func newLine(title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	return line
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that much have the same length as the input time slice.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := newLine(title)
	line.SetXAxis(timeAxis(t))
	for i, series := range seriesName {
		if i >= len(y) {
			break
		}
		line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// joinResults concatenates the time and value columns of several results in order
func joinResults(results ...*forecast.Result) (t []time.Time, cols map[string][]float64) {
	cols = make(map[string][]float64)
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, res := range results {
		for _, name := range res.Columns() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		n := res.Len()
		t = append(t, res.T...)
		for _, name := range names {
			vals, exists := res.Column(name)
			if !exists || len(vals) != n {
				vals = nanSlice(n)
			}
			cols[name] = append(cols[name], vals...)
		}
	}
	return t, cols
}

// alignActual returns the observed values at the times of t and NaN where nothing was observed
func alignActual(t []time.Time, actual ...*timedataset.TimeDataset) []float64 {
	byTime := make(map[int64]float64)
	for _, td := range actual {
		if td == nil {
			continue
		}
		for i, tPnt := range td.T {
			byTime[tPnt.UnixNano()] = td.Y[i]
		}
	}
	res := make([]float64, len(t))
	for i, tPnt := range t {
		v, exists := byTime[tPnt.UnixNano()]
		if !exists {
			v = math.NaN()
		}
		res[i] = v
	}
	return res
}

func nanSlice(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	return res
}

// LineForecaster generates an echart line chart of the observed values along with the forecast
// and its bounds over every given result
func LineForecaster(actual []*timedataset.TimeDataset, results ...*forecast.Result) *charts.Line {
	t, cols := joinResults(results...)

	line := newLine("Forecast Fit")
	line.SetXAxis(timeAxis(t)).
		AddSeries("Actual", lineData(alignActual(t, actual...))).
		AddSeries("Forecast", lineData(cols[forecast.ColYHat])).
		AddSeries("Upper", lineData(cols[forecast.ColYHatUpper]),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dotted"})).
		AddSeries("Lower", lineData(cols[forecast.ColYHatLower]),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dotted"}))
	return line
}

// LineComponents generates an echart line chart of the trend, every seasonality and the
// holiday total over the given results
func LineComponents(results ...*forecast.Result) *charts.Line {
	t, cols := joinResults(results...)

	names := []string{forecast.ColTrend}
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, comp := range res.Seasonalities {
			if !containsName(names, comp.Name) {
				names = append(names, comp.Name)
			}
		}
		if len(res.HolidayTerms) > 0 && !containsName(names, forecast.ColHolidays) {
			names = append(names, forecast.ColHolidays)
		}
	}

	y := make([][]float64, 0, len(names))
	for _, name := range names {
		y = append(y, cols[name])
	}
	return LineTSeries("Forecast Components", names, t, y)
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// LineMaterial generates the dashboard chart of a single series with an optional dashed forecast
// and optional forecast bounds
func LineMaterial(name string, history *timedataset.TimeDataset, fc *forecast.Result, band bool) *charts.Line {
	var histT []time.Time
	var histY []float64
	if history != nil {
		histT = history.T
		histY = history.Y
	}
	t := append(append([]time.Time{}, histT...), resultTimes(fc)...)

	pad := nanSlice(len(t) - len(histT))
	line := newLine(name)
	line.SetXAxis(timeAxis(t)).
		AddSeries(name, lineData(append(append([]float64{}, histY...), pad...)))
	if fc == nil || fc.Len() == 0 {
		return line
	}

	lead := nanSlice(len(histT))
	// connect the forecast to the last observation
	if len(histY) > 0 {
		lead[len(lead)-1] = histY[len(histY)-1]
	}
	line.AddSeries(name+" forecast", lineData(append(lead, fc.YHat...)),
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	if band {
		line.AddSeries("upper", lineData(append(nanSlice(len(histT)), fc.YHatUpper...)),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dotted"}))
		line.AddSeries("lower", lineData(append(nanSlice(len(histT)), fc.YHatLower...)),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dotted"}))
	}
	return line
}

func resultTimes(res *forecast.Result) []time.Time {
	if res == nil {
		return nil
	}
	return res.T
}

// PlotOpts sets the horizon to forecast out. By default will use 10% of the training size at the
// configured or inferred frequency. Test adds held-out observations to the fit chart.
type PlotOpts struct {
	HorizonCnt int
	Test       *timedataset.TimeDataset
}

// PlotFit uses the Apache Echarts library to generate an html page showing the resulting fit,
// model components, and fit residual
func (f *Forecaster) PlotFit(w io.Writer, opt *PlotOpts) error {
	td := f.TrainingData()
	if td == nil || td.Len() == 0 {
		return ErrUnfitForecaster
	}
	if td.Len() < 2 {
		return ErrCannotInferInterval
	}

	horizonCnt := td.Len() / 10
	var test *timedataset.TimeDataset
	if opt != nil {
		horizonCnt = opt.HorizonCnt
		test = opt.Test
	}
	if horizonCnt < 1 {
		horizonCnt = 1
	}

	horizon, err := f.FutureTimes(horizonCnt)
	if err != nil {
		return err
	}
	forecastRes, err := f.Predict(horizon)
	if err != nil {
		return err
	}

	t := append(append([]time.Time{}, td.T...), horizon...)
	residuals := append(append([]float64{}, f.Residuals()...), nanSlice(len(horizon))...)

	page := components.NewPage()
	page.AddCharts(
		LineForecaster([]*timedataset.TimeDataset{td, test}, f.fitResults, forecastRes),
		LineComponents(f.fitResults, forecastRes),
		LineTSeries(
			"Forecast Residual",
			[]string{"Residual"},
			t,
			[][]float64{residuals},
		),
	)
	return page.Render(w)
}

// Plot renders the report as a page with the forecast against the observed values, the
// components and the training residual
func (r *Report) Plot(w io.Writer) error {
	if r == nil || r.Fit == nil {
		return ErrUnfitForecaster
	}
	residual := make([]float64, r.Fit.Len())
	for i := range residual {
		residual[i] = r.Train.Y[i] - r.Fit.YHat[i]
	}

	page := components.NewPage()
	page.AddCharts(
		LineForecaster([]*timedataset.TimeDataset{r.Train, r.Test}, r.Fit, r.Forecast),
		LineComponents(r.Fit, r.Forecast),
		LineTSeries("Forecast Residual", []string{"Residual"}, r.Fit.T, [][]float64{residual}),
	)
	return page.Render(w)
}
