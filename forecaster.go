// Package costcast runs the forecasting pipeline: normalize the input frame, split it by a
// cutoff, fit the forecast on the training rows and predict the held-out rows and a horizon.
package costcast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-costcast/forecast"
	"github.com/aouyang1/go-costcast/frame"
	"github.com/aouyang1/go-costcast/stats"
	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrEmptyTrainingSet    = errors.New("no training rows before the cutoff")
	ErrEmptyTimeDataset    = errors.New("no timedataset or uninitialized")
	ErrNoOptionsInModel    = errors.New("no options set in model")
	ErrCannotInferInterval = errors.New("cannot infer interval from training data time")
	ErrUnfitForecaster     = errors.New("forecaster has not been fit")
)

// Forecaster fits a forecast model with optional outlier passes and can be used to generate
// forecasts
type Forecaster struct {
	opt *Options

	series *forecast.Forecast

	fitTrainingData *timedataset.TimeDataset
	fitResults      *forecast.Result
	residual        []float64
	outliers        []time.Time
}

// New creates a new instance of a Forecaster using the provided options. If no options are provided
// a default is used.
func New(opt *Options) (*Forecaster, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	series, err := forecast.New(opt.ForecastOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast series, %w", err)
	}
	return &Forecaster{
		opt:    opt,
		series: series,
	}, nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be generated
// from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt := model.Options
	opt.ForecastOptions = model.Series.Options
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	series, err := forecast.NewFromModel(model.Series)
	if err != nil {
		return nil, fmt.Errorf("unable to load from series model, %w", err)
	}
	return &Forecaster{
		opt:    opt,
		series: series,
	}, nil
}

// Fit trains the forecast on the dataset. When outlier options are set, residual outliers are
// masked and the forecast refit until no outliers remain or the passes run out.
func (f *Forecaster) Fit(td *timedataset.TimeDataset) error {
	if td == nil || td.Len() == 0 {
		return ErrEmptyTimeDataset
	}
	f.fitTrainingData = td.Copy()

	outlierIdx, err := f.fitSeriesWithOutliers(td.Copy())
	if err != nil {
		return err
	}
	f.outliers = make([]time.Time, 0, len(outlierIdx))
	for _, idx := range outlierIdx {
		f.outliers = append(f.outliers, td.T[idx])
	}

	f.fitResults, err = f.series.PredictWithBounds(td.T, td.Cap, td.Floor)
	if err != nil {
		return fmt.Errorf("unable to get predicted values from training set, %w", err)
	}
	f.residual = make([]float64, td.Len())
	floats.SubTo(f.residual, td.Y, f.fitResults.YHat)
	return nil
}

// fitSeriesWithOutliers returns the sorted indices of every observation masked as an outlier
func (f *Forecaster) fitSeriesWithOutliers(td *timedataset.TimeDataset) ([]int, error) {
	numPasses := 0
	if f.opt.OutlierOptions != nil {
		numPasses = f.opt.OutlierOptions.NumPasses
	}

	var masked []int
	for i := 0; i <= numPasses; i++ {
		if err := f.series.Fit(td); err != nil {
			return nil, fmt.Errorf("unable to forecast series, %w", err)
		}

		// break out if no outlier options provided or on the last pass
		if f.opt.OutlierOptions == nil || i == numPasses {
			break
		}

		outlierIdxs := stats.DetectOutliers(
			f.series.Residuals(),
			f.opt.OutlierOptions.LowerPercentile,
			f.opt.OutlierOptions.UpperPercentile,
			f.opt.OutlierOptions.TukeyFactor,
		)

		// no more outliers detected with outlier options so break early
		if len(outlierIdxs) == 0 {
			break
		}
		slog.Debug("masking residual outliers", "pass", i, "outliers", len(outlierIdxs))
		for _, idx := range outlierIdxs {
			td.Y[idx] = math.NaN()
		}
		masked = append(masked, outlierIdxs...)
	}
	sort.Ints(masked)
	return masked, nil
}

// Predict takes in any set of time samples and generates a forecast with bounds and components
func (f *Forecaster) Predict(t []time.Time) (*forecast.Result, error) {
	return f.PredictWithBounds(t, nil, nil)
}

// PredictWithBounds predicts with optional per time cap and floor for logistic growth
func (f *Forecaster) PredictWithBounds(t []time.Time, capacity, floor []float64) (*forecast.Result, error) {
	res, err := f.series.PredictWithBounds(t, capacity, floor)
	if err != nil {
		return nil, fmt.Errorf("unable to predict series forecasts, %w", err)
	}
	return res, nil
}

// Report holds every output of a pipeline run
type Report struct {
	Train *timedataset.TimeDataset `json:"train"`
	Test  *timedataset.TimeDataset `json:"test,omitempty"`

	// Fit is the prediction over the training rows
	Fit *forecast.Result `json:"fit"`

	// Forecast covers the held-out rows followed by the horizon
	Forecast *forecast.Result `json:"forecast"`

	// HoldoutScores compares the forecast with the held-out rows when there are any
	HoldoutScores *forecast.Scores `json:"holdout_scores,omitempty"`

	Outliers  []time.Time `json:"outliers,omitempty"`
	Frequency string      `json:"frequency,omitempty"`
}

// Run normalizes the frame, splits it by the cutoff, fits the training rows and forecasts the
// held-out rows plus the configured horizon
func (f *Forecaster) Run(df dataframe.DataFrame) (*Report, error) {
	normalized, err := frame.Normalize(df, f.opt.Columns)
	if err != nil {
		return nil, fmt.Errorf("unable to normalize input, %w", err)
	}
	td, err := frame.ToDataset(normalized)
	if err != nil {
		return nil, fmt.Errorf("unable to convert input, %w", err)
	}
	return f.RunDataset(td)
}

// RunDataset runs the pipeline on an already normalized dataset
func (f *Forecaster) RunDataset(td *timedataset.TimeDataset) (*Report, error) {
	if td == nil || td.Len() == 0 {
		return nil, ErrEmptyTimeDataset
	}

	train, test := td, (*timedataset.TimeDataset)(nil)
	if !f.opt.Cutoff.IsZero() {
		train, test = td.Split(f.opt.Cutoff)
	}
	if train == nil || train.Len() == 0 {
		return nil, fmt.Errorf("cutoff %s, %w", f.opt.Cutoff.Format(time.RFC3339), ErrEmptyTrainingSet)
	}

	if err := f.Fit(train); err != nil {
		return nil, err
	}

	report := &Report{
		Train:    train,
		Test:     test,
		Fit:      f.fitResults,
		Outliers: f.outliers,
	}

	var future []time.Time
	if f.opt.Horizon > 0 {
		freq, err := f.frequency(td.T)
		if err != nil {
			return nil, err
		}
		report.Frequency = freq.String()
		future = timedataset.FutureTimes(td.T[len(td.T)-1], f.opt.Horizon, freq)
	}

	var predT []time.Time
	var predCap, predFloor []float64
	if test != nil {
		predT = append(predT, test.T...)
		predCap = extendBounds(test.Cap, len(future))
		predFloor = extendBounds(test.Floor, len(future))
	}
	predT = append(predT, future...)

	res, err := f.PredictWithBounds(predT, predCap, predFloor)
	if err != nil {
		return nil, err
	}
	report.Forecast = res

	if test != nil {
		scores, err := forecast.NewScores(res.YHat[:test.Len()], test.Y)
		if err != nil {
			return nil, fmt.Errorf("unable to score held-out rows, %w", err)
		}
		report.HoldoutScores = scores
	}

	slog.Info("forecast run complete",
		"train", train.Len(),
		"test", test.Len(),
		"horizon", len(future),
		"outliers", len(f.outliers),
	)
	return report, nil
}

// extendBounds pads held-out bounds with NaNs for the horizon so the last training bound is used
func extendBounds(bounds []float64, n int) []float64 {
	if bounds == nil {
		return nil
	}
	res := make([]float64, len(bounds), len(bounds)+n)
	copy(res, bounds)
	for i := 0; i < n; i++ {
		res = append(res, math.NaN())
	}
	return res
}

func (f *Forecaster) frequency(t []time.Time) (timedataset.Frequency, error) {
	if f.opt.Frequency != "" {
		return timedataset.ParseFrequency(f.opt.Frequency)
	}
	freq, err := timedataset.TimeSlice(t).InferFrequency()
	if err != nil {
		return timedataset.Frequency{}, fmt.Errorf("%w, %w", ErrCannotInferInterval, err)
	}
	return freq, nil
}

// FutureTimes returns n times after the last training time at the configured or inferred
// frequency
func (f *Forecaster) FutureTimes(n int) ([]time.Time, error) {
	td := f.TrainingData()
	if td == nil || td.Len() == 0 {
		return nil, ErrUnfitForecaster
	}
	freq, err := f.frequency(td.T)
	if err != nil {
		return nil, err
	}
	return timedataset.FutureTimes(td.T[len(td.T)-1], n, freq), nil
}

// Residuals returns the difference between the training data and the final fit. Masked outliers
// keep their residual.
func (f *Forecaster) Residuals() []float64 {
	return f.residual
}

// Outliers returns the times of the observations masked during fitting
func (f *Forecaster) Outliers() []time.Time {
	return f.outliers
}

// SeriesCoefficients returns all coefficient weight associated with the component label string
func (f *Forecaster) SeriesCoefficients() (map[string]float64, error) {
	return f.series.Coefficients()
}

// SeriesModelEq returns a string representation of the fit series model
func (f *Forecaster) SeriesModelEq() (string, error) {
	return f.series.ModelEq()
}

// Scores returns the fit scores of the series over the training rows that were not masked
func (f *Forecaster) Scores() forecast.Scores {
	return f.series.Scores()
}

// Model generates a serializeable representation of the pipeline options and series model. This
// can be used to initialize a new Forecaster for immediate predictions skipping the training step.
func (f *Forecaster) Model() (Model, error) {
	seriesModel, err := f.series.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch series model, %w", err)
	}
	return Model{
		Options: f.opt,
		Series:  seriesModel,
	}, nil
}

// TrainingData returns the training data used to fit the current forecaster model
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	return f.fitTrainingData
}

// FitResults returns the prediction over the training data
func (f *Forecaster) FitResults() *forecast.Result {
	return f.fitResults
}
