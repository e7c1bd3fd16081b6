// Package forecast fits an additive linear model of a time series made of a piecewise linear or
// logistic trend, Fourier seasonalities and holiday indicators, and predicts it with uncertainty
// intervals.
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/forecast/options"
	"github.com/aouyang1/go-costcast/timedataset"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing nans")
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
	ErrMissingCapacity          = errors.New("logistic growth requires a capacity above the floor on every training row")
)

const (
	// number of alternating refits between trend and terms that depend on it
	refitPasses = 3

	// ratios to capacity are clipped to this distance from 0 and 1 before the logit
	logisticClip = 1e-5
)

// Scaling stores how the training data was normalized before fitting
type Scaling struct {
	// Y is the largest absolute distance of an observation from the floor
	Y float64 `json:"y_scale"`

	// Cap and Floor are the last training bounds used for rows without their own under
	// logistic growth
	Cap   float64 `json:"last_cap,omitempty"`
	Floor float64 `json:"last_floor,omitempty"`

	// Sigma is the standard deviation of the training residual in scaled units
	Sigma float64 `json:"sigma"`
}

// Forecast represents a single forecast model of a time series. This is a linear model using
// coordinate descent with per coefficient penalties derived from the prior scales. The series is
// decomposed into a trend (growth plus changepoints), seasonalities and holidays.
type Forecast struct {
	opt    *options.Options
	scores *Scores // score calculations after training

	// structure resolved at training time
	chpts         []options.Changepoint
	seasonalities []options.SeasonalityConfig
	holidays      []options.HolidayGroup

	trainStartTime time.Time
	trainEndTime   time.Time
	scale          Scaling

	// model coefficients in scaled units
	fLabels *feature.Labels
	coef    []float64

	residual []float64
	fit      *Result
	trained  bool
}

// New creates a new forecast instance with the given options. If none are provided, a default
// is used
func New(opt *options.Options) (*Forecast, error) {
	if opt == nil {
		opt = options.NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return &Forecast{opt: opt}, nil
}

func (f *Forecast) logistic() bool {
	return f.opt.Growth == options.GrowthLogistic
}

// Fit trains the forecast on the dataset. Observations with NaN values are ignored for training
// but still receive a fitted value. Logistic growth requires a capacity on every usable row.
func (f *Forecast) Fit(td *timedataset.TimeDataset) error {
	if f == nil {
		return ErrUninitializedForecast
	}
	if td == nil {
		return ErrInsufficientTrainingData
	}
	if _, err := timedataset.NewUnivariateDataset(td.T, td.Y); err != nil {
		return fmt.Errorf("invalid training data, %w", err)
	}
	if _, err := td.Copy().WithBounds(td.Cap, td.Floor); err != nil {
		return fmt.Errorf("invalid training bounds, %w", err)
	}

	train := td.DropNan()
	n := train.Len()
	if n < 2 {
		return fmt.Errorf("%d usable observations, %w", n, ErrInsufficientTrainingData)
	}

	floor := make([]float64, n)
	capacity := make([]float64, n)
	if f.logistic() {
		if train.Cap == nil {
			return fmt.Errorf("no cap on training data, %w", ErrMissingCapacity)
		}
		if train.Floor != nil {
			for i, v := range train.Floor {
				if !math.IsNaN(v) {
					floor[i] = v
				}
			}
		}
		for i, v := range train.Cap {
			if math.IsNaN(v) || v <= floor[i] {
				return fmt.Errorf("cap of %f at %s, %w", v, train.T[i], ErrMissingCapacity)
			}
			capacity[i] = v
		}
	}

	f.trainStartTime = train.T[0]
	f.trainEndTime = train.T[n-1]

	yScale := 0.0
	for i, v := range train.Y {
		yScale = math.Max(yScale, math.Abs(v-floor[i]))
	}
	if yScale == 0 {
		yScale = 1.0
	}
	f.scale = Scaling{Y: yScale}

	ys := make([]float64, n)
	for i, v := range train.Y {
		ys[i] = (v - floor[i]) / yScale
	}

	var err error
	f.chpts = options.FilterChangepoints(f.opt.ResolveChangepoints(train.T), f.trainStartTime, f.trainEndTime)
	f.seasonalities, err = f.opt.ResolveSeasonalities(train.T)
	if err != nil {
		return err
	}
	f.holidays, err = f.opt.ResolveHolidays(f.trainStartTime, f.trainEndTime)
	if err != nil {
		return err
	}

	d := f.generateFeatures(train.T, f.holidays)
	if f.logistic() {
		capS := make([]float64, n)
		for i := range capS {
			capS[i] = (capacity[i] - floor[i]) / yScale
		}
		f.scale.Cap = capacity[n-1]
		f.scale.Floor = floor[n-1]
		err = f.fitLogistic(d, ys, capS)
	} else {
		err = f.fitLinear(d, ys)
	}
	if err != nil {
		return err
	}
	f.trained = true

	slog.Debug("fit forecast",
		"observations", n,
		"changepoints", len(f.chpts),
		"seasonalities", len(f.seasonalities),
		"holidays", len(f.holidays),
		"features", f.fLabels.Len(),
	)

	// use input training to include NaNs
	res, err := f.PredictWithBounds(td.T, td.Cap, td.Floor)
	if err != nil {
		return err
	}
	f.fit = res

	scores, err := NewScores(res.YHat, td.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, len(td.Y))
	floats.SubTo(residual, td.Y, res.YHat)
	f.residual = residual
	return nil
}

// fitLinear fits the trend and seasonal terms jointly. Multiplicative terms are scaled by the
// current trend estimate and refit until the trend settles.
func (f *Forecast) fitLinear(d design, ys []float64) error {
	full := joinSets(d.trend, d.additive, d.multiplicative)
	sigma2, prefitCoef, err := f.noiseVariance(withoutChangepoints(full), ys)
	if err != nil {
		return fmt.Errorf("unable to estimate noise, %w", err)
	}

	prefit := labelCoef(withoutChangepoints(full), prefitCoef)
	warm := make([]float64, 0, full.Len())
	for _, label := range joinSets(d.trend, d.additive).Labels().Labels() {
		warm = append(warm, prefit[label.String()])
	}
	warm = append(warm, make([]float64, d.multiplicative.Len())...)

	trendN := d.trend.Len()
	trendVals := weightedByLabel(d.trend, prefit, len(ys))

	passes := 1
	if d.multiplicative.Len() > 0 {
		passes = refitPasses
	}

	var x *feature.Set
	var coef []float64
	for pass := 0; pass < passes; pass++ {
		x = joinSets(d.trend, d.additive, scaleRows(d.multiplicative, trendVals))
		coef, sigma2, err = f.solveRefined(x, ys, sigma2, warm)
		if err != nil {
			return err
		}
		warm = coef
		trendVals = weightedSum(d.trend, coef[:trendN], len(ys))
	}

	f.fLabels = x.Labels()
	f.coef = coef
	f.scale.Sigma = residualStd(ys, weightedSum(x, coef, len(ys)))
	return nil
}

// fitLogistic alternates between fitting the trend on the logit of the deseasonalized ratio to
// capacity and fitting the seasonal terms on what the trend leaves.
func (f *Forecast) fitLogistic(d design, ys, capS []float64) error {
	n := len(ys)
	seasonal := joinSets(d.additive, d.multiplicative)
	addN := d.additive.Len()

	passes := 1
	if seasonal.Len() > 0 {
		passes = refitPasses
	}

	addVals := make([]float64, n)
	multVals := make([]float64, n)
	trendS := make([]float64, n)
	z := make([]float64, n)

	var trendCoef, seasCoef, warmTrend, warmSeas []float64
	var sigma2Trend, sigma2Seas float64
	var err error
	for pass := 0; pass < passes; pass++ {
		for i := range z {
			denom := 1 + multVals[i]
			if denom <= logisticClip {
				denom = 1
			}
			z[i] = logit((ys[i] - addVals[i]) / denom / capS[i])
		}

		if pass == 0 {
			var prefitCoef []float64
			growth := withoutChangepoints(d.trend)
			sigma2Trend, prefitCoef, err = f.noiseVariance(growth, z)
			if err != nil {
				return fmt.Errorf("unable to estimate trend noise, %w", err)
			}
			prefit := labelCoef(growth, prefitCoef)
			for _, label := range d.trend.Labels().Labels() {
				warmTrend = append(warmTrend, prefit[label.String()])
			}
		}

		trendCoef, sigma2Trend, err = f.solveRefined(d.trend, z, sigma2Trend, warmTrend)
		if err != nil {
			return err
		}
		warmTrend = trendCoef

		eta := weightedSum(d.trend, trendCoef, n)
		for i := range trendS {
			trendS[i] = capS[i] * sigmoid(eta[i])
		}
		if seasonal.Len() == 0 {
			break
		}

		seasX := joinSets(d.additive, scaleRows(d.multiplicative, trendS))
		remainder := make([]float64, n)
		floats.SubTo(remainder, ys, trendS)
		if pass == 0 {
			sigma2Seas, warmSeas, err = f.noiseVariance(seasX, remainder)
			if err != nil {
				return fmt.Errorf("unable to estimate seasonal noise, %w", err)
			}
		}
		seasCoef, sigma2Seas, err = f.solveRefined(seasX, remainder, sigma2Seas, warmSeas)
		if err != nil {
			return err
		}
		warmSeas = seasCoef

		addVals = weightedSum(d.additive, seasCoef[:addN], n)
		multVals = weightedSum(d.multiplicative, seasCoef[addN:], n)
	}

	full := joinSets(d.trend, d.additive, d.multiplicative)
	coef := make([]float64, 0, full.Len())
	coef = append(coef, trendCoef...)
	if seasCoef == nil {
		seasCoef = make([]float64, seasonal.Len())
	}
	coef = append(coef, seasCoef...)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = trendS[i]*(1+multVals[i]) + addVals[i]
	}

	f.fLabels = full.Labels()
	f.coef = coef
	f.scale.Sigma = residualStd(ys, pred)
	return nil
}

// trendValue converts the linear trend predictor into units of y
func (f *Forecast) trendValue(eta, capacity, floor float64) float64 {
	if f.logistic() {
		return floor + (capacity-floor)*sigmoid(eta)
	}
	return eta * f.scale.Y
}

// combine assembles yhat from the trend and the summed components. Under logistic growth the
// multiplicative terms scale the trend above the floor.
func (f *Forecast) combine(trend, floor, mult, add float64) float64 {
	if f.logistic() {
		return floor + (trend-floor)*(1+mult) + add
	}
	return trend*(1+mult) + add
}

// holidayGroups refreshes the dates of the trained holidays over the span of t so country
// holidays keep recurring past the training window. Only holidays known at training are kept.
func (f *Forecast) holidayGroups(t []time.Time) []options.HolidayGroup {
	if f.opt.CountryHolidays == "" || len(t) == 0 {
		return f.holidays
	}
	start, end := f.trainStartTime, f.trainEndTime
	for _, tPnt := range t {
		if tPnt.Before(start) {
			start = tPnt
		}
		if tPnt.After(end) {
			end = tPnt
		}
	}
	groups, err := f.opt.ResolveHolidays(start, end)
	if err != nil {
		slog.Warn("unable to resolve holidays for prediction", "country", f.opt.CountryHolidays, "error", err.Error())
		return f.holidays
	}
	byName := make(map[string]options.HolidayGroup, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}

	res := make([]options.HolidayGroup, 0, len(f.holidays))
	for _, h := range f.holidays {
		if g, exists := byName[h.Name]; exists {
			h.Dates = g.Dates
		}
		res = append(res, h)
	}
	return res
}

// Predict takes a slice of times in any order and produces the forecast for those times given a
// pre-trained model. Logistic growth uses the last training cap and floor.
func (f *Forecast) Predict(t []time.Time) (*Result, error) {
	return f.PredictWithBounds(t, nil, nil)
}

// PredictWithBounds predicts with an optional cap and floor per time. Missing or NaN bounds fall
// back to the last training values. Bounds are ignored under linear growth.
func (f *Forecast) PredictWithBounds(t []time.Time, capacity, floor []float64) (*Result, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}
	if !f.trained {
		return nil, ErrUntrainedForecast
	}
	if capacity != nil && len(capacity) != len(t) {
		return nil, fmt.Errorf("cap has length %d, expected %d, %w", len(capacity), len(t), timedataset.ErrBoundsLenMismatch)
	}
	if floor != nil && len(floor) != len(t) {
		return nil, fmt.Errorf("floor has length %d, expected %d, %w", len(floor), len(t), timedataset.ErrBoundsLenMismatch)
	}

	n := len(t)
	res := newResult(t)
	coefs := f.coefByLabel()

	capY := make([]float64, n)
	floorY := make([]float64, n)
	if f.logistic() {
		for i := 0; i < n; i++ {
			capY[i] = f.scale.Cap
			if capacity != nil && !math.IsNaN(capacity[i]) {
				capY[i] = capacity[i]
			}
			floorY[i] = f.scale.Floor
			if floor != nil && !math.IsNaN(floor[i]) {
				floorY[i] = floor[i]
			}
		}
		res.Cap = capY
		res.Floor = floorY
	}

	eta := weightedByLabel(f.trendFeatures(t), coefs, n)
	for i := 0; i < n; i++ {
		res.Trend[i] = f.trendValue(eta[i], capY[i], floorY[i])
	}

	for _, cfg := range f.seasonalities {
		comp := f.component(cfg.Name, f.opt.IsMultiplicative(cfg.Mode), f.seasonalityFeatures(t, cfg), coefs, n)
		res.addTerm(comp)
		res.Seasonalities = append(res.Seasonalities, comp)
	}

	holidayMult := f.opt.IsMultiplicative("")
	for _, h := range f.holidayGroups(t) {
		comp := f.component(h.Name, holidayMult, f.holidayFeatures(t, h), coefs, n)
		res.addTerm(comp)
		floats.Add(res.Holidays, comp.Values)
		res.HolidayTerms = append(res.HolidayTerms, comp)
	}

	for i := 0; i < n; i++ {
		res.YHat[i] = f.combine(res.Trend[i], floorY[i], res.MultiplicativeTerms[i], res.AdditiveTerms[i])
	}

	f.uncertainty(res, eta, capY, floorY)
	return res, nil
}

func (f *Forecast) component(name string, multiplicative bool, x *feature.Set, coefs map[string]float64, n int) Component {
	vals := weightedByLabel(x, coefs, n)
	mode := options.ModeMultiplicative
	if !multiplicative {
		mode = options.ModeAdditive
		floats.Scale(f.scale.Y, vals)
	}
	return Component{Name: name, Mode: mode, Values: vals}
}

func (f *Forecast) coefByLabel() map[string]float64 {
	res := make(map[string]float64, len(f.coef))
	for i, label := range f.fLabels.Labels() {
		if i < len(f.coef) {
			res[label.String()] = f.coef[i]
		}
	}
	return res
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f == nil {
		return nil
	}
	return f.fLabels.Labels()
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label. Values are in scaled units.
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	labels := f.fLabels.Labels()
	if len(labels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	coef := make(map[string]float64)
	for i := 0; i < len(f.coef); i++ {
		coef[labels[i].String()] = f.coef[i]
	}
	return coef, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ m1x1 + m2x2 + ... skipping zero weights
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}

	coef, err := f.Coefficients()
	if err != nil {
		return "", err
	}

	eq := "y ~"
	first := true
	for _, label := range f.fLabels.Labels() {
		w := coef[label.String()]
		if w == 0 {
			continue
		}
		sep := "+"
		if first {
			sep = " "
			first = false
		}
		eq += fmt.Sprintf("%s%.2f*%s", sep, w, label)
	}
	if first {
		eq += " 0"
	}
	return eq, nil
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() Scores {
	if f == nil || f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// FitResult returns the prediction over the training times
func (f *Forecast) FitResult() *Result {
	if f == nil {
		return nil
	}
	return f.fit
}

// Options returns the options the forecast was created with
func (f *Forecast) Options() *options.Options {
	if f == nil {
		return nil
	}
	return f.opt
}

// Changepoints returns the changepoints used by the trained trend
func (f *Forecast) Changepoints() []options.Changepoint {
	if f == nil {
		return nil
	}
	return f.chpts
}

// Seasonalities returns the seasonalities resolved at training time
func (f *Forecast) Seasonalities() []options.SeasonalityConfig {
	if f == nil {
		return nil
	}
	return f.seasonalities
}

// Holidays returns the holidays resolved at training time
func (f *Forecast) Holidays() []options.HolidayGroup {
	if f == nil {
		return nil
	}
	return f.holidays
}

// TrainingWindow returns the first and last usable training time
func (f *Forecast) TrainingWindow() (time.Time, time.Time) {
	if f == nil {
		return time.Time{}, time.Time{}
	}
	return f.trainStartTime, f.trainEndTime
}

func labelCoef(x *feature.Set, coef []float64) map[string]float64 {
	res := make(map[string]float64, x.Len())
	for i, label := range x.Labels().Labels() {
		if i < len(coef) {
			res[label.String()] = coef[i]
		}
	}
	return res
}

func weightedByLabel(x *feature.Set, coefs map[string]float64, n int) []float64 {
	res := make([]float64, n)
	for _, label := range x.Labels().Labels() {
		w := coefs[label.String()]
		if w == 0 {
			continue
		}
		vals, _ := x.Get(label)
		floats.AddScaled(res, w, vals)
	}
	return res
}

func residualStd(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	ss := 0.0
	for i := range y {
		d := y[i] - pred[i]
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(y)))
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func logit(p float64) float64 {
	p = math.Min(math.Max(p, logisticClip), 1-logisticClip)
	return math.Log(p / (1 - p))
}
