package forecast

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ridge penalty used for the noise estimate when the unregularized fit is not identifiable
const noiseRidge = 1e-3

// minNoiseVariance keeps penalties positive on noiseless data
const minNoiseVariance = 1e-10

// noisePasses bounds how many times the noise estimate is refined from the penalized fit
const noisePasses = 5

func (f *Forecast) solve(x *feature.Set, y, l1, l2, warm []float64) ([]float64, error) {
	if x.Len() == 0 {
		return nil, nil
	}
	if warm != nil && len(warm) != x.Len() {
		warm = nil
	}
	lassoOpt := &models.LassoOptions{
		WarmStartBeta: warm,
		L1:            l1,
		L2:            l2,
		Iterations:    f.opt.Iterations,
		Tolerance:     f.opt.Tolerance,
		FitIntercept:  false,
	}
	model, err := models.NewLassoRegression(lassoOpt)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize regression, %w", err)
	}
	if err := model.Fit(x.Matrix(false), mat.NewDense(len(y), 1, y)); err != nil {
		return nil, fmt.Errorf("unable to fit regression, %w", err)
	}
	if model.Iterations() >= f.opt.Iterations && f.opt.Iterations > 0 {
		slog.Debug("coordinate descent reached the iteration limit", "iterations", model.Iterations(), "features", x.Len())
	}
	return model.Coef(), nil
}

// solveRefined fits x with penalties built from sigma2 and re-estimates the noise from the
// residual of each penalized fit. The starting estimate comes from a fit without changepoints
// and overstates the noise whenever the trend bends, so the estimate is only ever lowered.
// Returns the coefficients and the noise variance they were fit with.
func (f *Forecast) solveRefined(x *feature.Set, y []float64, sigma2 float64, warm []float64) ([]float64, float64, error) {
	labels := x.Labels().Labels()
	var coef []float64
	for pass := 0; pass < noisePasses; pass++ {
		l1, l2 := f.penalties(labels, sigma2)
		var err error
		coef, err = f.solve(x, y, l1, l2, warm)
		if err != nil {
			return nil, 0, err
		}
		warm = coef

		next := penalizedNoise(x, y, coef)
		if next >= sigma2*(1-noiseSettle) || pass == noisePasses-1 {
			break
		}
		sigma2 = next
	}
	return coef, sigma2, nil
}

// noiseSettle is the relative drop in the noise estimate below which refinement stops
const noiseSettle = 0.01

// penalizedNoise is the residual variance of a fit with one degree of freedom per non-zero
// coefficient
func penalizedNoise(x *feature.Set, y, coef []float64) float64 {
	m := len(y)
	resid := make([]float64, m)
	floats.SubTo(resid, y, weightedSum(x, coef, m))

	dof := m
	for _, c := range coef {
		if c != 0 {
			dof--
		}
	}
	if dof < 1 {
		dof = m
	}
	return math.Max(floats.Dot(resid, resid)/float64(dof), minNoiseVariance)
}

// noiseVariance estimates the observation noise with a fit that is free of changepoints. The fit
// is ordinary least squares when the design is identifiable and a lightly regularized ridge
// otherwise. The returned coefficients line up with the labels of x.
func (f *Forecast) noiseVariance(x *feature.Set, y []float64) (float64, []float64, error) {
	m := len(y)
	if x.Len() == 0 {
		return math.Max(floats.Dot(y, y)/float64(m), minNoiseVariance), nil, nil
	}

	xMx := x.Matrix(false)
	yMx := mat.NewDense(m, 1, y)

	var coef []float64
	ols, err := models.NewOLSRegression(&models.OLSOptions{FitIntercept: false})
	if err != nil {
		return 0, nil, err
	}
	if err := ols.Fit(xMx, yMx); err == nil {
		coef = ols.Coef()
		if !allFinite(coef) {
			coef = nil
		}
	} else {
		slog.Debug("falling back to ridge for noise estimate", "error", err.Error())
	}

	if coef == nil {
		l2 := make([]float64, x.Len())
		floats.AddConst(noiseRidge, l2)
		l1 := make([]float64, x.Len())
		coef, err = f.solve(x, y, l1, l2, nil)
		if err != nil {
			return 0, nil, err
		}
	}

	pred := weightedSum(x, coef, m)
	resid := make([]float64, m)
	floats.SubTo(resid, y, pred)

	dof := m - x.Len()
	if dof < 1 {
		dof = m
	}
	sigma2 := floats.Dot(resid, resid) / float64(dof)
	return math.Max(sigma2, minNoiseVariance), coef, nil
}

// weightedSum returns sum_j coef_j * x_j over the features of x in label order
func weightedSum(x *feature.Set, coef []float64, n int) []float64 {
	res := make([]float64, n)
	for j, label := range x.Labels().Labels() {
		if j >= len(coef) || coef[j] == 0 {
			continue
		}
		vals, _ := x.Get(label)
		floats.AddScaled(res, coef[j], vals)
	}
	return res
}

func allFinite(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
