package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// relative size of a diagonal entry of R below which a column is treated as dependent
const rankTolerance = 1e-10

type OLSOptions struct {
	FitIntercept bool
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

// Validate fills in defaults for nil OLS options
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		o = NewDefaultOLSOptions()
	}
	return o, nil
}

// OLSRegression solves ordinary least squares through a QR factorization of the design matrix.
// Rank deficient designs are rejected instead of returning an arbitrary solution.
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	if ym, _ := y.Dims(); ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	if o.opt.FitIntercept {
		x = withOnes(x)
	}
	_, n := x.Dims()
	if m < n {
		return fmt.Errorf("got %d observations for %d features, %w", m, n, ErrUnderdetermined)
	}

	var qr mat.QR
	qr.Factorize(x)
	if col, ok := dependentColumn(&qr, n); ok {
		return fmt.Errorf("column %d is linearly dependent, %w", col, ErrRankDeficient)
	}

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return fmt.Errorf("unable to solve least squares, %w", err)
	}
	c := mat.Col(nil, 0, &beta)

	o.intercept = 0
	if o.opt.FitIntercept {
		o.intercept = c[0]
		c = c[1:]
	}
	o.coef = c
	return nil
}

// dependentColumn reports the first column whose R diagonal is negligible against the largest
func dependentColumn(qr *mat.QR, n int) (int, bool) {
	var r mat.Dense
	qr.RTo(&r)

	maxDiag := 0.0
	for i := range n {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(i, i)))
	}
	for i := range n {
		if math.Abs(r.At(i, i)) <= rankTolerance*maxDiag {
			return i, true
		}
	}
	return 0, false
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return predict(x, o.intercept, o.coef, o.opt.FitIntercept)
}

func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	return score(o, x, y)
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}
