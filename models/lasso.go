package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultLambda     = 1.0
	DefaultIterations = 1000
	DefaultTolerance  = 1e-4
)

var (
	ErrNegativeLambda     = errors.New("negative lambda")
	ErrNegativeIterations = errors.New("negative iterations")
	ErrNegativeTolerance  = errors.New("negative tolerance")
	ErrNegativePenalty    = errors.New("negative per coefficient penalty")
	ErrPenaltyLenMismatch = errors.New("per coefficient penalties do not match the number of features")
	ErrWarmStartBetaSize  = errors.New("warm start beta does not have the same number of coefficients as training features")
)

// LassoOptions represents input options to run the Lasso Regression
type LassoOptions struct {
	// WarmStartBeta is used to prime the coordinate descent to reduce the training time if a previous
	// fit has been performed. Includes the intercept as the first value when FitIntercept is set.
	WarmStartBeta []float64

	// Lambda represents the L1 multiplier, controlling the regularization. Must be a non-negative. 0.0 results in converging
	// to Ordinary Least Squares (OLS). Ignored for coefficients covered by L1.
	Lambda float64

	// L1 optionally sets the L1 penalty per feature column. Must match the number of columns of the
	// design matrix, not counting the intercept.
	L1 []float64

	// L2 optionally sets the ridge penalty per feature column. Must match the number of columns of the
	// design matrix, not counting the intercept.
	L2 []float64

	// Iterations is the maximum number of times the fit loops through training all coefficients.
	Iterations int

	// Tolerance is the smallest coefficient change on each iteration relative to the largest coefficient
	// to determine when to stop iterating.
	Tolerance float64

	// FitIntercept adds a constant 1.0 feature as the first column if set to true. The intercept is
	// never penalized.
	FitIntercept bool
}

// Validate runs basic validation on Lasso options
func (l *LassoOptions) Validate() (*LassoOptions, error) {
	if l == nil {
		l = NewDefaultLassoOptions()
	}

	if l.Lambda < 0 {
		return nil, ErrNegativeLambda
	}
	if l.Iterations < 0 {
		return nil, ErrNegativeIterations
	}
	if l.Tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	for _, penalties := range [][]float64{l.L1, l.L2} {
		for i, p := range penalties {
			if p < 0 || math.IsNaN(p) {
				return nil, fmt.Errorf("penalty at %d is %f, %w", i, p, ErrNegativePenalty)
			}
		}
	}
	return l, nil
}

// NewDefaultLassoOptions returns a default set of Lasso Regression options
func NewDefaultLassoOptions() *LassoOptions {
	return &LassoOptions{
		Lambda:        DefaultLambda,
		Iterations:    DefaultIterations,
		Tolerance:     DefaultTolerance,
		WarmStartBeta: nil,
		FitIntercept:  true,
	}
}

// LassoRegression computes the elastic net regression using coordinate descent. With no
// per coefficient penalties this is the lasso and lambda = 0 converges to OLS.
type LassoRegression struct {
	opt *LassoOptions

	xcols [][]float64
	xdot  []float64
	l1    []float64
	l2    []float64
	yArr  []float64

	iterations int
	coef       []float64
	intercept  float64
}

// NewLassoRegression initializes a Lasso model ready for fitting
func NewLassoRegression(opt *LassoOptions) (*LassoRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &LassoRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data
func (l *LassoRegression) Fit(x, y mat.Matrix) error {
	x, y, err := l.fitValidate(x, y)
	if err != nil {
		return err
	}
	m, n := x.Dims()

	beta := make([]float64, n)
	if l.opt.WarmStartBeta != nil {
		copy(beta, l.opt.WarmStartBeta)
	}

	l.precompute(n, m, x, y)

	// residual always holds y - X*beta
	residual := make([]float64, m)
	copy(residual, l.yArr)
	for j := 0; j < n; j++ {
		if beta[j] != 0 {
			floats.AddScaled(residual, -beta[j], l.xcols[j])
		}
	}

	l.iterations = 0
	for i := 0; i < l.opt.Iterations; i++ {
		l.iterations++
		maxCoef := 0.0
		maxUpdate := 0.0

		for j := 0; j < n; j++ {
			if l.xdot[j] == 0 {
				beta[j] = 0
				continue
			}
			betaCurr := beta[j]

			rho := floats.Dot(l.xcols[j], residual) + l.xdot[j]*betaCurr
			betaNext := SoftThreshold(rho, l.l1[j]) / (l.xdot[j] + l.l2[j])

			if diff := betaNext - betaCurr; diff != 0 {
				floats.AddScaled(residual, -diff, l.xcols[j])
			}
			maxCoef = math.Max(maxCoef, math.Abs(betaNext))
			maxUpdate = math.Max(maxUpdate, math.Abs(betaNext-betaCurr))
			beta[j] = betaNext
		}

		// break early if we've achieved the desired tolerance
		if maxUpdate <= l.opt.Tolerance*maxCoef {
			break
		}
	}

	if l.opt.FitIntercept {
		l.intercept = beta[0]
		l.coef = beta[1:]
		return nil
	}
	l.coef = beta
	return nil
}

func (l *LassoRegression) fitValidate(x, y mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	if l.opt == nil {
		return nil, nil, ErrNoOptions
	}
	if x == nil {
		return nil, nil, ErrNoTrainingMatrix
	}
	if y == nil {
		return nil, nil, ErrNoTargetMatrix
	}

	m, n := x.Dims()

	ym, _ := y.Dims()
	if ym != m {
		return nil, nil, fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	if l.opt.L1 != nil && len(l.opt.L1) != n {
		return nil, nil, fmt.Errorf("got %d l1 penalties for %d features, %w", len(l.opt.L1), n, ErrPenaltyLenMismatch)
	}
	if l.opt.L2 != nil && len(l.opt.L2) != n {
		return nil, nil, fmt.Errorf("got %d l2 penalties for %d features, %w", len(l.opt.L2), n, ErrPenaltyLenMismatch)
	}

	if l.opt.FitIntercept {
		x = withOnes(x)
		_, n = x.Dims()
	}

	if l.opt.WarmStartBeta != nil && len(l.opt.WarmStartBeta) != n {
		return nil, nil, fmt.Errorf("warm start beta has %d features instead of %d, %w", len(l.opt.WarmStartBeta), n, ErrWarmStartBetaSize)
	}
	return x, y, nil
}

func (l *LassoRegression) precompute(n, m int, x, y mat.Matrix) {
	l.xcols = make([][]float64, n)
	l.xdot = make([]float64, n)
	l.l1 = make([]float64, n)
	l.l2 = make([]float64, n)

	offset := 0
	if l.opt.FitIntercept {
		offset = 1
	}
	for j := 0; j < n; j++ {
		xj := mat.Col(nil, j, x)
		l.xcols[j] = xj
		l.xdot[j] = floats.Dot(xj, xj)

		if j < offset {
			continue
		}
		l.l1[j] = l.opt.Lambda
		if l.opt.L1 != nil {
			l.l1[j] = l.opt.L1[j-offset]
		}
		if l.opt.L2 != nil {
			l.l2[j] = l.opt.L2[j-offset]
		}
	}

	l.yArr = mat.Col(nil, 0, y)
	if len(l.yArr) < m {
		l.yArr = append(l.yArr, make([]float64, m-len(l.yArr))...)
	}
}

// Predict using the Lasso model
func (l *LassoRegression) Predict(x mat.Matrix) ([]float64, error) {
	if l.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return predict(x, l.intercept, l.coef, l.opt.FitIntercept)
}

// Score computes the coefficient of determination of the prediction
func (l *LassoRegression) Score(x, y mat.Matrix) (float64, error) {
	if l.opt == nil {
		return 0.0, ErrNoOptions
	}
	return score(l, x, y)
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (l *LassoRegression) Intercept() float64 {
	return l.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (l *LassoRegression) Coef() []float64 {
	c := make([]float64, len(l.coef))
	copy(c, l.coef)
	return c
}

// Iterations returns the number of coordinate descent passes of the last fit
func (l *LassoRegression) Iterations() int {
	return l.iterations
}

// SoftThreshold returns 0.0 if the value is less than or equal to the gamma input
func SoftThreshold(x, gamma float64) float64 {
	res := math.Max(0, math.Abs(x)-gamma)
	if math.Signbit(x) {
		return -res
	}
	return res
}

func withOnes(x mat.Matrix) mat.Matrix {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(1, m, ones)

	var xWithOnes mat.Dense
	xWithOnes.Stack(onesMx, x.T())
	return xWithOnes.T()
}

func predict(x mat.Matrix, intercept float64, coef []float64, fitIntercept bool) ([]float64, error) {
	if fitIntercept {
		coef = append([]float64{intercept}, coef...)
		x = withOnes(x)
	}
	n := len(coef)

	_, xn := x.Dims()
	if xn != n {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, n, ErrFeatureLenMismatch)
	}

	coefMx := mat.NewDense(1, n, coef)

	var res mat.Dense
	res.Mul(coefMx, x.T())
	return res.RawRowView(0), nil
}

func score(model Model, x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := model.Predict(x)
	if err != nil {
		return 0.0, err
	}

	ySlice := mat.Col(nil, 0, y)

	r2 := stat.RSquaredFrom(res, ySlice, nil)
	if math.IsNaN(r2) {
		r2 = 1.0
	}
	return r2, nil
}
