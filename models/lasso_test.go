package models

import (
	"testing"

	mat_ "github.com/aouyang1/go-costcast/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLassoOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *LassoOptions
		err      error
		expected *LassoOptions
	}{
		"nil": {nil, nil, NewDefaultLassoOptions()},
		"valid": {
			&LassoOptions{
				Lambda:     1.0,
				Iterations: 100,
				Tolerance:  1e-5,
			}, nil,
			&LassoOptions{
				Lambda:     1.0,
				Iterations: 100,
				Tolerance:  1e-5,
			},
		},
		"invalid lambda": {
			&LassoOptions{Lambda: -1.0},
			ErrNegativeLambda, nil,
		},
		"invalid iterations": {
			&LassoOptions{Iterations: -1.0},
			ErrNegativeIterations, nil,
		},
		"invalid tolerance": {
			&LassoOptions{Tolerance: -1.0},
			ErrNegativeTolerance, nil,
		},
		"invalid l1 penalty": {
			&LassoOptions{L1: []float64{0, -1}},
			ErrNegativePenalty, nil,
		},
		"invalid l2 penalty": {
			&LassoOptions{L2: []float64{-1}},
			ErrNegativePenalty, nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestLassoRegression(t *testing.T) {
	// y = 2 + 3*x0 + 4*x1
	tol := 1e-5
	desTol := 1e-7
	lambda := 0.0
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *LassoOptions
		intercept float64
		coef      []float64
	}{
		"model intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: func() *LassoOptions {
				opt := NewDefaultLassoOptions()
				opt.Lambda = lambda
				opt.Tolerance = desTol
				opt.Iterations = 10000
				return opt
			}(),
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"model no intercept": {
			x: [][]float64{
				{1, 0, 0},
				{1, 3, 5},
				{1, 9, 20},
				{1, 12, 6},
				{1, 15, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: func() *LassoOptions {
				opt := NewDefaultLassoOptions()
				opt.Lambda = lambda
				opt.Tolerance = desTol
				opt.Iterations = 10000
				opt.FitIntercept = false
				return opt
			}(),
			intercept: 0.0,
			coef:      []float64{2.0, 3.0, 4.0},
		},
		"model constant": {
			x: [][]float64{
				{1},
				{1},
				{1},
				{1},
				{1},
			},
			y: []float64{3, 3, 3, 3, 3},
			opt: func() *LassoOptions {
				opt := NewDefaultLassoOptions()
				opt.Lambda = lambda
				opt.Tolerance = desTol
				opt.FitIntercept = false
				return opt
			}(),
			intercept: 0.0,
			coef:      []float64{3.0},
		},
		"zero penalties match ols": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: func() *LassoOptions {
				opt := NewDefaultLassoOptions()
				opt.Lambda = 100
				opt.L1 = []float64{0, 0}
				opt.L2 = []float64{0, 0}
				opt.Tolerance = desTol
				opt.Iterations = 10000
				return opt
			}(),
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x, err := mat_.NewDenseFromArray(td.x)
			require.Nil(t, err)

			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewLassoRegression(td.opt)
			require.Nil(t, err)

			testModel(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func TestLassoRegressionPenalties(t *testing.T) {
	// y = 1 + 2*x0 with an irrelevant x1
	x, err := mat_.NewDenseFromArray([][]float64{
		{0, 1},
		{1, -1},
		{2, 1},
		{3, -1},
		{4, 1},
		{5, -1},
	})
	require.Nil(t, err)
	y := mat.NewDense(6, 1, []float64{1, 3, 5, 7, 9, 11})

	t.Run("l1 removes a feature", func(t *testing.T) {
		opt := NewDefaultLassoOptions()
		opt.L1 = []float64{0, 1e6}
		opt.Tolerance = 1e-8
		opt.Iterations = 10000
		model, err := NewLassoRegression(opt)
		require.Nil(t, err)
		require.Nil(t, model.Fit(x, y))

		coef := model.Coef()
		assert.InDelta(t, 2.0, coef[0], 1e-4)
		assert.Equal(t, 0.0, coef[1])
		assert.InDelta(t, 1.0, model.Intercept(), 1e-4)
		assert.Greater(t, model.Iterations(), 0)
	})

	t.Run("l2 shrinks toward zero", func(t *testing.T) {
		free, err := NewLassoRegression(&LassoOptions{L1: []float64{0, 0}, Iterations: 10000, Tolerance: 1e-8, FitIntercept: true})
		require.Nil(t, err)
		require.Nil(t, free.Fit(x, y))

		ridge, err := NewLassoRegression(&LassoOptions{L1: []float64{0, 0}, L2: []float64{1000, 0}, Iterations: 10000, Tolerance: 1e-8, FitIntercept: true})
		require.Nil(t, err)
		require.Nil(t, ridge.Fit(x, y))

		assert.Less(t, ridge.Coef()[0], free.Coef()[0])
		assert.Greater(t, ridge.Coef()[0], 0.0)
	})

	t.Run("penalty length mismatch", func(t *testing.T) {
		model, err := NewLassoRegression(&LassoOptions{L1: []float64{0}, Iterations: 10, FitIntercept: true})
		require.Nil(t, err)
		assert.ErrorIs(t, model.Fit(x, y), ErrPenaltyLenMismatch)

		model, err = NewLassoRegression(&LassoOptions{L2: []float64{0, 0, 0}, Iterations: 10, FitIntercept: true})
		require.Nil(t, err)
		assert.ErrorIs(t, model.Fit(x, y), ErrPenaltyLenMismatch)
	})

	t.Run("all zero column", func(t *testing.T) {
		xz, err := mat_.NewDenseFromArray([][]float64{{0, 0}, {1, 0}, {2, 0}})
		require.Nil(t, err)
		yz := mat.NewDense(3, 1, []float64{1, 2, 3})

		model, err := NewLassoRegression(&LassoOptions{Iterations: 10000, Tolerance: 1e-8, FitIntercept: true})
		require.Nil(t, err)
		require.Nil(t, model.Fit(xz, yz))
		assert.InDeltaSlice(t, []float64{1, 0}, model.Coef(), 1e-4)
	})
}

func TestLassoRegressionErrors(t *testing.T) {
	model, err := NewLassoRegression(nil)
	require.Nil(t, err)

	x := mat.NewDense(2, 1, []float64{1, 2})
	assert.ErrorIs(t, model.Fit(nil, x), ErrNoTrainingMatrix)
	assert.ErrorIs(t, model.Fit(x, nil), ErrNoTargetMatrix)
	assert.ErrorIs(t, model.Fit(x, mat.NewDense(3, 1, []float64{1, 2, 3})), ErrTargetLenMismatch)

	_, err = model.Predict(nil)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)

	require.Nil(t, model.Fit(x, x))
	_, err = model.Predict(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	warm, err := NewLassoRegression(&LassoOptions{WarmStartBeta: []float64{1}, FitIntercept: true})
	require.Nil(t, err)
	assert.ErrorIs(t, warm.Fit(x, x), ErrWarmStartBetaSize)
}

func BenchmarkLassoRegression(b *testing.B) {
	x, y, err := generateBenchData(1000, 100)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		opt := NewDefaultLassoOptions()
		opt.FitIntercept = false
		model, err := NewLassoRegression(opt)
		if err != nil {
			b.Error(err)
			continue
		}
		if err := model.Fit(x, y); err != nil {
			b.Error(err)
			continue
		}
	}
}
