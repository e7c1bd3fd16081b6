package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores tracks the fit scores
type Scores struct {
	MSE  float64 `json:"mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates the fit scores given the predicted and actual input slice values
func NewScores(predicted, actual []float64) (*Scores, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}
	return &Scores{MSE: mse, MAPE: mape, R2: rs}, nil
}

// validPairs drops every position where either side is NaN. skip can exclude more positions
// by the actual value.
func validPairs(predicted, actual []float64, skip func(float64) bool) ([]float64, []float64, error) {
	if len(predicted) != len(actual) {
		return nil, nil, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	p := make([]float64, 0, len(predicted))
	a := make([]float64, 0, len(actual))
	for i, act := range actual {
		if math.IsNaN(act) || math.IsNaN(predicted[i]) {
			continue
		}
		if skip != nil && skip(act) {
			continue
		}
		p = append(p, predicted[i])
		a = append(a, act)
	}
	return p, a, nil
}

// MSE computes mean((y-yhat)^2) over the pairs without NaNs. A score of 0 means a perfect match.
func MSE(predicted, actual []float64) (float64, error) {
	p, a, err := validPairs(predicted, actual, nil)
	if err != nil || len(a) == 0 {
		return 0, err
	}
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, p)
	return floats.Dot(diff, diff) / float64(len(a)), nil
}

// MAPE computes mean(abs((y-yhat)/y)) over the pairs without NaNs or zero actuals. A score of 0
// means a perfect match.
func MAPE(predicted, actual []float64) (float64, error) {
	p, a, err := validPairs(predicted, actual, func(v float64) bool { return v == 0 })
	if err != nil || len(a) == 0 {
		return 0, err
	}
	total := 0.0
	for i, act := range a {
		total += math.Abs((act - p[i]) / act)
	}
	return total / float64(len(a)), nil
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means perfect
// fit and 0 represents no relationship. A constant actual series scores 1.
func RSquared(predicted, actual []float64) (float64, error) {
	p, a, err := validPairs(predicted, actual, nil)
	if err != nil {
		return 0, err
	}
	r2 := stat.RSquaredFrom(p, a, nil)
	if math.IsNaN(r2) {
		return 1.0, nil
	}
	return r2, nil
}
