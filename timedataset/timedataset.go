package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrBoundsLenMismatch  = errors.New("cap or floor has a different length than observations")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length. Cap and Floor are optional saturation bounds used
// by logistic growth and, when set, must also match the length of T.
type TimeDataset struct {
	T     []time.Time `json:"ds"`
	Y     []float64   `json:"y"`
	Cap   []float64   `json:"cap,omitempty"`
	Floor []float64   `json:"floor,omitempty"`
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// WithBounds attaches cap and floor series to the dataset. Either may be nil.
func (td *TimeDataset) WithBounds(capacity, floor []float64) (*TimeDataset, error) {
	if capacity != nil && len(capacity) != len(td.T) {
		return nil, fmt.Errorf("cap has length %d, expected %d, %w", len(capacity), len(td.T), ErrBoundsLenMismatch)
	}
	if floor != nil && len(floor) != len(td.T) {
		return nil, fmt.Errorf("floor has length %d, expected %d, %w", len(floor), len(td.T), ErrBoundsLenMismatch)
	}
	td.Cap = copyFloats(capacity)
	td.Floor = copyFloats(floor)
	return td, nil
}

// Len returns the number of observations
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.Y))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T:     tSeries,
		Y:     ySeries,
		Cap:   copyFloats(td.Cap),
		Floor: copyFloats(td.Floor),
	}
}

// Subset returns a new dataset holding the rows at the given indices in the order given.
func (td *TimeDataset) Subset(idx []int) *TimeDataset {
	if td == nil {
		return nil
	}
	res := &TimeDataset{
		T: make([]time.Time, 0, len(idx)),
		Y: make([]float64, 0, len(idx)),
	}
	if td.Cap != nil {
		res.Cap = make([]float64, 0, len(idx))
	}
	if td.Floor != nil {
		res.Floor = make([]float64, 0, len(idx))
	}
	for _, i := range idx {
		res.T = append(res.T, td.T[i])
		res.Y = append(res.Y, td.Y[i])
		if td.Cap != nil {
			res.Cap = append(res.Cap, td.Cap[i])
		}
		if td.Floor != nil {
			res.Floor = append(res.Floor, td.Floor[i])
		}
	}
	return res
}

// DropNan removes every observation with a NaN value
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	idx := make([]int, 0, len(td.T))
	for i := 0; i < len(td.T); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		idx = append(idx, i)
	}
	return td.Subset(idx)
}

// SplitIndex partitions the time indices by a cutoff. Indices of times strictly before
// the cutoff are returned as train and all remaining indices as test. Relative order is
// preserved on both sides.
func SplitIndex(t []time.Time, cutoff time.Time) ([]int, []int) {
	train := make([]int, 0, len(t))
	test := make([]int, 0, len(t))
	for i, tPnt := range t {
		if tPnt.Before(cutoff) {
			train = append(train, i)
			continue
		}
		test = append(test, i)
	}
	return train, test
}

// Split partitions the dataset by the cutoff into a training set (ds < cutoff) and a
// held-out set (ds >= cutoff). A side with no rows is returned as nil.
func (td *TimeDataset) Split(cutoff time.Time) (*TimeDataset, *TimeDataset) {
	if td == nil {
		return nil, nil
	}
	trainIdx, testIdx := SplitIndex(td.T, cutoff)

	var train, test *TimeDataset
	if len(trainIdx) > 0 {
		train = td.Subset(trainIdx)
	}
	if len(testIdx) > 0 {
		test = td.Subset(testIdx)
	}
	return train, test
}

func copyFloats(src []float64) []float64 {
	if src == nil {
		return nil
	}
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}
