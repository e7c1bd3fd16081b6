package feature

import (
	fmat "github.com/aouyang1/go-costcast/mat"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Set stores the generated values of each feature keyed by the string representation of
// the feature. All features share the same number of rows; shorter inputs are zero padded.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

func NewSet() *Set {
	return &Set{
		set:    make(map[string][]float64),
		labels: []Feature{},
	}
}

// Len returns the number of features
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Rows returns the number of observations held by every feature
func (s *Set) Rows() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores the feature data, overriding any existing data for the feature.
func (s *Set) Set(f Feature, data []float64) *Set {
	if s.set == nil {
		s.set = make(map[string][]float64)
	}
	if len(data) > s.m {
		for label, vals := range s.set {
			s.set[label] = append(vals, make([]float64, len(data)-len(vals))...)
		}
		s.m = len(data)
	}
	vals := make([]float64, s.m)
	copy(vals, data)

	label := f.String()
	if _, exists := s.set[label]; !exists {
		s.labels = append(s.labels, f)
	}
	s.set[label] = vals
	return s
}

// Get returns the data of a feature if it exists
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	vals, exists := s.set[f.String()]
	return vals, exists
}

// Del removes a feature from the set
func (s *Set) Del(f Feature) *Set {
	label := f.String()
	if _, exists := s.set[label]; !exists {
		return s
	}
	delete(s.set, label)
	for i, l := range s.labels {
		if l.String() == label {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			break
		}
	}
	if len(s.labels) == 0 {
		s.m = 0
	}
	return s
}

// Update merges every feature of the other set into this set
func (s *Set) Update(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, f := range other.labels {
		s.Set(f, other.set[f.String()])
	}
	return s
}

// Filter returns a new set holding only the features of the given types
func (s *Set) Filter(types ...FeatureType) *Set {
	res := NewSet()
	if s == nil {
		return res
	}
	for _, f := range s.labels {
		for _, ft := range types {
			if f.Type() == ft {
				res.Set(f, s.set[f.String()])
				break
			}
		}
	}
	res.m = s.m
	return res
}

// RemoveZeroOnlyFeatures drops features that carry no information for a fit
func (s *Set) RemoveZeroOnlyFeatures() {
	if s == nil {
		return
	}
	for _, f := range s.Labels().Labels() {
		vals := s.set[f.String()]
		if floats.Min(vals) == 0 && floats.Max(vals) == 0 {
			s.Del(f)
		}
	}
}

// Labels returns all tracked features in insertion order
func (s *Set) Labels() *Labels {
	if s == nil {
		return NewLabels(nil)
	}
	return NewLabels(s.labels)
}

// Matrix returns a matrix representation of the Set to be used with matrix methods. The
// matrix has m rows representing the number of observations and n columns representing
// the number of features.
func (s *Set) Matrix(intercept bool) *mat.Dense {
	if s == nil || len(s.labels) == 0 || s.m == 0 {
		return nil
	}
	x, err := fmat.NewDenseFromColumns(s.MatrixSlice(intercept))
	if err != nil {
		// columns are padded to a shared length by Set
		return nil
	}
	return x
}

// MatrixSlice returns the Set in the form of a slice of columns, one per feature in
// insertion order, optionally led by a column of ones.
func (s *Set) MatrixSlice(intercept bool) [][]float64 {
	if s == nil || len(s.labels) == 0 {
		return nil
	}

	n := len(s.labels)
	if intercept {
		n += 1
	}

	obs := make([][]float64, 0, n)
	if intercept {
		ones := make([]float64, s.m)
		floats.AddConst(1.0, ones)
		obs = append(obs, ones)
	}

	for _, label := range s.labels {
		obs = append(obs, s.set[label.String()])
	}
	return obs
}
