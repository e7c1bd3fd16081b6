// Package feature defines the labeled regressors of the forecast design matrix and the
// functions that generate their values from time.
package feature

type FeatureType int

const (
	FeatureTypeChangepoint FeatureType = iota
	FeatureTypeSeasonality
	FeatureTypeEvent
	FeatureTypeGrowth
)

func (f FeatureType) String() string {
	switch f {
	case FeatureTypeChangepoint:
		return "changepoint"
	case FeatureTypeSeasonality:
		return "seasonality"
	case FeatureTypeEvent:
		return "event"
	case FeatureTypeGrowth:
		return "growth"
	}
	return "unknown"
}

// Feature is a labeled column of the design matrix
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}
