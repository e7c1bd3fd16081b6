package forecast

import (
	"time"

	"github.com/aouyang1/go-costcast/forecast/options"
	"gonum.org/v1/gonum/floats"
)

const (
	ColYHat                = "yhat"
	ColYHatLower           = "yhat_lower"
	ColYHatUpper           = "yhat_upper"
	ColTrend               = "trend"
	ColTrendLower          = "trend_lower"
	ColTrendUpper          = "trend_upper"
	ColAdditiveTerms       = "additive_terms"
	ColMultiplicativeTerms = "multiplicative_terms"
	ColHolidays            = "holidays"
	ColCap                 = "cap"
	ColFloor               = "floor"
)

// Component is a named term of the forecast. Additive components are in units of y and
// multiplicative components are fractions of the trend.
type Component struct {
	Name   string    `json:"name"`
	Mode   string    `json:"mode"`
	Values []float64 `json:"values"`
}

// Result is the forecast table keyed by time
type Result struct {
	T                   []time.Time `json:"ds"`
	YHat                []float64   `json:"yhat"`
	YHatLower           []float64   `json:"yhat_lower"`
	YHatUpper           []float64   `json:"yhat_upper"`
	Trend               []float64   `json:"trend"`
	TrendLower          []float64   `json:"trend_lower"`
	TrendUpper          []float64   `json:"trend_upper"`
	AdditiveTerms       []float64   `json:"additive_terms"`
	MultiplicativeTerms []float64   `json:"multiplicative_terms"`
	Seasonalities       []Component `json:"seasonalities,omitempty"`
	Holidays            []float64   `json:"holidays"`
	HolidayTerms        []Component `json:"holiday_terms,omitempty"`
	Cap                 []float64   `json:"cap,omitempty"`
	Floor               []float64   `json:"floor,omitempty"`
}

func newResult(t []time.Time) *Result {
	n := len(t)
	ts := make([]time.Time, n)
	copy(ts, t)
	return &Result{
		T:                   ts,
		YHat:                make([]float64, n),
		YHatLower:           make([]float64, n),
		YHatUpper:           make([]float64, n),
		Trend:               make([]float64, n),
		TrendLower:          make([]float64, n),
		TrendUpper:          make([]float64, n),
		AdditiveTerms:       make([]float64, n),
		MultiplicativeTerms: make([]float64, n),
		Holidays:            make([]float64, n),
	}
}

func (r *Result) addTerm(comp Component) {
	if comp.Mode == options.ModeMultiplicative {
		floats.Add(r.MultiplicativeTerms, comp.Values)
		return
	}
	floats.Add(r.AdditiveTerms, comp.Values)
}

// Len returns the number of predicted times
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}

// Columns returns the names of every value column in table order
func (r *Result) Columns() []string {
	if r == nil {
		return nil
	}
	cols := []string{
		ColYHat, ColYHatLower, ColYHatUpper,
		ColTrend, ColTrendLower, ColTrendUpper,
		ColAdditiveTerms, ColMultiplicativeTerms,
	}
	for _, comp := range r.Seasonalities {
		cols = append(cols, comp.Name)
	}
	cols = append(cols, ColHolidays)
	for _, comp := range r.HolidayTerms {
		cols = append(cols, comp.Name)
	}
	if r.Cap != nil {
		cols = append(cols, ColCap)
	}
	if r.Floor != nil {
		cols = append(cols, ColFloor)
	}
	return cols
}

// Column returns the values of a named column
func (r *Result) Column(name string) ([]float64, bool) {
	if r == nil {
		return nil, false
	}
	switch name {
	case ColYHat:
		return r.YHat, true
	case ColYHatLower:
		return r.YHatLower, true
	case ColYHatUpper:
		return r.YHatUpper, true
	case ColTrend:
		return r.Trend, true
	case ColTrendLower:
		return r.TrendLower, true
	case ColTrendUpper:
		return r.TrendUpper, true
	case ColAdditiveTerms:
		return r.AdditiveTerms, true
	case ColMultiplicativeTerms:
		return r.MultiplicativeTerms, true
	case ColHolidays:
		return r.Holidays, true
	case ColCap:
		return r.Cap, r.Cap != nil
	case ColFloor:
		return r.Floor, r.Floor != nil
	}
	for _, comp := range r.Seasonalities {
		if comp.Name == name {
			return comp.Values, true
		}
	}
	for _, comp := range r.HolidayTerms {
		if comp.Name == name {
			return comp.Values, true
		}
	}
	return nil, false
}

// Seasonality returns the values of a seasonality component by name
func (r *Result) Seasonality(name string) ([]float64, bool) {
	if r == nil {
		return nil, false
	}
	for _, comp := range r.Seasonalities {
		if comp.Name == name {
			return comp.Values, true
		}
	}
	return nil, false
}
