package materials

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/shopspring/decimal"
)

const (
	DirectionUp      = "up"
	DirectionDown    = "down"
	DirectionNeutral = "neutral"

	// observations needed for any change
	minChangeHistory = 12

	Range1Yr  = "1yr"
	Range5Yr  = "5yr"
	Range10Yr = "10yr"
	RangeMax  = "max"
)

var (
	ErrInsufficientHistory = errors.New("not enough observations for percent changes")
	ErrUnknownRange        = errors.New("unknown time range")
)

var hundred = decimal.NewFromInt(100)

// Changes are percent changes of the latest value against 1, 3, 6 and 12 observations back
// rounded to 2 decimals
type Changes struct {
	Monthly    decimal.Decimal `json:"monthly"`
	Quarterly  decimal.Decimal `json:"quarterly"`
	SemiAnnual decimal.Decimal `json:"semi_annual"`
	Annual     decimal.Decimal `json:"annual"`
	Direction  string          `json:"direction"`
}

// NewChanges computes the percent changes of the series ignoring missing values. Fewer than 12
// observations is an error and exactly 12 leaves no value a year back so every change is zero.
// Both cases have a neutral direction.
func NewChanges(td *timedataset.TimeDataset) (Changes, error) {
	neutral := Changes{Direction: DirectionNeutral}
	if td == nil {
		return neutral, fmt.Errorf("no data, %w", ErrInsufficientHistory)
	}
	y := td.DropNan().Y
	n := len(y)
	if n < minChangeHistory {
		return neutral, fmt.Errorf("%d observations, %w", n, ErrInsufficientHistory)
	}
	if n == minChangeHistory {
		return neutral, nil
	}

	latest := decimal.NewFromFloat(y[n-1])
	annual := percentChange(latest, y[n-13])
	direction := DirectionUp
	if annual.IsNegative() {
		direction = DirectionDown
	}
	return Changes{
		Monthly:    percentChange(latest, y[n-2]).Round(2),
		Quarterly:  percentChange(latest, y[n-4]).Round(2),
		SemiAnnual: percentChange(latest, y[n-7]).Round(2),
		Annual:     annual.Round(2),
		Direction:  direction,
	}, nil
}

// percentChange returns zero against a zero base
func percentChange(latest decimal.Decimal, prev float64) decimal.Decimal {
	base := decimal.NewFromFloat(prev)
	if base.IsZero() {
		return decimal.Zero
	}
	return latest.Sub(base).Div(base).Mul(hundred)
}

// maxRangeStart is where the max range begins
var maxRangeStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// FilterRange keeps the observations of the time range ending at the last observation
// relative to the current year. See FilterRangeAt.
func FilterRange(td *timedataset.TimeDataset, rng string) (*timedataset.TimeDataset, error) {
	return FilterRangeAt(td, rng, time.Now())
}

// FilterRangeAt keeps the observations between the start of the range and the last observation
// inclusive. The 1yr range starts on Jan 1 when the last observation falls in the year of now
// and one year back otherwise. The 5yr and 10yr ranges reach back from the last observation and
// the max range starts on 2000-01-01.
func FilterRangeAt(td *timedataset.TimeDataset, rng string, now time.Time) (*timedataset.TimeDataset, error) {
	switch rng {
	case Range1Yr, Range5Yr, Range10Yr, RangeMax:
	case "":
		rng = RangeMax
	default:
		return nil, fmt.Errorf("%q, %w", rng, ErrUnknownRange)
	}
	if td == nil || td.Len() == 0 {
		return td.Copy(), nil
	}

	end := td.T[td.Len()-1]
	var start time.Time
	switch rng {
	case Range1Yr:
		start = end.AddDate(-1, 0, 0)
		if end.Year() == now.Year() {
			start = time.Date(end.Year(), 1, 1, 0, 0, 0, 0, end.Location())
		}
	case Range5Yr:
		start = end.AddDate(-5, 0, 0)
	case Range10Yr:
		start = end.AddDate(-10, 0, 0)
	case RangeMax:
		start = maxRangeStart
	}

	idx := make([]int, 0, td.Len())
	for i, t := range td.T {
		if inRange(t, start, end) {
			idx = append(idx, i)
		}
	}
	return td.Subset(idx), nil
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
