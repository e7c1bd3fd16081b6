package timedataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrCannotInferFreq  = errors.New("cannot infer frequency from time data")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

// EstimateFreq returns the most common spacing between consecutive points. Ties are
// broken by the smallest spacing.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// Frequency is a sampling step. Calendar steps (months) are kept separate from fixed
// durations so month starts stay aligned across months of different lengths.
type Frequency struct {
	Months int
	Step   time.Duration
}

var (
	Hourly    = Frequency{Step: time.Hour}
	Daily     = Frequency{Step: 24 * time.Hour}
	Weekly    = Frequency{Step: 7 * 24 * time.Hour}
	Monthly   = Frequency{Months: 1}
	Quarterly = Frequency{Months: 3}
	Yearly    = Frequency{Months: 12}
)

// ParseFrequency accepts the pandas-like aliases H, D, W, MS, QS, YS (and M, Q, Y as
// month-start synonyms) or any Go duration string such as 15m.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H":
		return Hourly, nil
	case "D":
		return Daily, nil
	case "W":
		return Weekly, nil
	case "MS", "M":
		return Monthly, nil
	case "QS", "Q":
		return Quarterly, nil
	case "YS", "Y", "AS", "A":
		return Yearly, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return Frequency{}, fmt.Errorf("%q, %w", s, ErrUnknownFrequency)
	}
	return Frequency{Step: d}, nil
}

func (f Frequency) String() string {
	switch f {
	case Monthly:
		return "MS"
	case Quarterly:
		return "QS"
	case Yearly:
		return "YS"
	case Daily:
		return "D"
	case Weekly:
		return "W"
	case Hourly:
		return "H"
	}
	if f.Months > 0 {
		return fmt.Sprintf("%dMS", f.Months)
	}
	return f.Step.String()
}

func (f Frequency) IsZero() bool {
	return f.Months == 0 && f.Step == 0
}

// Next returns the time one step after t.
func (f Frequency) Next(t time.Time) time.Time {
	return f.Add(t, 1)
}

// Add returns the time k steps after t. Calendar steps keep the day of month of t and clamp to
// the last day of shorter months, so Jan 31 steps to Feb 28 and then Mar 31.
func (f Frequency) Add(t time.Time, k int) time.Time {
	if f.Months > 0 {
		return addMonths(t, k*f.Months)
	}
	return t.Add(time.Duration(k) * f.Step)
}

// addMonths shifts t by months without spilling into the following month
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), lastDay)-1)
}

// Approx returns the average duration of a step.
func (f Frequency) Approx() time.Duration {
	if f.Months > 0 {
		return time.Duration(float64(f.Months) * 30.436875 * float64(24*time.Hour))
	}
	return f.Step
}

// InferFrequency estimates the sampling step. Spacings of 28 to 31 days between month
// starts are reported as calendar months, likewise quarters and years.
func (t TimeSlice) InferFrequency() (Frequency, error) {
	if len(t) < 2 {
		return Frequency{}, ErrCannotInferFreq
	}
	counts := make(map[int]int)
	calendar := 0
	for i := 1; i < len(t); i++ {
		months := monthsBetween(t[i-1], t[i])
		if months > 0 && t[i-1].AddDate(0, months, 0).Equal(t[i]) {
			counts[months]++
			calendar++
		}
	}
	if calendar*2 > len(t)-1 {
		best, bestCnt := 0, 0
		for m, cnt := range counts {
			if cnt > bestCnt || (cnt == bestCnt && m < best) {
				best, bestCnt = m, cnt
			}
		}
		return Frequency{Months: best}, nil
	}

	step, err := t.EstimateFreq()
	if err != nil {
		return Frequency{}, err
	}
	if step <= 0 {
		return Frequency{}, ErrCannotInferFreq
	}
	return Frequency{Step: step}, nil
}

func monthsBetween(a, b time.Time) int {
	if a.Day() != b.Day() {
		return 0
	}
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// FutureTimes generates n timestamps following last at the given frequency. Each step is
// taken from last so month ends do not drift.
func FutureTimes(last time.Time, n int, freq Frequency) []time.Time {
	if n <= 0 || freq.IsZero() {
		return nil
	}
	res := make([]time.Time, 0, n)
	for i := 1; i <= n; i++ {
		res = append(res, freq.Add(last, i))
	}
	return res
}
