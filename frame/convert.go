package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-costcast/forecast"
	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	ErrMalformedTime  = errors.New("malformed timestamp")
	ErrMalformedValue = errors.New("malformed value")
)

// accepted ds layouts in order of preference
var timeLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006-01",
}

// ParseTime parses a timestamp with any of the accepted layouts. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrMalformedTime)
}

func parseTimes(records []string) ([]time.Time, error) {
	t := make([]time.Time, len(records))
	for i, r := range records {
		tPnt, err := ParseTime(r)
		if err != nil {
			return nil, fmt.Errorf("row %d, %w", i, err)
		}
		t[i] = tPnt
	}
	return t, nil
}

// parseValues parses numeric cells where empty cells and NaN become NaN
func parseValues(name string, records []string) ([]float64, error) {
	vals := make([]float64, len(records))
	for i, r := range records {
		r = strings.TrimSpace(r)
		if r == "" || strings.EqualFold(r, "nan") || strings.EqualFold(r, "na") {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return nil, fmt.Errorf("%s %q at row %d, %w", name, r, i, ErrMalformedValue)
		}
		vals[i] = v
	}
	return vals, nil
}

// ToDataset converts a normalized frame into a time dataset sorted by time. Duplicate
// timestamps are rejected.
func ToDataset(df dataframe.DataFrame) (*timedataset.TimeDataset, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	for _, name := range []string{ColDS, ColY} {
		if !hasColumn(df, name) {
			return nil, fmt.Errorf("column %q, %w", name, ErrMissingColumn)
		}
	}

	t, err := parseTimes(df.Col(ColDS).Records())
	if err != nil {
		return nil, err
	}
	y, err := parseValues(ColY, df.Col(ColY).Records())
	if err != nil {
		return nil, err
	}
	var capacity, floor []float64
	if hasColumn(df, ColCap) {
		if capacity, err = parseValues(ColCap, df.Col(ColCap).Records()); err != nil {
			return nil, err
		}
	}
	if hasColumn(df, ColFloor) {
		if floor, err = parseValues(ColFloor, df.Col(ColFloor).Records()); err != nil {
			return nil, err
		}
	}

	order := make([]int, len(t))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return t[order[i]].Before(t[order[j]])
	})

	unsorted := &timedataset.TimeDataset{T: t, Y: y, Cap: capacity, Floor: floor}
	sorted := unsorted.Subset(order)

	td, err := timedataset.NewUnivariateDataset(sorted.T, sorted.Y)
	if err != nil {
		return nil, fmt.Errorf("unable to create dataset, %w", err)
	}
	return td.WithBounds(sorted.Cap, sorted.Floor)
}

// FromDataset converts a time dataset into a normalized frame
func FromDataset(td *timedataset.TimeDataset) dataframe.DataFrame {
	if td == nil {
		td = &timedataset.TimeDataset{}
	}
	cols := []series.Series{
		series.New(formatTimes(td.T), series.String, ColDS),
		series.New(td.Y, series.Float, ColY),
	}
	if td.Cap != nil {
		cols = append(cols, series.New(td.Cap, series.Float, ColCap))
	}
	if td.Floor != nil {
		cols = append(cols, series.New(td.Floor, series.Float, ColFloor))
	}
	return dataframe.New(cols...)
}

// FromResult converts a forecast result into a frame with a ds column followed by every
// result column in table order
func FromResult(res *forecast.Result) dataframe.DataFrame {
	if res == nil {
		res = &forecast.Result{}
	}
	cols := []series.Series{series.New(formatTimes(res.T), series.String, ColDS)}
	for _, name := range res.Columns() {
		vals, _ := res.Column(name)
		cols = append(cols, series.New(vals, series.Float, name))
	}
	return dataframe.New(cols...)
}

func formatTimes(t []time.Time) []string {
	res := make([]string, len(t))
	for i, tPnt := range t {
		res[i] = tPnt.Format(time.RFC3339)
	}
	return res
}
