// Package frame normalizes tabular input into the ds/y layout expected by the forecast and
// converts between dataframes and time datasets.
package frame

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	ColDS    = "ds"
	ColY     = "y"
	ColCap   = "cap"
	ColFloor = "floor"

	// rows of monthly price series holding the annual average
	annualPeriod = "M13"
)

var (
	ErrMissingColumn   = errors.New("missing required column")
	ErrColumnConflict  = errors.New("rename target already exists")
	ErrMalformedPeriod = errors.New("malformed period")
)

// ReadCSV reads every column of a csv with a header as strings. Parsing of values is left to
// ToDataset so malformed cells are reported instead of silently turned into NaNs.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return df, fmt.Errorf("unable to read csv, %w", df.Err)
	}
	return df, nil
}

// Normalize renames source columns to their targets given a source to target mapping. The
// result holds ds and y followed by cap and floor when present and every other column is
// dropped. An entry whose source is absent but whose target is already present is skipped so
// normalizing a normalized frame leaves it unchanged.
func Normalize(df dataframe.DataFrame, mapping map[string]string) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, df.Err
	}

	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}

	sources := make([]string, 0, len(mapping))
	for src := range mapping {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	for _, src := range sources {
		dst := mapping[src]
		if src == dst || dst == "" {
			continue
		}
		if !present[src] {
			if !present[dst] && isRequired(dst) {
				return df, fmt.Errorf("source column %q for %q, %w", src, dst, ErrMissingColumn)
			}
			continue
		}
		if present[dst] {
			return df, fmt.Errorf("renaming %q to %q, %w", src, dst, ErrColumnConflict)
		}
		df = df.Rename(dst, src)
		if df.Err != nil {
			return df, fmt.Errorf("unable to rename %q to %q, %w", src, dst, df.Err)
		}
		delete(present, src)
		present[dst] = true
	}

	cols := make([]string, 0, 4)
	for _, name := range []string{ColDS, ColY} {
		if !present[name] {
			return df, fmt.Errorf("column %q, %w", name, ErrMissingColumn)
		}
		cols = append(cols, name)
	}
	for _, name := range []string{ColCap, ColFloor} {
		if present[name] {
			cols = append(cols, name)
		}
	}

	df = df.Select(cols)
	if df.Err != nil {
		return df, fmt.Errorf("unable to select normalized columns, %w", df.Err)
	}
	return df, nil
}

func isRequired(name string) bool {
	return name == ColDS || name == ColY
}

// PeriodToDate adds a ds column from a year column and a monthly period column of the form
// M01 to M12 holding the first day of the month. Annual average rows (M13) are dropped.
func PeriodToDate(df dataframe.DataFrame, yearCol, periodCol string) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, df.Err
	}
	for _, name := range []string{yearCol, periodCol} {
		if !hasColumn(df, name) {
			return df, fmt.Errorf("column %q, %w", name, ErrMissingColumn)
		}
	}

	periods := df.Col(periodCol).Records()
	keep := make([]int, 0, len(periods))
	for i, p := range periods {
		if strings.TrimSpace(p) == annualPeriod {
			continue
		}
		keep = append(keep, i)
	}
	df = subset(df, keep)

	years := df.Col(yearCol).Records()
	periods = df.Col(periodCol).Records()
	dates := make([]string, len(years))
	for i := range years {
		year, err := strconv.Atoi(strings.TrimSpace(years[i]))
		if err != nil {
			return df, fmt.Errorf("year %q at row %d, %w", years[i], i, ErrMalformedPeriod)
		}
		p := strings.TrimSpace(periods[i])
		month, err := strconv.Atoi(strings.TrimPrefix(p, "M"))
		if err != nil || !strings.HasPrefix(p, "M") || month < 1 || month > 12 {
			return df, fmt.Errorf("period %q at row %d, %w", periods[i], i, ErrMalformedPeriod)
		}
		dates[i] = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
	}

	df = df.Mutate(series.New(dates, series.String, ColDS))
	if df.Err != nil {
		return df, fmt.Errorf("unable to add %s column, %w", ColDS, df.Err)
	}
	return df, nil
}

// Split partitions the rows of a frame with a ds column by the cutoff into rows strictly
// before the cutoff and the remaining rows. All columns and the relative order are kept.
func Split(df dataframe.DataFrame, cutoff time.Time) (dataframe.DataFrame, dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, df, df.Err
	}
	if !hasColumn(df, ColDS) {
		return df, df, fmt.Errorf("column %q, %w", ColDS, ErrMissingColumn)
	}
	t, err := parseTimes(df.Col(ColDS).Records())
	if err != nil {
		return df, df, err
	}
	trainIdx, testIdx := timedataset.SplitIndex(t, cutoff)
	return subset(df, trainIdx), subset(df, testIdx), nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// subset selects rows by index and keeps the column layout when no rows are selected
func subset(df dataframe.DataFrame, idx []int) dataframe.DataFrame {
	if len(idx) == df.Nrow() {
		all := true
		for i, v := range idx {
			if i != v {
				all = false
				break
			}
		}
		if all {
			return df
		}
	}
	if len(idx) > 0 {
		return df.Subset(idx)
	}
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, series.New([]string{}, df.Col(name).Type(), name))
	}
	return dataframe.New(cols...)
}
