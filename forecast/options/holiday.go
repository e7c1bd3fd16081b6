package options

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/forecast/util"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
)

// Holiday is a single row of a holiday calendar. Every row with the same name shares the same
// features. The window extends the effect LowerWindow days before (non-positive) and
// UpperWindow days after (non-negative) the date.
type Holiday struct {
	Name        string    `json:"holiday" yaml:"holiday" validate:"required"`
	DS          time.Time `json:"ds" yaml:"ds" validate:"required"`
	LowerWindow int       `json:"lower_window" yaml:"lower_window" validate:"lte=0"`
	UpperWindow int       `json:"upper_window" yaml:"upper_window" validate:"gte=0"`
	PriorScale  float64   `json:"prior_scale,omitempty" yaml:"prior_scale" validate:"gte=0"`
}

// HolidayGroup collects every date of a named holiday
type HolidayGroup struct {
	Name        string      `json:"name"`
	Dates       []time.Time `json:"dates"`
	LowerWindow int         `json:"lower_window"`
	UpperWindow int         `json:"upper_window"`
	PriorScale  float64     `json:"prior_scale,omitempty"`
}

// Offsets returns every day offset covered by the holiday window in ascending order
func (h HolidayGroup) Offsets() []int {
	res := make([]int, 0, h.UpperWindow-h.LowerWindow+1)
	for off := h.LowerWindow; off <= h.UpperWindow; off++ {
		res = append(res, off)
	}
	return res
}

var countryCalendars = map[string][]*cal.Holiday{
	"US": us.Holidays,
	"GB": gb.Holidays,
	"UK": gb.Holidays,
	"CA": ca.Holidays,
}

// CountryCalendar returns the holidays of a supported country code
func CountryCalendar(country string) ([]*cal.Holiday, error) {
	hols, exists := countryCalendars[strings.ToUpper(strings.TrimSpace(country))]
	if !exists {
		return nil, fmt.Errorf("%q, %w", country, ErrUnknownCountry)
	}
	return hols, nil
}

// CountryHolidays lists the observed dates of every holiday of a country for every year
// between start and end inclusive. Holidays not in effect in a year are skipped.
func CountryHolidays(country string, start, end time.Time) ([]Holiday, error) {
	hols, err := CountryCalendar(country)
	if err != nil {
		return nil, err
	}

	var res []Holiday
	for year := start.Year(); year <= end.Year(); year++ {
		for _, hol := range hols {
			actual, observed := hol.Calc(year)
			if observed.IsZero() {
				observed = actual
			}
			if observed.IsZero() {
				continue
			}
			res = append(res, Holiday{
				Name: hol.Name,
				DS:   time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, time.UTC),
			})
		}
	}
	return res, nil
}

// ResolveHolidays combines the holiday calendar with the country holidays spanning start and
// end, grouped by holiday name in order of first appearance.
func (o *Options) ResolveHolidays(start, end time.Time) ([]HolidayGroup, error) {
	hols := make([]Holiday, 0, len(o.Holidays))
	hols = append(hols, o.Holidays...)
	if o.CountryHolidays != "" {
		country, err := CountryHolidays(o.CountryHolidays, start, end)
		if err != nil {
			return nil, err
		}
		hols = append(hols, country...)
	}
	return GroupHolidays(hols), nil
}

// GroupHolidays merges holiday rows by name. The window of a group covers the windows of all of
// its rows and the first non-zero prior scale wins.
func GroupHolidays(hols []Holiday) []HolidayGroup {
	idx := make(map[string]int)
	var groups []HolidayGroup
	for _, hol := range hols {
		i, exists := idx[hol.Name]
		if !exists {
			i = len(groups)
			idx[hol.Name] = i
			groups = append(groups, HolidayGroup{
				Name:        hol.Name,
				LowerWindow: hol.LowerWindow,
				UpperWindow: hol.UpperWindow,
			})
		}
		g := &groups[i]
		g.Dates = append(g.Dates, hol.DS)
		g.LowerWindow = min(g.LowerWindow, hol.LowerWindow)
		g.UpperWindow = max(g.UpperWindow, hol.UpperWindow)
		if g.PriorScale == 0 {
			g.PriorScale = hol.PriorScale
		}
	}
	for i := range groups {
		sort.Slice(groups[i].Dates, func(a, b int) bool {
			return groups[i].Dates[a].Before(groups[i].Dates[b])
		})
	}
	return groups
}

// HolidayPriorScaleOf returns the effective prior scale of a holiday
func (o *Options) HolidayPriorScaleOf(h HolidayGroup) float64 {
	if h.PriorScale > 0 {
		return h.PriorScale
	}
	return o.HolidaysPriorScale
}

// GenerateHolidayFeatures creates one indicator per holiday and day offset. Features that
// never fire on the given times are kept so training and prediction share the same columns.
func GenerateHolidayFeatures(t []time.Time, groups []HolidayGroup) *feature.Set {
	x := feature.NewSet()
	for _, g := range groups {
		for _, off := range g.Offsets() {
			f := feature.NewEvent(g.Name, off)
			x.Set(f, f.Generate(t, g.Dates))
		}
	}
	return x
}

// HolidayNames returns the names of the holiday groups
func HolidayNames(groups []HolidayGroup) []string {
	res := make([]string, 0, len(groups))
	for _, g := range groups {
		res = append(res, g.Name)
	}
	return res
}

// HolidayTable prints the holiday groups
func HolidayTable(groups []HolidayGroup, w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(groups) > 0 {
		noCfg = ""
		if _, err := fmt.Fprintf(tbl, "%s%sName\tDates\tWindow\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sHolidays:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, g := range groups {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%d\t[%d, %+d]\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			g.Name, len(g.Dates), g.LowerWindow, g.UpperWindow); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
