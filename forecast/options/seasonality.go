package options

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/forecast/util"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	LabelSeasYearly = "yearly"
	LabelSeasWeekly = "weekly"
	LabelSeasDaily  = "daily"

	DefaultYearlyOrder = 10
	DefaultWeeklyOrder = 3
	DefaultDailyOrder  = 4

	YearlyPeriodDays = 365.25
	WeeklyPeriodDays = 7.0
	DailyPeriodDays  = 1.0

	secondsPerDay = 86400.0
)

const (
	toggleAuto  = "auto"
	toggleTrue  = "true"
	toggleFalse = "false"
)

// SeasonalityToggle enables a built-in seasonality. It holds "auto", "true", "false" or a
// Fourier order. The empty value behaves as "auto".
type SeasonalityToggle string

func SeasonalityAuto() SeasonalityToggle { return toggleAuto }

func SeasonalityEnabled(enabled bool) SeasonalityToggle {
	if enabled {
		return toggleTrue
	}
	return toggleFalse
}

func SeasonalityOrder(order int) SeasonalityToggle {
	return SeasonalityToggle(strconv.Itoa(order))
}

// parse returns whether the toggle is auto and otherwise the explicit order where -1
// stands for the default order.
func (s SeasonalityToggle) parse() (bool, int, error) {
	switch v := strings.ToLower(strings.TrimSpace(string(s))); v {
	case "", toggleAuto:
		return true, 0, nil
	case toggleTrue:
		return false, -1, nil
	case toggleFalse:
		return false, 0, nil
	default:
		order, err := strconv.Atoi(v)
		if err != nil || order < 0 {
			return false, 0, fmt.Errorf("%q, %w", v, ErrInvalidSeasonality)
		}
		return false, order, nil
	}
}

// Order resolves the toggle to a Fourier order given the default order of the seasonality
// and whether the automatic rule would enable it.
func (s SeasonalityToggle) Order(defaultOrder int, autoEnabled bool) (int, error) {
	auto, order, err := s.parse()
	if err != nil {
		return 0, err
	}
	if auto {
		if autoEnabled {
			return defaultOrder, nil
		}
		return 0, nil
	}
	if order < 0 {
		return defaultOrder, nil
	}
	return order, nil
}

func (s *SeasonalityToggle) set(v string) error {
	next := SeasonalityToggle(strings.ToLower(strings.TrimSpace(v)))
	if _, _, err := next.parse(); err != nil {
		return err
	}
	*s = next
	return nil
}

// UnmarshalYAML accepts booleans, integers and the auto keyword
func (s *SeasonalityToggle) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected a scalar at line %d, %w", value.Line, ErrInvalidSeasonality)
	}
	return s.set(value.Value)
}

// UnmarshalJSON accepts booleans, integers and the auto keyword
func (s *SeasonalityToggle) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		return s.set(str)
	}
	return s.set(string(data))
}

// MarshalJSON writes booleans and orders as JSON literals
func (s SeasonalityToggle) MarshalJSON() ([]byte, error) {
	auto, _, err := s.parse()
	if err != nil {
		return nil, err
	}
	if auto {
		return []byte(`"auto"`), nil
	}
	return []byte(strings.ToLower(string(s))), nil
}

// SeasonalityConfig represents a single seasonality to model with Fourier terms. The period is
// in days; an order of N creates N sine and N cosine terms. A zero prior scale or empty mode
// falls back to the forecast wide setting.
type SeasonalityConfig struct {
	Name         string  `json:"name" yaml:"name" validate:"required"`
	Period       float64 `json:"period" yaml:"period" validate:"gt=0"`
	FourierOrder int     `json:"fourier_order" yaml:"fourier_order" validate:"gt=0"`
	PriorScale   float64 `json:"prior_scale,omitempty" yaml:"prior_scale" validate:"gte=0"`
	Mode         string  `json:"mode,omitempty" yaml:"mode" validate:"omitempty,oneof=additive multiplicative"`
}

// NewSeasonalityConfig creates a new seasonality config given a name, period in days and order
func NewSeasonalityConfig(name string, periodDays float64, order int) SeasonalityConfig {
	if order < 0 {
		order = 0
	}
	return SeasonalityConfig{
		Name:         name,
		Period:       periodDays,
		FourierOrder: order,
	}
}

// PeriodDuration returns the period as a duration
func (s SeasonalityConfig) PeriodDuration() time.Duration {
	return time.Duration(s.Period * secondsPerDay * float64(time.Second))
}

// ResolveSeasonalities applies the built-in toggles against the training times and appends the
// custom seasonalities. Automatic rules enable yearly with at least two years of history, weekly
// with at least two weeks of history sampled more often than weekly, and daily with at least two
// days of history sampled more often than daily. Custom seasonalities override built-ins of the
// same name.
func (o *Options) ResolveSeasonalities(t []time.Time) ([]SeasonalityConfig, error) {
	var span, minSpacing time.Duration
	if len(t) > 1 {
		span = t[len(t)-1].Sub(t[0])
		minSpacing = time.Duration(math.MaxInt64)
		for i := 1; i < len(t); i++ {
			if d := t[i].Sub(t[i-1]); d > 0 && d < minSpacing {
				minSpacing = d
			}
		}
	}
	day := 24 * time.Hour

	builtins := []struct {
		name     string
		toggle   SeasonalityToggle
		period   float64
		order    int
		autoRule bool
	}{
		{LabelSeasYearly, o.YearlySeasonality, YearlyPeriodDays, DefaultYearlyOrder, span >= 730*day},
		{LabelSeasWeekly, o.WeeklySeasonality, WeeklyPeriodDays, DefaultWeeklyOrder, span >= 14*day && minSpacing < 7*day},
		{LabelSeasDaily, o.DailySeasonality, DailyPeriodDays, DefaultDailyOrder, span >= 2*day && minSpacing < day},
	}

	custom := make(map[string]struct{}, len(o.Seasonalities))
	for _, cfg := range o.Seasonalities {
		custom[cfg.Name] = struct{}{}
	}

	res := make([]SeasonalityConfig, 0, len(builtins)+len(o.Seasonalities))
	for _, b := range builtins {
		if _, exists := custom[b.name]; exists {
			continue
		}
		order, err := b.toggle.Order(b.order, b.autoRule)
		if err != nil {
			return nil, fmt.Errorf("unable to resolve %s seasonality, %w", b.name, err)
		}
		if order == 0 {
			continue
		}
		res = append(res, NewSeasonalityConfig(b.name, b.period, order))
	}
	for _, cfg := range o.Seasonalities {
		if cfg.FourierOrder <= 0 || cfg.Period <= 0 {
			continue
		}
		res = append(res, cfg)
	}
	return res, nil
}

// SeasonalityPriorScaleOf returns the effective prior scale of a seasonality
func (o *Options) SeasonalityPriorScaleOf(cfg SeasonalityConfig) float64 {
	if cfg.PriorScale > 0 {
		return cfg.PriorScale
	}
	return o.SeasonalityPriorScale
}

// GenerateSeasonalityFeatures creates the sine and cosine terms of every configured seasonality
// evaluated on absolute time in days.
func GenerateSeasonalityFeatures(t []time.Time, cfgs []SeasonalityConfig) *feature.Set {
	days := make([]float64, len(t))
	for i, tPnt := range t {
		days[i] = feature.EpochSeconds(tPnt) / secondsPerDay
	}

	x := feature.NewSet()
	for _, cfg := range cfgs {
		for order := 1; order <= cfg.FourierOrder; order++ {
			sinFeat := feature.NewSeasonality(cfg.Name, feature.FourierCompSin, order)
			cosFeat := feature.NewSeasonality(cfg.Name, feature.FourierCompCos, order)
			x.Set(sinFeat, sinFeat.Generate(days, cfg.Period))
			x.Set(cosFeat, cosFeat.Generate(days, cfg.Period))
		}
	}
	return x
}

// SeasonalityTable prints the seasonality configs
func SeasonalityTable(cfgs []SeasonalityConfig, w io.Writer, prefix, indent string, indentGrowth int) error {
	sorted := make([]SeasonalityConfig, len(cfgs))
	copy(sorted, cfgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Period < sorted[j].Period
	})

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(sorted) > 0 {
		noCfg = ""
		if _, err := fmt.Fprintf(tbl, "%s%sName\tPeriod\tOrders\tMode\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sSeasonality:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, cfg := range sorted {
		mode := cfg.Mode
		if mode == "" {
			mode = "-"
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%d\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			cfg.Name, strconv.FormatFloat(cfg.Period, 'f', -1, 64)+"d", cfg.FourierOrder, mode); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
