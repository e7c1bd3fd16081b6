// Package options contains the configuration surface of a forecast: growth, changepoints,
// seasonalities, holidays, prior scales and uncertainty settings.
package options

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aouyang1/go-costcast/forecast/util"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	GrowthLinear       = "linear"
	GrowthLogistic     = "logistic"
	ModeAdditive       = "additive"
	ModeMultiplicative = "multiplicative"
)

var (
	ErrInvalidOptions     = errors.New("invalid forecast options")
	ErrInvalidSeasonality = errors.New("invalid seasonality setting")
	ErrUnknownCountry     = errors.New("unknown country for holidays")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Options configures a forecast. Prior scales are mapped onto per coefficient penalties of the
// regression where a smaller scale regularizes harder.
type Options struct {
	Growth string `json:"growth" yaml:"growth" default:"linear" validate:"oneof=linear logistic"`

	// Changepoints overrides automatic placement when set
	Changepoints          []Changepoint `json:"changepoints,omitempty" yaml:"changepoints"`
	NChangepoints         int           `json:"n_changepoints" yaml:"n_changepoints" default:"25" validate:"gte=0"`
	ChangepointRange      float64       `json:"changepoint_range" yaml:"changepoint_range" default:"0.8" validate:"gt=0,lte=1"`
	ChangepointPriorScale float64       `json:"changepoint_prior_scale" yaml:"changepoint_prior_scale" default:"0.05" validate:"gt=0"`

	SeasonalityPriorScale float64             `json:"seasonality_prior_scale" yaml:"seasonality_prior_scale" default:"10" validate:"gt=0"`
	SeasonalityMode       string              `json:"seasonality_mode" yaml:"seasonality_mode" default:"additive" validate:"oneof=additive multiplicative"`
	YearlySeasonality     SeasonalityToggle   `json:"yearly_seasonality" yaml:"yearly_seasonality" default:"auto"`
	WeeklySeasonality     SeasonalityToggle   `json:"weekly_seasonality" yaml:"weekly_seasonality" default:"auto"`
	DailySeasonality      SeasonalityToggle   `json:"daily_seasonality" yaml:"daily_seasonality" default:"auto"`
	Seasonalities         []SeasonalityConfig `json:"seasonalities,omitempty" yaml:"seasonalities" validate:"dive"`

	Holidays           []Holiday `json:"holidays,omitempty" yaml:"holidays" validate:"dive"`
	HolidaysPriorScale float64   `json:"holidays_prior_scale" yaml:"holidays_prior_scale" default:"10" validate:"gt=0"`
	CountryHolidays    string    `json:"country_holidays,omitempty" yaml:"country_holidays"`

	MCMCSamples        int     `json:"mcmc_samples" yaml:"mcmc_samples" default:"0" validate:"gte=0"`
	IntervalWidth      float64 `json:"interval_width" yaml:"interval_width" default:"0.8" validate:"gt=0,lt=1"`
	UncertaintySamples int     `json:"uncertainty_samples" yaml:"uncertainty_samples" default:"1000" validate:"gte=0"`
	Seed               uint64  `json:"seed" yaml:"seed"`

	// Coordinate descent controls
	Iterations int     `json:"iterations" yaml:"iterations" default:"1000" validate:"gte=0"`
	Tolerance  float64 `json:"tolerance" yaml:"tolerance" default:"0.0001" validate:"gte=0"`
}

// keyAliases maps alternate option names onto the names of the fields
var keyAliases = map[string]string{
	"holiday_prior_scale": "holidays_prior_scale",
}

// RenameAliases rewrites alternate keys of a yaml options mapping to their field names so the
// mapping can be decoded strictly. Setting both an alias and its field is an error.
func RenameAliases(node *yaml.Node) error {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	present := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		present[node.Content[i].Value] = true
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		field, exists := keyAliases[key.Value]
		if !exists {
			continue
		}
		if present[field] {
			return fmt.Errorf("%s and %s are both set, %w", key.Value, field, ErrInvalidOptions)
		}
		key.Value = field
	}
	return nil
}

// UnmarshalJSON decodes the options and honors the alternate option names
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	if err := json.Unmarshal(data, (*plain)(o)); err != nil {
		return err
	}
	var aliases struct {
		HolidayPriorScale *float64 `json:"holiday_prior_scale"`
	}
	if err := json.Unmarshal(data, &aliases); err != nil {
		return err
	}
	if aliases.HolidayPriorScale != nil {
		o.HolidaysPriorScale = *aliases.HolidayPriorScale
	}
	return nil
}

// NewDefaultOptions returns a set of default forecast options
func NewDefaultOptions() *Options {
	opt := &Options{}
	if err := defaults.Set(opt); err != nil {
		// struct tags are static so this only fails on a programming error
		panic(err)
	}
	return opt
}

// Validate checks every option against its allowed range
func (o *Options) Validate() error {
	if o == nil {
		return fmt.Errorf("nil options, %w", ErrInvalidOptions)
	}
	if err := getValidator().Struct(o); err != nil {
		return fmt.Errorf("%s, %w", err.Error(), ErrInvalidOptions)
	}
	for name, toggle := range map[string]SeasonalityToggle{
		LabelSeasYearly: o.YearlySeasonality,
		LabelSeasWeekly: o.WeeklySeasonality,
		LabelSeasDaily:  o.DailySeasonality,
	} {
		if _, _, err := toggle.parse(); err != nil {
			return fmt.Errorf("%s seasonality %q, %w", name, string(toggle), errors.Join(err, ErrInvalidOptions))
		}
	}
	if o.CountryHolidays != "" {
		if _, err := CountryCalendar(o.CountryHolidays); err != nil {
			return errors.Join(err, ErrInvalidOptions)
		}
	}
	return nil
}

// IsMultiplicative reports whether a component with the given mode override scales with trend
func (o *Options) IsMultiplicative(mode string) bool {
	if mode == "" {
		mode = o.SeasonalityMode
	}
	return mode == ModeMultiplicative
}

// NumSamples returns the number of simulations drawn for the uncertainty interval
func (o *Options) NumSamples() int {
	if o.MCMCSamples > 0 {
		return o.MCMCSamples
	}
	return o.UncertaintySamples
}

func (o Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sGrowth: %s    Seasonality Mode: %s\n",
		prefix, util.IndentExpand(indent, indentGrowth), o.Growth, o.SeasonalityMode); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sPrior Scales: changepoint %.3f    seasonality %.3f    holidays %.3f\n",
		prefix, util.IndentExpand(indent, indentGrowth),
		o.ChangepointPriorScale, o.SeasonalityPriorScale, o.HolidaysPriorScale); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sInterval Width: %.3f    Samples: %d\n",
		prefix, util.IndentExpand(indent, indentGrowth), o.IntervalWidth, o.NumSamples()); err != nil {
		return err
	}
	return nil
}
