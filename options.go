package costcast

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-costcast/forecast/options"
	"github.com/aouyang1/go-costcast/timedataset"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var ErrInvalidPipelineOptions = errors.New("invalid pipeline options")

// OutlierOptions configures the passes that mask residual outliers before refitting
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes" yaml:"num_passes" default:"3" validate:"gte=0"`
	UpperPercentile float64 `json:"upper_percentile" yaml:"upper_percentile" default:"0.9" validate:"gte=0,lte=1"`
	LowerPercentile float64 `json:"lower_percentile" yaml:"lower_percentile" default:"0.1" validate:"gte=0,lte=1"`
	TukeyFactor     float64 `json:"tukey_factor" yaml:"tukey_factor" default:"1.0" validate:"gte=0"`
}

func NewOutlierOptions() *OutlierOptions {
	opt := &OutlierOptions{}
	if err := defaults.Set(opt); err != nil {
		panic(err)
	}
	return opt
}

// Options configures a full pipeline run from a raw frame to a forecast report
type Options struct {
	// Columns maps source column names to ds, y, cap and floor
	Columns map[string]string `json:"columns,omitempty" yaml:"columns"`

	// Cutoff splits training rows (ds < cutoff) from held-out rows. A zero cutoff trains on
	// every row.
	Cutoff time.Time `json:"cutoff,omitempty" yaml:"cutoff"`

	// Horizon is the number of periods forecast past the last observation
	Horizon int `json:"horizon" yaml:"horizon" validate:"gte=0"`

	// Frequency of the horizon periods, inferred from the data when empty
	Frequency string `json:"frequency,omitempty" yaml:"frequency"`

	ForecastOptions *options.Options `json:"model" yaml:"model" validate:"-"`
	OutlierOptions  *OutlierOptions  `json:"outliers,omitempty" yaml:"outliers"`
}

func NewDefaultOptions() *Options {
	return &Options{
		ForecastOptions: options.NewDefaultOptions(),
	}
}

// Validate checks the pipeline options and the nested forecast options
func (o *Options) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(o); err != nil {
		return fmt.Errorf("%s, %w", err.Error(), ErrInvalidPipelineOptions)
	}
	if o.OutlierOptions != nil && o.OutlierOptions.LowerPercentile > o.OutlierOptions.UpperPercentile {
		return fmt.Errorf("lower percentile above upper percentile, %w", ErrInvalidPipelineOptions)
	}
	if o.Frequency != "" {
		if _, err := timedataset.ParseFrequency(o.Frequency); err != nil {
			return fmt.Errorf("%s, %w", err.Error(), ErrInvalidPipelineOptions)
		}
	}
	if o.ForecastOptions == nil {
		o.ForecastOptions = options.NewDefaultOptions()
	}
	return o.ForecastOptions.Validate()
}
