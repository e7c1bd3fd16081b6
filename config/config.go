// Package config reads the yaml run file of a forecast. Every section is decoded over its
// defaults so values left out of the file keep their default and explicit zeros survive.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aouyang1/go-costcast"
	"github.com/aouyang1/go-costcast/forecast/options"
	"github.com/aouyang1/go-costcast/frame"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("invalid run configuration")
	ErrNoInput       = errors.New("no csv input or postgres query configured")
)

// Input selects where the series is read from. A postgres dsn takes precedence over a file.
type Input struct {
	File        string `yaml:"file"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Query       string `yaml:"query"`
}

// Output lists the files a run writes. Empty paths are skipped.
type Output struct {
	// Forecast table as .csv or .json by extension
	Forecast string `yaml:"forecast"`
	Model    string `yaml:"model"`
	Plot     string `yaml:"plot"`
	Metrics  string `yaml:"metrics"`
}

// Config is a full run file
type Config struct {
	Name      string                   `yaml:"name"`
	Input     Input                    `yaml:"input"`
	Columns   map[string]string        `yaml:"columns"`
	Cutoff    string                   `yaml:"cutoff"`
	Horizon   int                      `yaml:"horizon"`
	Frequency string                   `yaml:"frequency"`
	Model     *options.Options         `yaml:"model"`
	Outliers  *costcast.OutlierOptions `yaml:"outliers"`
	Output    Output                   `yaml:"output"`
}

// New returns a configuration with default model options and no outlier passes
func New() *Config {
	return &Config{
		Name:  "series",
		Model: options.NewDefaultOptions(),
	}
}

// Load reads a run file from disk
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config, %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a run file. Unknown keys are rejected and the outlier section gets its defaults
// only when present.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read config, %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrInvalidConfig)
	}

	cfg := New()
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if mappingValue(root, "outliers") != nil {
		cfg.Outliers = costcast.NewOutlierOptions()
	}
	if err := options.RenameAliases(mappingValue(root, "model")); err != nil {
		return nil, errors.Join(err, ErrInvalidConfig)
	}

	normalized, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrInvalidConfig)
	}
	dec := yaml.NewDecoder(bytes.NewReader(normalized))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrInvalidConfig)
	}
	if cfg.Model == nil {
		// an explicit null model section
		cfg.Model = options.NewDefaultOptions()
	}
	return cfg, nil
}

// mappingValue returns the value node of key in a yaml mapping
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// PipelineOptions converts the run file into validated pipeline options
func (c *Config) PipelineOptions() (*costcast.Options, error) {
	var cutoff time.Time
	if c.Cutoff != "" {
		var err error
		cutoff, err = frame.ParseTime(c.Cutoff)
		if err != nil {
			return nil, fmt.Errorf("cutoff %q, %w", c.Cutoff, errors.Join(err, ErrInvalidConfig))
		}
	}

	opt := &costcast.Options{
		Columns:         c.Columns,
		Cutoff:          cutoff,
		Horizon:         c.Horizon,
		Frequency:       c.Frequency,
		ForecastOptions: c.Model,
		OutlierOptions:  c.Outliers,
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// Validate checks that an input is configured along with the pipeline options
func (c *Config) Validate() error {
	if c.Input.File == "" && (c.Input.PostgresDSN == "" || c.Input.Query == "") {
		return ErrNoInput
	}
	_, err := c.PipelineOptions()
	return err
}
