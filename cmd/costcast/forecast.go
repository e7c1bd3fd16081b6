package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aouyang1/go-costcast"
	"github.com/aouyang1/go-costcast/config"
	"github.com/aouyang1/go-costcast/forecast"
	"github.com/aouyang1/go-costcast/frame"
	"github.com/aouyang1/go-costcast/metrics"
	"github.com/aouyang1/go-costcast/source"
	"github.com/go-gota/gota/dataframe"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

const stdout = "-"

type forecastFlags struct {
	configFile string
	name       string
	input      string
	pgDSN      string
	pgQuery    string
	columns    map[string]string
	cutoff     string
	horizon    int
	frequency  string
	outliers   bool
	out        string
	modelOut   string
	plotOut    string
	metricsOut string
}

func newForecastCmd() *cobra.Command {
	f := &forecastFlags{}
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Fit a series and forecast the held-out rows and a horizon",
		Long: `Reads a series from a csv file or a postgres query, renames its columns to ds and y,
trains on the rows before the cutoff and forecasts the remaining rows plus the horizon.
Flags override the values of the run file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}
			return runForecast(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configFile, "config", "c", "", "yaml run file")
	flags.StringVar(&f.name, "name", "", "series name used in metrics")
	flags.StringVarP(&f.input, "input", "i", "", "input csv file")
	flags.StringVar(&f.pgDSN, "pg-dsn", "", "postgres dsn, defaults to $"+envPrefix+"PG_DSN")
	flags.StringVar(&f.pgQuery, "pg-query", "", "postgres query returning the series")
	flags.StringToStringVar(&f.columns, "columns", nil, "source to target column renames such as Date=ds,Cost=y")
	flags.StringVar(&f.cutoff, "cutoff", "", "first held-out timestamp")
	flags.IntVar(&f.horizon, "horizon", 0, "periods to forecast past the last observation")
	flags.StringVar(&f.frequency, "frequency", "", "horizon frequency such as D, W, MS or 1h, inferred when empty")
	flags.BoolVar(&f.outliers, "outliers", false, "mask residual outliers with the default passes")
	flags.StringVarP(&f.out, "out", "o", "", "forecast table output, .csv or .json, - for stdout csv")
	flags.StringVar(&f.modelOut, "model-out", "", "model json output")
	flags.StringVar(&f.plotOut, "plot-out", "", "html plot output")
	flags.StringVar(&f.metricsOut, "metrics-out", "", "prometheus textfile output")
	return cmd
}

// config merges the run file with every flag that was set
func (f *forecastFlags) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()
	if f.configFile != "" {
		var err error
		cfg, err = config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("name") {
		cfg.Name = f.name
	}
	if changed("input") {
		cfg.Input.File = f.input
	}
	if changed("pg-dsn") {
		cfg.Input.PostgresDSN = f.pgDSN
	}
	if cfg.Input.PostgresDSN == "" {
		cfg.Input.PostgresDSN = envDefault("PG_DSN")
	}
	if changed("pg-query") {
		cfg.Input.Query = f.pgQuery
	}
	if changed("columns") {
		cfg.Columns = f.columns
	}
	if changed("cutoff") {
		cfg.Cutoff = f.cutoff
	}
	if changed("horizon") {
		cfg.Horizon = f.horizon
	}
	if changed("frequency") {
		cfg.Frequency = f.frequency
	}
	if changed("outliers") {
		cfg.Outliers = nil
		if f.outliers {
			cfg.Outliers = costcast.NewOutlierOptions()
		}
	}
	if changed("out") {
		cfg.Output.Forecast = f.out
	}
	if changed("model-out") {
		cfg.Output.Model = f.modelOut
	}
	if changed("plot-out") {
		cfg.Output.Plot = f.plotOut
	}
	if changed("metrics-out") {
		cfg.Output.Metrics = f.metricsOut
	}
	if cfg.Output.Forecast == "" {
		cfg.Output.Forecast = stdout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runForecast(ctx context.Context, cfg *config.Config, w io.Writer) error {
	opt, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	df, err := readInput(ctx, cfg.Input)
	if err != nil {
		return err
	}

	recorder := metrics.New(false)
	start := time.Now()
	f, err := costcast.New(opt)
	if err != nil {
		return err
	}
	report, err := f.Run(df)
	recorder.ObserveRun(cfg.Name, start, err)
	if err != nil {
		return err
	}
	recorder.SetHoldout(cfg.Name, report.HoldoutScores)
	recorder.AddOutliers(cfg.Name, len(report.Outliers))

	if report.HoldoutScores != nil {
		slog.Info("holdout scores",
			"name", cfg.Name,
			"mape", report.HoldoutScores.MAPE,
			"mse", report.HoldoutScores.MSE,
			"r2", report.HoldoutScores.R2,
		)
	}

	if err := writeForecast(cfg.Output.Forecast, report, w); err != nil {
		return err
	}
	if cfg.Output.Model != "" {
		m, err := f.Model()
		if err != nil {
			return err
		}
		if err := writeJSON(cfg.Output.Model, m); err != nil {
			return err
		}
		if err := m.TablePrint(logWriter{}); err != nil {
			return err
		}
	}
	if cfg.Output.Plot != "" {
		if err := writeFile(cfg.Output.Plot, report.Plot); err != nil {
			return err
		}
	}
	if cfg.Output.Metrics != "" {
		if err := recorder.WriteTextfile(cfg.Output.Metrics); err != nil {
			return err
		}
	}
	return nil
}

func readInput(ctx context.Context, in config.Input) (dataframe.DataFrame, error) {
	if in.PostgresDSN != "" && in.Query != "" {
		pool, err := source.Connect(ctx, in.PostgresDSN)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		defer pool.Close()
		return source.Query(ctx, pool, in.Query)
	}
	return source.ReadFile(in.File)
}

// forecastOutput leaves out the training rows which may hold missing values
type forecastOutput struct {
	Forecast      *forecast.Result `json:"forecast"`
	HoldoutScores *forecast.Scores `json:"holdout_scores,omitempty"`
	Outliers      []time.Time      `json:"outliers,omitempty"`
	Frequency     string           `json:"frequency,omitempty"`
}

// writeForecast writes the forecast table as json when the path ends in .json and as csv
// otherwise
func writeForecast(path string, report *costcast.Report, w io.Writer) error {
	if path == stdout {
		return frame.FromResult(report.Forecast).WriteCSV(w)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return writeJSON(path, forecastOutput{
			Forecast:      report.Forecast,
			HoldoutScores: report.HoldoutScores,
			Outliers:      report.Outliers,
			Frequency:     report.Frequency,
		})
	}
	return writeFile(path, func(w io.Writer) error {
		return frame.FromResult(report.Forecast).WriteCSV(w)
	})
}

func writeJSON(path string, v interface{}) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create output, %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return file.Close()
}

// logWriter forwards table lines to the debug log
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		slog.Debug(line)
	}
	return len(p), nil
}
