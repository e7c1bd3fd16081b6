// Command costcast fits and forecasts cost series from csv files or postgres, prints material
// changes and serves the material dashboard.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

const envPrefix = "COSTCAST_"

var ErrUnknownFlagValue = errors.New("unknown flag value")

type globalFlags struct {
	logLevel  string
	logFormat string
	profile   string
	envFile   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	var stopProfile interface{ Stop() }

	rootCmd := &cobra.Command{
		Use:           "costcast",
		Short:         "Forecast cost series",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(g.envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			stopProfile, err = startProfile(g.profile)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if stopProfile != nil {
				stopProfile.Stop()
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&g.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&g.profile, "profile", "", "write a cpu or mem profile to the working directory")
	flags.StringVar(&g.envFile, "env-file", ".env", "dotenv file holding secrets such as the postgres dsn")

	rootCmd.AddCommand(
		newForecastCmd(),
		newSplitCmd(),
		newChangesCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// loadEnv loads the dotenv file. A missing default file is not an error.
func loadEnv(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		slog.Debug("loaded env file", "path", path)
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("unable to load env file, %w", err)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q, %w", level, ErrUnknownFlagValue)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("log format %q, %w", format, ErrUnknownFlagValue)
}

func startProfile(mode string) (interface{ Stop() }, error) {
	switch strings.ToLower(mode) {
	case "":
		return nil, nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	}
	return nil, fmt.Errorf("profile %q, %w", mode, ErrUnknownFlagValue)
}

// envDefault returns the environment value of the key with the costcast prefix
func envDefault(key string) string {
	return os.Getenv(envPrefix + key)
}
