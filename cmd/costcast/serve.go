package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aouyang1/go-costcast/materials"
	"github.com/aouyang1/go-costcast/metrics"
	"github.com/aouyang1/go-costcast/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var dir, addr string
	var cacheSize int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the material dashboard and forecast api",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := materials.LoadDir(dir)
			if err != nil {
				return err
			}
			s, err := server.New(catalog, metrics.New(true), server.WithCacheSize(cacheSize))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return s.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "data", "directory of material csv files")
	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().IntVar(&cacheSize, "cache-size", server.DefaultCacheSize, "number of cached forecasts")
	return cmd
}
