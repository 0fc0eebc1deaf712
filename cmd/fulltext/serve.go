// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fulltext/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction API",
	Long: `Serve exposes extraction tasks over HTTP. By default it also runs the
extraction worker pool in-process; use --no-worker when workers run as a
separate "fulltext worker" process against the same storage volume.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().Bool("no-worker", false, "do not run extraction workers in this process")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		pool, err := a.workerPool(ctx)
		if err != nil {
			return err
		}
		pool.Start(ctx)
		defer pool.Stop()
	}

	return api.New(a.orchestrator, a.store, logger).ListenAndServe(ctx, cfg.Server.Addr)
}
