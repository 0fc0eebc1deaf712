// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run extraction workers until interrupted",
	Long: `Worker runs the extraction worker pool against the shared database until
SIGINT or SIGTERM. Jobs left running by a previous process are recovered on
start; jobs interrupted by shutdown are released for the next run.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().Int("workers", 0, "number of concurrent workers (default from engine.workers)")

	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Engine.Workers = n
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := a.workerPool(ctx)
	if err != nil {
		return err
	}
	pool.Start(ctx)
	<-ctx.Done()
	pool.Stop()
	return nil
}
