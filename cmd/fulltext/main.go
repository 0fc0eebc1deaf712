// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fulltext CLI: it submits
// extraction tasks, reports their status, runs the extraction workers and
// serves the HTTP API.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/fulltext/internal/config"
	"github.com/pdiddy/fulltext/internal/logging"
	"github.com/pdiddy/fulltext/internal/secrets"
	"github.com/pdiddy/fulltext/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the validated configuration, loaded before any subcommand runs.
	cfg types.Config

	// logger is built from cfg.Log.
	logger *zap.SugaredLogger

	// loadedSecrets holds credentials loaded from the secrets directory.
	loadedSecrets secrets.Secrets
)

// rootCmd is the base command for the fulltext CLI.
var rootCmd = &cobra.Command{
	Use:   "fulltext",
	Short: "Asynchronous plain-text extraction for arXiv papers",
	Long: `fulltext extracts plain text from arXiv PDFs asynchronously.

Extraction requests are queued as tasks and executed by a pool of workers
that download the PDF from an allow-listed source, run the extractor
(sandboxed in a container by default) and store a versioned product.
Callers poll the task until the product is available.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(cfg.Log)
		if err != nil {
			return errors.Wrap(err, "building logger")
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debugw("using config file", "path", used)
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debugw("loaded secrets", "keys", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fulltext.yaml or ~/.config/fulltext/fulltext.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory holding secret files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit JSON logs")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fulltext")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fulltext"))
		}
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printHints(os.Stderr, err)
		os.Exit(1)
	}
}

// printHints writes the hints attached anywhere in err's chain below the
// error cobra has already printed.
func printHints(w io.Writer, err error) {
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintln(w, "hint:", hint)
	}
}
