// Package main provides the briefly CLI entry point.
// briefly resolves the importance and digest placement of entities
// extracted from email, and deduplicates them before rendering.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brieflyhq/briefly/cmd"
	"github.com/brieflyhq/briefly/config"
	"github.com/brieflyhq/briefly/pkg/buildinfo"
	"github.com/brieflyhq/briefly/pkg/logging"
)

// Global flags.
var (
	cfgFile string
	debug   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "briefly",
		Short: "Email digest importance resolution and deduplication engine",
		Long: `briefly takes structured entities extracted from email (events,
deadlines, flights, notifications, receipts, promos), resolves each
entity's final importance with guardrail overrides and temporal decay,
deduplicates the batch, and groups the survivors into digest sections.`,
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default briefly.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	deps := &cmd.Deps{
		LoadConfig: loadConfig,
		NewLogger:  newLogger,
	}

	rootCmd.AddCommand(cmd.NewResolveCommand(deps))
	rootCmd.AddCommand(cmd.NewRulesCommand(deps))
	rootCmd.AddCommand(cmd.NewWorkerCommand(deps))
	rootCmd.AddCommand(cmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = "briefly.yaml"
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) logging.Logger {
	level := logging.Level(cfg.Logging.Level)
	if debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.Config{
		Level:       level,
		ServiceName: "briefly",
		JSONFormat:  cfg.Logging.JSON,
		Output:      os.Stderr,
	})
}
