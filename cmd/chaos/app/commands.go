// Package app provides the commands of the chaos experiment driver.
package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"enrollment/internal/platform/config"
	"enrollment/internal/platform/logger"
)

// NewRootCmd creates the root command with its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chaos",
		Short:         "Chaos experiment driver for the enrollment service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `chaos sequences a health check, concurrent load, injected latency and a
high load phase against the enrollment service, audits the seat invariants
after every load phase and prints a pass/fail verdict.

Exit codes:
  0 - the run passed
  1 - the run failed
  2 - the run could not be executed (configuration, connectivity)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newProbeCmd())
	return root
}

// loadConfig reads the chaos configuration and builds a stderr logger so
// stdout carries only the verdict.
func loadConfig(cmd *cobra.Command) (config.Chaos, *slog.Logger, error) {
	cfg, err := config.ChaosFromEnv()
	if err != nil {
		return config.Chaos{}, nil, err
	}
	level := cfg.LogLevel
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), level, "text"), nil
}

func printErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}
