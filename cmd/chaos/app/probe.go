package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"enrollment/internal/chaos/health"
	"enrollment/internal/chaos/identity"
)

var errUnhealthy = errors.New("system unhealthy")

func newProbeCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Take one health sample of a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				printErr(cmd, err)
				return err
			}
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}
			sys, err := httpSystem(cfg)
			if err != nil {
				printErr(cmd, err)
				return err
			}

			sample := health.NewProbe(sys.target, identity.NewRegistry(cfg.Seed), cfg.ProbeTimeout).Check(cmd.Context())
			if !sample.Healthy {
				fmt.Fprintf(cmd.OutOrStdout(), "unhealthy after %s: %s\n", sample.Latency.Round(time.Millisecond), sample.Error())
				return fmt.Errorf("%w: %w", ErrRunFailed, errUnhealthy)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "healthy in %s\n", sample.Latency.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server base URL (overrides CHAOS_BASE_URL)")
	return cmd
}
