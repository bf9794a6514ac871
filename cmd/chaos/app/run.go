package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"enrollment/internal/chaos/identity"
	"enrollment/internal/chaos/loadgen"
	"enrollment/internal/chaos/orchestrator"
	"enrollment/internal/chaos/target"
	"enrollment/internal/enrollment/models"
	"enrollment/internal/enrollment/seed"
	"enrollment/internal/enrollment/service"
	"enrollment/internal/enrollment/store/journal"
	"enrollment/internal/enrollment/store/ledger"
	"enrollment/internal/enrollment/store/registration"
	"enrollment/internal/platform/config"
	"enrollment/internal/platform/token"
)

// ErrRunFailed is returned when the experiment ran to a Fail verdict.
var ErrRunFailed = errors.New("chaos run failed")

const tokenTTL = time.Hour

type runOptions struct {
	baseURL   string
	inProcess bool
	format    string
	fallback  bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the chaos experiment",
		Long: `Run the chaos experiment against a running server (default) or against an
in-process service over in-memory stores (--in-process).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				printErr(cmd, err)
				return err
			}
			if opts.baseURL != "" {
				cfg.BaseURL = opts.baseURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			verdict, err := runChaos(ctx, cfg, opts, log)
			if verdict != nil {
				if werr := writeVerdict(cmd.OutOrStdout(), verdict, opts.format); werr != nil {
					printErr(cmd, werr)
				}
			}
			if err != nil {
				printErr(cmd, err)
				return err
			}
			if !verdict.Passed() {
				return ErrRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Server base URL (overrides CHAOS_BASE_URL)")
	cmd.Flags().BoolVar(&opts.inProcess, "in-process", false, "Run against an in-process service seeded with the default catalog")
	cmd.Flags().StringVar(&opts.format, "format", "table", "Verdict output format (table, json)")
	cmd.Flags().BoolVar(&opts.fallback, "fallback", false, "Apply through an ordered list of candidate courses")
	return cmd
}

func writeVerdict(w io.Writer, v *orchestrator.Verdict, format string) error {
	switch format {
	case "json":
		return v.WriteJSON(w)
	case "table", "":
		return v.WriteTable(w)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// system is the target under test together with its invariant auditor.
type system struct {
	target  target.Target
	auditor target.Auditor
}

func runChaos(ctx context.Context, cfg config.Chaos, opts runOptions, log *slog.Logger) (*orchestrator.Verdict, error) {
	identities := identity.NewRegistry(cfg.Seed)

	var (
		sys system
		err error
	)
	if opts.inProcess {
		sys, err = inProcessSystem(ctx, log)
	} else {
		sys, err = httpSystem(cfg)
	}
	if err != nil {
		return nil, err
	}

	courses, err := discoverCourses(ctx, sys.target, identities, cfg.CallTimeout)
	if err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "catalog discovered", "courses", len(courses), "in_process", opts.inProcess)

	o, err := orchestrator.New(sys.target, sys.auditor, identities, orchestratorConfig(cfg, courses, opts.fallback),
		orchestrator.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return o.Run(ctx)
}

func inProcessSystem(ctx context.Context, log *slog.Logger) (system, error) {
	svc, err := service.New(ledger.NewInMemoryStore(), registration.NewInMemoryStore(), journal.NewInMemoryStore(),
		service.WithLogger(log))
	if err != nil {
		return system{}, err
	}
	if err := svc.SeedCourses(ctx, seed.Defaults()); err != nil {
		return system{}, err
	}
	t := target.NewInProcess(svc)
	return system{target: t, auditor: t}, nil
}

func httpSystem(cfg config.Chaos) (system, error) {
	tokens, err := token.NewService(cfg.JWTSigningKey)
	if err != nil {
		return system{}, err
	}
	t, err := target.NewHTTP(cfg.BaseURL, identity.NewMinter(tokens, tokenTTL), target.WithAdminToken(cfg.AdminToken))
	if err != nil {
		return system{}, err
	}
	return system{target: t, auditor: t}, nil
}

// discoverCourses lists the catalog once so sessions have a pool to fall
// back on when a browse finds nothing.
func discoverCourses(ctx context.Context, t target.Target, identities *identity.Registry, timeout time.Duration) ([]string, error) {
	student, err := identities.Next()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	courses, err := t.SearchCourses(ctx, student.ID, models.CourseFilter{})
	if err != nil {
		return nil, fmt.Errorf("discover catalog: %w", err)
	}
	if len(courses) == 0 {
		return nil, errors.New("discover catalog: no courses offered")
	}
	keys := make([]string, len(courses))
	for i, c := range courses {
		keys[i] = c.Key
	}
	return keys, nil
}

func orchestratorConfig(cfg config.Chaos, courses []string, fallback bool) orchestrator.Config {
	load := loadgen.Config{
		Courses:           courses,
		CancelProbability: cfg.CancelProbability,
		ThinkTimeMin:      cfg.ThinkTimeMin,
		ThinkTimeMax:      cfg.ThinkTimeMax,
		CallTimeout:       cfg.CallTimeout,
		Browse:            true,
		Fallback:          fallback,
		Seed:              cfg.Seed,
	}
	concurrent := load
	concurrent.Concurrency = cfg.ConcurrentSessions
	concurrent.Sessions = cfg.ConcurrentSessions

	high := load
	high.Concurrency = cfg.HighLoadWorkers
	high.Sessions = cfg.HighLoadRequests
	if cfg.Seed != 0 {
		high.Seed = cfg.Seed + 1
	}

	return orchestrator.Config{
		Concurrent:       concurrent,
		HighLoad:         high,
		SuccessThreshold: cfg.SuccessThreshold,
		MaxErrorRatio:    cfg.MaxErrorRatio,
		FaultDelayMin:    cfg.FaultDelayMin,
		FaultDelayMax:    cfg.FaultDelayMax,
		FaultSeed:        uint64(cfg.Seed),
		FaultCalls:       cfg.FaultCalls,
		FaultMinElapsed:  cfg.FaultMinElapsed,
		ProbeTimeout:     cfg.ProbeTimeout,
		RecoveryTimeout:  cfg.RecoveryTimeout,
		RecoveryInterval: cfg.RecoveryInterval,
	}
}
