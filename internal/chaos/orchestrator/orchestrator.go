// Package orchestrator sequences a chaos run against the enrollment system
// and decides whether it passed.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"enrollment/internal/chaos/faults"
	"enrollment/internal/chaos/health"
	"enrollment/internal/chaos/identity"
	"enrollment/internal/chaos/loadgen"
	"enrollment/internal/chaos/target"
)

// Config shapes one run.
type Config struct {
	Concurrent loadgen.Config
	HighLoad   loadgen.Config

	// SuccessThreshold is the minimum share of decided outcomes in a load phase.
	SuccessThreshold float64
	// MaxErrorRatio is the maximum share of errored outcomes in a load phase.
	MaxErrorRatio float64

	FaultDelayMin time.Duration
	FaultDelayMax time.Duration
	FaultSeed     uint64
	// FaultCalls dropdown fetches run concurrently through the delayed target
	// and must take longer than FaultMinElapsed in total.
	FaultCalls      int
	FaultMinElapsed time.Duration
	// MaxUndelayedLatency bounds the unwrapped call made after the fault window.
	// Zero means FaultDelayMin.
	MaxUndelayedLatency time.Duration

	ProbeTimeout     time.Duration
	RecoveryTimeout  time.Duration
	RecoveryInterval time.Duration
}

// DefaultConfig mirrors the reference experiment: 20 browsing sessions, a
// 1-3s delay window over ten dropdown fetches, then 50 sessions on ten workers.
func DefaultConfig() Config {
	return Config{
		Concurrent: loadgen.Config{
			Concurrency:       20,
			Sessions:          20,
			CancelProbability: 0.3,
			ThinkTimeMin:      500 * time.Millisecond,
			ThinkTimeMax:      2 * time.Second,
			CallTimeout:       10 * time.Second,
			Browse:            true,
		},
		HighLoad: loadgen.Config{
			Concurrency:       10,
			Sessions:          50,
			CancelProbability: 0.3,
			ThinkTimeMin:      500 * time.Millisecond,
			ThinkTimeMax:      2 * time.Second,
			CallTimeout:       10 * time.Second,
			Browse:            true,
		},
		SuccessThreshold: 0.8,
		FaultDelayMin:    time.Second,
		FaultDelayMax:    3 * time.Second,
		FaultCalls:       10,
		FaultMinElapsed:  time.Second,
		ProbeTimeout:     5 * time.Second,
		RecoveryTimeout:  30 * time.Second,
		RecoveryInterval: 5 * time.Second,
	}
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if err := c.Concurrent.Validate(); err != nil {
		return fmt.Errorf("concurrent load: %w", err)
	}
	if err := c.HighLoad.Validate(); err != nil {
		return fmt.Errorf("high load: %w", err)
	}
	if c.SuccessThreshold < 0 || c.SuccessThreshold > 1 {
		return errors.New("success threshold must be within [0, 1]")
	}
	if c.MaxErrorRatio < 0 || c.MaxErrorRatio > 1 {
		return errors.New("max error ratio must be within [0, 1]")
	}
	if c.FaultCalls <= 0 {
		return errors.New("fault calls must be positive")
	}
	if c.RecoveryTimeout <= 0 || c.RecoveryInterval <= 0 {
		return errors.New("recovery timeout and interval must be positive")
	}
	return nil
}

// Orchestrator drives the phases of one run in sequence.
type Orchestrator struct {
	target     target.Target
	auditor    target.Auditor
	identities *identity.Registry
	probe      *health.Probe
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the wall clock used for verdict timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func New(t target.Target, auditor target.Auditor, identities *identity.Registry, cfg Config, opts ...Option) (*Orchestrator, error) {
	if t == nil {
		return nil, errors.New("target is required")
	}
	if auditor == nil {
		return nil, errors.New("auditor is required")
	}
	if identities == nil {
		return nil, errors.New("identity registry is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chaos config: %w", err)
	}
	if cfg.MaxUndelayedLatency <= 0 {
		cfg.MaxUndelayedLatency = cfg.FaultDelayMin
	}
	o := &Orchestrator{
		target:     t,
		auditor:    auditor,
		identities: identities,
		probe:      health.NewProbe(t, identities, cfg.ProbeTimeout),
		cfg:        cfg,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// outcome is what a phase tells the driver beyond pass or fail.
type outcome int

const (
	proceed outcome = iota
	// recoverAfter asks for a recovery wait even when the phase passed.
	recoverAfter
	// abort stops the run without a recovery wait.
	abort
)

type phaseFunc func(ctx context.Context, res *PhaseResult) (outcome, error)

// Run executes the experiment and returns its verdict. The error is non-nil
// only when ctx ends the run early; the partial verdict is still returned.
func (o *Orchestrator) Run(ctx context.Context) (*Verdict, error) {
	v := &Verdict{Result: ResultPass, StartedAt: o.now()}
	defer func() {
		v.Duration = o.now().Sub(v.StartedAt)
	}()

	o.logger.InfoContext(ctx, "chaos run started")

	steps := []struct {
		phase Phase
		fn    phaseFunc
	}{
		{PhaseHealthCheck, o.initialHealthCheck},
		{PhaseConcurrentLoad, o.loadPhase(o.cfg.Concurrent, v)},
		{PhaseFaultInjection, o.faultPhase},
		{PhaseHighLoad, o.loadPhase(o.cfg.HighLoad, v)},
		{PhaseFinalHealthCheck, o.finalHealthCheck},
	}

	for _, step := range steps {
		res, next, err := o.runPhase(ctx, step.phase, step.fn)
		v.record(res)
		if err != nil {
			v.Result = ResultFail
			return v, err
		}
		if next == abort {
			v.Result = ResultFail
			o.finish(ctx, v)
			return v, nil
		}
		if !res.Passed || next == recoverAfter {
			rec, err := o.recoveryWait(ctx)
			v.record(rec)
			if err != nil {
				v.Result = ResultFail
				return v, err
			}
			if !rec.Passed {
				v.Result = ResultFail
				o.finish(ctx, v)
				return v, nil
			}
		}
	}

	o.finish(ctx, v)
	return v, nil
}

func (o *Orchestrator) finish(ctx context.Context, v *Verdict) {
	o.logger.InfoContext(ctx, "chaos run finished",
		"result", v.Result,
		"phases", len(v.Phases),
		"invariant_violation", v.Violation.Violated(),
	)
}

func (o *Orchestrator) runPhase(ctx context.Context, phase Phase, fn phaseFunc) (PhaseResult, outcome, error) {
	o.logger.InfoContext(ctx, "chaos phase started", "phase", phase)
	res := PhaseResult{Phase: phase}
	start := time.Now()
	next, err := fn(ctx, &res)
	res.Duration = time.Since(start)
	if err != nil {
		res.Passed = false
		res.Detail = err.Error()
	}

	level := slog.LevelInfo
	if !res.Passed {
		level = slog.LevelWarn
	}
	o.logger.Log(ctx, level, "chaos phase finished",
		"phase", phase,
		"passed", res.Passed,
		"detail", res.Detail,
		"duration", res.Duration,
	)
	return res, next, err
}

func (o *Orchestrator) initialHealthCheck(ctx context.Context, res *PhaseResult) (outcome, error) {
	sample := o.probe.Check(ctx)
	if err := ctx.Err(); err != nil {
		return abort, err
	}
	res.Passed = sample.Healthy
	if !sample.Healthy {
		res.Detail = "system unhealthy before the run: " + sample.Error()
		return abort, nil
	}
	res.Detail = fmt.Sprintf("healthy in %s", sample.Latency.Round(time.Millisecond))
	return proceed, nil
}

func (o *Orchestrator) finalHealthCheck(ctx context.Context, res *PhaseResult) (outcome, error) {
	sample := o.probe.Check(ctx)
	if err := ctx.Err(); err != nil {
		return abort, err
	}
	res.Passed = sample.Healthy
	if !sample.Healthy {
		res.Detail = "system unhealthy after the run: " + sample.Error()
		return proceed, nil
	}
	res.Detail = fmt.Sprintf("healthy in %s", sample.Latency.Round(time.Millisecond))
	return proceed, nil
}

// loadPhase runs one load configuration and audits the invariants after it.
// A violation aborts the run and is captured on the verdict.
func (o *Orchestrator) loadPhase(cfg loadgen.Config, v *Verdict) phaseFunc {
	return func(ctx context.Context, res *PhaseResult) (outcome, error) {
		gen, err := loadgen.New(o.target, o.identities, cfg, loadgen.WithLogger(o.logger))
		if err != nil {
			return abort, err
		}
		report, err := gen.Run(ctx)
		res.Load = report
		if err != nil {
			return abort, err
		}

		audit, err := o.auditor.AuditAll(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return abort, ctxErr
			}
			res.Detail = fmt.Sprintf("invariant audit failed: %v", err)
			return proceed, nil
		}
		if audit.Violated() {
			v.Violation = audit
			res.Detail = "invariant violation: " + audit.String()
			o.logger.ErrorContext(ctx, "invariant violation detected",
				"phase", res.Phase,
				"detail", audit.String(),
			)
			return abort, nil
		}

		res.Passed = report.SuccessRatio() >= o.cfg.SuccessThreshold && report.ErrorRatio() <= o.cfg.MaxErrorRatio
		res.Detail = fmt.Sprintf("%d accepted, %d rejected, %d errored (success %.0f%%)",
			report.Accepted, report.Rejected, report.Errored, report.SuccessRatio()*100)
		if errs := report.FirstErrors(3); len(errs) > 0 {
			res.Errors = errs
		}
		return proceed, nil
	}
}

// faultPhase fetches dropdown options through a delayed target, then checks
// the unwrapped path answers without the injected delay. A recovery wait
// always follows it.
func (o *Orchestrator) faultPhase(ctx context.Context, res *PhaseResult) (outcome, error) {
	var opts []faults.Option
	if o.cfg.FaultSeed != 0 {
		opts = append(opts, faults.WithSeed(o.cfg.FaultSeed))
	}
	injector, err := faults.NewInjector(o.cfg.FaultDelayMin, o.cfg.FaultDelayMax, opts...)
	if err != nil {
		return abort, err
	}

	var elapsed time.Duration
	err = faults.Scope(ctx, injector, o.target, func(ctx context.Context, delayed target.Target) error {
		start := time.Now()
		err := o.fetchConcurrently(ctx, delayed)
		elapsed = time.Since(start)
		return err
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return abort, ctxErr
	}
	if err != nil {
		res.Detail = fmt.Sprintf("delayed fetches failed: %v", err)
		return recoverAfter, nil
	}
	if elapsed <= o.cfg.FaultMinElapsed {
		res.Detail = fmt.Sprintf("delay not observed: %d fetches took %s", o.cfg.FaultCalls, elapsed.Round(time.Millisecond))
		return recoverAfter, nil
	}

	undelayed, err := o.timeFetch(ctx, o.target)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return abort, ctxErr
	}
	if err != nil {
		res.Detail = fmt.Sprintf("unwrapped fetch failed: %v", err)
		return recoverAfter, nil
	}
	if undelayed >= o.cfg.MaxUndelayedLatency {
		res.Detail = fmt.Sprintf("unwrapped fetch still slow: %s", undelayed.Round(time.Millisecond))
		return recoverAfter, nil
	}

	res.Passed = true
	res.Detail = fmt.Sprintf("%d delayed fetches took %s, unwrapped fetch %s",
		o.cfg.FaultCalls, elapsed.Round(time.Millisecond), undelayed.Round(time.Millisecond))
	return recoverAfter, nil
}

func (o *Orchestrator) fetchConcurrently(ctx context.Context, t target.Target) error {
	eg, ctx := errgroup.WithContext(ctx)
	for range o.cfg.FaultCalls {
		eg.Go(func() error {
			_, err := o.timeFetch(ctx, t)
			return err
		})
	}
	return eg.Wait()
}

func (o *Orchestrator) timeFetch(ctx context.Context, t target.Target) (time.Duration, error) {
	student, err := o.identities.Next()
	if err != nil {
		return 0, err
	}
	// The call budget covers the largest injected delay on top of the usual timeout.
	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if o.cfg.Concurrent.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.FaultDelayMax+o.cfg.Concurrent.CallTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	if _, err := t.FetchOptions(callCtx, student.ID); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}

func (o *Orchestrator) recoveryWait(ctx context.Context) (PhaseResult, error) {
	res, _, err := o.runPhase(ctx, PhaseRecoveryWait, func(ctx context.Context, res *PhaseResult) (outcome, error) {
		sample, err := o.probe.WaitForRecovery(ctx, o.cfg.RecoveryTimeout, o.cfg.RecoveryInterval)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return abort, ctxErr
		}
		if err != nil {
			res.Detail = err.Error()
			return abort, nil
		}
		res.Passed = true
		res.Detail = fmt.Sprintf("healthy in %s", sample.Latency.Round(time.Millisecond))
		return proceed, nil
	})
	return res, err
}
