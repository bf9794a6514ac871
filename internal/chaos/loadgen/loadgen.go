// Package loadgen drives synthetic student sessions against a target and
// records one outcome per admission intent.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"enrollment/internal/chaos/identity"
	"enrollment/internal/chaos/target"
	"enrollment/internal/enrollment/models"
)

// ErrNoCourse means a session had nothing to apply for.
var ErrNoCourse = errors.New("no course to apply for")

// Config shapes one load phase.
type Config struct {
	// Concurrency bounds the sessions in flight.
	Concurrency int
	// Sessions is the number of student sessions to run.
	Sessions int
	// Courses is the pool sessions pick from when not browsing, and the
	// fallback candidates when Fallback is set.
	Courses []string
	// CancelProbability is the chance an admitted session cancels after thinking.
	CancelProbability float64
	ThinkTimeMin      time.Duration
	ThinkTimeMax      time.Duration
	// CallTimeout bounds every call to the target.
	CallTimeout time.Duration
	// Browse picks the course through dropdown options and search, like a student would.
	Browse bool
	// Fallback applies through the ordered candidate list instead of a single course.
	Fallback bool
	// RatePerSecond paces session starts; zero means unpaced.
	RatePerSecond float64
	Seed          int64
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.Sessions <= 0 {
		return errors.New("sessions must be positive")
	}
	if c.CancelProbability < 0 || c.CancelProbability > 1 {
		return errors.New("cancel probability must be within [0, 1]")
	}
	if c.ThinkTimeMin < 0 || c.ThinkTimeMax < c.ThinkTimeMin {
		return errors.New("think time range must satisfy 0 <= min <= max")
	}
	if !c.Browse && len(c.Courses) == 0 {
		return errors.New("courses are required unless browsing")
	}
	if c.Fallback && len(c.Courses) == 0 {
		return errors.New("fallback needs candidate courses")
	}
	return nil
}

// Generator runs sessions against one target.
type Generator struct {
	target     target.Target
	identities *identity.Registry
	cfg        Config
	logger     *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Generator)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

func New(t target.Target, identities *identity.Registry, cfg Config, opts ...Option) (*Generator, error) {
	if t == nil {
		return nil, errors.New("target is required")
	}
	if identities == nil {
		return nil, errors.New("identity registry is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = rand.Uint64()
	}
	g := &Generator{
		target:     t,
		identities: identities,
		cfg:        cfg,
		logger:     slog.New(slog.DiscardHandler),
		rng:        rand.New(rand.NewPCG(seed, seed>>7|1)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Run executes every session and returns the collected report. Sessions
// that cannot start because ctx ended still produce an Errored outcome.
func (g *Generator) Run(ctx context.Context) (*Report, error) {
	var limiter *rate.Limiter
	if g.cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(g.cfg.RatePerSecond), 1)
	}

	rec := &recorder{}
	start := time.Now()

	var eg errgroup.Group
	eg.SetLimit(g.cfg.Concurrency)
	for range g.cfg.Sessions {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				rec.add(Outcome{Kind: KindErrored, Err: err})
				continue
			}
		}
		eg.Go(func() error {
			g.session(ctx, rec)
			return nil
		})
	}
	_ = eg.Wait()

	report := rec.report(time.Since(start))
	g.logger.InfoContext(ctx, "load phase finished",
		"sessions", g.cfg.Sessions,
		"accepted", report.Accepted,
		"rejected", report.Rejected,
		"errored", report.Errored,
		"duration", report.Duration,
	)
	return report, ctx.Err()
}

// session runs one student through browse, apply, think and maybe cancel.
// A panic anywhere in the session is recorded as an Errored outcome.
func (g *Generator) session(ctx context.Context, rec *recorder) {
	// pending is the intent in flight, if any, when a panic unwinds the session.
	var pending models.Intent
	defer func() {
		if r := recover(); r != nil {
			rec.add(Outcome{Intent: pending, Kind: KindErrored, Err: fmt.Errorf("session panic: %v", r)})
		}
	}()

	student, err := g.identities.Next()
	if err != nil {
		rec.add(Outcome{Kind: KindErrored, Err: err})
		return
	}

	courseKey, err := g.chooseCourse(ctx, student.ID)
	if err != nil {
		rec.add(Outcome{Intent: models.Apply(student.ID, ""), Kind: KindErrored, Err: err})
		return
	}

	pending = models.Apply(student.ID, courseKey)
	admitted, ok := g.apply(ctx, rec, student.ID, courseKey)
	pending = models.Intent{}
	if !ok {
		return
	}

	if err := g.think(ctx); err != nil {
		return
	}
	if !g.chance(g.cfg.CancelProbability) {
		return
	}

	pending = models.Cancel(student.ID, admitted)
	rec.add(g.call(ctx, pending, func(ctx context.Context) (*models.Decision, error) {
		return g.target.Cancel(ctx, student.ID, admitted)
	}))
}

// apply records the application attempts and returns the admitted course.
func (g *Generator) apply(ctx context.Context, rec *recorder, studentID, courseKey string) (string, bool) {
	if !g.cfg.Fallback {
		intent := models.Apply(studentID, courseKey)
		out := g.call(ctx, intent, func(ctx context.Context) (*models.Decision, error) {
			return g.target.Apply(ctx, studentID, courseKey)
		})
		rec.add(out)
		return courseKey, out.Kind == KindAccepted
	}

	candidates := g.candidates(courseKey)
	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	start := time.Now()
	result, err := g.target.ApplyFirstAvailable(callCtx, studentID, candidates)
	latency := time.Since(start)
	if err != nil {
		rec.add(Outcome{Intent: models.Apply(studentID, candidates[0]), Kind: KindErrored, Latency: latency, Err: err})
		return "", false
	}
	for _, d := range result.Attempts {
		rec.add(fromDecision(d, latency))
	}
	if result.Exhausted() {
		return "", false
	}
	return result.Accepted.Intent.CourseKey, true
}

// call runs one intent under the per-call timeout and classifies the result.
func (g *Generator) call(ctx context.Context, intent models.Intent, fn func(context.Context) (*models.Decision, error)) Outcome {
	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	start := time.Now()
	decision, err := fn(callCtx)
	latency := time.Since(start)
	if err != nil {
		return Outcome{Intent: intent, Kind: KindErrored, Latency: latency, Err: err}
	}
	return fromDecision(decision, latency)
}

func (g *Generator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, g.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// chooseCourse browses like a student when configured, and otherwise draws
// from the pool. A browse that finds nothing falls back to the pool.
func (g *Generator) chooseCourse(ctx context.Context, studentID string) (string, error) {
	if g.cfg.Browse {
		key, err := g.browse(ctx, studentID)
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	if len(g.cfg.Courses) == 0 {
		return "", ErrNoCourse
	}
	return g.cfg.Courses[g.intN(len(g.cfg.Courses))], nil
}

func (g *Generator) browse(ctx context.Context, studentID string) (string, error) {
	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	opts, err := g.target.FetchOptions(callCtx, studentID)
	if err != nil {
		return "", fmt.Errorf("fetch options: %w", err)
	}
	var filter models.CourseFilter
	if len(opts.Credits) > 0 {
		filter.Credits = opts.Credits[g.intN(len(opts.Credits))]
	}
	if len(opts.Departments) > 0 {
		filter.Department = opts.Departments[g.intN(len(opts.Departments))]
	}

	courses, err := g.target.SearchCourses(callCtx, studentID, filter)
	if err != nil {
		return "", fmt.Errorf("search courses: %w", err)
	}
	if len(courses) == 0 {
		return "", nil
	}
	return courses[g.intN(len(courses))].Key, nil
}

// candidates puts the chosen course first and the shuffled pool after it.
func (g *Generator) candidates(first string) []string {
	rest := make([]string, 0, len(g.cfg.Courses))
	for _, c := range g.cfg.Courses {
		if c != first {
			rest = append(rest, c)
		}
	}
	g.mu.Lock()
	g.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	g.mu.Unlock()
	return append([]string{first}, rest...)
}

func (g *Generator) think(ctx context.Context) error {
	span := g.cfg.ThinkTimeMax - g.cfg.ThinkTimeMin
	d := g.cfg.ThinkTimeMin
	if span > 0 {
		g.mu.Lock()
		d += time.Duration(g.rng.Int64N(int64(span) + 1))
		g.mu.Unlock()
	}
	if d == 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Generator) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < p
}

func (g *Generator) intN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.IntN(n)
}
