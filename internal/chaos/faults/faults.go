// Package faults injects latency into calls made through a target.Target.
//
// Only added delay is simulated. Packet loss, reordering and partial
// responses are out of reach of a call-level decorator.
package faults

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"enrollment/internal/chaos/target"
	"enrollment/internal/enrollment/models"
)

// Injector draws delays uniformly from [MinDelay, MaxDelay].
type Injector struct {
	minDelay time.Duration
	maxDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Injector)

// WithSeed makes the delay sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(i *Injector) {
		i.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func NewInjector(minDelay, maxDelay time.Duration, opts ...Option) (*Injector, error) {
	if minDelay < 0 || maxDelay < minDelay {
		return nil, errors.New("delay range must satisfy 0 <= min <= max")
	}
	i := &Injector{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Delay returns the next delay in range.
func (i *Injector) Delay() time.Duration {
	span := i.maxDelay - i.minDelay
	if span == 0 {
		return i.minDelay
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.minDelay + time.Duration(i.rng.Int64N(int64(span)+1))
}

// Wrap returns an armed decorator over base. base itself is never modified.
func (i *Injector) Wrap(base target.Target) *DelayedTarget {
	d := &DelayedTarget{base: base, injector: i}
	d.armed.Store(true)
	return d
}

// Scope arms a decorator for the duration of fn and disarms it on every exit
// path, including a panic. A reference that escapes fn behaves like base.
func Scope(ctx context.Context, injector *Injector, base target.Target, fn func(ctx context.Context, t target.Target) error) error {
	d := injector.Wrap(base)
	defer d.Disarm()
	return fn(ctx, d)
}

// DelayedTarget sleeps before delegating while armed.
type DelayedTarget struct {
	base     target.Target
	injector *Injector
	armed    atomic.Bool
}

// Disarm restores the undelayed path.
func (d *DelayedTarget) Disarm() {
	d.armed.Store(false)
}

// Armed reports whether calls are delayed.
func (d *DelayedTarget) Armed() bool {
	return d.armed.Load()
}

// wait sleeps for one delay or until ctx ends.
func (d *DelayedTarget) wait(ctx context.Context) error {
	if !d.armed.Load() {
		return nil
	}
	timer := time.NewTimer(d.injector.Delay())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *DelayedTarget) Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.base.Apply(ctx, studentID, courseKey)
}

func (d *DelayedTarget) Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.base.Cancel(ctx, studentID, courseKey)
}

func (d *DelayedTarget) ApplyFirstAvailable(ctx context.Context, studentID string, candidates []string) (*models.FallbackResult, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.base.ApplyFirstAvailable(ctx, studentID, candidates)
}

func (d *DelayedTarget) FetchOptions(ctx context.Context, studentID string) (*models.DropdownOptions, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.base.FetchOptions(ctx, studentID)
}

func (d *DelayedTarget) SearchCourses(ctx context.Context, studentID string, filter models.CourseFilter) ([]*models.Course, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return d.base.SearchCourses(ctx, studentID, filter)
}

func (d *DelayedTarget) Health(ctx context.Context) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	return d.base.Health(ctx)
}
