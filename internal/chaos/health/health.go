// Package health probes whether the system under test is serving.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"enrollment/internal/chaos/identity"
	"enrollment/internal/chaos/target"
	"enrollment/internal/enrollment/models"
)

// ErrNotRecovered is returned when the system stays unhealthy for the whole wait.
var ErrNotRecovered = errors.New("system did not recover")

const defaultTimeout = 5 * time.Second

// Sample is one probe result. It is never persisted.
type Sample struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	At      time.Time     `json:"at"`
	Err     error         `json:"-"`
}

// Error returns the failure message, or "" for a healthy sample.
func (s Sample) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Probe checks the health endpoint and then runs a course search as a fresh
// student, so a server that answers /health but cannot serve reads is unhealthy.
type Probe struct {
	target     target.Target
	identities *identity.Registry
	timeout    time.Duration
}

func NewProbe(t target.Target, identities *identity.Registry, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Probe{target: t, identities: identities, timeout: timeout}
}

// Check takes one sample.
func (p *Probe) Check(ctx context.Context) Sample {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.check(ctx)
	return Sample{Healthy: err == nil, Latency: time.Since(start), At: start, Err: err}
}

func (p *Probe) check(ctx context.Context) error {
	if err := p.target.Health(ctx); err != nil {
		return err
	}
	student, err := p.identities.Next()
	if err != nil {
		return fmt.Errorf("probe identity: %w", err)
	}
	if _, err := p.target.SearchCourses(ctx, student.ID, models.CourseFilter{}); err != nil {
		return err
	}
	return nil
}

// WaitForRecovery samples immediately and then every interval until a sample
// is healthy or timeout elapses. It returns the last sample taken.
func (p *Probe) WaitForRecovery(ctx context.Context, timeout, interval time.Duration) (Sample, error) {
	var last Sample
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		last = p.Check(ctx)
		if !last.Healthy {
			return struct{}{}, last.Err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return last, ctxErr
		}
		return last, fmt.Errorf("%w within %s: %w", ErrNotRecovered, timeout, err)
	}
	return last, nil
}
