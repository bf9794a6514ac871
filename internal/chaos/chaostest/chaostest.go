// Package chaostest builds in-process systems under test for chaos package tests.
package chaostest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"enrollment/internal/chaos/target"
	"enrollment/internal/enrollment/models"
	"enrollment/internal/enrollment/service"
	"enrollment/internal/enrollment/store/journal"
	"enrollment/internal/enrollment/store/ledger"
	"enrollment/internal/enrollment/store/registration"
)

// ErrInjected is the failure Flaky returns while failing.
var ErrInjected = errors.New("injected failure")

// Courses builds n courses keyed C0..Cn-1 with the given capacity.
func Courses(n, capacity int) []*models.Course {
	courses := make([]*models.Course, n)
	for i := range courses {
		courses[i] = &models.Course{
			Key:        fmt.Sprintf("C%d", i),
			Name:       fmt.Sprintf("Course %d", i),
			Credits:    1 + i%3,
			Department: []string{"Computer Science", "Mathematics"}[i%2],
			Capacity:   capacity,
		}
	}
	return courses
}

// Keys returns the course keys in order.
func Keys(courses []*models.Course) []string {
	keys := make([]string, len(courses))
	for i, c := range courses {
		keys[i] = c.Key
	}
	return keys
}

// Service seeds a service over in-memory stores.
func Service(t *testing.T, courses []*models.Course) *service.Service {
	t.Helper()
	seats := ledger.NewInMemoryStore()
	svc, err := service.New(seats, registration.NewInMemoryStore(), journal.NewInMemoryStore(),
		service.WithRetry(time.Millisecond, 20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, svc.SeedCourses(context.Background(), courses))
	return svc
}

// Flaky wraps a target and fails every call while Failing is set.
type Flaky struct {
	target.Target
	Failing atomic.Bool
	Calls   atomic.Int64
}

func NewFlaky(base target.Target) *Flaky {
	return &Flaky{Target: base}
}

func (f *Flaky) fail() error {
	f.Calls.Add(1)
	if f.Failing.Load() {
		return ErrInjected
	}
	return nil
}

func (f *Flaky) Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Target.Apply(ctx, studentID, courseKey)
}

func (f *Flaky) Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Target.Cancel(ctx, studentID, courseKey)
}

func (f *Flaky) FetchOptions(ctx context.Context, studentID string) (*models.DropdownOptions, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Target.FetchOptions(ctx, studentID)
}

func (f *Flaky) SearchCourses(ctx context.Context, studentID string, filter models.CourseFilter) ([]*models.Course, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Target.SearchCourses(ctx, studentID, filter)
}

func (f *Flaky) Health(ctx context.Context) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Target.Health(ctx)
}
