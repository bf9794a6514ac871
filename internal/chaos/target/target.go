// Package target abstracts the system a chaos run drives, so the same
// experiment can run over HTTP against a deployed server or in-process
// against a service value.
package target

import (
	"context"
	"errors"

	"enrollment/internal/enrollment/models"
)

// ErrUnexpectedResponse marks a reply that is neither a decision nor a
// recognised failure, for example a 502 from a proxy.
var ErrUnexpectedResponse = errors.New("unexpected response")

// Target is the call-making capability the load generator, fault injector
// and health probe share. Business rejections come back as decisions;
// errors are transport or server faults.
type Target interface {
	Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error)
	Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error)
	ApplyFirstAvailable(ctx context.Context, studentID string, candidates []string) (*models.FallbackResult, error)
	FetchOptions(ctx context.Context, studentID string) (*models.DropdownOptions, error)
	SearchCourses(ctx context.Context, studentID string, filter models.CourseFilter) ([]*models.Course, error)
	Health(ctx context.Context) error
}

// Auditor reads the invariant report of the system under test.
type Auditor interface {
	AuditAll(ctx context.Context) (*models.InvariantReport, error)
}
