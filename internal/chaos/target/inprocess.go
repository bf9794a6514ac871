package target

import (
	"context"

	"enrollment/internal/enrollment/models"
)

// Service is the slice of the admission service an in-process run needs.
type Service interface {
	Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error)
	Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error)
	ApplyFirstAvailable(ctx context.Context, studentID string, candidates []string) (*models.FallbackResult, error)
	DropdownOptions(ctx context.Context) (*models.DropdownOptions, error)
	SearchCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, error)
	AuditAll(ctx context.Context) (*models.InvariantReport, error)
	Health(ctx context.Context) error
}

// InProcess calls a service directly. Identity is passed through as given.
type InProcess struct {
	service Service
}

func NewInProcess(service Service) *InProcess {
	return &InProcess{service: service}
}

func (t *InProcess) Apply(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	return t.service.Apply(ctx, studentID, courseKey)
}

func (t *InProcess) Cancel(ctx context.Context, studentID, courseKey string) (*models.Decision, error) {
	return t.service.Cancel(ctx, studentID, courseKey)
}

func (t *InProcess) ApplyFirstAvailable(ctx context.Context, studentID string, candidates []string) (*models.FallbackResult, error) {
	return t.service.ApplyFirstAvailable(ctx, studentID, candidates)
}

func (t *InProcess) FetchOptions(ctx context.Context, _ string) (*models.DropdownOptions, error) {
	return t.service.DropdownOptions(ctx)
}

func (t *InProcess) SearchCourses(ctx context.Context, _ string, filter models.CourseFilter) ([]*models.Course, error) {
	return t.service.SearchCourses(ctx, filter)
}

func (t *InProcess) Health(ctx context.Context) error {
	return t.service.Health(ctx)
}

func (t *InProcess) AuditAll(ctx context.Context) (*models.InvariantReport, error) {
	return t.service.AuditAll(ctx)
}
