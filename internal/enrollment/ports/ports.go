// Package ports defines the interfaces the admission service consumes.
// Store packages implement them; tests mock them.
package ports

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/requestcontext"
)

// SeatLedger owns per-course seat accounting. Seats are held by name so
// reserve and release are idempotent per holder.
type SeatLedger interface {
	// Seed inserts a course if it is absent. Existing courses keep their occupancy.
	Seed(ctx context.Context, course *models.Course) error

	// TryReserve takes one seat for holder if occupied < capacity. A holder
	// that already has a seat gets (true, nil) without taking another, so a
	// call whose reply was lost can be repeated. A full course is (false, nil).
	TryReserve(ctx context.Context, courseKey, holder string) (bool, error)

	// Release gives holder's seat back. A holder without a seat is (false, nil).
	Release(ctx context.Context, courseKey, holder string) (bool, error)

	// Holds reports whether holder has a seat in the course.
	Holds(ctx context.Context, courseKey, holder string) (bool, error)

	// Get returns the course with its current occupancy.
	Get(ctx context.Context, courseKey string) (*models.Course, error)

	// List returns every course ordered by key.
	List(ctx context.Context) ([]*models.Course, error)
}

// RegistrationStore owns per-(student, course) registration state.
type RegistrationStore interface {
	TransitionToApplied(ctx context.Context, studentID, courseKey string) (models.ApplyTransition, error)
	TransitionToCancelled(ctx context.Context, studentID, courseKey string) (models.CancelTransition, error)

	// Revert undoes an apply transition. Idempotent.
	Revert(ctx context.Context, studentID, courseKey string, transition models.ApplyTransition) error

	Get(ctx context.Context, studentID, courseKey string) (*models.Registration, error)
	ListByStudent(ctx context.Context, studentID string) ([]*models.Registration, error)
	CountApplied(ctx context.Context, courseKey string) (int, error)
}

// Journal records admission steps that must complete or be undone.
type Journal interface {
	Append(ctx context.Context, entry *models.JournalEntry) error
	Update(ctx context.Context, entry *models.JournalEntry) error
	Resolve(ctx context.Context, id uuid.UUID) error
	Pending(ctx context.Context) ([]*models.JournalEntry, error)
	PendingFor(ctx context.Context, studentID, courseKey string) ([]*models.JournalEntry, error)
}

// DecisionPublisher forwards decided intents to downstream consumers.
type DecisionPublisher interface {
	Publish(ctx context.Context, decision *models.Decision) error
}

// LogDecision logs a decision and hands it to the publisher when one is set.
// Publish failures are logged and otherwise ignored.
func LogDecision(ctx context.Context, logger *slog.Logger, publisher DecisionPublisher, decision *models.Decision) {
	attrs := []any{
		"intent", decision.Intent.Kind,
		"student_id", decision.Intent.StudentID,
		"course_key", decision.Intent.CourseKey,
		"outcome", decision.Outcome,
	}
	if decision.Reason != models.ReasonNone {
		attrs = append(attrs, "reason", decision.Reason)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	if logger != nil {
		logger.InfoContext(ctx, "admission decided", attrs...)
	}
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, decision); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to publish admission decision", append(attrs, "error", err)...)
	}
}
