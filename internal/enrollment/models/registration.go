package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle state of a (student, course) pair.
// Absent -> Applied -> Cancelled -> Applied -> ...; rows are never deleted.
type RegistrationStatus string

const (
	StatusApplied   RegistrationStatus = "Applied"
	StatusCancelled RegistrationStatus = "Cancelled"
)

// IsValid checks if the status is one of the supported values.
func (s RegistrationStatus) IsValid() bool {
	return s == StatusApplied || s == StatusCancelled
}

// Registration links a student to a course.
type Registration struct {
	ID        uuid.UUID          `json:"id"`
	StudentID string             `json:"student_id"`
	CourseKey string             `json:"course_key"`
	Status    RegistrationStatus `json:"status"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewRegistration creates an Applied registration for a first-time apply.
func NewRegistration(studentID, courseKey string, now time.Time) *Registration {
	return &Registration{
		ID:        uuid.New(),
		StudentID: studentID,
		CourseKey: courseKey,
		Status:    StatusApplied,
		UpdatedAt: now,
	}
}

// ApplyTransition is the result of moving a registration to Applied.
type ApplyTransition string

const (
	TransitionCreated        ApplyTransition = "created"
	TransitionReactivated    ApplyTransition = "reactivated"
	TransitionAlreadyApplied ApplyTransition = "already_applied"
)

// Mutated reports whether the transition changed stored state and therefore
// needs a seat (or a compensating revert).
func (t ApplyTransition) Mutated() bool {
	return t == TransitionCreated || t == TransitionReactivated
}

// CancelTransition is the result of moving a registration to Cancelled.
type CancelTransition string

const (
	TransitionCancelled  CancelTransition = "cancelled"
	TransitionNotFound   CancelTransition = "not_found"
	TransitionNotApplied CancelTransition = "not_applied"
)
