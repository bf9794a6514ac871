package models

import (
	"fmt"
	"strings"

	"enrollment/pkg/platform/sentinel"
)

// CourseAudit compares the seat ledger with the registration set for one course.
type CourseAudit struct {
	CourseKey string `json:"course_key"`
	Capacity  int    `json:"capacity"`
	Occupied  int    `json:"occupied"`
	Applied   int    `json:"applied"`
}

// OverCapacity reports occupied > capacity.
func (a CourseAudit) OverCapacity() bool {
	return a.Occupied > a.Capacity
}

// Drift reports a mismatch between counted seats and Applied registrations.
// Only meaningful at quiescent points.
func (a CourseAudit) Drift() bool {
	return a.Occupied != a.Applied
}

// InvariantReport is the captured detail of an invariant check.
type InvariantReport struct {
	Courses    []CourseAudit `json:"courses"`
	Violations []string      `json:"violations,omitempty"`
}

// Add records a course audit and any violation it shows.
func (r *InvariantReport) Add(a CourseAudit) {
	r.Courses = append(r.Courses, a)
	if a.OverCapacity() {
		r.Violations = append(r.Violations, fmt.Sprintf("%s: occupied %d exceeds capacity %d", a.CourseKey, a.Occupied, a.Capacity))
	}
	if a.Drift() {
		r.Violations = append(r.Violations, fmt.Sprintf("%s: occupied %d but %d applied registrations", a.CourseKey, a.Occupied, a.Applied))
	}
}

// Violated reports whether any invariant failed.
func (r *InvariantReport) Violated() bool {
	return r != nil && len(r.Violations) > 0
}

func (r *InvariantReport) String() string {
	if !r.Violated() {
		return "invariants hold"
	}
	return strings.Join(r.Violations, "; ")
}

// Err returns a sentinel.ErrInvariantViolation wrapping the violations, or nil.
func (r *InvariantReport) Err() error {
	if !r.Violated() {
		return nil
	}
	return fmt.Errorf("%w: %s", sentinel.ErrInvariantViolation, r.String())
}
