// Package events streams admission decisions to downstream consumers.
//
// Publishing never blocks an admission: decisions go into a bounded buffer
// and a Worker drains it into a Sink (Kafka in production, memory in tests).
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"enrollment/internal/enrollment/models"
)

// Event is one admission decision as seen by consumers.
type Event struct {
	ID        uuid.UUID           `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	RequestID string              `json:"request_id,omitempty"`
	Kind      models.IntentKind   `json:"kind"`
	StudentID string              `json:"student_id"`
	CourseKey string              `json:"course_key"`
	Outcome   models.Outcome      `json:"outcome"`
	Reason    models.RejectReason `json:"reason,omitempty"`
}

// FromDecision builds an event for a decision.
func FromDecision(d *models.Decision, requestID string, now time.Time) Event {
	return Event{
		ID:        uuid.New(),
		Timestamp: now,
		RequestID: requestID,
		Kind:      d.Intent.Kind,
		StudentID: d.Intent.StudentID,
		CourseKey: d.Intent.CourseKey,
		Outcome:   d.Outcome,
		Reason:    d.Reason,
	}
}

// Sink persists or forwards a batch of events.
type Sink interface {
	Write(ctx context.Context, batch []Event) error
}
