package models

import "fmt"

// IntentKind distinguishes apply from cancel requests.
type IntentKind string

const (
	IntentApply  IntentKind = "apply"
	IntentCancel IntentKind = "cancel"
)

// Intent is an immutable admission request.
type Intent struct {
	Kind      IntentKind `json:"kind"`
	StudentID string     `json:"student_id"`
	CourseKey string     `json:"course_key"`
}

// Apply builds an apply intent.
func Apply(studentID, courseKey string) Intent {
	return Intent{Kind: IntentApply, StudentID: studentID, CourseKey: courseKey}
}

// Cancel builds a cancel intent.
func Cancel(studentID, courseKey string) Intent {
	return Intent{Kind: IntentCancel, StudentID: studentID, CourseKey: courseKey}
}

func (i Intent) String() string {
	return fmt.Sprintf("%s(%s, %s)", i.Kind, i.StudentID, i.CourseKey)
}

// Outcome is the business answer to an intent.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// RejectReason explains a rejected decision. Rejections are normal results.
type RejectReason string

const (
	ReasonNone           RejectReason = ""
	ReasonAlreadyApplied RejectReason = "already_applied"
	ReasonCourseFull     RejectReason = "course_full"
	ReasonNotFound       RejectReason = "not_found"
	ReasonNotApplied     RejectReason = "not_applied"
	ReasonCourseNotFound RejectReason = "course_not_found"
)

// Message is the human readable text returned to clients.
func (r RejectReason) Message() string {
	switch r {
	case ReasonAlreadyApplied:
		return "already applied"
	case ReasonCourseFull:
		return "course full"
	case ReasonNotFound:
		return "registration not found"
	case ReasonNotApplied:
		return "registration not applied"
	case ReasonCourseNotFound:
		return "course not found"
	default:
		return ""
	}
}

// Decision is what the admission service returns for a single intent.
type Decision struct {
	Intent  Intent       `json:"intent"`
	Outcome Outcome      `json:"outcome"`
	Reason  RejectReason `json:"reason,omitempty"`
}

// Accepted builds an accepted decision.
func Accepted(intent Intent) *Decision {
	return &Decision{Intent: intent, Outcome: OutcomeAccepted}
}

// Rejected builds a rejected decision.
func Rejected(intent Intent, reason RejectReason) *Decision {
	return &Decision{Intent: intent, Outcome: OutcomeRejected, Reason: reason}
}

// IsAccepted reports whether the intent took effect.
func (d *Decision) IsAccepted() bool {
	return d != nil && d.Outcome == OutcomeAccepted
}

// Message renders the client-facing message for the decision.
func (d *Decision) Message() string {
	if d.IsAccepted() {
		if d.Intent.Kind == IntentCancel {
			return "cancellation completed"
		}
		return "application completed"
	}
	return d.Reason.Message()
}

// FallbackResult records every attempt of an ordered apply-until-accepted run.
type FallbackResult struct {
	Attempts []*Decision `json:"attempts"`
	Accepted *Decision   `json:"accepted,omitempty"`
}

// Exhausted reports whether no candidate accepted the student.
func (r *FallbackResult) Exhausted() bool {
	return r.Accepted == nil
}
