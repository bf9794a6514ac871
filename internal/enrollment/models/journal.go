package models

import (
	"time"

	"github.com/google/uuid"
)

// JournalStage says which step of an admission a journal entry is guarding.
type JournalStage string

const (
	// StageReserving: apply in flight; the registration may be Applied without a seat.
	StageReserving JournalStage = "reserving"
	// StageCancelling: cancel in flight; the seat may still be counted after the flip.
	StageCancelling JournalStage = "cancelling"
	// StageCompensate: seat reservation failed or its outcome is unknown; any seat
	// the pair holds must be dropped and the registration reverted.
	StageCompensate JournalStage = "compensate"
	// StageRelease: cancel committed; one seat must be given back.
	StageRelease JournalStage = "release"
)

// JournalEntry is a write-ahead record of an admission step that must finish
// (or be undone) for the ledger and the registrations to agree.
type JournalEntry struct {
	ID         uuid.UUID       `json:"id"`
	Stage      JournalStage    `json:"stage"`
	StudentID  string          `json:"student_id"`
	CourseKey  string          `json:"course_key"`
	Transition ApplyTransition `json:"transition,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"last_error,omitempty"`
}

// NewJournalEntry creates an entry for the given stage.
func NewJournalEntry(stage JournalStage, studentID, courseKey string, now time.Time) *JournalEntry {
	return &JournalEntry{
		ID:        uuid.New(),
		Stage:     stage,
		StudentID: studentID,
		CourseKey: courseKey,
		CreatedAt: now,
	}
}
