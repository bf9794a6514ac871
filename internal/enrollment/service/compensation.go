package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
)

// Repairs run detached from the caller's cancellation: once a registration
// has moved, a client hanging up must not leave the stores disagreeing.

// compensate undoes a failed apply: it drops any seat the pair holds, then
// reverts the registration, and resolves the entry. Both steps are
// idempotent, so a reserve whose outcome is unknown is settled the same way.
// On failure the entry is parked for the reconciler.
func (s *Service) compensate(ctx context.Context, entry *models.JournalEntry) error {
	ctx = context.WithoutCancel(ctx)
	err := s.retry(ctx, func() error {
		_, err := s.ledger.Release(ctx, entry.CourseKey, entry.StudentID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return s.registrations.Revert(ctx, entry.StudentID, entry.CourseKey, entry.Transition)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementCompensationFailures()
		}
		s.park(ctx, entry, err)
		return fmt.Errorf("revert registration: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementCompensations()
	}
	s.resolve(ctx, entry)
	return nil
}

// release gives back the seat of a committed cancel and resolves the entry.
// Release is keyed by the student, so retrying one whose reply was lost never
// frees a second seat. On failure the entry is parked for the reconciler.
func (s *Service) release(ctx context.Context, entry *models.JournalEntry) error {
	ctx = context.WithoutCancel(ctx)
	var released, retried bool
	err := s.retry(ctx, func() error {
		ok, err := s.ledger.Release(ctx, entry.CourseKey, entry.StudentID)
		if errors.Is(err, sentinel.ErrNotFound) {
			// The course is gone, and its seats with it.
			return nil
		}
		if err != nil {
			retried = true
			return err
		}
		released = ok
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementReleaseFailures()
		}
		s.park(ctx, entry, err)
		return fmt.Errorf("release seat: %w", err)
	}
	if !released && !retried && entry.Attempts == 0 {
		if s.metrics != nil {
			s.metrics.IncrementReleaseAnomalies()
		}
		s.logger.WarnContext(ctx, "seat release found no seat held",
			"student_id", entry.StudentID,
			"course_key", entry.CourseKey,
		)
	}
	s.resolve(ctx, entry)
	return nil
}

// repair drives a pending entry to resolution. Callers hold the pair lock,
// so the entry's step is not running: it finished, failed or died with an
// earlier process.
func (s *Service) repair(ctx context.Context, entry *models.JournalEntry) error {
	switch entry.Stage {
	case models.StageCompensate:
		return s.compensate(ctx, entry)
	case models.StageRelease:
		return s.release(ctx, entry)
	case models.StageReserving, models.StageCancelling:
		return s.settle(ctx, entry)
	default:
		return fmt.Errorf("repair %s entry: %w", entry.Stage, sentinel.ErrInvalidState)
	}
}

// settle resolves an entry whose step stopped at an unknown point by reading
// the pair's stored state: an Applied registration must hold a seat and any
// other registration must not.
func (s *Service) settle(ctx context.Context, entry *models.JournalEntry) error {
	ctx = context.WithoutCancel(ctx)
	held, err := s.ledger.Holds(ctx, entry.CourseKey, entry.StudentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.resolve(ctx, entry)
		return nil
	}
	if err != nil {
		s.park(ctx, entry, err)
		return fmt.Errorf("check seat hold: %w", err)
	}
	status, err := s.currentStatus(ctx, models.Apply(entry.StudentID, entry.CourseKey))
	if err != nil {
		s.park(ctx, entry, err)
		return err
	}

	applied := status == models.StatusApplied
	switch {
	case applied == held:
		s.resolve(ctx, entry)
		return nil
	case applied:
		// The registration moved but no seat was taken.
		entry.Stage = models.StageCompensate
		return s.compensate(ctx, entry)
	default:
		// The seat outlived its registration.
		entry.Stage = models.StageRelease
		return s.release(ctx, entry)
	}
}

// settlePair repairs the pair's pending entries before a new intent runs.
// Callers hold the pair lock.
func (s *Service) settlePair(ctx context.Context, studentID, courseKey string) error {
	entries, err := s.journal.PendingFor(ctx, studentID, courseKey)
	if err != nil {
		return unavailable("load pending repairs", err)
	}
	for _, entry := range entries {
		stage := entry.Stage
		if err := s.repair(ctx, entry); err != nil {
			return unavailable("repair pending admission", err)
		}
		if s.metrics != nil {
			s.metrics.IncrementReconciled(stage)
		}
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, entry *models.JournalEntry) {
	ctx = context.WithoutCancel(ctx)
	err := s.retry(ctx, func() error {
		return s.journal.Resolve(ctx, entry.ID)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve journal entry",
			"entry_id", entry.ID,
			"stage", entry.Stage,
			"error", err,
		)
	}
}

// park records a failed repair attempt on the entry.
func (s *Service) park(ctx context.Context, entry *models.JournalEntry, cause error) {
	ctx = context.WithoutCancel(ctx)
	entry.Attempts++
	entry.LastError = cause.Error()
	if err := s.journal.Update(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to park journal entry",
			"entry_id", entry.ID,
			"stage", entry.Stage,
			"cause", cause,
			"error", err,
		)
		return
	}
	s.logger.WarnContext(ctx, "admission repair parked",
		"entry_id", entry.ID,
		"stage", entry.Stage,
		"student_id", entry.StudentID,
		"course_key", entry.CourseKey,
		"attempts", entry.Attempts,
		"error", cause,
	)
}

// retry runs op with exponential backoff. Missing records and invalid
// transitions are not retried.
func (s *Service) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInitial
	policy.MaxInterval = s.retryMaxElapsed / 4

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := op(); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrInvalidState) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxElapsedTime(s.retryMaxElapsed))
	return err
}
