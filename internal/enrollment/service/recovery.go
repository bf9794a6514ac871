package service

import (
	"context"
	"errors"
	"fmt"

	"enrollment/pkg/platform/shardlock"
)

// Recover settles every journal entry left by an earlier process. Run it
// before the service takes traffic so nothing is decided against a pair whose
// last step never finished.
func (s *Service) Recover(ctx context.Context) error {
	entries, err := s.journal.Pending(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	var errs []error
	for _, entry := range entries {
		err := s.pairs.Do(ctx, shardlock.PairKey(entry.StudentID, entry.CourseKey), func() error {
			return s.repair(ctx, entry)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", entry.ID, err))
		}
	}
	s.logger.InfoContext(ctx, "admission journal recovered",
		"entries", len(entries),
		"failed", len(errs),
	)
	return errors.Join(errs...)
}

// Reconcile repairs pending journal entries while the service runs and returns
// how many pairs were settled cleanly. Each pair is settled under its lock,
// so an intent still in flight is waited for, never raced.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	entries, err := s.journal.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SetJournalPending(len(entries))
	}

	type pair struct{ studentID, courseKey string }
	seen := make(map[pair]struct{})
	var pairs []pair
	for _, entry := range entries {
		p := pair{entry.StudentID, entry.CourseKey}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}

	settled := 0
	var errs []error
	for _, p := range pairs {
		err := s.pairs.Do(ctx, shardlock.PairKey(p.studentID, p.courseKey), func() error {
			return s.settlePair(ctx, p.studentID, p.courseKey)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		settled++
	}
	return settled, errors.Join(errs...)
}
