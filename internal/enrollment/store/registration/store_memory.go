package registration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
	"enrollment/pkg/platform/shardlock"
	"enrollment/pkg/requestcontext"
)

// InMemoryStore keeps registrations keyed by (student, course). Transitions for
// one pair run under that pair's shard lock; the map lock is held only for the
// individual read or write.
type InMemoryStore struct {
	pairs *shardlock.Locker

	mu      sync.RWMutex
	records map[string]*models.Registration
}

// NewInMemoryStore creates an empty registration store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pairs:   shardlock.New(shardlock.DefaultShards),
		records: make(map[string]*models.Registration),
	}
}

func (s *InMemoryStore) TransitionToApplied(ctx context.Context, studentID, courseKey string) (models.ApplyTransition, error) {
	var result models.ApplyTransition
	key := shardlock.PairKey(studentID, courseKey)
	err := s.pairs.Do(ctx, key, func() error {
		now := requestcontext.Now(ctx)
		existing := s.load(key)
		switch {
		case existing == nil:
			s.store(key, models.NewRegistration(studentID, courseKey, now))
			result = models.TransitionCreated
		case existing.Status == models.StatusCancelled:
			existing.Status = models.StatusApplied
			existing.UpdatedAt = now
			s.store(key, existing)
			result = models.TransitionReactivated
		default:
			result = models.TransitionAlreadyApplied
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("transition to applied: %w", err)
	}
	return result, nil
}

func (s *InMemoryStore) TransitionToCancelled(ctx context.Context, studentID, courseKey string) (models.CancelTransition, error) {
	var result models.CancelTransition
	key := shardlock.PairKey(studentID, courseKey)
	err := s.pairs.Do(ctx, key, func() error {
		existing := s.load(key)
		switch {
		case existing == nil:
			result = models.TransitionNotFound
		case existing.Status != models.StatusApplied:
			result = models.TransitionNotApplied
		default:
			existing.Status = models.StatusCancelled
			existing.UpdatedAt = requestcontext.Now(ctx)
			s.store(key, existing)
			result = models.TransitionCancelled
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("transition to cancelled: %w", err)
	}
	return result, nil
}

// Revert undoes an apply transition whose seat could not be reserved. A created
// record is removed; any other transition (including one lost to a crash) puts
// the record back to Cancelled. Reverting twice is a no-op.
func (s *InMemoryStore) Revert(ctx context.Context, studentID, courseKey string, transition models.ApplyTransition) error {
	key := shardlock.PairKey(studentID, courseKey)
	err := s.pairs.Do(ctx, key, func() error {
		existing := s.load(key)
		if existing == nil || existing.Status != models.StatusApplied {
			return nil
		}
		switch transition {
		case models.TransitionCreated:
			s.mu.Lock()
			delete(s.records, key)
			s.mu.Unlock()
		case models.TransitionAlreadyApplied:
			return fmt.Errorf("revert %s: %w", transition, sentinel.ErrInvalidState)
		default:
			existing.Status = models.StatusCancelled
			existing.UpdatedAt = requestcontext.Now(ctx)
			s.store(key, existing)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("revert registration: %w", err)
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, studentID, courseKey string) (*models.Registration, error) {
	record := s.load(shardlock.PairKey(studentID, courseKey))
	if record == nil {
		return nil, fmt.Errorf("registration %s/%s: %w", studentID, courseKey, sentinel.ErrNotFound)
	}
	return record, nil
}

// ListByStudent returns the student's registrations ordered by course key.
func (s *InMemoryStore) ListByStudent(_ context.Context, studentID string) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Registration
	for _, r := range s.records {
		if r.StudentID == studentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseKey < out[j].CourseKey })
	return out, nil
}

// CountApplied returns the number of Applied registrations for a course.
func (s *InMemoryStore) CountApplied(_ context.Context, courseKey string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.records {
		if r.CourseKey == courseKey && r.Status == models.StatusApplied {
			count++
		}
	}
	return count, nil
}

// load returns a copy so callers never mutate the stored record unlocked.
func (s *InMemoryStore) load(key string) *models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (s *InMemoryStore) store(key string, r *models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = r
}
