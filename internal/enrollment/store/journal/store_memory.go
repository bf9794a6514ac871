package journal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
)

// InMemoryStore keeps journal entries for the lifetime of the process. It is
// paired with the in-memory registration store, which has the same lifetime.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]models.JournalEntry
}

// NewInMemoryStore creates an empty journal.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[uuid.UUID]models.JournalEntry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.JournalEntry) error {
	if entry == nil {
		return fmt.Errorf("journal entry is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = *entry
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, entry *models.JournalEntry) error {
	if entry == nil {
		return fmt.Errorf("journal entry is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return fmt.Errorf("journal entry %s: %w", entry.ID, sentinel.ErrNotFound)
	}
	s.entries[entry.ID] = *entry
	return nil
}

// Resolve removes the entry. Resolving an unknown entry is a no-op.
func (s *InMemoryStore) Resolve(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Pending returns the unresolved entries, oldest first.
func (s *InMemoryStore) Pending(_ context.Context) ([]*models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.JournalEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// PendingFor returns the unresolved entries for one (student, course) pair.
func (s *InMemoryStore) PendingFor(ctx context.Context, studentID, courseKey string) ([]*models.JournalEntry, error) {
	all, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.JournalEntry
	for _, e := range all {
		if e.StudentID == studentID && e.CourseKey == courseKey {
			out = append(out, e)
		}
	}
	return out, nil
}
