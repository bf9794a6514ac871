package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
)

// InMemoryStore keeps one Seats counter per course. The map lock only guards
// membership; seat accounting locks the course's Seats alone.
type InMemoryStore struct {
	mu    sync.RWMutex
	seats map[string]*Seats
}

// NewInMemoryStore creates an empty ledger.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seats: make(map[string]*Seats)}
}

// Seed inserts the course if absent. Existing courses keep their occupancy.
func (s *InMemoryStore) Seed(_ context.Context, course *models.Course) error {
	if course == nil {
		return fmt.Errorf("course is required")
	}
	if err := course.Validate(); err != nil {
		return fmt.Errorf("seed course: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seats[course.Key]; ok {
		return nil
	}
	s.seats[course.Key] = NewSeats(*course)
	return nil
}

func (s *InMemoryStore) TryReserve(_ context.Context, courseKey, holder string) (bool, error) {
	seats, err := s.lookup(courseKey)
	if err != nil {
		return false, err
	}
	return seats.TryReserve(holder), nil
}

func (s *InMemoryStore) Release(_ context.Context, courseKey, holder string) (bool, error) {
	seats, err := s.lookup(courseKey)
	if err != nil {
		return false, err
	}
	return seats.Release(holder), nil
}

func (s *InMemoryStore) Holds(_ context.Context, courseKey, holder string) (bool, error) {
	seats, err := s.lookup(courseKey)
	if err != nil {
		return false, err
	}
	return seats.Holds(holder), nil
}

func (s *InMemoryStore) Get(_ context.Context, courseKey string) (*models.Course, error) {
	seats, err := s.lookup(courseKey)
	if err != nil {
		return nil, err
	}
	return seats.Snapshot(), nil
}

// List returns every course ordered by key.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses := make([]*models.Course, 0, len(s.seats))
	for _, seats := range s.seats {
		courses = append(courses, seats.Snapshot())
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Key < courses[j].Key })
	return courses, nil
}

func (s *InMemoryStore) lookup(courseKey string) (*Seats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seats, ok := s.seats[courseKey]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseKey, sentinel.ErrNotFound)
	}
	return seats, nil
}
