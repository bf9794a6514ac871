package ledger

import (
	"sync"

	"enrollment/internal/enrollment/models"
)

// Seats is the in-process seat counter for one course. Capacity is fixed at
// construction. The holder set and the count change together under one
// lock, so reserve and release are linearizable and idempotent per holder.
type Seats struct {
	course models.Course

	mu       sync.Mutex
	occupied int
	holders  map[string]struct{}
}

// NewSeats builds a counter from a validated course. Seeded occupancy has no
// named holders.
func NewSeats(course models.Course) *Seats {
	return &Seats{
		course:   course,
		occupied: course.Occupied,
		holders:  make(map[string]struct{}),
	}
}

// TryReserve takes one seat for holder if occupied < capacity. A holder that
// already has a seat keeps it and gets true. Of any set of concurrent
// holders racing for the last seat exactly one observes success.
func (s *Seats) TryReserve(holder string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holders[holder]; ok {
		return true
	}
	if s.occupied >= s.course.Capacity {
		return false
	}
	s.occupied++
	s.holders[holder] = struct{}{}
	return true
}

// Release gives holder's seat back. It reports whether a seat was actually
// released, so a repeated release is visible to the caller.
func (s *Seats) Release(holder string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holders[holder]; !ok {
		return false
	}
	delete(s.holders, holder)
	if s.occupied > 0 {
		s.occupied--
	}
	return true
}

// Holds reports whether holder has a seat.
func (s *Seats) Holds(holder string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.holders[holder]
	return ok
}

// Occupied returns the current seat count.
func (s *Seats) Occupied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupied
}

// Snapshot returns a copy of the course with the live occupancy.
func (s *Seats) Snapshot() *models.Course {
	c := s.course
	c.Occupied = s.Occupied()
	return &c
}
