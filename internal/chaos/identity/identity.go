// Package identity generates unique synthetic students for a chaos run.
//
// A Registry is owned by one run; two runs never share uniqueness state.
package identity

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"enrollment/internal/platform/token"
)

// ErrExhausted is returned when no unused identity could be drawn.
var ErrExhausted = errors.New("identity space exhausted")

const maxAttempts = 1000

var departments = []string{
	"Computer Science",
	"Electrical Engineering",
	"Mechanical Engineering",
	"Business Administration",
}

// Student is a synthetic identity. ID is the token subject; the other fields
// are unique profile data a signup would require.
type Student struct {
	ID            string
	StudentNumber string
	Name          string
	Email         string
	PhoneNumber   string
	Department    string
}

// Registry hands out students whose ID, number, email and phone are all unused.
type Registry struct {
	mu      sync.Mutex
	rng     *rand.Rand
	ids     map[string]struct{}
	numbers map[string]struct{}
	emails  map[string]struct{}
	phones  map[string]struct{}
}

// NewRegistry seeds the registry's generator. A zero seed draws from the clock.
func NewRegistry(seed int64) *Registry {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Registry{
		rng:     rand.New(rand.NewPCG(uint64(seed), uint64(seed>>1)|1)),
		ids:     make(map[string]struct{}),
		numbers: make(map[string]struct{}),
		emails:  make(map[string]struct{}),
		phones:  make(map[string]struct{}),
	}
}

// Next returns a student distinct from every student this registry issued.
func (r *Registry) Next() (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range maxAttempts {
		s := Student{
			ID:            strconv.Itoa(1000 + r.rng.IntN(9000)),
			StudentNumber: strconv.Itoa(10000000 + r.rng.IntN(90000000)),
			Name:          fmt.Sprintf("Student %d", 1+r.rng.IntN(100)),
			Email:         fmt.Sprintf("student%d@example.com", 1+r.rng.IntN(9999)),
			PhoneNumber:   fmt.Sprintf("010-%04d-%04d", 1000+r.rng.IntN(9000), 1000+r.rng.IntN(9000)),
			Department:    departments[r.rng.IntN(len(departments))],
		}
		if r.taken(s) {
			continue
		}
		r.ids[s.ID] = struct{}{}
		r.numbers[s.StudentNumber] = struct{}{}
		r.emails[s.Email] = struct{}{}
		r.phones[s.PhoneNumber] = struct{}{}
		return s, nil
	}
	return Student{}, fmt.Errorf("%w after %d attempts", ErrExhausted, maxAttempts)
}

// Len reports how many students were issued.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *Registry) taken(s Student) bool {
	_, id := r.ids[s.ID]
	_, number := r.numbers[s.StudentNumber]
	_, email := r.emails[s.Email]
	_, phone := r.phones[s.PhoneNumber]
	return id || number || email || phone
}

// Minter signs access tokens for synthetic students.
type Minter struct {
	tokens *token.Service
	ttl    time.Duration
}

func NewMinter(tokens *token.Service, ttl time.Duration) *Minter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Minter{tokens: tokens, ttl: ttl}
}

// Token implements target.TokenSource.
func (m *Minter) Token(studentID string) (string, error) {
	return m.tokens.Issue(studentID, m.ttl)
}
