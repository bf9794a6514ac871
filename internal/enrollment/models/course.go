package models

import (
	"errors"
	"strings"
)

// Course is the seat-limited resource students apply for. Occupied never
// exceeds Capacity; only the admission service mutates it.
type Course struct {
	Key        string `json:"course_key"`
	Name       string `json:"course_name"`
	Professor  string `json:"professor"`
	Credits    int    `json:"credits"`
	Department string `json:"department"`
	Year       int    `json:"year"`
	Capacity   int    `json:"max_students"`
	Occupied   int    `json:"current_students"`
}

// Validate checks the static shape of a course before it is seeded.
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return errors.New("course key is required")
	}
	if c.Capacity <= 0 {
		return errors.New("course capacity must be positive")
	}
	if c.Occupied < 0 || c.Occupied > c.Capacity {
		return errors.New("course occupancy must be within [0, capacity]")
	}
	return nil
}

// Remaining returns the number of free seats.
func (c *Course) Remaining() int {
	if c.Occupied >= c.Capacity {
		return 0
	}
	return c.Capacity - c.Occupied
}

// CourseFilter narrows a catalog search. Zero values match everything.
type CourseFilter struct {
	Credits    int
	Department string
	Name       string
}

// Matches reports whether the course satisfies every set field of the filter.
// Name matches case-insensitively as a substring.
func (f CourseFilter) Matches(c *Course) bool {
	if f.Credits != 0 && c.Credits != f.Credits {
		return false
	}
	if f.Department != "" && c.Department != f.Department {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Name)) {
		return false
	}
	return true
}

// DropdownOptions lists the distinct search criteria offered to clients.
type DropdownOptions struct {
	Credits     []int    `json:"credits"`
	Departments []string `json:"departments"`
}
