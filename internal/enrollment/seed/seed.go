// Package seed loads the course catalog the server starts with.
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"enrollment/internal/enrollment/models"
)

// DefaultCapacity is the seat count of every built-in course.
const DefaultCapacity = 20

// Defaults returns the built-in catalog used when no seed file is configured.
func Defaults() []*models.Course {
	return []*models.Course{
		{Key: "CS101", Name: "Introduction to Programming", Professor: "Kim", Credits: 3, Department: "Computer Science", Year: 1, Capacity: DefaultCapacity},
		{Key: "CS201", Name: "Data Structures", Professor: "Lee", Credits: 3, Department: "Computer Science", Year: 2, Capacity: DefaultCapacity},
		{Key: "MA101", Name: "Calculus I", Professor: "Park", Credits: 3, Department: "Mathematics", Year: 1, Capacity: DefaultCapacity},
		{Key: "MA202", Name: "Linear Algebra", Professor: "Choi", Credits: 2, Department: "Mathematics", Year: 2, Capacity: DefaultCapacity},
		{Key: "PH110", Name: "General Physics", Professor: "Jung", Credits: 4, Department: "Physics", Year: 1, Capacity: DefaultCapacity},
	}
}

// Load reads a JSON array of courses from path. An empty path yields Defaults.
// Occupancy in the file is ignored; seeding never claims seats.
func Load(path string) ([]*models.Course, error) {
	if path == "" {
		return Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var courses []*models.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return validate(courses)
}

func validate(courses []*models.Course) ([]*models.Course, error) {
	if len(courses) == 0 {
		return nil, fmt.Errorf("seed catalog is empty")
	}
	seen := make(map[string]struct{}, len(courses))
	for i, c := range courses {
		if c == nil {
			return nil, fmt.Errorf("course %d: empty entry", i)
		}
		c.Occupied = 0
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("course %d: %w", i, err)
		}
		if _, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("course %d: duplicate key %q", i, c.Key)
		}
		seen[c.Key] = struct{}{}
	}
	return courses, nil
}
