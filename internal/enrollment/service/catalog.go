package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
)

// SeedCourses inserts the catalog. Courses already present keep their
// occupancy, so seeding on every start is safe.
func (s *Service) SeedCourses(ctx context.Context, courses []*models.Course) error {
	for _, course := range courses {
		if err := s.ledger.Seed(ctx, course); err != nil {
			return fmt.Errorf("seed %s: %w", course.Key, err)
		}
	}
	s.logger.InfoContext(ctx, "course catalog seeded", "courses", len(courses))
	return nil
}

// DropdownOptions returns the distinct credits and departments on offer.
func (s *Service) DropdownOptions(ctx context.Context) (*models.DropdownOptions, error) {
	courses, err := s.ledger.List(ctx)
	if err != nil {
		return nil, unavailable("list courses", err)
	}

	credits := make(map[int]struct{})
	departments := make(map[string]struct{})
	for _, c := range courses {
		credits[c.Credits] = struct{}{}
		if c.Department != "" {
			departments[c.Department] = struct{}{}
		}
	}

	opts := &models.DropdownOptions{
		Credits:     make([]int, 0, len(credits)),
		Departments: make([]string, 0, len(departments)),
	}
	for c := range credits {
		opts.Credits = append(opts.Credits, c)
	}
	for d := range departments {
		opts.Departments = append(opts.Departments, d)
	}
	sort.Ints(opts.Credits)
	sort.Strings(opts.Departments)
	return opts, nil
}

// SearchCourses returns the courses matching filter, ordered by key.
func (s *Service) SearchCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, error) {
	courses, err := s.ledger.List(ctx)
	if err != nil {
		return nil, unavailable("list courses", err)
	}
	matched := make([]*models.Course, 0, len(courses))
	for _, c := range courses {
		if filter.Matches(c) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// AppliedCourses returns the courses the student currently holds a seat in.
func (s *Service) AppliedCourses(ctx context.Context, studentID string) ([]*models.Course, error) {
	if studentID == "" {
		return nil, fmt.Errorf("student id is required: %w", sentinel.ErrInvalidInput)
	}
	records, err := s.registrations.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, unavailable("list registrations", err)
	}
	var courses []*models.Course
	for _, r := range records {
		if r.Status != models.StatusApplied {
			continue
		}
		course, err := s.ledger.Get(ctx, r.CourseKey)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, unavailable("load course", err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// Health reports whether the ledger answers.
func (s *Service) Health(ctx context.Context) error {
	if _, err := s.ledger.List(ctx); err != nil {
		return unavailable("ledger health", err)
	}
	return nil
}
