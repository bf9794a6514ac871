package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"enrollment/internal/enrollment/models"
)

const auditConcurrency = 8

// Audit compares one course's seat count with its Applied registrations.
// Drift is only meaningful when no intent for the course is in flight.
func (s *Service) Audit(ctx context.Context, courseKey string) (*models.InvariantReport, error) {
	audit, err := s.auditCourse(ctx, courseKey)
	if err != nil {
		return nil, err
	}
	report := &models.InvariantReport{}
	report.Add(audit)
	return report, nil
}

// AuditAll audits every course in key order.
func (s *Service) AuditAll(ctx context.Context) (*models.InvariantReport, error) {
	courses, err := s.ledger.List(ctx)
	if err != nil {
		return nil, unavailable("list courses", err)
	}

	audits := make([]models.CourseAudit, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(auditConcurrency)
	for i, course := range courses {
		g.Go(func() error {
			applied, err := s.registrations.CountApplied(gctx, course.Key)
			if err != nil {
				return unavailable(fmt.Sprintf("count applied %s", course.Key), err)
			}
			audits[i] = models.CourseAudit{
				CourseKey: course.Key,
				Capacity:  course.Capacity,
				Occupied:  course.Occupied,
				Applied:   applied,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &models.InvariantReport{}
	for _, audit := range audits {
		report.Add(audit)
	}
	if report.Violated() {
		s.logger.WarnContext(ctx, "admission invariants violated", "violations", report.Violations)
	}
	return report, nil
}

func (s *Service) auditCourse(ctx context.Context, courseKey string) (models.CourseAudit, error) {
	course, err := s.ledger.Get(ctx, courseKey)
	if err != nil {
		return models.CourseAudit{}, fmt.Errorf("load course: %w", err)
	}
	applied, err := s.registrations.CountApplied(ctx, courseKey)
	if err != nil {
		return models.CourseAudit{}, unavailable("count applied", err)
	}
	return models.CourseAudit{
		CourseKey: course.Key,
		Capacity:  course.Capacity,
		Occupied:  course.Occupied,
		Applied:   applied,
	}, nil
}
