package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
	"enrollment/pkg/requestcontext"
)

// PostgresStore persists registrations in PostgreSQL. Each transition is a
// single statement guarded on the current status; the unique (student_id,
// course_key) row lock serializes concurrent transitions for one pair.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// TransitionToApplied inserts a new Applied row or flips a Cancelled one.
// xmax = 0 distinguishes a fresh insert from an update of an existing row; no
// returned row means the row already was Applied.
func (s *PostgresStore) TransitionToApplied(ctx context.Context, studentID, courseKey string) (models.ApplyTransition, error) {
	query := `
		INSERT INTO registrations (id, student_id, course_key, status, updated_at)
		VALUES ($1, $2, $3, 'Applied', $4)
		ON CONFLICT (student_id, course_key) DO UPDATE SET
			status = 'Applied',
			updated_at = EXCLUDED.updated_at
		WHERE registrations.status = 'Cancelled'
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := s.db.QueryRowContext(ctx, query, uuid.New(), studentID, courseKey, requestcontext.Now(ctx)).Scan(&inserted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.TransitionAlreadyApplied, nil
	case err != nil:
		return "", fmt.Errorf("transition to applied: %w", err)
	case inserted:
		return models.TransitionCreated, nil
	default:
		return models.TransitionReactivated, nil
	}
}

func (s *PostgresStore) TransitionToCancelled(ctx context.Context, studentID, courseKey string) (models.CancelTransition, error) {
	query := `
		UPDATE registrations
		SET status = 'Cancelled', updated_at = $3
		WHERE student_id = $1 AND course_key = $2 AND status = 'Applied'
	`
	result, err := s.db.ExecContext(ctx, query, studentID, courseKey, requestcontext.Now(ctx))
	if err != nil {
		return "", fmt.Errorf("transition to cancelled: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("transition to cancelled rows affected: %w", err)
	}
	if rows > 0 {
		return models.TransitionCancelled, nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE student_id = $1 AND course_key = $2)`,
		studentID, courseKey,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check registration: %w", err)
	}
	if !exists {
		return models.TransitionNotFound, nil
	}
	return models.TransitionNotApplied, nil
}

func (s *PostgresStore) Revert(ctx context.Context, studentID, courseKey string, transition models.ApplyTransition) error {
	var query string
	switch transition {
	case models.TransitionCreated:
		query = `DELETE FROM registrations WHERE student_id = $1 AND course_key = $2 AND status = 'Applied'`
	case models.TransitionAlreadyApplied:
		return fmt.Errorf("revert %s: %w", transition, sentinel.ErrInvalidState)
	default:
		query = `
			UPDATE registrations
			SET status = 'Cancelled', updated_at = NOW()
			WHERE student_id = $1 AND course_key = $2 AND status = 'Applied'
		`
	}
	if _, err := s.db.ExecContext(ctx, query, studentID, courseKey); err != nil {
		return fmt.Errorf("revert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, studentID, courseKey string) (*models.Registration, error) {
	query := `
		SELECT id, student_id, course_key, status, updated_at
		FROM registrations
		WHERE student_id = $1 AND course_key = $2
	`
	record, err := scanRegistration(s.db.QueryRowContext(ctx, query, studentID, courseKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration %s/%s: %w", studentID, courseKey, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentID string) ([]*models.Registration, error) {
	query := `
		SELECT id, student_id, course_key, status, updated_at
		FROM registrations
		WHERE student_id = $1
		ORDER BY course_key
	`
	rows, err := s.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		record, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountApplied(ctx context.Context, courseKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE course_key = $1 AND status = 'Applied'`,
		courseKey,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count applied: %w", err)
	}
	return count, nil
}

type registrationRow interface {
	Scan(dest ...any) error
}

func scanRegistration(row registrationRow) (*models.Registration, error) {
	var r models.Registration
	var status string
	if err := row.Scan(&r.ID, &r.StudentID, &r.CourseKey, &status, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = models.RegistrationStatus(status)
	return &r, nil
}
