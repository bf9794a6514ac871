package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
)

// PostgresStore keeps seat counts in the courses table and named holds in
// seat_holds. Each reserve/release is a single statement, so the course row
// lock serializes racing callers and the CHECK constraint backs the capacity
// invariant.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed seat ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Seed(ctx context.Context, course *models.Course) error {
	if course == nil {
		return fmt.Errorf("course is required")
	}
	if err := course.Validate(); err != nil {
		return fmt.Errorf("seed course: %w", err)
	}
	query := `
		INSERT INTO courses (course_key, course_name, professor, credits, department, year, capacity, occupied)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (course_key) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		course.Key, course.Name, course.Professor, course.Credits,
		course.Department, course.Year, course.Capacity, course.Occupied,
	)
	if err != nil {
		return fmt.Errorf("seed course: %w", err)
	}
	return nil
}

// TryReserve bumps the count and records the hold in one statement. A holder
// already on record short-circuits the update.
func (s *PostgresStore) TryReserve(ctx context.Context, courseKey, holder string) (bool, error) {
	query := `
		WITH held AS (
			SELECT 1 FROM seat_holds WHERE course_key = $1 AND holder = $2
		), taken AS (
			UPDATE courses
			SET occupied = occupied + 1
			WHERE course_key = $1 AND occupied < capacity AND NOT EXISTS (SELECT 1 FROM held)
			RETURNING course_key
		), recorded AS (
			INSERT INTO seat_holds (course_key, holder)
			SELECT course_key, $2 FROM taken
			RETURNING 1
		)
		SELECT
			EXISTS (SELECT 1 FROM held) OR EXISTS (SELECT 1 FROM recorded),
			EXISTS (SELECT 1 FROM courses WHERE course_key = $1)
	`
	ok, err := s.queryGuarded(ctx, query, courseKey, holder)
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	return ok, nil
}

// Release drops the hold and gives its seat back in one statement.
func (s *PostgresStore) Release(ctx context.Context, courseKey, holder string) (bool, error) {
	query := `
		WITH dropped AS (
			DELETE FROM seat_holds WHERE course_key = $1 AND holder = $2
			RETURNING course_key
		), freed AS (
			UPDATE courses
			SET occupied = occupied - 1
			WHERE course_key IN (SELECT course_key FROM dropped) AND occupied > 0
			RETURNING 1
		)
		SELECT
			EXISTS (SELECT 1 FROM dropped) OR EXISTS (SELECT 1 FROM freed),
			EXISTS (SELECT 1 FROM courses WHERE course_key = $1)
	`
	ok, err := s.queryGuarded(ctx, query, courseKey, holder)
	if err != nil {
		return false, fmt.Errorf("release seat: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) Holds(ctx context.Context, courseKey, holder string) (bool, error) {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM seat_holds WHERE course_key = $1 AND holder = $2),
			EXISTS (SELECT 1 FROM courses WHERE course_key = $1)
	`
	ok, err := s.queryGuarded(ctx, query, courseKey, holder)
	if err != nil {
		return false, fmt.Errorf("check seat hold: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) Get(ctx context.Context, courseKey string) (*models.Course, error) {
	query := `
		SELECT course_key, course_name, professor, credits, department, year, capacity, occupied
		FROM courses
		WHERE course_key = $1
	`
	course, err := scanCourse(s.db.QueryRowContext(ctx, query, courseKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("course %s: %w", courseKey, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Course, error) {
	query := `
		SELECT course_key, course_name, professor, credits, department, year, capacity, occupied
		FROM courses
		ORDER BY course_key
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}

// queryGuarded runs a statement returning (changed, course exists). A missing
// course is ErrNotFound.
func (s *PostgresStore) queryGuarded(ctx context.Context, query, courseKey, holder string) (bool, error) {
	var ok, exists bool
	if err := s.db.QueryRowContext(ctx, query, courseKey, holder).Scan(&ok, &exists); err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("course %s: %w", courseKey, sentinel.ErrNotFound)
	}
	return ok, nil
}

type courseRow interface {
	Scan(dest ...any) error
}

func scanCourse(row courseRow) (*models.Course, error) {
	var c models.Course
	if err := row.Scan(&c.Key, &c.Name, &c.Professor, &c.Credits, &c.Department, &c.Year, &c.Capacity, &c.Occupied); err != nil {
		return nil, err
	}
	return &c, nil
}
