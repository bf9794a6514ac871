package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
)

// PostgresStore persists journal entries so startup recovery can repair
// admissions interrupted by a crash.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed journal.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.JournalEntry) error {
	if entry == nil {
		return fmt.Errorf("journal entry is required")
	}
	query := `
		INSERT INTO admission_journal (id, stage, student_id, course_key, transition, created_at, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, string(entry.Stage), entry.StudentID, entry.CourseKey,
		string(entry.Transition), entry.CreatedAt, entry.Attempts, entry.LastError,
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, entry *models.JournalEntry) error {
	if entry == nil {
		return fmt.Errorf("journal entry is required")
	}
	query := `
		UPDATE admission_journal
		SET stage = $2, transition = $3, attempts = $4, last_error = $5
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.ID, string(entry.Stage), string(entry.Transition), entry.Attempts, entry.LastError,
	)
	if err != nil {
		return fmt.Errorf("update journal entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update journal entry rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("journal entry %s: %w", entry.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Resolve(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admission_journal WHERE id = $1`, id); err != nil {
		return fmt.Errorf("resolve journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Pending(ctx context.Context) ([]*models.JournalEntry, error) {
	query := `
		SELECT id, stage, student_id, course_key, transition, created_at, attempts, last_error
		FROM admission_journal
		ORDER BY created_at
	`
	return s.query(ctx, query)
}

func (s *PostgresStore) PendingFor(ctx context.Context, studentID, courseKey string) ([]*models.JournalEntry, error) {
	query := `
		SELECT id, stage, student_id, course_key, transition, created_at, attempts, last_error
		FROM admission_journal
		WHERE student_id = $1 AND course_key = $2
		ORDER BY created_at
	`
	return s.query(ctx, query, studentID, courseKey)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []*models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var stage, transition string
		if err := rows.Scan(&e.ID, &stage, &e.StudentID, &e.CourseKey, &transition, &e.CreatedAt, &e.Attempts, &e.LastError); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Stage = models.JournalStage(stage)
		e.Transition = models.ApplyTransition(transition)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return out, nil
}
