package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall/rollcall-backend/internal/model"
)

// SessionRepository handles class session data access. Sessions are never
// deleted; history is kept for audit.
type SessionRepository interface {
	Insert(ctx context.Context, s *model.ClassSession) error
	// FindCurrent returns the newest active session, optionally filtered by
	// course. A nil session with nil error means no active session exists.
	FindCurrent(ctx context.Context, courseCode string) (*model.ClassSession, error)
	// Deactivate flips a session's active flag to false. It is idempotent:
	// deactivating an already-inactive session is a no-op, not an error.
	Deactivate(ctx context.Context, id uuid.UUID) error
	// DeactivateExpired flips every active session whose expiry has passed,
	// returning the affected course codes for cache eviction.
	DeactivateExpired(ctx context.Context, nowMillis int64) ([]string, error)
}

// PgSessionRepository is the PostgreSQL-backed SessionRepository.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL-backed SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &PgSessionRepository{pool: pool}
}

// Insert persists a new class session.
func (r *PgSessionRepository) Insert(ctx context.Context, s *model.ClassSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO class_sessions (id, course_code, teacher_id, teacher_name, kind, expiry_ms, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		s.ID, s.CourseCode, s.TeacherID, s.TeacherName, s.Kind, s.ExpiryMillis, s.Active,
	).Scan(&s.CreatedAt)
}

// FindCurrent selects the most recently created active session.
func (r *PgSessionRepository) FindCurrent(ctx context.Context, courseCode string) (*model.ClassSession, error) {
	query := `SELECT id, course_code, teacher_id, teacher_name, kind, expiry_ms, active, created_at
	          FROM class_sessions
	          WHERE active AND ($1 = '' OR course_code = $1)
	          ORDER BY created_at DESC
	          LIMIT 1`

	s := &model.ClassSession{}
	err := r.pool.QueryRow(ctx, query, courseCode).Scan(
		&s.ID, &s.CourseCode, &s.TeacherID, &s.TeacherName, &s.Kind, &s.ExpiryMillis, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Deactivate sets active=false. Setting it twice writes the same final value,
// so concurrent expiry flips cannot conflict.
func (r *PgSessionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE class_sessions SET active = FALSE WHERE id = $1`, id)
	return err
}

// DeactivateExpired is the bulk form used by the background sweeper.
func (r *PgSessionRepository) DeactivateExpired(ctx context.Context, nowMillis int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE class_sessions
		 SET active = FALSE
		 WHERE active AND expiry_ms < $1
		 RETURNING course_code`, nowMillis)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		courses = append(courses, code)
	}
	return courses, rows.Err()
}
