package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall/rollcall-backend/internal/model"
)

// AttendanceRepository handles attendance mark data access. Marks are
// immutable once written; the (student, course, date) unique index is the
// authoritative duplicate guard.
type AttendanceRepository interface {
	// Insert persists a new mark. A duplicate (student, course, date) insert
	// surfaces as a pgconn unique-violation error for the caller to map.
	Insert(ctx context.Context, m *model.AttendanceMark) error
	ExistsOnDate(ctx context.Context, username, courseCode string, date time.Time) (bool, error)
	ListForDate(ctx context.Context, username string, date time.Time) ([]model.AttendanceMark, error)
	// ListForRange returns marks in [from, to), optionally filtered by student.
	ListForRange(ctx context.Context, from, to time.Time, username string) ([]model.AttendanceMark, error)
}

// PgAttendanceRepository is the PostgreSQL-backed AttendanceRepository.
type PgAttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new PostgreSQL-backed AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) AttendanceRepository {
	return &PgAttendanceRepository{pool: pool}
}

// Insert persists a new attendance mark.
func (r *PgAttendanceRepository) Insert(ctx context.Context, m *model.AttendanceMark) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attendance_marks (id, student_username, course_code, attend_date, marked_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.StudentUsername, m.CourseCode, m.Date, m.MarkedAt, m.Status)
	return err
}

// ExistsOnDate reports whether the student already holds a mark for the
// course on the given calendar date.
func (r *PgAttendanceRepository) ExistsOnDate(ctx context.Context, username, courseCode string, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM attendance_marks
		   WHERE student_username = $1 AND course_code = $2 AND attend_date = $3
		 )`,
		username, courseCode, date,
	).Scan(&exists)
	return exists, err
}

// ListForDate returns marks on one calendar date. An empty username skips
// the student filter (teacher overview).
func (r *PgAttendanceRepository) ListForDate(ctx context.Context, username string, date time.Time) ([]model.AttendanceMark, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_username, course_code, attend_date, marked_at, status
		 FROM attendance_marks
		 WHERE ($1 = '' OR student_username = $1) AND attend_date = $2
		 ORDER BY marked_at`, username, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMarks(rows)
}

// ListForRange returns marks with attend_date in [from, to). An empty
// username skips the student filter (teacher/monthly overview).
func (r *PgAttendanceRepository) ListForRange(ctx context.Context, from, to time.Time, username string) ([]model.AttendanceMark, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_username, course_code, attend_date, marked_at, status
		 FROM attendance_marks
		 WHERE attend_date >= $1 AND attend_date < $2
		   AND ($3 = '' OR student_username = $3)
		 ORDER BY attend_date, marked_at`, from, to, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMarks(rows)
}

func scanMarks(rows pgx.Rows) ([]model.AttendanceMark, error) {
	var marks []model.AttendanceMark
	for rows.Next() {
		var m model.AttendanceMark
		if err := rows.Scan(&m.ID, &m.StudentUsername, &m.CourseCode, &m.Date, &m.MarkedAt, &m.Status); err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, rows.Err()
}
