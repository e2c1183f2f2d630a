package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall/rollcall-backend/internal/model"
)

// CourseRepository handles course registry data access.
type CourseRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	GetByCodes(ctx context.Context, codes []string) ([]model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	Create(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, code string) (bool, error)
}

// PgCourseRepository is the PostgreSQL-backed CourseRepository.
type PgCourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new PostgreSQL-backed CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) CourseRepository {
	return &PgCourseRepository{pool: pool}
}

// GetByCode retrieves a course by its unique code.
func (r *PgCourseRepository) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	course := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT code, name, created_at FROM courses WHERE code = $1`, code,
	).Scan(&course.Code, &course.Name, &course.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return course, nil
}

// GetByCodes retrieves the courses matching the given codes. Codes with no
// course document are simply absent from the result.
func (r *PgCourseRepository) GetByCodes(ctx context.Context, codes []string) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code, name, created_at FROM courses WHERE code = ANY($1) ORDER BY code`, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

// List retrieves all courses.
func (r *PgCourseRepository) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code, name, created_at FROM courses ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCourses(rows)
}

// Create inserts a new course.
func (r *PgCourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (code, name) VALUES ($1, $2) RETURNING created_at`,
		course.Code, course.Name,
	).Scan(&course.CreatedAt)
}

// Delete removes a course and strips the code from every user's enrollment
// set in the same transaction.
func (r *PgCourseRepository) Delete(ctx context.Context, code string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM courses WHERE code = $1`, code)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE course_code = $1`, code); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

func scanCourses(rows pgx.Rows) ([]model.Course, error) {
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.Code, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
