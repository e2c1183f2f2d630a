package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall/rollcall-backend/internal/model"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// UserRepository handles directory account data access.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	Create(ctx context.Context, u *model.User) error
	DeleteByRole(ctx context.Context, username string, role model.Role) (bool, error)
	Update(ctx context.Context, username string, upd model.UserUpdate) (*model.User, error)
	EnrollMany(ctx context.Context, courseCode string, usernames []string) (int64, error)
	IsEnrolled(ctx context.Context, username, courseCode string) (bool, error)
}

// PgUserRepository is the PostgreSQL-backed UserRepository.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL-backed UserRepository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &PgUserRepository{pool: pool}
}

const userSelect = `
	SELECT u.username, u.password_hash, u.role, u.name, COALESCE(u.roll_no, ''), u.created_at,
	       COALESCE(array_agg(e.course_code ORDER BY e.course_code)
	                FILTER (WHERE e.course_code IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN enrollments e ON e.username = u.username`

// GetByUsername retrieves a user with their enrolled course codes.
func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		userSelect+` WHERE u.username = $1 GROUP BY u.username`, username,
	).Scan(&u.Username, &u.PasswordHash, &u.Role, &u.Name, &u.RollNo, &u.CreatedAt, &u.Courses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListByRole retrieves all users with the given role, enrollments included.
func (r *PgUserRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		userSelect+` WHERE u.role = $1 GROUP BY u.username ORDER BY u.username`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Role, &u.Name, &u.RollNo, &u.CreatedAt, &u.Courses); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a new user. Enrollments are managed separately.
func (r *PgUserRepository) Create(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, role, name, roll_no)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		 RETURNING created_at`,
		u.Username, u.PasswordHash, u.Role, u.Name, u.RollNo,
	).Scan(&u.CreatedAt)
}

// DeleteByRole removes a user only if it carries the expected role, so an
// admin endpoint for teachers cannot delete a student by mistake.
// Enrollments cascade away with the user row.
func (r *PgUserRepository) DeleteByRole(ctx context.Context, username string, role model.Role) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM users WHERE username = $1 AND role = $2`, username, role)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Update patches the mutable fields of a user. A non-nil Courses replaces
// the entire enrollment set inside one transaction.
func (r *PgUserRepository) Update(ctx context.Context, username string, upd model.UserUpdate) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE users
		 SET name    = COALESCE($2, name),
		     roll_no = COALESCE(NULLIF($3, ''), roll_no)
		 WHERE username = $1`,
		username, upd.Name, derefOrEmpty(upd.RollNo))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if upd.Courses != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE username = $1`, username); err != nil {
			return nil, err
		}
		for _, code := range *upd.Courses {
			if _, err := tx.Exec(ctx,
				`INSERT INTO enrollments (username, course_code) VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`, username, code); err != nil {
				return nil, fmt.Errorf("enroll %s in %s: %w", username, code, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByUsername(ctx, username)
}

// EnrollMany adds a course code to many student accounts at once,
// skipping usernames that are already enrolled or are not students.
// Returns the number of new enrollments.
func (r *PgUserRepository) EnrollMany(ctx context.Context, courseCode string, usernames []string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO enrollments (username, course_code)
		 SELECT u.username, $1 FROM users u
		 WHERE u.username = ANY($2) AND u.role = 'student'
		 ON CONFLICT DO NOTHING`,
		courseCode, usernames)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// IsEnrolled reports whether the user carries the given course code.
func (r *PgUserRepository) IsEnrolled(ctx context.Context, username, courseCode string) (bool, error) {
	var enrolled bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE username = $1 AND course_code = $2)`,
		username, courseCode,
	).Scan(&enrolled)
	return enrolled, err
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
