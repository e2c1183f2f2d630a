package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Default credentials handed to newly provisioned accounts. Users are
// expected to change them; the admin UI surfaces the value on creation.
const (
	defaultStudentPassword = "student123"
	defaultTeacherPassword = "teacher123"
)

// DirectoryService handles admin-side user provisioning and enrollment.
type DirectoryService struct {
	users   repository.UserRepository
	courses repository.CourseRepository
	auth    *AuthService
	log     zerolog.Logger
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(users repository.UserRepository, courses repository.CourseRepository, auth *AuthService, log zerolog.Logger) *DirectoryService {
	return &DirectoryService{
		users:   users,
		courses: courses,
		auth:    auth,
		log:     log.With().Str("component", "directory_service").Logger(),
	}
}

// GetUser returns the authoritative user record, enrollments included.
func (s *DirectoryService) GetUser(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// CreateStudent provisions a student account. The username is derived from
// the display name (lowercased, spaces stripped) and the account starts with
// the default password.
func (s *DirectoryService) CreateStudent(ctx context.Context, name, rollNo string) (*model.User, error) {
	username := UsernameFromName(name)

	hash, err := s.auth.HashPassword(defaultStudentPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleStudent,
		Name:         name,
		RollNo:       rollNo,
		Courses:      []string{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info().Str("username", username).Msg("Student created")
	return u, nil
}

// CreateTeacher provisions a teacher account with an explicit username.
// An empty password falls back to the default.
func (s *DirectoryService) CreateTeacher(ctx context.Context, name, username, password string) (*model.User, error) {
	if password == "" {
		password = defaultTeacherPassword
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleTeacher,
		Name:         name,
		Courses:      []string{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info().Str("username", username).Msg("Teacher created")
	return u, nil
}

// ListStudents returns all student accounts.
func (s *DirectoryService) ListStudents(ctx context.Context) ([]model.User, error) {
	return s.users.ListByRole(ctx, model.RoleStudent)
}

// ListTeachers returns all teacher accounts.
func (s *DirectoryService) ListTeachers(ctx context.Context) ([]model.User, error) {
	return s.users.ListByRole(ctx, model.RoleTeacher)
}

// DeleteStudent removes a student account and its enrollments.
func (s *DirectoryService) DeleteStudent(ctx context.Context, username string) error {
	return s.deleteByRole(ctx, username, model.RoleStudent)
}

// DeleteTeacher removes a teacher account. Sessions the teacher issued stay
// in history untouched.
func (s *DirectoryService) DeleteTeacher(ctx context.Context, username string) error {
	return s.deleteByRole(ctx, username, model.RoleTeacher)
}

func (s *DirectoryService) deleteByRole(ctx context.Context, username string, role model.Role) error {
	deleted, err := s.users.DeleteByRole(ctx, username, role)
	if err != nil {
		return err
	}
	if !deleted {
		return repository.ErrNotFound
	}
	s.log.Info().Str("username", username).Str("role", string(role)).Msg("User deleted")
	return nil
}

// UpdateUser patches a user's mutable fields (name, roll number, course set).
func (s *DirectoryService) UpdateUser(ctx context.Context, username string, upd model.UserUpdate) (*model.User, error) {
	return s.users.Update(ctx, username, upd)
}

// EnrollStudents adds the course code to many student accounts at once.
// The course must exist; unknown usernames and non-students are skipped.
// Returns the number of new enrollments.
func (s *DirectoryService) EnrollStudents(ctx context.Context, courseCode string, usernames []string) (int64, error) {
	if _, err := s.courses.GetByCode(ctx, courseCode); err != nil {
		return 0, err
	}
	n, err := s.users.EnrollMany(ctx, courseCode, usernames)
	if err != nil {
		return 0, fmt.Errorf("enroll students: %w", err)
	}
	s.log.Info().Str("course", courseCode).Int64("enrolled", n).Msg("Bulk enrollment applied")
	return n, nil
}

// TeacherCourses returns the course documents for a teacher's assigned
// codes. Codes with no course document get a placeholder with the code as
// name, so a half-provisioned assignment still shows up.
func (s *DirectoryService) TeacherCourses(ctx context.Context, username string) ([]model.Course, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(u.Courses) == 0 {
		return []model.Course{}, nil
	}

	found, err := s.courses.GetByCodes(ctx, u.Courses)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	byCode := make(map[string]model.Course, len(found))
	for _, c := range found {
		byCode[c.Code] = c
	}

	courses := make([]model.Course, 0, len(u.Courses))
	for _, code := range u.Courses {
		if c, ok := byCode[code]; ok {
			courses = append(courses, c)
			continue
		}
		courses = append(courses, model.Course{Code: code, Name: code})
	}
	return courses, nil
}

// UsernameFromName derives a login username from a display name:
// lowercased with all whitespace removed.
func UsernameFromName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
