package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rollcall/rollcall-backend/internal/config"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rs/zerolog"
)

// memUserRepository backs the directory tests with a map.
type memUserRepository struct {
	users map[string]*model.User
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: make(map[string]*model.User)}
}

func (r *memUserRepository) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepository) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUserRepository) Create(_ context.Context, u *model.User) error {
	if _, exists := r.users[u.Username]; exists {
		return errors.New("duplicate username")
	}
	copied := *u
	r.users[u.Username] = &copied
	return nil
}

func (r *memUserRepository) DeleteByRole(_ context.Context, username string, role model.Role) (bool, error) {
	u, ok := r.users[username]
	if !ok || u.Role != role {
		return false, nil
	}
	delete(r.users, username)
	return true, nil
}

func (r *memUserRepository) Update(_ context.Context, username string, upd model.UserUpdate) (*model.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.RollNo != nil {
		u.RollNo = *upd.RollNo
	}
	if upd.Courses != nil {
		u.Courses = append([]string(nil), (*upd.Courses)...)
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepository) EnrollMany(_ context.Context, courseCode string, usernames []string) (int64, error) {
	var n int64
	for _, username := range usernames {
		u, ok := r.users[username]
		if !ok || u.Role != model.RoleStudent || u.EnrolledIn(courseCode) {
			continue
		}
		u.Courses = append(u.Courses, courseCode)
		n++
	}
	return n, nil
}

func (r *memUserRepository) IsEnrolled(_ context.Context, username, courseCode string) (bool, error) {
	u, ok := r.users[username]
	if !ok {
		return false, nil
	}
	return u.EnrolledIn(courseCode), nil
}

type stubCourseRepository struct {
	courses map[string]model.Course
}

func (r *stubCourseRepository) GetByCode(_ context.Context, code string) (*model.Course, error) {
	c, ok := r.courses[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *stubCourseRepository) GetByCodes(_ context.Context, codes []string) ([]model.Course, error) {
	var out []model.Course
	for _, code := range codes {
		if c, ok := r.courses[code]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubCourseRepository) List(context.Context) ([]model.Course, error) {
	var out []model.Course
	for _, c := range r.courses {
		out = append(out, c)
	}
	return out, nil
}

func (r *stubCourseRepository) Create(_ context.Context, course *model.Course) error {
	r.courses[course.Code] = *course
	return nil
}

func (r *stubCourseRepository) Delete(_ context.Context, code string) (bool, error) {
	if _, ok := r.courses[code]; !ok {
		return false, nil
	}
	delete(r.courses, code)
	return true, nil
}

func newDirectoryService(users *memUserRepository, courses *stubCourseRepository) *DirectoryService {
	auth := NewAuthService(&config.Config{BcryptCost: 4, JWTSecret: "test-secret"})
	return NewDirectoryService(users, courses, auth, zerolog.Nop())
}

func TestUsernameFromName(t *testing.T) {
	cases := []struct{ name, want string }{
		{"Alice Johnson", "alicejohnson"},
		{"  Bob   Lee  ", "boblee"},
		{"CAROL", "carol"},
	}
	for _, tc := range cases {
		if got := UsernameFromName(tc.name); got != tc.want {
			t.Errorf("UsernameFromName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCreateStudentDerivesUsername(t *testing.T) {
	users := newMemUserRepository()
	svc := newDirectoryService(users, &stubCourseRepository{courses: map[string]model.Course{}})

	u, err := svc.CreateStudent(context.Background(), "Alice Johnson", "21")
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	if u.Username != "alicejohnson" {
		t.Errorf("username = %q, want alicejohnson", u.Username)
	}
	if u.Role != model.RoleStudent {
		t.Errorf("role = %q, want student", u.Role)
	}
	if u.RollNo != "21" {
		t.Errorf("roll_no = %q, want 21", u.RollNo)
	}

	// The stored account can authenticate with the default password.
	stored, err := users.GetByUsername(context.Background(), "alicejohnson")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if err := svc.auth.CheckPassword(stored.PasswordHash, defaultStudentPassword); err != nil {
		t.Errorf("default password should verify: %v", err)
	}
}

func TestDeleteIsRoleScoped(t *testing.T) {
	users := newMemUserRepository()
	svc := newDirectoryService(users, &stubCourseRepository{courses: map[string]model.Course{}})

	if _, err := svc.CreateTeacher(context.Background(), "T. Smith", "tsmith", ""); err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}

	// Deleting a teacher through the student path must not touch the account.
	if err := svc.DeleteStudent(context.Background(), "tsmith"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("DeleteStudent(teacher) err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteTeacher(context.Background(), "tsmith"); err != nil {
		t.Fatalf("DeleteTeacher: %v", err)
	}
}

func TestEnrollStudentsRequiresCourse(t *testing.T) {
	users := newMemUserRepository()
	svc := newDirectoryService(users, &stubCourseRepository{courses: map[string]model.Course{}})

	if _, err := svc.EnrollStudents(context.Background(), "CS101", []string{"alice"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEnrollStudentsSkipsNonStudents(t *testing.T) {
	users := newMemUserRepository()
	courses := &stubCourseRepository{courses: map[string]model.Course{
		"CS101": {Code: "CS101", Name: "Intro to CS"},
	}}
	svc := newDirectoryService(users, courses)

	if _, err := svc.CreateStudent(context.Background(), "Alice Johnson", "21"); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	if _, err := svc.CreateTeacher(context.Background(), "T. Smith", "tsmith", ""); err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}

	n, err := svc.EnrollStudents(context.Background(), "CS101", []string{"alicejohnson", "tsmith", "ghost"})
	if err != nil {
		t.Fatalf("EnrollStudents: %v", err)
	}
	if n != 1 {
		t.Errorf("enrolled = %d, want 1", n)
	}

	// Re-enrolling is a no-op, not an error.
	n, err = svc.EnrollStudents(context.Background(), "CS101", []string{"alicejohnson"})
	if err != nil {
		t.Fatalf("EnrollStudents again: %v", err)
	}
	if n != 0 {
		t.Errorf("re-enroll count = %d, want 0", n)
	}
}

func TestTeacherCoursesFillsPlaceholders(t *testing.T) {
	users := newMemUserRepository()
	courses := &stubCourseRepository{courses: map[string]model.Course{
		"CS101": {Code: "CS101", Name: "Intro to CS"},
	}}
	svc := newDirectoryService(users, courses)

	if _, err := svc.CreateTeacher(context.Background(), "T. Smith", "tsmith", ""); err != nil {
		t.Fatalf("CreateTeacher: %v", err)
	}
	assigned := []string{"CS101", "MA201"}
	if _, err := svc.UpdateUser(context.Background(), "tsmith", model.UserUpdate{Courses: &assigned}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, err := svc.TeacherCourses(context.Background(), "tsmith")
	if err != nil {
		t.Fatalf("TeacherCourses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("courses = %d, want 2", len(got))
	}
	if got[0].Name != "Intro to CS" {
		t.Errorf("known course name = %q, want Intro to CS", got[0].Name)
	}
	// MA201 has no course document; the code stands in for the name.
	if got[1].Code != "MA201" || got[1].Name != "MA201" {
		t.Errorf("placeholder = %+v, want code as name", got[1])
	}
}
