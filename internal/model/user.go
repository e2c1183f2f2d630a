package model

import "time"

// Role is the closed set of account roles. Authorization decisions go
// through the predicates below rather than ad-hoc string comparisons.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// CanManageDirectory reports whether the role may provision users and courses.
func (r Role) CanManageDirectory() bool { return r == RoleAdmin }

// CanIssueSessions reports whether the role may issue or revoke QR sessions.
func (r Role) CanIssueSessions() bool { return r == RoleTeacher }

// CanScan reports whether the role may submit attendance scans.
func (r Role) CanScan() bool { return r == RoleStudent }

// User represents a directory account: admin, teacher or student.
// Courses holds enrolled course codes for students and assigned course
// codes for teachers.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	RollNo       string    `json:"roll_no,omitempty"`
	Courses      []string  `json:"courses"`
	CreatedAt    time.Time `json:"created_at"`
}

// EnrolledIn reports whether the user carries the given course code.
func (u *User) EnrolledIn(courseCode string) bool {
	for _, c := range u.Courses {
		if c == courseCode {
			return true
		}
	}
	return false
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=2,max=64"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UserUpdate carries the mutable fields of a user for PATCH updates.
// Nil pointers mean "leave unchanged"; a non-nil Courses replaces the
// whole enrollment set.
type UserUpdate struct {
	Name    *string   `json:"name" binding:"omitempty,min=2,max=100"`
	RollNo  *string   `json:"roll_no" binding:"omitempty,max=32"`
	Courses *[]string `json:"courses" binding:"omitempty,dive,min=1,max=32"`
}
