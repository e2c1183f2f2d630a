package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionKind distinguishes ordinary QR sessions from the explicit
// "no class today" sentinel a teacher can record.
type SessionKind string

const (
	SessionKindStandard SessionKind = "standard"
	SessionKindNoClass  SessionKind = "no_class"
)

// ClassSession is one teacher-declared class occurrence for a course.
// ExpiryMillis is epoch milliseconds; the QR payload embeds it verbatim.
// Rows are never deleted — history is kept for audit. A session leaves
// the "current" position either by a newer session being issued or by
// its active flag being flipped once the expiry passes.
type ClassSession struct {
	ID           uuid.UUID   `json:"id"`
	CourseCode   string      `json:"course_code"`
	TeacherID    string      `json:"teacher_id"`
	TeacherName  string      `json:"teacher_name"`
	Kind         SessionKind `json:"kind"`
	ExpiryMillis int64       `json:"expiry"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ExpiredAt reports whether the session's window has passed at the given
// instant. A session is still valid at the exact expiry millisecond.
func (s *ClassSession) ExpiredAt(now time.Time) bool {
	return now.UnixMilli() > s.ExpiryMillis
}

// IssueSessionRequest is the teacher payload for generating a QR session.
// DurationMinutes <= 0 (or absent) falls back to the configured default.
type IssueSessionRequest struct {
	CourseCode      string `json:"course_code" binding:"required,min=1,max=32"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,max=1440"`
}

// NoClassRequest is the teacher payload for recording a no-class sentinel.
type NoClassRequest struct {
	CourseCode string `json:"course_code" binding:"required,min=1,max=32"`
}
