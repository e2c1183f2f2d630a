package model

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is the recorded presence state. Only "present" is
// written today; absences are the lack of a mark.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
)

// AttendanceMark is the durable record that a student attended a course
// on a calendar date. At most one mark exists per (student, course, date),
// enforced by a unique index; marks are immutable once written.
type AttendanceMark struct {
	ID              uuid.UUID        `json:"id"`
	StudentUsername string           `json:"student_username"`
	CourseCode      string           `json:"course_code"`
	Date            time.Time        `json:"date"`
	MarkedAt        time.Time        `json:"marked_at"`
	Status          AttendanceStatus `json:"status"`
}

// ScanRequest is the student payload carrying the raw QR string, exactly
// as captured by the camera or pasted manually.
type ScanRequest struct {
	QRString string `json:"qr_string" binding:"required,min=2"`
}
