// Package qrtoken encodes and decodes the payload carried inside the
// attendance QR code. The JSON field names are part of the wire contract
// with the scanning clients and must not change.
package qrtoken

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrMalformed indicates the presented string is not a valid QR payload:
// unparseable JSON or missing the courseId/expiry fields.
var ErrMalformed = errors.New("malformed qr token")

// Payload is the flat structure embedded in the QR code.
// Timestamp is the issue instant as RFC3339; Expiry is epoch milliseconds.
type Payload struct {
	CourseID    string `json:"courseId"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	Timestamp   string `json:"timestamp"`
	Expiry      int64  `json:"expiry"`
}

// Encode serializes the payload to the QR string.
func Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a presented QR string. It returns ErrMalformed when the
// input is not JSON or lacks a course or expiry — the two fields every
// downstream check depends on.
func Decode(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, ErrMalformed
	}
	if p.CourseID == "" || p.Expiry == 0 {
		return Payload{}, ErrMalformed
	}
	return p, nil
}

// ExpiredAt reports whether the token's window has passed at the given
// instant. The exact expiry millisecond is still accepted.
func (p Payload) ExpiredAt(now time.Time) bool {
	return now.UnixMilli() > p.Expiry
}

// ExpiresAt returns the expiry instant.
func (p Payload) ExpiresAt() time.Time {
	return time.UnixMilli(p.Expiry)
}
