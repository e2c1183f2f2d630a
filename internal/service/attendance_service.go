package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rollcall/rollcall-backend/internal/config"
	"github.com/rollcall/rollcall-backend/internal/metrics"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/qrtoken"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Scan rejection reasons, in the order they are checked. The first failing
// check wins; none of them is a server fault.
var (
	ErrMalformedToken = errors.New("qr token malformed")
	ErrTokenExpired   = errors.New("qr token expired")
	ErrNotEnrolled    = errors.New("student not enrolled in course")
	ErrAlreadyMarked  = errors.New("attendance already marked for today")
)

// AttendanceService validates presented QR tokens and records attendance
// marks: at most one per (student, course, calendar day).
type AttendanceService struct {
	marks repository.AttendanceRepository
	users repository.UserRepository
	rdb   *redis.Client
	log   zerolog.Logger
	now   func() time.Time
}

// NewAttendanceService creates a new AttendanceService. rdb may be nil,
// which disables the live feed publication (used in tests).
func NewAttendanceService(marks repository.AttendanceRepository, users repository.UserRepository, rdb *redis.Client, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		marks: marks,
		users: users,
		rdb:   rdb,
		log:   log.With().Str("component", "attendance_service").Logger(),
		now:   time.Now,
	}
}

// Record validates rawToken for the student and persists a present-mark.
// Checks run in order: token shape, token expiry, enrollment, duplicate.
// The mark's date comes from the server clock, never from the token, so a
// stale or doctored timestamp field cannot backdate attendance.
//
// The duplicate pre-check is advisory; the unique index on
// (student, course, date) is authoritative. Two simultaneous scans race past
// the pre-check, one insert loses with a unique violation, and that loss is
// reported as ErrAlreadyMarked — the same answer a sequential re-scan gets.
func (s *AttendanceService) Record(ctx context.Context, studentUsername, rawToken string) (*model.AttendanceMark, error) {
	payload, err := qrtoken.Decode(rawToken)
	if err != nil {
		metrics.Scans.WithLabelValues("malformed_token").Inc()
		return nil, ErrMalformedToken
	}

	now := s.now()
	if payload.ExpiredAt(now) {
		metrics.Scans.WithLabelValues("token_expired").Inc()
		return nil, ErrTokenExpired
	}

	enrolled, err := s.users.IsEnrolled(ctx, studentUsername, payload.CourseID)
	if err != nil {
		metrics.Scans.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		metrics.Scans.WithLabelValues("not_enrolled").Inc()
		return nil, ErrNotEnrolled
	}

	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	exists, err := s.marks.ExistsOnDate(ctx, studentUsername, payload.CourseID, date)
	if err != nil {
		metrics.Scans.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("check existing mark: %w", err)
	}
	if exists {
		metrics.Scans.WithLabelValues("already_marked").Inc()
		return nil, ErrAlreadyMarked
	}

	mark := &model.AttendanceMark{
		StudentUsername: studentUsername,
		CourseCode:      payload.CourseID,
		Date:            date,
		MarkedAt:        now,
		Status:          model.StatusPresent,
	}
	if err := s.marks.Insert(ctx, mark); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			metrics.Scans.WithLabelValues("already_marked").Inc()
			return nil, ErrAlreadyMarked
		}
		metrics.Scans.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("insert mark: %w", err)
	}

	s.publishMark(ctx, mark)
	metrics.Scans.WithLabelValues("recorded").Inc()

	s.log.Info().
		Str("student", studentUsername).
		Str("course", payload.CourseID).
		Msg("Attendance recorded")

	return mark, nil
}

// Today returns the student's marks for the current calendar date.
func (s *AttendanceService) Today(ctx context.Context, studentUsername string) ([]model.AttendanceMark, error) {
	now := s.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.marks.ListForDate(ctx, studentUsername, date)
}

// Month returns marks for the given month, optionally filtered by student.
func (s *AttendanceService) Month(ctx context.Context, year int, month time.Month, studentUsername string) ([]model.AttendanceMark, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	return s.marks.ListForRange(ctx, from, to, studentUsername)
}

// publishMark pushes the new mark onto the course's live feed channel for
// connected teacher dashboards. Feed delivery is best effort.
func (s *AttendanceService) publishMark(ctx context.Context, mark *model.AttendanceMark) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(mark)
	if err != nil {
		return
	}
	channel := config.CacheKey.AttendanceFeedChannel(mark.CourseCode)
	if err := s.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("course", mark.CourseCode).Msg("Feed publish failed")
	}
}
