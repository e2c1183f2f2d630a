package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/qrtoken"
	"github.com/rs/zerolog"
)

type stubAttendanceRepository struct {
	marks     []*model.AttendanceMark
	insertErr error
}

func (r *stubAttendanceRepository) Insert(_ context.Context, m *model.AttendanceMark) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.marks = append(r.marks, m)
	return nil
}

func (r *stubAttendanceRepository) ExistsOnDate(_ context.Context, username, courseCode string, date time.Time) (bool, error) {
	for _, m := range r.marks {
		if m.StudentUsername == username && m.CourseCode == courseCode && m.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAttendanceRepository) ListForDate(_ context.Context, username string, date time.Time) ([]model.AttendanceMark, error) {
	var out []model.AttendanceMark
	for _, m := range r.marks {
		if username != "" && m.StudentUsername != username {
			continue
		}
		if m.Date.Equal(date) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubAttendanceRepository) ListForRange(_ context.Context, from, to time.Time, username string) ([]model.AttendanceMark, error) {
	var out []model.AttendanceMark
	for _, m := range r.marks {
		if username != "" && m.StudentUsername != username {
			continue
		}
		if !m.Date.Before(from) && m.Date.Before(to) {
			out = append(out, *m)
		}
	}
	return out, nil
}

// stubUserRepository only answers enrollment checks; the rest of the
// interface is unused by the attendance paths.
type stubUserRepository struct {
	enrollments map[string][]string // username -> course codes
}

func (r *stubUserRepository) IsEnrolled(_ context.Context, username, courseCode string) (bool, error) {
	for _, c := range r.enrollments[username] {
		if c == courseCode {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepository) GetByUsername(context.Context, string) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (r *stubUserRepository) ListByRole(context.Context, model.Role) ([]model.User, error) {
	return nil, errors.New("not implemented")
}

func (r *stubUserRepository) Create(context.Context, *model.User) error {
	return errors.New("not implemented")
}

func (r *stubUserRepository) DeleteByRole(context.Context, string, model.Role) (bool, error) {
	return false, errors.New("not implemented")
}

func (r *stubUserRepository) Update(context.Context, string, model.UserUpdate) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (r *stubUserRepository) EnrollMany(context.Context, string, []string) (int64, error) {
	return 0, errors.New("not implemented")
}

func newAttendanceService(marks *stubAttendanceRepository, users *stubUserRepository) *AttendanceService {
	return NewAttendanceService(marks, users, nil, zerolog.Nop())
}

func validToken(t *testing.T, courseCode string, issuedAt time.Time, expiry int64) string {
	t.Helper()
	qr, err := qrtoken.Encode(qrtoken.Payload{
		CourseID:    courseCode,
		TeacherID:   "tsmith",
		TeacherName: "T. Smith",
		Timestamp:   issuedAt.UTC().Format(time.RFC3339),
		Expiry:      expiry,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return qr
}

func TestRecordStoresPresentMark(t *testing.T) {
	marks := &stubAttendanceRepository{}
	users := &stubUserRepository{enrollments: map[string][]string{"alice": {"CS101"}}}
	svc := newAttendanceService(marks, users)

	now := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	qr := validToken(t, "CS101", now, now.Add(10*time.Minute).UnixMilli())

	mark, err := svc.Record(context.Background(), "alice", qr)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if mark.StudentUsername != "alice" || mark.CourseCode != "CS101" {
		t.Errorf("mark = %+v", mark)
	}
	if mark.Status != model.StatusPresent {
		t.Errorf("status = %q, want present", mark.Status)
	}
	wantDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !mark.Date.Equal(wantDate) {
		t.Errorf("date = %v, want %v", mark.Date, wantDate)
	}
}

func TestRecordRejectsMalformedToken(t *testing.T) {
	svc := newAttendanceService(&stubAttendanceRepository{}, &stubUserRepository{})

	for _, raw := range []string{"", "not json", `{"teacherId":"t"}`, `{"courseId":"CS101"}`} {
		if _, err := svc.Record(context.Background(), "alice", raw); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Record(%q) err = %v, want ErrMalformedToken", raw, err)
		}
	}
}

func TestRecordExpiryBoundary(t *testing.T) {
	users := &stubUserRepository{enrollments: map[string][]string{"alice": {"CS101"}}}

	now := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	expiry := now.UnixMilli()

	// Exactly at the expiry millisecond the token is still good.
	svc := newAttendanceService(&stubAttendanceRepository{}, users)
	svc.now = func() time.Time { return now }
	qr := validToken(t, "CS101", now.Add(-10*time.Minute), expiry)
	if _, err := svc.Record(context.Background(), "alice", qr); err != nil {
		t.Errorf("Record at expiry instant: %v", err)
	}

	// One millisecond later it is not.
	svc = newAttendanceService(&stubAttendanceRepository{}, users)
	svc.now = func() time.Time { return now.Add(time.Millisecond) }
	if _, err := svc.Record(context.Background(), "alice", qr); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Record 1ms past expiry err = %v, want ErrTokenExpired", err)
	}
}

func TestRecordRejectsUnenrolledStudent(t *testing.T) {
	users := &stubUserRepository{enrollments: map[string][]string{"alice": {"MA201"}}}
	svc := newAttendanceService(&stubAttendanceRepository{}, users)

	now := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	qr := validToken(t, "CS101", now, now.Add(10*time.Minute).UnixMilli())
	if _, err := svc.Record(context.Background(), "alice", qr); !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}
}

func TestRecordIsIdempotentPerDay(t *testing.T) {
	marks := &stubAttendanceRepository{}
	users := &stubUserRepository{enrollments: map[string][]string{"alice": {"CS101"}}}
	svc := newAttendanceService(marks, users)

	now := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	qr := validToken(t, "CS101", now, now.Add(10*time.Minute).UnixMilli())

	if _, err := svc.Record(context.Background(), "alice", qr); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if _, err := svc.Record(context.Background(), "alice", qr); !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("second Record err = %v, want ErrAlreadyMarked", err)
	}
	if len(marks.marks) != 1 {
		t.Errorf("stored marks = %d, want 1", len(marks.marks))
	}
}

func TestRecordMapsUniqueViolationToAlreadyMarked(t *testing.T) {
	// Two scans race past the pre-check; the insert loses on the unique index.
	marks := &stubAttendanceRepository{insertErr: &pgconn.PgError{Code: "23505"}}
	users := &stubUserRepository{enrollments: map[string][]string{"alice": {"CS101"}}}
	svc := newAttendanceService(marks, users)

	now := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	qr := validToken(t, "CS101", now, now.Add(10*time.Minute).UnixMilli())
	if _, err := svc.Record(context.Background(), "alice", qr); !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("err = %v, want ErrAlreadyMarked", err)
	}
}

func TestRecordDateComesFromServerClock(t *testing.T) {
	marks := &stubAttendanceRepository{}
	users := &stubUserRepository{enrollments: map[string][]string{"alice": {"CS101"}}}
	svc := newAttendanceService(marks, users)

	now := time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// Token issued "yesterday" but expiry still open: the mark lands on the
	// server's current date, not the token's.
	issued := now.Add(-24 * time.Hour)
	qr := validToken(t, "CS101", issued, now.Add(5*time.Minute).UnixMilli())

	mark, err := svc.Record(context.Background(), "alice", qr)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	wantDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !mark.Date.Equal(wantDate) {
		t.Errorf("date = %v, want server date %v", mark.Date, wantDate)
	}
}

func TestMonthRangeIsHalfOpen(t *testing.T) {
	marks := &stubAttendanceRepository{}
	users := &stubUserRepository{enrollments: map[string][]string{"alice": {"CS101"}}}
	svc := newAttendanceService(marks, users)

	put := func(day int) {
		marks.marks = append(marks.marks, &model.AttendanceMark{
			StudentUsername: "alice",
			CourseCode:      "CS101",
			Date:            time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
			Status:          model.StatusPresent,
		})
	}
	put(1)
	put(31)
	marks.marks = append(marks.marks, &model.AttendanceMark{
		StudentUsername: "alice",
		CourseCode:      "CS101",
		Date:            time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:          model.StatusPresent,
	})

	got, err := svc.Month(context.Background(), 2026, time.March, "alice")
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("marks in March = %d, want 2", len(got))
	}
}
