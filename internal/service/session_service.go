package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rollcall/rollcall-backend/internal/config"
	"github.com/rollcall/rollcall-backend/internal/metrics"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/qrtoken"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrCourseRequired is returned when a session operation lacks a course code.
var ErrCourseRequired = errors.New("course code required")

// ResolvedSession pairs a live session with its encoded QR string. It is
// also the value cached in Redis under the course's current-session key.
type ResolvedSession struct {
	Session  model.ClassSession `json:"session"`
	QRString string             `json:"qr_string"`
}

// SessionService owns the QR session lifecycle: issuing time-boxed sessions,
// recording no-class sentinels, and resolving the current session for a
// course. Resolution applies the expiry rule lazily — a read may flip a
// stale session's active flag, which is a documented part of the contract.
type SessionService struct {
	sessions repository.SessionRepository
	rdb      *redis.Client
	cfg      *config.Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionService. rdb may be nil, which
// disables the current-session cache (used in tests).
func NewSessionService(sessions repository.SessionRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		rdb:      rdb,
		cfg:      cfg,
		log:      log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
	}
}

// Issue creates a new active session for a course and returns it along with
// the QR string to display. durationMinutes <= 0 falls back to the configured
// default. Issuing does not touch older sessions: the newest active session
// wins by recency, and stale ones are flipped lazily on resolution.
func (s *SessionService) Issue(ctx context.Context, courseCode, teacherID, teacherName string, durationMinutes int) (*model.ClassSession, string, error) {
	if courseCode == "" {
		return nil, "", ErrCourseRequired
	}
	if durationMinutes <= 0 {
		durationMinutes = s.cfg.DefaultSessionMinutes
	}

	now := s.now()
	sess := &model.ClassSession{
		CourseCode:   courseCode,
		TeacherID:    teacherID,
		TeacherName:  teacherName,
		Kind:         model.SessionKindStandard,
		ExpiryMillis: now.Add(time.Duration(durationMinutes) * time.Minute).UnixMilli(),
		Active:       true,
	}
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("insert session: %w", err)
	}

	qr, err := qrtoken.Encode(qrtoken.Payload{
		CourseID:    sess.CourseCode,
		TeacherID:   sess.TeacherID,
		TeacherName: sess.TeacherName,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Expiry:      sess.ExpiryMillis,
	})
	if err != nil {
		return nil, "", fmt.Errorf("encode qr payload: %w", err)
	}

	s.cachePut(ctx, &ResolvedSession{Session: *sess, QRString: qr})
	metrics.SessionsIssued.WithLabelValues(courseCode).Inc()

	s.log.Info().
		Str("course", courseCode).
		Str("teacher", teacherID).
		Int("duration_min", durationMinutes).
		Msg("Session issued")

	return sess, qr, nil
}

// NoClass records the explicit "no class today" sentinel: a session with
// expiry=0 and active=false. The resolver never returns it; it exists so the
// history distinguishes a declared cancellation from a teacher who simply
// never issued a session.
func (s *SessionService) NoClass(ctx context.Context, courseCode, teacherID, teacherName string) error {
	if courseCode == "" {
		return ErrCourseRequired
	}

	sess := &model.ClassSession{
		CourseCode:   courseCode,
		TeacherID:    teacherID,
		TeacherName:  teacherName,
		Kind:         model.SessionKindNoClass,
		ExpiryMillis: 0,
		Active:       false,
	}
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return fmt.Errorf("insert no-class sentinel: %w", err)
	}

	metrics.NoClassMarked.WithLabelValues(courseCode).Inc()
	s.log.Info().Str("course", courseCode).Str("teacher", teacherID).Msg("No-class recorded")
	return nil
}

// ResolveCurrent returns the newest active, unexpired session — for one
// course if courseCode is set, across all courses otherwise. A nil result
// with nil error means no current session.
//
// When the newest active session has expired, its active flag is flipped
// before reporting "none". The flip is idempotent (concurrent resolvers
// write the same final value) and its failure is swallowed: expiry is
// re-evaluated on every call, so the caller's answer stays correct even if
// the persisted flip never lands.
func (s *SessionService) ResolveCurrent(ctx context.Context, courseCode string) (*ResolvedSession, error) {
	if cached := s.cacheGet(ctx, courseCode); cached != nil {
		return cached, nil
	}

	sess, err := s.sessions.FindCurrent(ctx, courseCode)
	if err != nil {
		return nil, fmt.Errorf("find current session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	now := s.now()
	if sess.ExpiredAt(now) {
		if err := s.sessions.Deactivate(ctx, sess.ID); err != nil {
			s.log.Warn().Err(err).
				Str("session_id", sess.ID.String()).
				Msg("Lazy expiry flip failed; will retry on next resolve")
		} else {
			metrics.SessionsExpired.WithLabelValues("lazy").Inc()
		}
		s.cacheEvict(ctx, sess.CourseCode)
		return nil, nil
	}

	qr, err := qrtoken.Encode(qrtoken.Payload{
		CourseID:    sess.CourseCode,
		TeacherID:   sess.TeacherID,
		TeacherName: sess.TeacherName,
		Timestamp:   sess.CreatedAt.UTC().Format(time.RFC3339),
		Expiry:      sess.ExpiryMillis,
	})
	if err != nil {
		return nil, fmt.Errorf("encode qr payload: %w", err)
	}

	resolved := &ResolvedSession{Session: *sess, QRString: qr}
	s.cachePut(ctx, resolved)
	return resolved, nil
}

// EvictCurrent drops a course's cached session. Used by the sweeper after a
// bulk expiry pass.
func (s *SessionService) EvictCurrent(ctx context.Context, courseCode string) {
	s.cacheEvict(ctx, courseCode)
}

// ────────────────────────────────────────────────────────────────────────────
// Redis current-session cache
// ────────────────────────────────────────────────────────────────────────────

// cacheGet returns a cached resolution for the course, or nil on miss,
// disabled cache, unfiltered lookups, or a cached-but-expired entry.
func (s *SessionService) cacheGet(ctx context.Context, courseCode string) *ResolvedSession {
	if s.rdb == nil || courseCode == "" {
		return nil
	}

	raw, err := s.rdb.Get(ctx, config.CacheKey.CurrentSessionKey(courseCode)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("course", courseCode).Msg("Session cache read failed")
		}
		return nil
	}

	var resolved ResolvedSession
	if err := json.Unmarshal([]byte(raw), &resolved); err != nil {
		s.cacheEvict(ctx, courseCode)
		return nil
	}

	// TTL should have evicted an expired entry already; re-check against the
	// clock anyway and fall through to the DB path so the flip happens.
	if resolved.Session.ExpiredAt(s.now()) {
		s.cacheEvict(ctx, courseCode)
		return nil
	}
	return &resolved
}

func (s *SessionService) cachePut(ctx context.Context, resolved *ResolvedSession) {
	if s.rdb == nil {
		return
	}
	ttl := time.UnixMilli(resolved.Session.ExpiryMillis).Sub(s.now())
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(resolved)
	if err != nil {
		return
	}
	key := config.CacheKey.CurrentSessionKey(resolved.Session.CourseCode)
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("course", resolved.Session.CourseCode).Msg("Session cache write failed")
	}
}

func (s *SessionService) cacheEvict(ctx context.Context, courseCode string) {
	if s.rdb == nil || courseCode == "" {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.CurrentSessionKey(courseCode)).Err(); err != nil {
		s.log.Warn().Err(err).Str("course", courseCode).Msg("Session cache evict failed")
	}
}
