package service

import (
	"context"

	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rs/zerolog"
)

// CourseService handles the course registry.
type CourseService struct {
	courses repository.CourseRepository
	log     zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(courses repository.CourseRepository, log zerolog.Logger) *CourseService {
	return &CourseService{
		courses: courses,
		log:     log.With().Str("component", "course_service").Logger(),
	}
}

// List returns all registered courses.
func (s *CourseService) List(ctx context.Context) ([]model.Course, error) {
	return s.courses.List(ctx)
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, course *model.Course) error {
	return s.courses.Create(ctx, course)
}

// Delete removes a course and its enrollments, so old QR tokens for the
// course keep parsing but fail the enrollment check from then on.
func (s *CourseService) Delete(ctx context.Context, code string) error {
	deleted, err := s.courses.Delete(ctx, code)
	if err != nil {
		return err
	}
	if !deleted {
		return repository.ErrNotFound
	}
	s.log.Info().Str("course", code).Msg("Course and enrollments deleted")
	return nil
}
