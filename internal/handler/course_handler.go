package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rollcall/rollcall-backend/internal/response"
	"github.com/rollcall/rollcall-backend/internal/service"
	"github.com/rollcall/rollcall-backend/internal/validator"
)

// CourseHandler handles the course registry: admin CRUD plus the public list.
type CourseHandler struct {
	courseService *service.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// ListCourses godoc
// GET /api/v1/courses
// Public course list — the student dashboard loads it before login completes.
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// CreateCourse godoc
// POST /api/v1/admin/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course := &model.Course{Code: req.Code, Name: req.Name}
	if err := h.courseService.Create(c.Request.Context(), course); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// DeleteCourse godoc
// DELETE /api/v1/admin/courses/:code
// Removes a course; every user's enrollment set loses the code in cascade.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := h.courseService.Delete(c.Request.Context(), c.Param("code")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "course deleted and enrollments updated"})
}
