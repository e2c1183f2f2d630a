package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rollcall/rollcall-backend/internal/middleware"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rollcall/rollcall-backend/internal/response"
	"github.com/rollcall/rollcall-backend/internal/service"
	"github.com/rollcall/rollcall-backend/internal/validator"
)

// TeacherHandler handles QR session issuance and the teacher's course view.
type TeacherHandler struct {
	sessionService *service.SessionService
	directory      *service.DirectoryService
}

// NewTeacherHandler creates a new TeacherHandler.
func NewTeacherHandler(sessionService *service.SessionService, directory *service.DirectoryService) *TeacherHandler {
	return &TeacherHandler{sessionService: sessionService, directory: directory}
}

// IssueSession godoc
// POST /api/v1/teacher/sessions
// Creates a time-boxed QR session for a course and returns the QR string.
func (h *TeacherHandler) IssueSession(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.IssueSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// The token embeds the teacher's display name, so read the directory
	// record rather than trusting a possibly stale claim.
	teacherName := claims.Name
	if user, err := h.directory.GetUser(c.Request.Context(), claims.Subject); err == nil {
		teacherName = user.Name
	}

	sess, qr, err := h.sessionService.Issue(c.Request.Context(), req.CourseCode, claims.Subject, teacherName, req.DurationMinutes)
	if err != nil {
		if errors.Is(err, service.ErrCourseRequired) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"qr_string": qr, "session": sess})
}

// CurrentSession godoc
// GET /api/v1/teacher/sessions/current?course_code=...
// Returns the newest unexpired session, or a null qr_string when none is live.
func (h *TeacherHandler) CurrentSession(c *gin.Context) {
	resolved, err := h.sessionService.ResolveCurrent(c.Request.Context(), c.Query("course_code"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if resolved == nil {
		response.Success(c, http.StatusOK, gin.H{"qr_string": nil, "session": nil})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"qr_string": resolved.QRString, "session": resolved.Session})
}

// NoClass godoc
// POST /api/v1/teacher/no-class
// Records the explicit "no class today" sentinel for a course.
func (h *TeacherHandler) NoClass(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.NoClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.NoClass(c.Request.Context(), req.CourseCode, claims.Subject, claims.Name); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "no class recorded"})
}

// MyCourses godoc
// GET /api/v1/teacher/courses
// Lists the course documents assigned to the calling teacher.
func (h *TeacherHandler) MyCourses(c *gin.Context) {
	claims := middleware.GetClaims(c)

	courses, err := h.directory.TeacherCourses(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}
