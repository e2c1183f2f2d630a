package handler

import (
	"context"
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

// AdminHandler handles admin-facing user provisioning and enrollment.
type AdminHandler struct {
	directory *service.DirectoryService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{directory: directory}
}

// CreateStudentRequest is the payload for provisioning a student.
type CreateStudentRequest struct {
	Name   string `json:"name" binding:"required,min=2,max=100"`
	RollNo string `json:"roll_no" binding:"required,min=1,max=32"`
}

// CreateStudent godoc
// POST /api/v1/admin/students
func (h *AdminHandler) CreateStudent(c *gin.Context) {
	var req CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.directory.CreateStudent(c.Request.Context(), req.Name, req.RollNo)
	if err != nil {
		failCreateUser(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// ListStudents godoc
// GET /api/v1/admin/students
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students, err := h.directory.ListStudents(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:username
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	h.deleteUser(c, h.directory.DeleteStudent)
}

// CreateTeacherRequest is the payload for provisioning a teacher.
type CreateTeacherRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Username string `json:"username" binding:"required,min=2,max=64"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
}

// CreateTeacher godoc
// POST /api/v1/admin/teachers
func (h *AdminHandler) CreateTeacher(c *gin.Context) {
	var req CreateTeacherRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.directory.CreateTeacher(c.Request.Context(), req.Name, req.Username, req.Password)
	if err != nil {
		failCreateUser(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// ListTeachers godoc
// GET /api/v1/admin/teachers
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.directory.ListTeachers(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"teachers": teachers})
}

// DeleteTeacher godoc
// DELETE /api/v1/admin/teachers/:username
func (h *AdminHandler) DeleteTeacher(c *gin.Context) {
	h.deleteUser(c, h.directory.DeleteTeacher)
}

// UpdateUser godoc
// PATCH /api/v1/admin/users/:username
// Patches a user's mutable fields; a courses array replaces the whole
// enrollment set.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req model.UserUpdate
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.directory.UpdateUser(c.Request.Context(), c.Param("username"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// EnrollStudentsRequest is the payload for bulk course enrollment.
type EnrollStudentsRequest struct {
	Usernames []string `json:"usernames" binding:"required,min=1,dive,min=1,max=64"`
}

// EnrollStudents godoc
// POST /api/v1/admin/courses/:code/students
// Adds the course to many student accounts; already-enrolled usernames and
// non-students are skipped silently.
func (h *AdminHandler) EnrollStudents(c *gin.Context) {
	var req EnrollStudentsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	enrolled, err := h.directory.EnrollStudents(c.Request.Context(), c.Param("code"), req.Usernames)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrolled_count": enrolled})
}

func (h *AdminHandler) deleteUser(c *gin.Context, del func(ctx context.Context, username string) error) {
	if err := del(c.Request.Context(), c.Param("username")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "user removed"})
}

// failCreateUser maps provisioning failures: duplicate usernames surface as
// Conflict, everything else is internal.
func failCreateUser(c *gin.Context, err error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
