package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rollcall/rollcall-backend/internal/middleware"
	"github.com/rollcall/rollcall-backend/internal/model"
	"github.com/rollcall/rollcall-backend/internal/response"
	"github.com/rollcall/rollcall-backend/internal/service"
	"github.com/rollcall/rollcall-backend/internal/validator"
)

// AttendanceHandler handles scan submission and attendance read paths.
type AttendanceHandler struct {
	attendanceService *service.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendanceService *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

// Scan godoc
// POST /api/v1/attendance/scan
// Validates the presented QR string and records a present-mark for the
// calling student. Rejections come back as {ok:false, reason} with 200 —
// they are expected user outcomes, not request failures.
func (h *AttendanceHandler) Scan(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.ScanRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	mark, err := h.attendanceService.Record(c.Request.Context(), claims.Subject, req.QRString)
	if err != nil {
		if code, ok := scanRejection(err); ok {
			response.Success(c, http.StatusOK, gin.H{
				"ok":      false,
				"reason":  code,
				"message": response.GetMessage(code),
			})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"ok": true, "mark": mark})
}

// scanRejection maps the service's scan rejections onto API error codes.
func scanRejection(err error) (response.ErrCode, bool) {
	switch {
	case errors.Is(err, service.ErrMalformedToken):
		return response.ErrMalformedQRToken, true
	case errors.Is(err, service.ErrTokenExpired):
		return response.ErrQRTokenExpired, true
	case errors.Is(err, service.ErrNotEnrolled):
		return response.ErrNotEnrolled, true
	case errors.Is(err, service.ErrAlreadyMarked):
		return response.ErrAlreadyMarked, true
	}
	return "", false
}

// Today godoc
// GET /api/v1/attendance/today
// Lists the caller's marks for the current calendar date. Teachers may pass
// ?student= to inspect a specific student.
func (h *AttendanceHandler) Today(c *gin.Context) {
	username := h.subjectFor(c)

	marks, err := h.attendanceService.Today(c.Request.Context(), username)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": marks})
}

// Month godoc
// GET /api/v1/attendance/month?month=3&year=2025[&student=alice]
// Lists marks for a month. Students always see their own marks; teachers
// may filter by student or omit the filter for the whole month.
func (h *AttendanceHandler) Month(c *gin.Context) {
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2000 || year > 9999 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	username := h.subjectFor(c)

	marks, err := h.attendanceService.Month(c.Request.Context(), year, time.Month(month), username)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": marks})
}

// subjectFor decides whose marks a read path returns: students are pinned
// to their own username, teachers may filter via ?student= (empty means all).
func (h *AttendanceHandler) subjectFor(c *gin.Context) string {
	claims := middleware.GetClaims(c)
	if claims.Role == model.RoleStudent {
		return claims.Subject
	}
	return c.Query("student")
}
