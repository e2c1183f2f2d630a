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

// AuthHandler handles login and the caller-owned profile refresh.
type AuthHandler struct {
	authService *service.AuthService
	directory   *service.DirectoryService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, directory *service.DirectoryService) *AuthHandler {
	return &AuthHandler{authService: authService, directory: directory}
}

// Login godoc
// POST /api/v1/auth/login
// Authenticates any role and returns a JWT plus the user record.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.directory.GetUser(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if err := h.authService.CheckPassword(user.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.LoginResponse{Token: token, User: *user})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the caller's authoritative user record from the directory.
// Clients call this after admin-side updates instead of trusting a stale
// token payload.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.directory.GetUser(c.Request.Context(), claims.Subject)
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
