package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aitrainer/trainer-backend/internal/middleware"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
	"github.com/aitrainer/trainer-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp godoc
// POST /api/v1/auth/sign-up
// Registers an account with its profile and signs it in.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req model.SignUpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.authService.SignUp(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, sess)
}

// SignIn godoc
// POST /api/v1/auth/sign-in
// Validates email + password and returns a JWT. A previous session of the
// same user is replaced.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req model.SignInRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.authService.SignIn(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, sess)
}

// SignOut godoc
// POST /api/v1/auth/sign-out
func (h *AuthHandler) SignOut(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.SignOut(c.Request.Context(), claims.UserID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetSession godoc
// GET /api/v1/auth/me
// Returns the currently authenticated user with its profile.
func (h *AuthHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, profile, err := h.authService.GetSession(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":    user,
		"profile": profile,
	})
}
