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

// PracticeHandler handles per-category practice sessions.
type PracticeHandler struct {
	practiceService *service.PracticeService
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(practiceService *service.PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

// target resolves the caller and the category key, writing the failure
// response itself when either is missing.
func (h *PracticeHandler) target(c *gin.Context) (userID, category string, ok bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return "", "", false
	}
	var uri model.CategoryURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID, fields)
		return "", "", false
	}
	return claims.UserID, uri.Category, true
}

// StartPractice godoc
// POST /api/v1/practice/:category/start
// Resumes the user's progress in the category (remote, then local) or starts
// a fresh run. The drill key "operational:drill" shuffles every operational
// question.
func (h *PracticeHandler) StartPractice(c *gin.Context) {
	userID, category, ok := h.target(c)
	if !ok {
		return
	}

	start, err := h.practiceService.Start(c.Request.Context(), userID, category)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, start)
}

// GetPractice godoc
// GET /api/v1/practice/:category
func (h *PracticeHandler) GetPractice(c *gin.Context) {
	userID, category, ok := h.target(c)
	if !ok {
		return
	}

	view, err := h.practiceService.View(userID, category)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/practice/:category/answer
// Grades the answer to the current question and reveals its explanation.
func (h *PracticeHandler) SubmitAnswer(c *gin.Context) {
	userID, category, ok := h.target(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	out, err := h.practiceService.Submit(c.Request.Context(), userID, category, req.Answer)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, out)
}

// NextQuestion godoc
// POST /api/v1/practice/:category/next
// Advances to the next question, wrapping to the first after the last.
func (h *PracticeHandler) NextQuestion(c *gin.Context) {
	userID, category, ok := h.target(c)
	if !ok {
		return
	}

	view, err := h.practiceService.Next(c.Request.Context(), userID, category)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// JumpToQuestion godoc
// POST /api/v1/practice/:category/jump
func (h *PracticeHandler) JumpToQuestion(c *gin.Context) {
	userID, category, ok := h.target(c)
	if !ok {
		return
	}

	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.practiceService.Jump(c.Request.Context(), userID, category, *req.Index)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// ResetPractice godoc
// POST /api/v1/practice/:category/reset
// Discards all progress in the category and starts over from the first question.
func (h *PracticeHandler) ResetPractice(c *gin.Context) {
	userID, category, ok := h.target(c)
	if !ok {
		return
	}

	view, err := h.practiceService.Reset(c.Request.Context(), userID, category)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
