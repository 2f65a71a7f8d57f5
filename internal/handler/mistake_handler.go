package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aitrainer/trainer-backend/internal/middleware"
	"github.com/aitrainer/trainer-backend/internal/mistake"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
	"github.com/aitrainer/trainer-backend/internal/validator"
)

// MistakeHandler handles the mistake notebook and reinforcement replays.
type MistakeHandler struct {
	mistakeService *service.MistakeService
}

// NewMistakeHandler creates a new MistakeHandler.
func NewMistakeHandler(mistakeService *service.MistakeService) *MistakeHandler {
	return &MistakeHandler{mistakeService: mistakeService}
}

// ListMistakes godoc
// GET /api/v1/mistakes?filter=all|unmastered|mastered
func (h *MistakeHandler) ListMistakes(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	filter, err := mistake.ParseFilter(c.Query("filter"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"filter": "filter must be one of all, unmastered, mastered",
		})
		return
	}

	list, err := h.mistakeService.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"mistakes": list})
}

// UpdateStatus godoc
// PATCH /api/v1/mistakes/:id/status
func (h *MistakeHandler) UpdateStatus(c *gin.Context) {
	userID, id, ok := resultTarget(c)
	if !ok {
		return
	}

	var req model.UpdateMistakeStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.mistakeService.SetStatus(c.Request.Context(), userID, id, model.MistakeStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// MarkReviewed godoc
// PATCH /api/v1/mistakes/:id/reviewed
func (h *MistakeHandler) MarkReviewed(c *gin.Context) {
	userID, id, ok := resultTarget(c)
	if !ok {
		return
	}

	var req model.MarkReviewedRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.mistakeService.MarkReviewed(c.Request.Context(), userID, id, *req.Reviewed)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// StartReplay godoc
// POST /api/v1/mistakes/replay
// Starts a reinforcement replay over the given mistakes, or over every
// mistake not yet mastered when none are given.
func (h *MistakeHandler) StartReplay(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartReinforcementRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	state, err := h.mistakeService.StartReplay(c.Request.Context(), claims.UserID, req.MistakeIDs)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetReplay godoc
// GET /api/v1/mistakes/replay
func (h *MistakeHandler) GetReplay(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.mistakeService.Replay(claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitReplay godoc
// POST /api/v1/mistakes/replay/answer
// Grades the current replay question; correct marks it mastered, wrong
// marks it reinforced.
func (h *MistakeHandler) SubmitReplay(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}

	out, state, err := h.mistakeService.SubmitReplay(c.Request.Context(), claims.UserID, req.Answer)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"outcome": out,
		"replay":  state,
	})
}
