package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aitrainer/trainer-backend/internal/exam"
	"github.com/aitrainer/trainer-backend/internal/middleware"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
	"github.com/aitrainer/trainer-backend/internal/validator"
)

// ExamHandler handles the timed mock exam and its results.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// GetAvailability godoc
// GET /api/v1/exam/availability
// Reports whether the bank can fill a paper and the per-type supply.
func (h *ExamHandler) GetAvailability(c *gin.Context) {
	av, err := h.examService.Availability()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, av)
}

// StartExam godoc
// POST /api/v1/exam/start
// Generates a paper and starts the clock, or returns the running exam.
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sess, err := h.examService.Start(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, sess.View())
}

// GetCurrent godoc
// GET /api/v1/exam/current
func (h *ExamHandler) GetCurrent(c *gin.Context) {
	sess, ok := h.active(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, sess.View())
}

// SaveAnswer godoc
// POST /api/v1/exam/answer
// Records the answer to the current question.
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}
	h.mutate(c, func(s *exam.Session) error { return s.Answer(req.Answer) })
}

// SaveDraft godoc
// POST /api/v1/exam/draft
// Stores the in-flight answer. It is committed on navigation or submission.
func (h *ExamHandler) SaveDraft(c *gin.Context) {
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return
	}
	h.mutate(c, func(s *exam.Session) error { return s.Draft(req.Answer) })
}

// ClearAnswer godoc
// POST /api/v1/exam/clear
func (h *ExamHandler) ClearAnswer(c *gin.Context) {
	h.mutate(c, (*exam.Session).ClearAnswer)
}

// NextQuestion godoc
// POST /api/v1/exam/next
func (h *ExamHandler) NextQuestion(c *gin.Context) {
	h.mutate(c, (*exam.Session).Next)
}

// PrevQuestion godoc
// POST /api/v1/exam/prev
func (h *ExamHandler) PrevQuestion(c *gin.Context) {
	h.mutate(c, (*exam.Session).Prev)
}

// JumpToQuestion godoc
// POST /api/v1/exam/jump
func (h *ExamHandler) JumpToQuestion(c *gin.Context) {
	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.mutate(c, func(s *exam.Session) error { return s.Jump(*req.Index) })
}

// ToggleFlag godoc
// POST /api/v1/exam/flag
func (h *ExamHandler) ToggleFlag(c *gin.Context) {
	h.mutate(c, func(s *exam.Session) error {
		_, err := s.ToggleFlag()
		return err
	})
}

// FlagAndNext godoc
// POST /api/v1/exam/flag-next
func (h *ExamHandler) FlagAndNext(c *gin.Context) {
	h.mutate(c, (*exam.Session).FlagAndNext)
}

// AcknowledgeSection godoc
// POST /api/v1/exam/acknowledge
// Dismisses the introduction of the current section.
func (h *ExamHandler) AcknowledgeSection(c *gin.Context) {
	h.mutate(c, (*exam.Session).AcknowledgeSection)
}

// SubmitExam godoc
// POST /api/v1/exam/submit
// Submitting with time left requires {"confirm": true}.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitExamRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
			return
		}
	}

	result, err := h.examService.Submit(c.Request.Context(), claims.UserID, req.Confirm)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, service.NewExamResultView(result))
}

// AbandonExam godoc
// POST /api/v1/exam/abandon
// Stops the running exam without recording a result.
func (h *ExamHandler) AbandonExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	h.examService.Abandon(c.Request.Context(), claims.UserID)
	response.Success(c, http.StatusOK, gin.H{})
}

// ListResults godoc
// GET /api/v1/exam/results?page=1&per_page=10
func (h *ExamHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := response.ParsePage(c)

	results, total, err := h.examService.Results(c.Request.Context(), claims.UserID, perPage, (page-1)*perPage)
	if err != nil {
		fail(c, err)
		return
	}

	pagination := response.NewPagination(page, perPage, total)

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// GetResult godoc
// GET /api/v1/exam/results/:id
func (h *ExamHandler) GetResult(c *gin.Context) {
	userID, id, ok := resultTarget(c)
	if !ok {
		return
	}

	res, err := h.examService.Result(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// GetReview godoc
// GET /api/v1/exam/results/:id/review
// Lists the answered-and-wrong questions of a result with their keys.
func (h *ExamHandler) GetReview(c *gin.Context) {
	userID, id, ok := resultTarget(c)
	if !ok {
		return
	}

	items, err := h.examService.Review(c.Request.Context(), userID, id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"items": items})
}

// ─── Helpers ───────────────────────────────────────────────────────────────

func (h *ExamHandler) active(c *gin.Context) (*exam.Session, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	sess, err := h.examService.Active(claims.UserID)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return sess, true
}

// mutate applies op to the running exam, saves the snapshot and returns the
// new view.
func (h *ExamHandler) mutate(c *gin.Context, op func(*exam.Session) error) {
	sess, ok := h.active(c)
	if !ok {
		return
	}
	if err := op(sess); err != nil {
		fail(c, err)
		return
	}
	h.examService.Save(c.Request.Context(), sess)
	response.Success(c, http.StatusOK, sess.View())
}

func resultTarget(c *gin.Context) (userID, id string, ok bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return "", "", false
	}
	var uri model.IDURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID, fields)
		return "", "", false
	}
	return claims.UserID, uri.ID, true
}
