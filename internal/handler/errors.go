package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aitrainer/trainer-backend/internal/exam"
	"github.com/aitrainer/trainer-backend/internal/mistake"
	"github.com/aitrainer/trainer-backend/internal/practice"
	"github.com/aitrainer/trainer-backend/internal/repository"
	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
)

// errorMapping pairs a domain error with its HTTP status and API code.
type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var errorMappings = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrEmailTaken, http.StatusConflict, response.ErrEmailTaken},
	{service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
	{service.ErrNoSession, http.StatusUnauthorized, response.ErrSessionInvalidated},

	{service.ErrBankNotLoaded, http.StatusServiceUnavailable, response.ErrBankUnavailable},
	{service.ErrUnknownCategory, http.StatusNotFound, response.ErrNotFound},
	{practice.ErrNoQuestions, http.StatusNotFound, response.ErrNoQuestions},

	{service.ErrPracticeNotStarted, http.StatusConflict, response.ErrSessionNotActive},
	{practice.ErrEmptyAnswer, http.StatusBadRequest, response.ErrEmptyAnswer},
	{practice.ErrAlreadyAnswered, http.StatusConflict, response.ErrAlreadyAnswered},
	{practice.ErrIndexOutOfRange, http.StatusBadRequest, response.ErrIndexOutOfRange},

	{service.ErrNoActiveExam, http.StatusNotFound, response.ErrNoActiveExam},
	{exam.ErrAlreadySubmitted, http.StatusConflict, response.ErrExamAlreadySubmitted},
	{exam.ErrConfirmationRequired, http.StatusConflict, response.ErrConfirmationRequired},
	{exam.ErrSectionGatePending, http.StatusConflict, response.ErrSectionGatePending},
	{exam.ErrNoSectionGate, http.StatusConflict, response.ErrNoSectionGate},
	{exam.ErrIndexOutOfRange, http.StatusBadRequest, response.ErrIndexOutOfRange},

	{service.ErrNoActiveReplay, http.StatusNotFound, response.ErrNoActiveReplay},
	{mistake.ErrReplayFinished, http.StatusConflict, response.ErrReplayFinished},
	{mistake.ErrEmptyAnswer, http.StatusBadRequest, response.ErrEmptyAnswer},
	{mistake.ErrInvalidStatus, http.StatusBadRequest, response.ErrValidation},
	{mistake.ErrInvalidFilter, http.StatusBadRequest, response.ErrValidation},
	{mistake.ErrNotFound, http.StatusNotFound, response.ErrNotFound},

	{repository.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
}

// classify maps err to a status and code. Unknown errors are internal.
func classify(err error) (int, response.ErrCode) {
	var insufficient *exam.InsufficientBankError
	if errors.As(err, &insufficient) {
		return http.StatusConflict, response.ErrInsufficientBank
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the mapped error response. Internal errors are attached to the
// gin context so the access log carries them.
func fail(c *gin.Context, err error) {
	var insufficient *exam.InsufficientBankError
	if errors.As(err, &insufficient) {
		fields := make(map[string]string, len(insufficient.Shortfalls))
		for _, s := range insufficient.Shortfalls {
			fields[string(s.Type)] = fmt.Sprintf("需要 %d 题，现有 %d 题", s.Required, s.Available)
		}
		response.FailWithFields(c, http.StatusConflict, response.ErrInsufficientBank, fields)
		return
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}
