package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aitrainer/trainer-backend/internal/bank"
	"github.com/aitrainer/trainer-backend/internal/exam"
	"github.com/aitrainer/trainer-backend/internal/middleware"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/practice"
	"github.com/aitrainer/trainer-backend/internal/repository"
	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
	"github.com/aitrainer/trainer-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// ─── Fakes ─────────────────────────────────────────────────────────────────

type stubLoader struct{ err error }

func (l stubLoader) Load(context.Context) (*bank.Snapshot, bank.Origin, error) {
	if l.err != nil {
		return nil, "", l.err
	}
	theory := []bank.RawTheoryRecord{
		{ID: "t1", Type: "true_false", Category: "Basics", Question: "q1", Options: []string{"对", "错"}, Answer: "T"},
		{ID: "t2", Type: "true_false", Category: "Basics", Question: "q2", Options: []string{"对", "错"}, Answer: "F"},
	}
	code := []bank.RawCodeRecord{{ID: "c1", Category: "Pandas", Question: "read", CorrectKeywords: []string{"read_csv"}}}
	return bank.Normalize(theory, code, time.Now()), bank.OriginRemote, nil
}

type memLocal map[practice.Key]*model.ProgressState

func (m memLocal) Load(_ context.Context, key practice.Key) (*model.ProgressState, bool, error) {
	s, ok := m[key]
	return s, ok, nil
}

func (m memLocal) Save(_ context.Context, s *model.ProgressState) error {
	m[practice.Key{UserID: s.UserID, CategoryKey: s.CategoryKey}] = s
	return nil
}

func (m memLocal) Delete(_ context.Context, key practice.Key) error {
	delete(m, key)
	return nil
}

type noRemote struct{}

func (noRemote) Get(context.Context, string, string) (*model.PracticeRecord, error) {
	return nil, repository.ErrNotFound
}
func (noRemote) Delete(context.Context, string, string) error { return nil }
func (noRemote) Push(context.Context, any) error              { return nil }

type noStats struct{}

func (noStats) Get(_ context.Context, id string) (*model.Statistics, error) {
	return &model.Statistics{UserID: id}, nil
}
func (noStats) Add(context.Context, string, int, int, int) error { return nil }

type noMistakes struct{}

func (noMistakes) Record(_ context.Context, userID, questionID string, a model.Answer) (*model.MistakeRecord, error) {
	return &model.MistakeRecord{UserID: userID, QuestionID: questionID, UserAnswer: a}, nil
}

func newBankService(t *testing.T, loadErr error) *service.BankService {
	t.Helper()
	svc := service.NewBankService(stubLoader{err: loadErr}, nil, zerolog.Nop())
	if loadErr == nil {
		_, err := svc.Load(context.Background())
		require.NoError(t, err)
	}
	return svc
}

// withUser injects claims the way RequireJWT does.
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: userID})
		c.Next()
	}
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// ─── Error mapping ─────────────────────────────────────────────────────────

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{fmt.Errorf("sign in: %w", service.ErrInvalidCredentials), http.StatusUnauthorized, response.ErrInvalidCredentials},
		{service.ErrEmailTaken, http.StatusConflict, response.ErrEmailTaken},
		{service.ErrBankNotLoaded, http.StatusServiceUnavailable, response.ErrBankUnavailable},
		{practice.ErrAlreadyAnswered, http.StatusConflict, response.ErrAlreadyAnswered},
		{exam.ErrConfirmationRequired, http.StatusConflict, response.ErrConfirmationRequired},
		{&exam.InsufficientBankError{}, http.StatusConflict, response.ErrInsufficientBank},
		{repository.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
		{errors.New("boom"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestFailReportsBankShortfall(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		fail(c, &exam.InsufficientBankError{Shortfalls: []exam.Shortfall{
			{Type: model.QuestionTypeMultipleChoice, Title: "多选题", Available: 3, Required: 10},
		}})
	})

	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	require.NotNil(t, body.Error)
	assert.Equal(t, response.ErrInsufficientBank, body.Error.Code)
	assert.Equal(t, "需要 10 题，现有 3 题", body.Error.Fields[string(model.QuestionTypeMultipleChoice)])
}

// ─── Bank ──────────────────────────────────────────────────────────────────

func TestBankHandler(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		h := NewBankHandler(newBankService(t, errors.New("down")))
		r := gin.New()
		r.GET("/categories", h.ListCategories)
		r.GET("/bank/status", h.GetStatus)

		assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/categories", nil).Code)
		assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/bank/status", nil).Code)
	})

	t.Run("loaded", func(t *testing.T) {
		h := NewBankHandler(newBankService(t, nil))
		r := gin.New()
		r.GET("/categories", h.ListCategories)

		w := do(r, http.MethodGet, "/categories", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data service.CategoryGroups `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data.Theoretical, 1)
		assert.Equal(t, "basics", body.Data.Theoretical[0].ID)
		assert.Equal(t, 2, body.Data.Theoretical[0].QuestionCount)
		require.Len(t, body.Data.Operational, 1)
		assert.Equal(t, model.SectionOperational, body.Data.Operational[0].Section)
	})
}

// ─── Practice ──────────────────────────────────────────────────────────────

func newPracticeRouter(t *testing.T) *gin.Engine {
	t.Helper()
	svc := service.NewPracticeService(newBankService(t, nil), memLocal{}, noRemote{}, noRemote{},
		noStats{}, noMistakes{}, noRemote{}, nil, zerolog.Nop())
	h := NewPracticeHandler(svc)

	r := gin.New()
	r.POST("/anon/practice/:category/start", h.StartPractice)
	g := r.Group("/practice/:category", withUser("u1"))
	g.GET("", h.GetPractice)
	g.POST("/start", h.StartPractice)
	g.POST("/answer", h.SubmitAnswer)
	g.POST("/jump", h.JumpToQuestion)
	g.POST("/reset", h.ResetPractice)
	return r
}

func TestPracticeHandlerFlow(t *testing.T) {
	r := newPracticeRouter(t)

	w := do(r, http.MethodGet, "/practice/basics", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "not started yet")
	assert.Equal(t, response.ErrSessionNotActive, decode(t, w).Error.Code)

	w = do(r, http.MethodPost, "/practice/basics/start", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/practice/basics/answer", map[string]any{"answer": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrEmptyAnswer, decode(t, w).Error.Code)

	w = do(r, http.MethodPost, "/practice/basics/answer", map[string]any{"answer": "对"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/practice/basics/answer", map[string]any{"answer": "对"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrAlreadyAnswered, decode(t, w).Error.Code)

	w = do(r, http.MethodPost, "/practice/basics/jump", map[string]any{"index": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrIndexOutOfRange, decode(t, w).Error.Code)

	w = do(r, http.MethodPost, "/practice/basics/jump", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, decode(t, w).Error.Code)

	w = do(r, http.MethodPost, "/practice/basics/reset", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPracticeHandlerRejectsBadTargets(t *testing.T) {
	r := newPracticeRouter(t)

	w := do(r, http.MethodPost, "/anon/practice/basics/start", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/practice/Not_A_Slug/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, decode(t, w).Error.Code)

	w = do(r, http.MethodPost, "/practice/unknown/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
