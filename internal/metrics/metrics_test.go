package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	r := gin.New()
	r.GET("/metrics", m.Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddlewareCountsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/42", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	assert.Contains(t, scrape(t, m), `http_requests_total{endpoint="/ping/:id",method="GET",status="204"} 3`)
}

func TestExamCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	m.ExamStarted()
	m.ExamStarted()
	m.ExamSubmitted(true, 75)

	body := scrape(t, m)
	assert.Contains(t, body, "trainer_exams_started_total 2")
	assert.Contains(t, body, "trainer_exams_active 1")
	assert.Contains(t, body, `trainer_exams_submitted_total{trigger="auto"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ExamStarted()
		m.ExamSubmitted(false, 10)
		m.PracticeAttempt(true)
		m.MistakeRecorded("wrongAnswer")
		m.BankLoaded("remote")
	})
}
