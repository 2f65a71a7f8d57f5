// Package metrics exposes Prometheus collectors for HTTP traffic and the
// practice and exam engines.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors registered on it. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	examsStarted     prometheus.Counter
	examsSubmitted   *prometheus.CounterVec
	examScore        prometheus.Histogram
	activeExams      prometheus.Gauge
	practiceAttempts *prometheus.CounterVec
	mistakesRecorded *prometheus.CounterVec
	bankLoads        *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		examsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainer_exams_started_total",
			Help: "Mock exams started",
		}),
		examsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trainer_exams_submitted_total",
				Help: "Mock exams submitted, by trigger",
			},
			[]string{"trigger"},
		),
		examScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainer_exam_score_percent",
			Help:    "Mock exam scores as a percentage of the maximum",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		activeExams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainer_exams_active",
			Help: "Mock exams currently running",
		}),
		practiceAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trainer_practice_attempts_total",
				Help: "Graded practice submissions, by result",
			},
			[]string{"result"},
		),
		mistakesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trainer_mistakes_recorded_total",
				Help: "Mistake notebook writes, by mistake type",
			},
			[]string{"type"},
		),
		bankLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trainer_bank_loads_total",
				Help: "Question bank loads, by origin",
			},
			[]string{"origin"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestDuration,
		m.examsStarted, m.examsSubmitted, m.examScore, m.activeExams,
		m.practiceAttempts, m.mistakesRecorded, m.bankLoads,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware records request counts and latencies per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (m *Metrics) ExamStarted() {
	if m == nil {
		return
	}
	m.examsStarted.Inc()
	m.activeExams.Inc()
}

// ExamResumed counts a session restored from its snapshot as active.
func (m *Metrics) ExamResumed() {
	if m == nil {
		return
	}
	m.activeExams.Inc()
}

func (m *Metrics) ExamSubmitted(auto bool, percentage float64) {
	if m == nil {
		return
	}
	trigger := "manual"
	if auto {
		trigger = "auto"
	}
	m.examsSubmitted.WithLabelValues(trigger).Inc()
	m.examScore.Observe(percentage)
	m.activeExams.Dec()
}

func (m *Metrics) PracticeAttempt(correct bool) {
	if m == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.practiceAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) MistakeRecorded(mistakeType string) {
	if m == nil {
		return
	}
	m.mistakesRecorded.WithLabelValues(mistakeType).Inc()
}

func (m *Metrics) BankLoaded(origin string) {
	if m == nil {
		return
	}
	m.bankLoads.WithLabelValues(origin).Inc()
}
