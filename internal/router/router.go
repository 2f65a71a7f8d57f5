package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/handler"
	"github.com/aitrainer/trainer-backend/internal/metrics"
	"github.com/aitrainer/trainer-backend/internal/middleware"
	"github.com/aitrainer/trainer-backend/internal/response"
)

// Auth is what the router needs from the auth service.
type Auth interface {
	middleware.TokenValidator
	middleware.SessionValidator
}

// BankVersion identifies the loaded question pool for conditional requests.
type BankVersion interface {
	Version() string
}

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Bank      *handler.BankHandler
	Practice  *handler.PracticeHandler
	Exam      *handler.ExamHandler
	Mistake   *handler.MistakeHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth Auth,
	bankVersion BankVersion,
	handlers *Handlers,
	m *metrics.Metrics,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(m.Middleware())

	// Health check and Prometheus scrape endpoint.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", m.Handler())

	// ─── WebSocket (token in query) ────────────────────────────────────
	// Registered before brotli so the upgrade sees the raw writer.
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(auth),
		middleware.CheckSingleDeviceSession(auth),
	)
	{
		ws.GET("/exam/stream", handlers.WS.ExamWebSocketStream)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Brotli(cfg.BrotliQuality, cfg.BrotliMinBytes))

	// ─── 1. Public (cacheable) ─────────────────────────────────────────
	api.GET("/categories",
		middleware.CacheControl(time.Minute),
		middleware.ETag(bankVersion.Version),
		handlers.Bank.ListCategories,
	)
	api.GET("/bank/status", handlers.Bank.GetStatus)

	// ─── 2. Auth (rate limited) ────────────────────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, time.Minute)

	authGroup := api.Group("/auth")
	authGroup.Use(authLimiter.Middleware())
	{
		authGroup.POST("/sign-up", handlers.Auth.SignUp)
		authGroup.POST("/sign-in", handlers.Auth.SignIn)

		authGroup.POST("/sign-out",
			middleware.RequireJWT(auth),
			middleware.CheckSingleDeviceSession(auth),
			handlers.Auth.SignOut,
		)
		authGroup.GET("/me",
			middleware.RequireJWT(auth),
			middleware.CheckSingleDeviceSession(auth),
			handlers.Auth.GetSession,
		)
	}

	// ─── 3. Signed-in user (JWT + single device) ───────────────────────
	user := api.Group("")
	user.Use(
		middleware.RequireJWT(auth),
		middleware.CheckSingleDeviceSession(auth),
	)
	{
		user.GET("/dashboard", handlers.Dashboard.GetDashboardData)

		practice := user.Group("/practice/:category")
		{
			practice.GET("", handlers.Practice.GetPractice)
			practice.POST("/start", handlers.Practice.StartPractice)
			practice.POST("/answer", handlers.Practice.SubmitAnswer)
			practice.POST("/next", handlers.Practice.NextQuestion)
			practice.POST("/jump", handlers.Practice.JumpToQuestion)
			practice.POST("/reset", handlers.Practice.ResetPractice)
		}

		examGroup := user.Group("/exam")
		{
			examGroup.GET("/availability", handlers.Exam.GetAvailability)
			examGroup.POST("/start", handlers.Exam.StartExam)
			examGroup.GET("/current", handlers.Exam.GetCurrent)
			examGroup.POST("/answer", handlers.Exam.SaveAnswer)
			examGroup.POST("/draft", handlers.Exam.SaveDraft)
			examGroup.POST("/clear", handlers.Exam.ClearAnswer)
			examGroup.POST("/next", handlers.Exam.NextQuestion)
			examGroup.POST("/prev", handlers.Exam.PrevQuestion)
			examGroup.POST("/jump", handlers.Exam.JumpToQuestion)
			examGroup.POST("/flag", handlers.Exam.ToggleFlag)
			examGroup.POST("/flag-next", handlers.Exam.FlagAndNext)
			examGroup.POST("/acknowledge", handlers.Exam.AcknowledgeSection)
			examGroup.POST("/submit", handlers.Exam.SubmitExam)
			examGroup.POST("/abandon", handlers.Exam.AbandonExam)

			examGroup.GET("/results", handlers.Exam.ListResults)
			examGroup.GET("/results/:id", handlers.Exam.GetResult)
			examGroup.GET("/results/:id/review", handlers.Exam.GetReview)
		}

		mistakes := user.Group("/mistakes")
		{
			mistakes.GET("", handlers.Mistake.ListMistakes)
			mistakes.PATCH("/:id/status", handlers.Mistake.UpdateStatus)
			mistakes.PATCH("/:id/reviewed", handlers.Mistake.MarkReviewed)
			mistakes.POST("/replay", handlers.Mistake.StartReplay)
			mistakes.GET("/replay", handlers.Mistake.GetReplay)
			mistakes.POST("/replay/answer", handlers.Mistake.SubmitReplay)
		}
	}

	return router
}
