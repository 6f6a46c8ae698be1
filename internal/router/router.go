package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SijoOrganization/sijo-qcm-front/internal/config"
	"github.com/SijoOrganization/sijo-qcm-front/internal/handler"
	"github.com/SijoOrganization/sijo-qcm-front/internal/middleware"
	"github.com/SijoOrganization/sijo-qcm-front/internal/response"
	"github.com/SijoOrganization/sijo-qcm-front/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Live    *handler.LiveHandler
}

// SetupRouter configures the sandbox Session API routes. ctx bounds the
// rate limiter's cleanup loop.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/auth")
	{
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
	}

	// ─── 2. Candidate Group (JWT) ──────────────────────────────────────
	activityLimiter := middleware.NewRateLimiter(ctx, cfg.ActivityRatePerMinute, time.Minute)

	candidate := router.Group("/api/candidate")
	candidate.Use(middleware.RequireCandidateJWT(authService))
	{
		candidate.POST("/start-quiz", handlers.Session.StartQuiz)

		sess := candidate.Group("/session/:id")
		{
			sess.GET("/info", handlers.Session.GetInfo)
			sess.GET("/status", handlers.Session.GetStatus)
			sess.GET("/current-question", handlers.Session.GetCurrentQuestion)
			sess.GET("/time-remaining", handlers.Session.GetTimeRemaining)
			sess.POST("/submit-answer", handlers.Session.SubmitAnswer)
			sess.POST("/navigate", handlers.Session.Navigate)
			sess.POST("/mark-review", handlers.Session.MarkReview)
			sess.POST("/pause", handlers.Session.Pause)
			sess.POST("/resume", handlers.Session.Resume)
			sess.POST("/finish", handlers.Session.Finish)
			sess.POST("/report-activity", activityLimiter.Middleware(), handlers.Session.ReportActivity)
		}
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/candidate")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/session/:id/stream", handlers.Live.SessionStream)
	}

	return router
}
