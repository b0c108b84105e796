package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rehearsely/rehearse-backend/internal/config"
	"github.com/rehearsely/rehearse-backend/internal/handler"
	"github.com/rehearsely/rehearse-backend/internal/middleware"
	"github.com/rehearsely/rehearse-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session   *handler.SessionHandler
	Analytics *handler.AnalyticsHandler
	Schedule  *handler.ScheduleHandler
	Question  *handler.QuestionHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for mutation routes (60 requests per minute per IP).
	writeLimiter := middleware.NewRateLimiter(60, time.Minute)
	limited := writeLimiter.Middleware()

	// ─── 1. Sessions ───────────────────────────────────────────────────
	sessions := router.Group("/api/v1/sessions")
	{
		sessions.POST("", limited, handlers.Session.StartSession)
		sessions.GET("/:id", handlers.Session.GetSession)
		sessions.DELETE("/:id", limited, handlers.Session.DeleteSession)
		sessions.POST("/:id/responses", limited, handlers.Session.SubmitResponse)
		sessions.POST("/:id/pause", limited, handlers.Session.PauseSession)
		sessions.POST("/:id/resume", limited, handlers.Session.ResumeSession)
		sessions.POST("/:id/complete", limited, handlers.Session.CompleteSession)
		sessions.GET("/:id/progress", handlers.Session.GetProgress)
		sessions.GET("/:id/summary", handlers.Session.GetSummary)
	}

	// ─── 2. Users (analytics, streaks, schedules, history) ─────────────
	users := router.Group("/api/v1/users")
	{
		users.GET("/:user_id/sessions", handlers.Session.ListUserSessions)
		users.GET("/:user_id/analytics", handlers.Analytics.GetProgressAnalytics)
		users.GET("/:user_id/streak", handlers.Analytics.GetStreak)
		users.GET("/:user_id/recommendations", handlers.Analytics.GetRecommendations)
		users.GET("/:user_id/schedules", handlers.Schedule.ListUserSchedules)
	}

	// ─── 3. Schedules ──────────────────────────────────────────────────
	schedules := router.Group("/api/v1/schedules")
	{
		schedules.POST("", limited, handlers.Schedule.CreateSchedule)
		schedules.PUT("/:id", limited, handlers.Schedule.Reschedule)
		schedules.DELETE("/:id", limited, handlers.Schedule.CancelSchedule)
		schedules.POST("/:id/start", limited, handlers.Schedule.StartSchedule)
	}

	// ─── 4. Question bank ──────────────────────────────────────────────
	questions := router.Group("/api/v1/questions")
	{
		questions.GET("", handlers.Question.ListQuestions)
		questions.GET("/:id", handlers.Question.GetQuestion)
		questions.POST("", limited, handlers.Question.CreateQuestion)
		questions.DELETE("/:id", limited, handlers.Question.DeleteQuestion)
	}

	// ─── 5. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionEventStream)
	}

	return router
}
