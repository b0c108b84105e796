package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/response"
	"github.com/rehearsely/rehearse-backend/internal/service"
)

// AnalyticsHandler handles progress, streak, and recommendation reads.
type AnalyticsHandler struct {
	tracker   *service.PerformanceTracker
	scheduler *service.PracticeScheduler
	sessions  service.SessionStore
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(tracker *service.PerformanceTracker, scheduler *service.PracticeScheduler, sessions service.SessionStore) *AnalyticsHandler {
	return &AnalyticsHandler{tracker: tracker, scheduler: scheduler, sessions: sessions}
}

// GetProgressAnalytics godoc
// GET /api/v1/users/:user_id/analytics?timeframe=WEEK|MONTH|ALL
func (h *AnalyticsHandler) GetProgressAnalytics(c *gin.Context) {
	userID := c.Param("user_id")
	timeframe := model.Timeframe(strings.ToUpper(c.DefaultQuery("timeframe", string(model.TimeframeAll))))

	analytics, err := h.tracker.ProgressAnalytics(c.Request.Context(), h.sessions, userID, timeframe)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"analytics": analytics})
}

// GetStreak godoc
// GET /api/v1/users/:user_id/streak
func (h *AnalyticsHandler) GetStreak(c *gin.Context) {
	streak, err := h.scheduler.Streak(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"streak": streak})
}

// GetRecommendations godoc
// GET /api/v1/users/:user_id/recommendations
func (h *AnalyticsHandler) GetRecommendations(c *gin.Context) {
	recs, err := h.scheduler.Recommendations(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recommendations": recs})
}
