package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/response"
	"github.com/rehearsely/rehearse-backend/internal/service"
	"github.com/rehearsely/rehearse-backend/internal/validator"
)

// ScheduleHandler handles scheduled-session endpoints.
type ScheduleHandler struct {
	scheduler *service.PracticeScheduler
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduler *service.PracticeScheduler) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler}
}

// CreateSchedule godoc
// POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req model.ScheduleSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sched, err := h.scheduler.Schedule(c.Request.Context(), req)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"schedule": sched})
}

// rescheduleRequest is the payload for moving a schedule.
type rescheduleRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required"`
}

// Reschedule godoc
// PUT /api/v1/schedules/:id
func (h *ScheduleHandler) Reschedule(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req rescheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"scheduled_at": "must be an RFC 3339 timestamp"})
		return
	}

	sched, err := h.scheduler.Reschedule(c.Request.Context(), scheduleID, at)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedule": sched})
}

// CancelSchedule godoc
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) CancelSchedule(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.scheduler.Cancel(c.Request.Context(), scheduleID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}

// StartSchedule godoc
// POST /api/v1/schedules/:id/start
// Marks the schedule started when the user begins the planned session.
func (h *ScheduleHandler) StartSchedule(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.scheduler.MarkStarted(c.Request.Context(), scheduleID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"started": true})
}

// ListUserSchedules godoc
// GET /api/v1/users/:user_id/schedules
func (h *ScheduleHandler) ListUserSchedules(c *gin.Context) {
	schedules, err := h.scheduler.Schedules(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedules": schedules})
}
