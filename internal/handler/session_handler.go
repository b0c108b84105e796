package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/response"
	"github.com/rehearsely/rehearse-backend/internal/service"
	"github.com/rehearsely/rehearse-backend/internal/validator"
)

// SessionHandler handles the session lifecycle endpoints.
type SessionHandler struct {
	engine   *service.SessionEngine
	sessions service.SessionStore
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(engine *service.SessionEngine, sessions service.SessionStore) *SessionHandler {
	return &SessionHandler{engine: engine, sessions: sessions}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts a practice session and returns it with its question batch.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cfg := model.SessionConfig{
		Categories:      model.CategoriesFromStrings(req.Categories),
		Difficulty:      model.Difficulty(req.Difficulty),
		DurationMinutes: req.DurationMinutes,
		FocusAreas:      req.FocusAreas,
	}
	sess, err := h.engine.Start(c.Request.Context(), req.UserID, cfg)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": sess})
}

// SubmitResponse godoc
// POST /api/v1/sessions/:id/responses
// Submits an answer to the session's current question.
func (h *SessionHandler) SubmitResponse(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitResponseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.engine.SubmitResponse(c.Request.Context(), sessionID, questionID, req.Text, req.ResponseTimeSeconds)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// PauseSession godoc
// POST /api/v1/sessions/:id/pause
func (h *SessionHandler) PauseSession(c *gin.Context) {
	h.transition(c, h.engine.Pause)
}

// ResumeSession godoc
// POST /api/v1/sessions/:id/resume
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	h.transition(c, h.engine.Resume)
}

// CompleteSession godoc
// POST /api/v1/sessions/:id/complete
// Finalizes the session and returns its summary.
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.engine.Complete(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// GetSession godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// GetProgress godoc
// GET /api/v1/sessions/:id/progress
func (h *SessionHandler) GetProgress(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.engine.Progress(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GetSummary godoc
// GET /api/v1/sessions/:id/summary
func (h *SessionHandler) GetSummary(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.engine.Summary(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// DeleteSession godoc
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.engine.Delete(c.Request.Context(), sessionID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListUserSessions godoc
// GET /api/v1/users/:user_id/sessions
func (h *SessionHandler) ListUserSessions(c *gin.Context) {
	userID := c.Param("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, err := h.sessions.GetUserSessions(c.Request.Context(), userID, limit)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

func (h *SessionHandler) transition(c *gin.Context, op func(ctx context.Context, id uuid.UUID) (*model.Session, error)) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := op(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}
