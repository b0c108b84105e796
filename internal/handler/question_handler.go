package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/response"
	"github.com/rehearsely/rehearse-backend/internal/service"
	"github.com/rehearsely/rehearse-backend/internal/validator"
)

// QuestionHandler handles question-bank management endpoints.
type QuestionHandler struct {
	questions service.QuestionStore
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions service.QuestionStore) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// CreateQuestion godoc
// POST /api/v1/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !model.ValidQuestionType(model.QuestionType(req.Type)) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"type": "unknown question type"})
		return
	}
	if !model.ValidCategory(model.QuestionCategory(req.Category)) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"category": "unknown question category"})
		return
	}

	q := &model.Question{
		Type:             model.QuestionType(req.Type),
		Category:         model.QuestionCategory(req.Category),
		Text:             req.Text,
		ExpectedElements: req.ExpectedElements,
		Difficulty:       model.Difficulty(req.Difficulty),
		TimeLimitSeconds: req.TimeLimitSeconds,
		FollowUpTriggers: req.FollowUpTriggers,
	}
	if err := h.questions.CreateQuestion(c.Request.Context(), q); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// GetQuestion godoc
// GET /api/v1/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	q, err := h.questions.GetQuestion(c.Request.Context(), questionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// ListQuestions godoc
// GET /api/v1/questions?type=&category=&difficulty=&limit=
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := service.QuestionFilter{
		Type:       model.QuestionType(c.Query("type")),
		Category:   model.QuestionCategory(c.Query("category")),
		Difficulty: model.Difficulty(c.Query("difficulty")),
		Limit:      limit,
	}

	questions, err := h.questions.ListQuestions(c.Request.Context(), filter)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// DeleteQuestion godoc
// DELETE /api/v1/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questions.DeleteQuestion(c.Request.Context(), questionID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
