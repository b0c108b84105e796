package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rehearsely/rehearse-backend/internal/errs"
	"github.com/rehearsely/rehearse-backend/internal/model"
	"github.com/rehearsely/rehearse-backend/internal/response"
)

// failFromError translates a core error into the matching HTTP status
// and response error code. Unknown errors fall through to 500.
func failFromError(c *gin.Context, err error) {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"detail": strings.Join(ve.Violations, "; ")})
		return
	}

	var is *errs.InvalidStateError
	if errors.As(err, &is) {
		code := response.ErrInvalidState
		if is.State == string(model.SessionStatusCompleted) {
			code = response.ErrSessionCompleted
		}
		response.Fail(c, http.StatusConflict, code)
		return
	}

	switch {
	case errs.IsNotFound(err):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errs.IsQuestionMismatch(err):
		response.Fail(c, http.StatusConflict, response.ErrQuestionMismatch)
	case errs.IsDependency(err):
		response.Fail(c, http.StatusBadGateway, response.ErrDependencyFailure)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
