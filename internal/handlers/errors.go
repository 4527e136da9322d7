package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/services"
	"github.com/Al-amen/exam-system/internal/utils"
	"github.com/Al-amen/exam-system/internal/validator"
)

// handleServiceError maps service layer errors to HTTP responses
func handleServiceError(c *gin.Context, err error) {
	logger := utils.FromContext(c)

	var permErr *services.PermissionError
	if errors.As(err, &permErr) {
		respondError(c, http.StatusForbidden, "forbidden", permErr.Error())
		return
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		respondError(c, http.StatusBadRequest, "validation_error", validationErrs.Error())
		return
	}

	var importErr *services.ImportError
	if errors.As(err, &importErr) {
		respondError(c, http.StatusBadRequest, "import_error", "Error importing questions: "+importErr.Error())
		return
	}

	switch {
	case errors.Is(err, services.ErrAttemptNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Attempt not found")
	case errors.Is(err, services.ErrExamNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Exam not found")
	case errors.Is(err, services.ErrQuestionNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Question not found")
	case errors.Is(err, services.ErrAnswerNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Answer not found")
	case errors.Is(err, services.ErrAttemptNotActive):
		respondError(c, http.StatusConflict, "invalid_state", "Attempt is not in progress")
	case errors.Is(err, services.ErrExamNotPublished):
		respondError(c, http.StatusConflict, "invalid_state", "Exam is not published")
	case errors.Is(err, services.ErrGradingNotAllowed):
		respondError(c, http.StatusConflict, "invalid_state", "Answer does not accept manual grading")
	default:
		logger.Error("internal error", "error", err)
		respondError(c, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, models.SuccessResponse{
		Message:   message,
		Timestamp: time.Now(),
	})
}
