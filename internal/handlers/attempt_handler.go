package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/services"
	"github.com/Al-amen/exam-system/internal/validator"
)

// AttemptHandler handles exam attempt endpoints
type AttemptHandler struct {
	service   services.AttemptService
	grading   services.GradingService
	validator *validator.Validator
}

func NewAttemptHandler(service services.AttemptService, grading services.GradingService, v *validator.Validator) *AttemptHandler {
	return &AttemptHandler{
		service:   service,
		grading:   grading,
		validator: v,
	}
}

// Start godoc
// @Summary Start an exam attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param request body services.StartAttemptRequest true "Exam to attempt"
// @Success 201 {object} services.AttemptResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /attempts [post]
func (h *AttemptHandler) Start(c *gin.Context) {
	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	attempt, err := h.service.Start(c.Request.Context(), req, studentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// AutoSave godoc
// @Summary Auto-save in-progress answers
// @Description Replaces the attempt's saved answers wholesale. The last
// @Description write wins.
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param request body services.AutoSaveRequest true "Answers keyed by question ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /attempts/{id}/auto-save [post]
func (h *AttemptHandler) AutoSave(c *gin.Context) {
	attemptID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.AutoSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	if err := h.service.AutoSave(c.Request.Context(), attemptID, studentID, req); err != nil {
		handleServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Answers saved")
}

// Submit godoc
// @Summary Submit an exam attempt
// @Description Freezes the attempt and grades it. Submitting twice fails
// @Description because the attempt is no longer in progress.
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID, ok := parseIDParam(c)
	if !ok {
		return
	}

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	attempt, err := h.service.Submit(c.Request.Context(), attemptID, studentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetByID godoc
// @Summary Get an attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetByID(c *gin.Context) {
	attemptID, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	attempt, err := h.service.GetByID(c.Request.Context(), attemptID, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// List godoc
// @Summary List attempts
// @Description Students see their own attempts; teachers and admins see all.
// @Tags attempts
// @Produce json
// @Param status query string false "Filter by status"
// @Param exam_id query string false "Filter by exam"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginatedResponse
// @Router /attempts [get]
func (h *AttemptHandler) List(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	filters := parseAttemptFilters(c)

	attempts, total, err := h.service.List(c.Request.Context(), filters, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Items:  attempts,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// GradeAnswer godoc
// @Summary Manually grade a text or image upload answer
// @Tags grading
// @Accept json
// @Produce json
// @Param id path string true "Answer ID"
// @Param request body services.ManualGradeRequest true "Score"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /answers/{id}/grade [post]
func (h *AttemptHandler) GradeAnswer(c *gin.Context) {
	answerID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.ManualGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	if err := h.grading.ManualGrade(c.Request.Context(), answerID, user, req); err != nil {
		handleServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Answer graded")
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	value := c.Query(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		attemptStatus := models.AttemptStatus(status)
		if attemptStatus.IsValid() {
			filters.Status = &attemptStatus
		}
	}
	if examID := c.Query("exam_id"); examID != "" {
		if id, err := uuid.Parse(examID); err == nil {
			filters.ExamID = &id
		}
	}
	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}

	return filters
}
