package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/services"
	"github.com/Al-amen/exam-system/internal/validator"
)

// ExamHandler handles exam endpoints
type ExamHandler struct {
	service   services.ExamService
	validator *validator.Validator
}

func NewExamHandler(service services.ExamService, v *validator.Validator) *ExamHandler {
	return &ExamHandler{
		service:   service,
		validator: v,
	}
}

// Create godoc
// @Summary Create an exam
// @Tags exams
// @Accept json
// @Produce json
// @Param request body services.ExamCreateRequest true "Exam"
// @Success 201 {object} models.Exam
// @Failure 400 {object} models.ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req services.ExamCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	exam, err := h.service.Create(c.Request.Context(), req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// GetByID godoc
// @Summary Get an exam with its ordered questions
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 404 {object} models.ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetByID(c *gin.Context) {
	examID, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	exam, err := h.service.GetByID(c.Request.Context(), examID, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// Update godoc
// @Summary Update an exam
// @Tags exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param request body services.ExamUpdateRequest true "Fields to update"
// @Success 200 {object} models.Exam
// @Failure 404 {object} models.ErrorResponse
// @Router /exams/{id} [put]
func (h *ExamHandler) Update(c *gin.Context) {
	examID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.ExamUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	exam, err := h.service.Update(c.Request.Context(), examID, req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// Delete godoc
// @Summary Delete an exam
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /exams/{id} [delete]
func (h *ExamHandler) Delete(c *gin.Context) {
	examID, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	if err := h.service.Delete(c.Request.Context(), examID, user); err != nil {
		handleServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Exam deleted")
}

// List godoc
// @Summary List exams
// @Description Students only see published exams.
// @Tags exams
// @Produce json
// @Param search query string false "Search in title and description"
// @Success 200 {object} models.PaginatedResponse
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	filters := repositories.ExamFilters{
		Search:    c.Query("search"),
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	exams, total, err := h.service.List(c.Request.Context(), filters, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Items:  exams,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// SetQuestions godoc
// @Summary Replace the exam's ordered question list
// @Tags exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param request body []services.ExamQuestionAssignment true "Ordered assignments"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /exams/{id}/questions [put]
func (h *ExamHandler) SetQuestions(c *gin.Context) {
	examID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var assignments []services.ExamQuestionAssignment
	if err := c.ShouldBindJSON(&assignments); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	if err := h.service.SetQuestions(c.Request.Context(), examID, assignments, user); err != nil {
		handleServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Exam questions updated")
}
