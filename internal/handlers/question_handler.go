package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/services"
	"github.com/Al-amen/exam-system/internal/validator"
)

// QuestionHandler handles question bank endpoints
type QuestionHandler struct {
	service   services.QuestionService
	importer  services.ImportService
	validator *validator.Validator
}

func NewQuestionHandler(service services.QuestionService, importer services.ImportService, v *validator.Validator) *QuestionHandler {
	return &QuestionHandler{
		service:   service,
		importer:  importer,
		validator: v,
	}
}

// Create godoc
// @Summary Create a question
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.QuestionCreateRequest true "Question"
// @Success 201 {object} models.Question
// @Failure 400 {object} models.ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) Create(c *gin.Context) {
	var req services.QuestionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	question, err := h.service.Create(c.Request.Context(), req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// GetByID godoc
// @Summary Get a question
// @Tags questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} models.Question
// @Failure 404 {object} models.ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetByID(c *gin.Context) {
	questionID, ok := parseIDParam(c)
	if !ok {
		return
	}

	question, err := h.service.GetByID(c.Request.Context(), questionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// Update godoc
// @Summary Update a question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param request body services.QuestionUpdateRequest true "Fields to update"
// @Success 200 {object} models.Question
// @Failure 404 {object} models.ErrorResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) Update(c *gin.Context) {
	questionID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.QuestionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	question, err := h.service.Update(c.Request.Context(), questionID, req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// Delete godoc
// @Summary Delete a question
// @Tags questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) Delete(c *gin.Context) {
	questionID, ok := parseIDParam(c)
	if !ok {
		return
	}

	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	if err := h.service.Delete(c.Request.Context(), questionID, user); err != nil {
		handleServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, "Question deleted")
}

// List godoc
// @Summary List questions
// @Tags questions
// @Produce json
// @Param search query string false "Search in title and description"
// @Param type query string false "Filter by question type"
// @Param complexity query string false "Filter by complexity"
// @Param tag query string false "Filter by tag"
// @Success 200 {object} models.PaginatedResponse
// @Router /questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	filters := repositories.QuestionFilters{
		Search:    c.Query("search"),
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if qt := c.Query("type"); qt != "" {
		questionType := models.QuestionType(qt)
		if questionType.IsValid() {
			filters.Type = &questionType
		}
	}
	if complexity := c.Query("complexity"); complexity != "" {
		filters.Complexity = &complexity
	}
	if tag := c.Query("tag"); tag != "" {
		filters.Tag = &tag
	}

	questions, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PaginatedResponse{
		Items:  questions,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// Import godoc
// @Summary Import questions from an .xlsx workbook
// @Description All-or-nothing: any malformed row aborts the whole import.
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook (.xlsx)"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /questions/import [post]
func (h *QuestionHandler) Import(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Missing file upload")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "Failed to read file upload")
		return
	}
	defer file.Close()

	result, err := h.importer.ImportQuestions(c.Request.Context(), file, fileHeader.Filename, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondMessage(c, http.StatusOK, fmt.Sprintf("Successfully imported %d questions", result.Imported))
}
