package services

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
)

// ===== REQUEST DTOs =====

// StartAttemptRequest starts a new attempt on an exam
type StartAttemptRequest struct {
	ExamID uuid.UUID `json:"exam_id" validate:"required"`
}

// AutoSaveRequest replaces the attempt's saved answers wholesale,
// keyed by question ID.
type AutoSaveRequest struct {
	Answers map[string]json.RawMessage `json:"answers" validate:"required"`
}

// ManualGradeRequest assigns a score to a manually graded answer
type ManualGradeRequest struct {
	Score     int   `json:"score" validate:"min=0"`
	IsCorrect *bool `json:"is_correct"`
}

// ExamCreateRequest creates an exam
type ExamCreateRequest struct {
	Title           string `json:"title" validate:"required,min=1,max=500"`
	Description     string `json:"description" validate:"max=5000"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=1,max=600"`
}

// ExamUpdateRequest updates an exam; nil fields are left unchanged
type ExamUpdateRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=500"`
	Description     *string `json:"description" validate:"omitempty,max=5000"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=1,max=600"`
	IsPublished     *bool   `json:"is_published"`
}

// ExamQuestionAssignment places a question at a position in an exam
type ExamQuestionAssignment struct {
	QuestionID uuid.UUID `json:"question_id" validate:"required"`
	Position   int       `json:"position" validate:"min=1"`
}

// QuestionCreateRequest creates a question
type QuestionCreateRequest struct {
	Title          string   `json:"title" validate:"required,min=1,max=500"`
	Description    string   `json:"description" validate:"max=5000"`
	Complexity     string   `json:"complexity" validate:"required,min=1,max=50"`
	Type           string   `json:"type" validate:"required,question_type"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correct_answers"`
	MaxScore       int      `json:"max_score" validate:"omitempty,max_score"`
	Tags           []string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
}

// QuestionUpdateRequest updates a question; nil fields are left unchanged
type QuestionUpdateRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=1,max=500"`
	Description    *string  `json:"description" validate:"omitempty,max=5000"`
	Complexity     *string  `json:"complexity" validate:"omitempty,min=1,max=50"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correct_answers"`
	MaxScore       *int     `json:"max_score" validate:"omitempty,max_score"`
	Tags           []string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
}

// ===== RESPONSE DTOs =====

// AttemptResponse is an attempt as returned to clients
type AttemptResponse struct {
	*models.ExamAttempt
}

// QuestionGrade is the grading outcome for a single question
type QuestionGrade struct {
	QuestionID uuid.UUID `json:"question_id"`
	Score      int       `json:"score"`
	MaxScore   int       `json:"max_score"`
	// IsCorrect is nil for manually graded types
	IsCorrect *bool `json:"is_correct,omitempty"`
}

// AttemptGradingResult summarizes grading one attempt
type AttemptGradingResult struct {
	AttemptID   uuid.UUID       `json:"attempt_id"`
	TotalScore  int             `json:"total_score"`
	MaxScore    int             `json:"max_score"`
	FullyGraded bool            `json:"fully_graded"`
	Grades      []QuestionGrade `json:"grades"`
}

// ImportResult summarizes a successful workbook import
type ImportResult struct {
	Imported int `json:"imported"`
}

// ===== SERVICE INTERFACES =====

// AttemptService manages the exam attempt lifecycle
type AttemptService interface {
	Start(ctx context.Context, req StartAttemptRequest, studentID string) (*AttemptResponse, error)
	AutoSave(ctx context.Context, attemptID uuid.UUID, studentID string, req AutoSaveRequest) error
	Submit(ctx context.Context, attemptID uuid.UUID, studentID string) (*AttemptResponse, error)
	GetByID(ctx context.Context, attemptID uuid.UUID, user *models.User) (*AttemptResponse, error)
	List(ctx context.Context, filters repositories.AttemptFilters, user *models.User) ([]*AttemptResponse, int64, error)
}

// GradingService grades answers and aggregates attempt scores
type GradingService interface {
	// GradeQuestion scores a submitted answer against a question. The
	// returned correctness is nil for manually graded types.
	GradeQuestion(question *models.Question, submitted json.RawMessage) (int, *bool, error)
	// GradeAttempt materializes answers from the attempt's auto-save map
	// and persists scores, total and final status in one transaction.
	GradeAttempt(ctx context.Context, attemptID uuid.UUID) (*AttemptGradingResult, error)
	// ManualGrade assigns a score to a text or image upload answer
	ManualGrade(ctx context.Context, answerID uuid.UUID, grader *models.User, req ManualGradeRequest) error
}

// ImportService imports questions from spreadsheet workbooks
type ImportService interface {
	ImportQuestions(ctx context.Context, r io.Reader, filename string, createdBy string) (*ImportResult, error)
}

// ExamService manages exams and their question assignments
type ExamService interface {
	Create(ctx context.Context, req ExamCreateRequest, creator *models.User) (*models.Exam, error)
	GetByID(ctx context.Context, id uuid.UUID, user *models.User) (*models.Exam, error)
	Update(ctx context.Context, id uuid.UUID, req ExamUpdateRequest, user *models.User) (*models.Exam, error)
	Delete(ctx context.Context, id uuid.UUID, user *models.User) error
	List(ctx context.Context, filters repositories.ExamFilters, user *models.User) ([]*models.Exam, int64, error)
	SetQuestions(ctx context.Context, id uuid.UUID, assignments []ExamQuestionAssignment, user *models.User) error
}

// QuestionService manages the question bank
type QuestionService interface {
	Create(ctx context.Context, req QuestionCreateRequest, creator *models.User) (*models.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error)
	Update(ctx context.Context, id uuid.UUID, req QuestionUpdateRequest, user *models.User) (*models.Question, error)
	Delete(ctx context.Context, id uuid.UUID, user *models.User) error
	List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
}

// ServiceManager provides access to all services and their lifecycle
type ServiceManager interface {
	Attempt() AttemptService
	Grading() GradingService
	Import() ImportService
	Exam() ExamService
	Question() QuestionService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
