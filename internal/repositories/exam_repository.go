package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Al-amen/exam-system/internal/models"
)

// ExamRepository interface for exam operations
type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error)
	// GetByIDWithQuestions loads the exam with its ordered questions and
	// their question records preloaded.
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)

	// SetQuestions replaces the exam's question list with the given
	// ordered assignments.
	SetQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questions []models.ExamQuestion) error
}

// ExamFilters narrows exam list queries
type ExamFilters struct {
	Search      string
	IsPublished *bool
	CreatedBy   *string
	Limit       int
	Offset      int
	SortBy      string
	SortOrder   string
}
