package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Al-amen/exam-system/internal/models"
)

// QuestionRepository interface for question bank operations
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	// CreateBatch inserts all questions or none; used by the xlsx import
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Question, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)
}

// QuestionFilters narrows question list queries
type QuestionFilters struct {
	Search     string
	Type       *models.QuestionType
	Complexity *string
	Tag        *string
	CreatedBy  *string
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}
