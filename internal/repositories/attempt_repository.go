package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Al-amen/exam-system/internal/models"
)

// ErrAttemptNotInProgress is returned by conditional attempt updates when
// the row exists but its status already moved past in_progress, for
// example when a submit races an auto-save. The condition lives in the
// UPDATE itself so the store, not the reading service, decides the race.
var ErrAttemptNotInProgress = errors.New("attempt is not in progress")

// AttemptRepository interface for exam attempt operations
type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error)
	// GetByIDWithDetails loads the attempt together with its exam, exam
	// questions and persisted answers.
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error

	// UpdateAutoSave replaces the whole auto-saved answer map (last write
	// wins). The update only matches in_progress attempts; anything else
	// returns ErrAttemptNotInProgress.
	UpdateAutoSave(ctx context.Context, tx *gorm.DB, id uuid.UUID, answers datatypes.JSON) error
	// Finalize records submission results in one update: end time, status
	// and total score. Like UpdateAutoSave it only matches in_progress
	// attempts, which makes submission exactly-once even under concurrent
	// submits.
	Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.AttemptStatus, endTime time.Time, totalScore int) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.AttemptStatus) error
	UpdateTotalScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, totalScore int) error

	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)
	GetActiveAttempt(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentID string) (*models.ExamAttempt, error)
}

// AnswerRepository interface for persisted answer operations
type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Answer, error)
	// GetByIDWithQuestion loads the answer with its question preloaded
	GetByIDWithQuestion(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Answer, error)
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*models.Answer, error)
	Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
}

// AttemptFilters narrows attempt list queries
type AttemptFilters struct {
	ExamID    *uuid.UUID
	StudentID *string
	Status    *models.AttemptStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}
