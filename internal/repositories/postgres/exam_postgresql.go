package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Al-amen/exam-system/internal/cache"
	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
)

// ExamPostgreSQL implements ExamRepository
type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := r.getDB(tx).WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (r *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error) {
	if tx != nil {
		var exam models.Exam
		if err := tx.WithContext(ctx).First(&exam, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &exam, nil
	}

	var exam models.Exam
	cacheKey := fmt.Sprintf("id:%s", id)
	err := r.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var fresh models.Exam
		if err := r.db.WithContext(ctx).First(&fresh, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Exam, error) {
	var exam models.Exam
	err := r.getDB(tx).WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_questions.position ASC")
		}).
		Preload("Questions.Question").
		First(&exam, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := r.getDB(tx).WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}
	cache.InvalidateExam(ctx, r.cacheManager, exam.ID, exam.CreatedBy)
	return nil
}

func (r *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.Exam{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateExam(ctx, r.cacheManager, id, "")
	return nil
}

func (r *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Exam{})
	query = applyExamFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	var exams []*models.Exam
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, total, nil
}

// SetQuestions replaces the exam's question assignments with the given
// ordered list. Runs inside the caller's transaction when one is given.
func (r *ExamPostgreSQL) SetQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID, questions []models.ExamQuestion) error {
	db := r.getDB(tx).WithContext(ctx)

	if err := db.Where("exam_id = ?", examID).Delete(&models.ExamQuestion{}).Error; err != nil {
		return fmt.Errorf("failed to clear exam questions: %w", err)
	}

	for i := range questions {
		questions[i].ExamID = examID
		if questions[i].Position == 0 {
			questions[i].Position = i + 1
		}
	}

	if len(questions) > 0 {
		if err := db.Create(&questions).Error; err != nil {
			return fmt.Errorf("failed to assign exam questions: %w", err)
		}
	}

	cache.InvalidateExam(ctx, r.cacheManager, examID, "")
	return nil
}
