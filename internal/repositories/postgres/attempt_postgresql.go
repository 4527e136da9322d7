package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Al-amen/exam-system/internal/cache"
	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
)

// AttemptPostgreSQL implements AttemptRepository
type AttemptPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	if err := r.getDB(tx).WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (r *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	// Reads inside a transaction skip the cache so they see their own writes
	if tx != nil {
		var attempt models.ExamAttempt
		if err := tx.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &attempt, nil
	}

	var attempt models.ExamAttempt
	cacheKey := fmt.Sprintf("id:%s", id)
	err := r.cacheManager.Attempt.CacheOrExecute(ctx, cacheKey, &attempt, cache.AttemptCacheConfig.TTL, func() (interface{}, error) {
		var fresh models.ExamAttempt
		if err := r.db.WithContext(ctx).First(&fresh, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.getDB(tx).WithContext(ctx).
		Preload("Exam").
		Preload("Exam.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_questions.position ASC")
		}).
		Preload("Exam.Questions.Question").
		Preload("Answers").
		First(&attempt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	if err := r.getDB(tx).WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	cache.InvalidateAttempt(ctx, r.cacheManager, attempt.ID)
	return nil
}

// Writes that only make sense while the attempt is still running carry
// the status in the WHERE clause. Under READ COMMITTED a losing
// concurrent submit re-evaluates the condition after the winner commits
// and matches zero rows instead of re-setting end_time.
func (r *AttemptPostgreSQL) UpdateAutoSave(ctx context.Context, tx *gorm.DB, id uuid.UUID, answers datatypes.JSON) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptStatusInProgress).
		Update("auto_saved_answers", answers)
	if result.Error != nil {
		return fmt.Errorf("failed to auto-save answers: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyMissedUpdate(ctx, tx, id)
	}
	cache.InvalidateAttempt(ctx, r.cacheManager, id)
	return nil
}

func (r *AttemptPostgreSQL) Finalize(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.AttemptStatus, endTime time.Time, totalScore int) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptStatusInProgress).
		Updates(map[string]interface{}{
			"status":      status,
			"end_time":    endTime,
			"total_score": totalScore,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyMissedUpdate(ctx, tx, id)
	}
	cache.InvalidateAttempt(ctx, r.cacheManager, id)
	return nil
}

// classifyMissedUpdate distinguishes an absent attempt from one whose
// status already moved past in_progress.
func (r *AttemptPostgreSQL) classifyMissedUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check attempt state: %w", err)
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return repositories.ErrAttemptNotInProgress
}

func (r *AttemptPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status models.AttemptStatus) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update attempt status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateAttempt(ctx, r.cacheManager, id)
	return nil
}

func (r *AttemptPostgreSQL) UpdateTotalScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, totalScore int) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ?", id).
		Update("total_score", totalScore)
	if result.Error != nil {
		return fmt.Errorf("failed to update total score: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateAttempt(ctx, r.cacheManager, id)
	return nil
}

func (r *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.ExamAttempt{})
	query = applyAttemptFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	var attempts []*models.ExamAttempt
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Exam").Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

func (r *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, tx *gorm.DB, examID uuid.UUID, studentID string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("exam_id = ? AND student_id = ? AND status = ?", examID, studentID, models.AttemptStatusInProgress).
		Order("start_time DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// AnswerPostgreSQL implements AnswerRepository
type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (r *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	if err := r.getDB(tx).WithContext(ctx).Create(&answers).Error; err != nil {
		return fmt.Errorf("failed to create answers: %w", err)
	}
	return nil
}

func (r *AnswerPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Answer, error) {
	var answer models.Answer
	if err := r.getDB(tx).WithContext(ctx).First(&answer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *AnswerPostgreSQL) GetByIDWithQuestion(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Answer, error) {
	var answer models.Answer
	err := r.getDB(tx).WithContext(ctx).
		Preload("Question").
		First(&answer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*models.Answer, error) {
	var answers []*models.Answer
	err := r.getDB(tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return answers, nil
}

func (r *AnswerPostgreSQL) Update(ctx context.Context, tx *gorm.DB, answer *models.Answer) error {
	if err := r.getDB(tx).WithContext(ctx).Save(answer).Error; err != nil {
		return fmt.Errorf("failed to update answer: %w", err)
	}
	return nil
}
