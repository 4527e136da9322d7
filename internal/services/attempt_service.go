package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Al-amen/exam-system/internal/events"
	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	grading   GradingService
	publisher events.Publisher
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, grading GradingService, publisher events.Publisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: v,
		grading:   grading,
		publisher: publisher,
	}
}

// Start creates a new in-progress attempt for a student on a published
// exam. Starting a second attempt while one is still in progress is
// allowed; nothing dedupes concurrent attempts.
func (s *attemptService) Start(ctx context.Context, req StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user.Role != models.RoleStudent {
		return nil, NewPermissionError(studentID, "start", "attempt")
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, req.ExamID)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}
	if !exam.IsPublished {
		return nil, ErrExamNotPublished
	}

	attempt := &models.ExamAttempt{
		ExamID:           exam.ID,
		StudentID:        studentID,
		StartTime:        time.Now(),
		Status:           models.AttemptStatusInProgress,
		TotalScore:       0,
		AutoSavedAnswers: datatypes.JSON(`{}`),
	}

	if err := s.repo.Attempt().Create(ctx, nil, attempt); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.AttemptEvent{
		Type:      events.EventAttemptStarted,
		AttemptID: attempt.ID,
		ExamID:    attempt.ExamID,
		StudentID: attempt.StudentID,
	})

	s.logger.Info("attempt started",
		"attempt_id", attempt.ID,
		"exam_id", exam.ID,
		"student_id", studentID)

	return &AttemptResponse{ExamAttempt: attempt}, nil
}

// AutoSave replaces the attempt's saved answers wholesale. The last write
// wins; there is no per-question merging.
func (s *attemptService) AutoSave(ctx context.Context, attemptID uuid.UUID, studentID string, req AutoSaveRequest) error {
	if req.Answers == nil {
		var errs validator.ValidationErrors
		errs.Add("answers", "is required", nil)
		return errs
	}

	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}

	if !attempt.IsActive() {
		return ErrAttemptNotActive
	}

	payload, err := json.Marshal(req.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	// The store re-checks the status inside the conditional update, so a
	// submit that commits between the read above and this write cannot be
	// overwritten.
	if err := s.repo.Attempt().UpdateAutoSave(ctx, nil, attemptID, datatypes.JSON(payload)); err != nil {
		if IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		if errors.Is(err, repositories.ErrAttemptNotInProgress) {
			return ErrAttemptNotActive
		}
		return err
	}

	return nil
}

// Submit freezes the attempt and grades it. Submission is exactly-once:
// any call after the first fails because the attempt is no longer in
// progress.
func (s *attemptService) Submit(ctx context.Context, attemptID uuid.UUID, studentID string) (*AttemptResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Business().ValidateStatusTransition(attempt.Status, models.AttemptStatusSubmitted); err != nil {
		return nil, ErrAttemptNotActive
	}

	result, err := s.grading.GradeAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	submitted, err := s.repo.Attempt().GetByIDWithDetails(ctx, nil, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}

	s.publishEvent(ctx, events.AttemptEvent{
		Type:      events.EventAttemptSubmitted,
		AttemptID: submitted.ID,
		ExamID:    submitted.ExamID,
		StudentID: submitted.StudentID,
	})
	if result.FullyGraded {
		s.publishEvent(ctx, events.AttemptEvent{
			Type:       events.EventAttemptGraded,
			AttemptID:  submitted.ID,
			ExamID:     submitted.ExamID,
			StudentID:  submitted.StudentID,
			TotalScore: &result.TotalScore,
		})
	}

	s.logger.Info("attempt submitted",
		"attempt_id", attemptID,
		"student_id", studentID,
		"total_score", result.TotalScore,
		"fully_graded", result.FullyGraded)

	return &AttemptResponse{ExamAttempt: submitted}, nil
}

// GetByID returns the attempt for its owner, or for teacher/admin users
func (s *attemptService) GetByID(ctx context.Context, attemptID uuid.UUID, user *models.User) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, nil, attemptID)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	if user == nil || (!user.Role.CanManageContent() && attempt.StudentID != user.ID) {
		return nil, ErrAttemptNotFound
	}

	return &AttemptResponse{ExamAttempt: attempt}, nil
}

// List returns attempts visible to the user. Students only ever see their
// own attempts regardless of the requested filters.
func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, user *models.User) ([]*AttemptResponse, int64, error) {
	if user == nil {
		return nil, 0, NewPermissionError("", "list", "attempts")
	}
	if !user.Role.CanManageContent() {
		filters.StudentID = &user.ID
	}

	attempts, total, err := s.repo.Attempt().List(ctx, nil, filters)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = &AttemptResponse{ExamAttempt: attempt}
	}
	return responses, total, nil
}

// getOwnedAttempt loads an attempt and verifies ownership. A missing
// attempt and someone else's attempt produce the same error so callers
// cannot probe for other students' attempt IDs.
func (s *attemptService) getOwnedAttempt(ctx context.Context, attemptID uuid.UUID, studentID string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	if attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}

	return attempt, nil
}

func (s *attemptService) publishEvent(ctx context.Context, event events.AttemptEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event",
			"error", err,
			"type", event.Type,
			"attempt_id", event.AttemptID)
	}
}
