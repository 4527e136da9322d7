package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: v,
	}
}

func (s *examService) Create(ctx context.Context, req ExamCreateRequest, creator *models.User) (*models.Exam, error) {
	if creator == nil || !creator.Role.CanManageContent() {
		return nil, NewPermissionError(userID(creator), "create", "exam")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       creator.ID,
	}
	if exam.DurationMinutes == 0 {
		exam.DurationMinutes = 60
	}

	if err := s.repo.Exam().Create(ctx, nil, exam); err != nil {
		return nil, err
	}

	s.logger.Info("exam created", "exam_id", exam.ID, "created_by", creator.ID)
	return exam, nil
}

// GetByID returns the exam with its ordered questions. Students only see
// published exams.
func (s *examService) GetByID(ctx context.Context, id uuid.UUID, user *models.User) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	if !exam.IsPublished {
		if user == nil || (!user.Role.CanManageContent() && exam.CreatedBy != user.ID) {
			return nil, ErrExamNotFound
		}
	}

	return exam, nil
}

func (s *examService) Update(ctx context.Context, id uuid.UUID, req ExamUpdateRequest, user *models.User) (*models.Exam, error) {
	if user == nil || !user.Role.CanManageContent() {
		return nil, NewPermissionError(userID(user), "update", "exam")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	if exam.CreatedBy != user.ID && user.Role != models.RoleAdmin {
		return nil, NewPermissionError(user.ID, "update", "exam")
	}

	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.IsPublished != nil {
		exam.IsPublished = *req.IsPublished
	}

	if err := s.repo.Exam().Update(ctx, nil, exam); err != nil {
		return nil, err
	}

	return exam, nil
}

func (s *examService) Delete(ctx context.Context, id uuid.UUID, user *models.User) error {
	if user == nil || !user.Role.CanManageContent() {
		return NewPermissionError(userID(user), "delete", "exam")
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to load exam: %w", err)
	}

	if exam.CreatedBy != user.ID && user.Role != models.RoleAdmin {
		return NewPermissionError(user.ID, "delete", "exam")
	}

	if err := s.repo.Exam().Delete(ctx, nil, id); err != nil {
		if IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return err
	}

	s.logger.Info("exam deleted", "exam_id", id, "deleted_by", user.ID)
	return nil
}

// List returns exams visible to the user. Students only see published ones.
func (s *examService) List(ctx context.Context, filters repositories.ExamFilters, user *models.User) ([]*models.Exam, int64, error) {
	if user == nil || !user.Role.CanManageContent() {
		published := true
		filters.IsPublished = &published
	}

	return s.repo.Exam().List(ctx, nil, filters)
}

// SetQuestions replaces the exam's question list with the given ordered
// assignments, validating that every referenced question exists.
func (s *examService) SetQuestions(ctx context.Context, id uuid.UUID, assignments []ExamQuestionAssignment, user *models.User) error {
	if user == nil || !user.Role.CanManageContent() {
		return NewPermissionError(userID(user), "assign questions to", "exam")
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to load exam: %w", err)
	}

	if exam.CreatedBy != user.ID && user.Role != models.RoleAdmin {
		return NewPermissionError(user.ID, "assign questions to", "exam")
	}

	ids := make([]uuid.UUID, len(assignments))
	for i, a := range assignments {
		ids[i] = a.QuestionID
	}

	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		questions, err := txRepo.Question().GetByIDs(ctx, nil, ids)
		if err != nil {
			return err
		}
		if len(questions) != len(uniqueUUIDs(ids)) {
			return ErrQuestionNotFound
		}

		examQuestions := make([]models.ExamQuestion, len(assignments))
		for i, a := range assignments {
			examQuestions[i] = models.ExamQuestion{
				ExamID:     id,
				QuestionID: a.QuestionID,
				Position:   a.Position,
			}
		}

		return txRepo.Exam().SetQuestions(ctx, nil, id, examQuestions)
	})
}

func userID(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func uniqueUUIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
