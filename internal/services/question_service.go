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

type questionService struct {
	repo              repositories.Repository
	logger            *slog.Logger
	validator         *validator.Validator
	businessValidator *validator.BusinessValidator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) QuestionService {
	return &questionService{
		repo:              repo,
		logger:            logger,
		validator:         v,
		businessValidator: validator.NewBusinessValidator(),
	}
}

func (s *questionService) Create(ctx context.Context, req QuestionCreateRequest, creator *models.User) (*models.Question, error) {
	if creator == nil || !creator.Role.CanManageContent() {
		return nil, NewPermissionError(userID(creator), "create", "question")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	question, err := buildQuestion(req, creator.ID)
	if err != nil {
		return nil, err
	}

	if err := s.businessValidator.ValidateQuestionPayload(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, err
	}

	s.logger.Info("question created", "question_id", question.ID, "created_by", creator.ID)
	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	return question, nil
}

func (s *questionService) Update(ctx context.Context, id uuid.UUID, req QuestionUpdateRequest, user *models.User) (*models.Question, error) {
	if user == nil || !user.Role.CanManageContent() {
		return nil, NewPermissionError(userID(user), "update", "question")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}

	if question.CreatedBy != user.ID && user.Role != models.RoleAdmin {
		return nil, NewPermissionError(user.ID, "update", "question")
	}

	if req.Title != nil {
		question.Title = *req.Title
	}
	if req.Description != nil {
		question.Description = *req.Description
	}
	if req.Complexity != nil {
		question.Complexity = *req.Complexity
	}
	if req.MaxScore != nil {
		question.MaxScore = *req.MaxScore
	}
	if req.Options != nil {
		encoded, err := models.StringArrayJSON(req.Options)
		if err != nil {
			return nil, err
		}
		question.Options = encoded
	}
	if req.CorrectAnswers != nil {
		encoded, err := models.StringArrayJSON(req.CorrectAnswers)
		if err != nil {
			return nil, err
		}
		question.CorrectAnswers = encoded
	}
	if req.Tags != nil {
		encoded, err := models.StringArrayJSON(req.Tags)
		if err != nil {
			return nil, err
		}
		question.Tags = encoded
	}

	if err := s.businessValidator.ValidateQuestionPayload(question); err != nil {
		return nil, err
	}

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		return nil, err
	}

	return question, nil
}

func (s *questionService) Delete(ctx context.Context, id uuid.UUID, user *models.User) error {
	if user == nil || !user.Role.CanManageContent() {
		return NewPermissionError(userID(user), "delete", "question")
	}

	question, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		if IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to load question: %w", err)
	}

	if question.CreatedBy != user.ID && user.Role != models.RoleAdmin {
		return NewPermissionError(user.ID, "delete", "question")
	}

	if err := s.repo.Question().Delete(ctx, nil, id); err != nil {
		if IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return err
	}

	s.logger.Info("question deleted", "question_id", id, "deleted_by", user.ID)
	return nil
}

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return s.repo.Question().List(ctx, nil, filters)
}

func buildQuestion(req QuestionCreateRequest, creatorID string) (*models.Question, error) {
	questionType := models.QuestionType(req.Type)

	optionsJSON, err := models.StringArrayJSON(req.Options)
	if err != nil {
		return nil, err
	}
	correctJSON, err := models.StringArrayJSON(req.CorrectAnswers)
	if err != nil {
		return nil, err
	}
	tagsJSON, err := models.StringArrayJSON(req.Tags)
	if err != nil {
		return nil, err
	}

	maxScore := req.MaxScore
	if maxScore == 0 {
		maxScore = 1
	}

	return &models.Question{
		Title:          req.Title,
		Description:    req.Description,
		Complexity:     req.Complexity,
		Type:           questionType,
		Options:        optionsJSON,
		CorrectAnswers: correctJSON,
		MaxScore:       maxScore,
		Tags:           tagsJSON,
		CreatedBy:      creatorID,
	}, nil
}
