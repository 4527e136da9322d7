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
	"gorm.io/gorm"

	"github.com/Al-amen/exam-system/internal/events"
	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.Publisher) GradingService {
	return &gradingService{
		repo:      repo,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// GradeQuestion scores one submitted answer against a question.
//
// Choice types grade to the full max score or zero; there is no partial
// credit. Text and image upload answers always score zero here and return
// nil correctness, since correctness is unknown until manual review.
func (s *gradingService) GradeQuestion(question *models.Question, submitted json.RawMessage) (int, *bool, error) {
	if question == nil {
		return 0, nil, fmt.Errorf("question is required")
	}

	if !question.Type.IsAutoGradable() {
		return 0, nil, nil
	}

	if isEmptyAnswer(submitted) {
		return 0, boolPtr(false), nil
	}

	correct, err := question.CorrectAnswerList()
	if err != nil {
		return 0, nil, fmt.Errorf("question %s has malformed correct answers: %w", question.ID, err)
	}

	var isCorrect bool
	switch question.Type {
	case models.QuestionTypeSingleChoice:
		value, ok := decodeString(submitted)
		isCorrect = ok && containsString(correct, value)
	case models.QuestionTypeMultiChoice:
		values, ok := decodeStringList(submitted)
		isCorrect = ok && stringSetsEqual(values, correct)
	}

	score := 0
	if isCorrect {
		score = questionMaxScore(question)
	}

	return score, boolPtr(isCorrect), nil
}

// GradeAttempt freezes an in-progress attempt: it materializes one answer
// row per exam question from the auto-save map, scores auto-gradable ones,
// and records end time, total and final status. Everything happens in one
// transaction so a failed grading run leaves the attempt untouched.
func (s *gradingService) GradeAttempt(ctx context.Context, attemptID uuid.UUID) (*AttemptGradingResult, error) {
	result := &AttemptGradingResult{AttemptID: attemptID}

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetByIDWithDetails(ctx, nil, attemptID)
		if err != nil {
			if IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to load attempt: %w", err)
		}

		if attempt.Status != models.AttemptStatusInProgress {
			return ErrAttemptNotActive
		}

		if attempt.Exam == nil {
			return fmt.Errorf("attempt %s has no exam loaded", attemptID)
		}

		saved, err := attempt.SavedAnswers()
		if err != nil {
			return err
		}

		now := time.Now()
		answers := make([]*models.Answer, 0, len(attempt.Exam.Questions))
		fullyGraded := true
		totalScore := 0

		for _, eq := range attempt.Exam.Questions {
			question := eq.Question
			if question == nil {
				return fmt.Errorf("exam question %s has no question loaded", eq.ID)
			}

			submitted := saved[question.ID.String()]
			score, isCorrect, err := s.GradeQuestion(question, submitted)
			if err != nil {
				return err
			}

			answer := &models.Answer{
				AttemptID:  attempt.ID,
				QuestionID: question.ID,
				Score:      score,
				IsCorrect:  isCorrect,
			}
			if len(submitted) > 0 {
				answer.Answer = datatypes.JSON(submitted)
			}
			if question.Type.IsAutoGradable() {
				gradedAt := now
				answer.GradedAt = &gradedAt
			} else {
				fullyGraded = false
			}

			answers = append(answers, answer)
			totalScore += score

			result.Grades = append(result.Grades, QuestionGrade{
				QuestionID: question.ID,
				Score:      score,
				MaxScore:   questionMaxScore(question),
				IsCorrect:  isCorrect,
			})
			result.MaxScore += questionMaxScore(question)
		}

		// A duplicate key here means another submit already materialized
		// answer rows for this attempt and won the race.
		if err := txRepo.Answer().CreateBatch(ctx, nil, answers); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAttemptNotActive
			}
			return err
		}

		status := models.AttemptStatusSubmitted
		if fullyGraded {
			status = models.AttemptStatusGraded
		}

		// Finalize only matches in_progress rows, so the loser of two
		// concurrent submits fails here and the transaction rolls back
		// its answer rows.
		if err := txRepo.Attempt().Finalize(ctx, nil, attempt.ID, status, now, totalScore); err != nil {
			if errors.Is(err, repositories.ErrAttemptNotInProgress) {
				return ErrAttemptNotActive
			}
			return err
		}

		result.TotalScore = totalScore
		result.FullyGraded = fullyGraded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("attempt graded",
		"attempt_id", attemptID,
		"total_score", result.TotalScore,
		"fully_graded", result.FullyGraded)

	return result, nil
}

// ManualGrade records a teacher's score for a text or image upload answer.
// When it was the last ungraded answer, the attempt total is re-aggregated
// and the attempt moves to graded.
func (s *gradingService) ManualGrade(ctx context.Context, answerID uuid.UUID, grader *models.User, req ManualGradeRequest) error {
	if grader == nil || !grader.Role.CanManageContent() {
		graderID := ""
		if grader != nil {
			graderID = grader.ID
		}
		return NewPermissionError(graderID, "grade", "answer")
	}

	if err := s.validator.Struct(req); err != nil {
		return err
	}

	var gradedAttempt *models.ExamAttempt

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		answer, err := txRepo.Answer().GetByIDWithQuestion(ctx, nil, answerID)
		if err != nil {
			if IsNotFoundError(err) {
				return ErrAnswerNotFound
			}
			return fmt.Errorf("failed to load answer: %w", err)
		}

		if answer.Question == nil {
			return fmt.Errorf("answer %s has no question loaded", answerID)
		}
		if answer.Question.Type.IsAutoGradable() {
			return ErrGradingNotAllowed
		}

		maxScore := questionMaxScore(answer.Question)
		if req.Score > maxScore {
			var errs validator.ValidationErrors
			errs.Add("score", fmt.Sprintf("must not exceed max score %d", maxScore), req.Score)
			return errs
		}

		now := time.Now()
		answer.Score = req.Score
		answer.IsCorrect = req.IsCorrect
		answer.GradedAt = &now
		if err := txRepo.Answer().Update(ctx, nil, answer); err != nil {
			return err
		}

		answers, err := txRepo.Answer().GetByAttempt(ctx, nil, answer.AttemptID)
		if err != nil {
			return err
		}

		totalScore := 0
		allGraded := true
		for _, a := range answers {
			totalScore += a.Score
			if !a.IsGraded() {
				allGraded = false
			}
		}

		if err := txRepo.Attempt().UpdateTotalScore(ctx, nil, answer.AttemptID, totalScore); err != nil {
			return err
		}

		if allGraded {
			attempt, err := txRepo.Attempt().GetByID(ctx, nil, answer.AttemptID)
			if err != nil {
				return err
			}
			if s.validator.Business().ValidateStatusTransition(attempt.Status, models.AttemptStatusGraded) == nil {
				if err := txRepo.Attempt().UpdateStatus(ctx, nil, attempt.ID, models.AttemptStatusGraded); err != nil {
					return err
				}
				attempt.Status = models.AttemptStatusGraded
				attempt.TotalScore = totalScore
				gradedAttempt = attempt
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if gradedAttempt != nil {
		event := events.AttemptEvent{
			Type:       events.EventAttemptGraded,
			AttemptID:  gradedAttempt.ID,
			ExamID:     gradedAttempt.ExamID,
			StudentID:  gradedAttempt.StudentID,
			TotalScore: &gradedAttempt.TotalScore,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish graded event",
				"error", err,
				"attempt_id", gradedAttempt.ID)
		}
	}

	s.logger.Info("answer manually graded",
		"answer_id", answerID,
		"grader_id", grader.ID,
		"score", req.Score)

	return nil
}
