package validator

import (
	"fmt"

	"github.com/Al-amen/exam-system/internal/models"
)

// BusinessValidator enforces rules that span more than one field
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// ValidateStatusTransition checks the forward-only attempt lifecycle
func (bv *BusinessValidator) ValidateStatusTransition(current, target models.AttemptStatus) error {
	if !target.IsValid() {
		var errs ValidationErrors
		errs.Add("status", fmt.Sprintf("unknown status %q", target), target)
		return errs
	}
	if !current.CanTransitionTo(target) {
		var errs ValidationErrors
		errs.Add("status", fmt.Sprintf("cannot transition from %s to %s", current, target), target)
		return errs
	}
	return nil
}

// ValidateQuestionPayload checks cross-field rules on a question
func (bv *BusinessValidator) ValidateQuestionPayload(q *models.Question) error {
	var errs ValidationErrors

	if !q.Type.IsValid() {
		errs.Add("type", fmt.Sprintf("unknown question type %q", q.Type), string(q.Type))
		return errs
	}

	if q.Type.IsChoice() {
		options, err := q.OptionList()
		if err != nil {
			errs.Add("options", "must be a JSON string array", nil)
		}
		correct, err := q.CorrectAnswerList()
		if err != nil {
			errs.Add("correct_answers", "must be a JSON string array", nil)
		}
		if len(options) == 0 {
			errs.Add("options", "choice questions need at least one option", nil)
		}
		if len(correct) == 0 {
			errs.Add("correct_answers", "choice questions need at least one correct answer", nil)
		}
	}

	if q.MaxScore < 0 {
		errs.Add("max_score", "must not be negative", q.MaxScore)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
