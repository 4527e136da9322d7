package validator

import (
	"fmt"

	playground "github.com/go-playground/validator/v10"

	"github.com/Al-amen/exam-system/internal/models"
)

// Validator wraps go-playground/validator with domain-specific tags
type Validator struct {
	validate *playground.Validate
	business *BusinessValidator
}

// New creates a validator with all custom tags registered
func New() *Validator {
	v := playground.New(playground.WithRequiredStructEnabled())

	// Registration errors only happen for invalid tag names, which is a
	// programming error, hence the panics.
	mustRegister(v, "question_type", validateQuestionType)
	mustRegister(v, "user_role", validateUserRole)
	mustRegister(v, "attempt_status", validateAttemptStatus)
	mustRegister(v, "max_score", validateMaxScore)

	return &Validator{validate: v, business: NewBusinessValidator()}
}

// Business exposes the cross-field rule validator
func (v *Validator) Business() *BusinessValidator {
	return v.business
}

func mustRegister(v *playground.Validate, tag string, fn playground.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates a struct and converts failures into ValidationErrors
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(playground.ValidationErrors)
	if !ok {
		return err
	}

	var result ValidationErrors
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Message: messageForTag(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

// Var validates a single value against a tag expression
func (v *Validator) Var(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

func messageForTag(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "question_type":
		return "must be one of single_choice, multi_choice, text, image_upload"
	case "user_role":
		return "must be one of student, teacher, admin"
	case "attempt_status":
		return "must be one of in_progress, submitted, graded"
	case "max_score":
		return "must be between 1 and 1000"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func validateQuestionType(fl playground.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).IsValid()
}

func validateUserRole(fl playground.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).IsValid()
}

func validateAttemptStatus(fl playground.FieldLevel) bool {
	return models.AttemptStatus(fl.Field().String()).IsValid()
}

func validateMaxScore(fl playground.FieldLevel) bool {
	score := fl.Field().Int()
	return score >= 1 && score <= 1000
}
