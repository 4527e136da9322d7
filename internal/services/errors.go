package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors returned by the service layer. Handlers map these to
// HTTP status codes.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrExamNotPublished = errors.New("exam is not published")
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuestionInUse    = errors.New("question is assigned to an exam")

	// ErrAttemptNotFound covers both a missing attempt and an attempt
	// owned by another student. Callers must not be able to tell the
	// two apart.
	ErrAttemptNotFound = errors.New("attempt not found")

	ErrAttemptNotActive  = errors.New("attempt is not in progress")
	ErrAnswerNotFound    = errors.New("answer not found")
	ErrGradingNotAllowed = errors.New("answer does not accept manual grading")
	ErrAnswerGraded      = errors.New("answer is already graded")
)

// IsNotFoundError reports whether err is a record-not-found from the
// persistence layer.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// PermissionError indicates the caller is not allowed to perform an action
type PermissionError struct {
	UserID   string
	Action   string
	Resource string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s %s", e.UserID, e.Action, e.Resource)
}

func NewPermissionError(userID, action, resource string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Action:   action,
		Resource: resource,
	}
}

// ImportError describes a failure while importing questions from a
// workbook. Row is 1-based and 0 for file-level failures.
type ImportError struct {
	Row int
	Err error
}

func (e *ImportError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("error parsing row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("error parsing file: %v", e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func NewImportError(row int, format string, args ...interface{}) *ImportError {
	return &ImportError{
		Row: row,
		Err: fmt.Errorf(format, args...),
	}
}
