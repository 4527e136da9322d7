package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptStatus represents the lifecycle status of an exam attempt
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusGraded     AttemptStatus = "graded"
)

// IsValid checks if the status is one of the known statuses
func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptStatusInProgress, AttemptStatusSubmitted, AttemptStatusGraded:
		return true
	}
	return false
}

// attemptTransitions encodes the forward-only lifecycle:
// in_progress -> submitted -> graded. No status ever moves backwards.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptStatusInProgress: {AttemptStatusSubmitted, AttemptStatusGraded},
	AttemptStatusSubmitted:  {AttemptStatusGraded},
	AttemptStatusGraded:     {},
}

// CanTransitionTo reports whether the status may move to target
func (s AttemptStatus) CanTransitionTo(target AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the attempt can no longer change
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptStatusGraded
}

// ExamAttempt represents a single run of a student through an exam
type ExamAttempt struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ExamID           uuid.UUID      `json:"exam_id" gorm:"type:uuid;not null;index"`
	StudentID        string         `json:"student_id" gorm:"size:255;not null;index"`
	StartTime        time.Time      `json:"start_time" gorm:"not null"`
	EndTime          *time.Time     `json:"end_time,omitempty"`
	Status           AttemptStatus  `json:"status" gorm:"size:20;not null;default:'in_progress';index"`
	TotalScore       int            `json:"total_score" gorm:"default:0"`
	AutoSavedAnswers datatypes.JSON `json:"auto_saved_answers" gorm:"type:jsonb"`
	Exam             *Exam          `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Answers          []Answer       `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (a *ExamAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the attempt still accepts answers
func (a *ExamAttempt) IsActive() bool {
	return a.Status == AttemptStatusInProgress
}

// SavedAnswers decodes the auto-save blob into a map keyed by question ID
func (a *ExamAttempt) SavedAnswers() (map[string]json.RawMessage, error) {
	if len(a.AutoSavedAnswers) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	answers := make(map[string]json.RawMessage)
	if err := json.Unmarshal(a.AutoSavedAnswers, &answers); err != nil {
		return nil, fmt.Errorf("decode auto-saved answers: %w", err)
	}
	return answers, nil
}

// Answer represents a persisted per-question answer, materialized at submission
type Answer struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	AttemptID  uuid.UUID      `json:"attempt_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uuid.UUID      `json:"question_id" gorm:"type:uuid;not null;uniqueIndex:idx_answer_attempt_question"`
	Answer     datatypes.JSON `json:"answer" gorm:"column:answer;type:jsonb"`
	Score      int            `json:"score" gorm:"default:0"`
	IsCorrect  *bool          `json:"is_correct,omitempty"`
	GradedAt   *time.Time     `json:"graded_at,omitempty"`
	Question   *Question      `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}

func (an *Answer) BeforeCreate(tx *gorm.DB) error {
	if an.ID == uuid.Nil {
		an.ID = uuid.New()
	}
	return nil
}

// IsGraded reports whether the answer has been scored
func (an *Answer) IsGraded() bool {
	return an.GradedAt != nil
}
