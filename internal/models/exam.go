package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Exam represents an exam that students can attempt
type Exam struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title           string         `json:"title" gorm:"size:500;not null"`
	Description     string         `json:"description" gorm:"type:text"`
	DurationMinutes int            `json:"duration_minutes" gorm:"default:60"`
	IsPublished     bool           `json:"is_published" gorm:"default:false;index"`
	CreatedBy       string         `json:"created_by" gorm:"size:255;index"`
	Questions       []ExamQuestion `json:"questions,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (Exam) TableName() string {
	return "exams"
}

func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ExamQuestion links a question to an exam at a fixed position
type ExamQuestion struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ExamID     uuid.UUID `json:"exam_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_exam_question"`
	QuestionID uuid.UUID `json:"question_id" gorm:"type:uuid;not null;uniqueIndex:idx_exam_question"`
	Position   int       `json:"position" gorm:"not null"`
	Question   *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

func (eq *ExamQuestion) BeforeCreate(tx *gorm.DB) error {
	if eq.ID == uuid.Nil {
		eq.ID = uuid.New()
	}
	return nil
}
