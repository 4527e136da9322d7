package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestionType represents the type of a question
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiChoice  QuestionType = "multi_choice"
	QuestionTypeText         QuestionType = "text"
	QuestionTypeImageUpload  QuestionType = "image_upload"
)

// IsValid checks if the question type is supported
func (qt QuestionType) IsValid() bool {
	switch qt {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeText, QuestionTypeImageUpload:
		return true
	}
	return false
}

// IsChoice reports whether the type carries answer options
func (qt QuestionType) IsChoice() bool {
	return qt == QuestionTypeSingleChoice || qt == QuestionTypeMultiChoice
}

// IsAutoGradable reports whether answers of this type can be graded automatically.
// Text and image upload answers require manual review.
func (qt QuestionType) IsAutoGradable() bool {
	return qt.IsChoice()
}

// ParseQuestionType converts a raw string into a QuestionType
func ParseQuestionType(s string) (QuestionType, error) {
	qt := QuestionType(s)
	if !qt.IsValid() {
		return "", fmt.Errorf("unknown question type %q", s)
	}
	return qt, nil
}

// Question represents a reusable question in the question bank
type Question struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title          string         `json:"title" gorm:"size:500;not null"`
	Description    string         `json:"description" gorm:"type:text"`
	Complexity     string         `json:"complexity" gorm:"size:50;not null;index"`
	Type           QuestionType   `json:"type" gorm:"size:20;not null;index"`
	Options        datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswers datatypes.JSON `json:"correct_answers" gorm:"type:jsonb"`
	MaxScore       int            `json:"max_score" gorm:"default:1"`
	Tags           datatypes.JSON `json:"tags" gorm:"type:jsonb"`
	CreatedBy      string         `json:"created_by" gorm:"size:255;index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.MaxScore <= 0 {
		q.MaxScore = 1
	}
	return nil
}

// OptionList decodes the options JSON column into a string slice
func (q *Question) OptionList() ([]string, error) {
	return decodeStringArray(q.Options)
}

// CorrectAnswerList decodes the correct answers JSON column into a string slice
func (q *Question) CorrectAnswerList() ([]string, error) {
	return decodeStringArray(q.CorrectAnswers)
}

// TagList decodes the tags JSON column into a string slice
func (q *Question) TagList() ([]string, error) {
	return decodeStringArray(q.Tags)
}

func decodeStringArray(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode string array: %w", err)
	}
	return out, nil
}

// StringArrayJSON encodes a string slice for a JSONB column.
// A nil slice encodes as an empty array so the column is never null.
func StringArrayJSON(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode string array: %w", err)
	}
	return datatypes.JSON(data), nil
}
