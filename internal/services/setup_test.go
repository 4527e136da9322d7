package services

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Al-amen/exam-system/internal/events"
	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustStringArray(t *testing.T, values []string) datatypes.JSON {
	t.Helper()
	data, err := models.StringArrayJSON(values)
	if err != nil {
		t.Fatalf("encode string array: %v", err)
	}
	return data
}

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

// testEnv bundles the fakes every service test needs
type testEnv struct {
	repo      *mockRepository
	publisher *events.MockPublisher
	validator *validator.Validator
	grading   GradingService
	attempts  AttemptService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMockRepository()
	publisher := events.NewMockPublisher()
	v := validator.New()
	logger := testLogger()

	grading := NewGradingService(repo, logger, v, publisher)
	attempts := NewAttemptService(repo, logger, v, grading, publisher)

	return &testEnv{
		repo:      repo,
		publisher: publisher,
		validator: v,
		grading:   grading,
		attempts:  attempts,
	}
}

func (env *testEnv) seedStudent(id string) *models.User {
	return env.repo.addUser(&models.User{ID: id, Email: id + "@example.com", Role: models.RoleStudent})
}

func (env *testEnv) seedTeacher(id string) *models.User {
	return env.repo.addUser(&models.User{ID: id, Email: id + "@example.com", Role: models.RoleTeacher})
}

func (env *testEnv) seedQuestion(t *testing.T, qt models.QuestionType, correct []string, maxScore int) *models.Question {
	t.Helper()
	question := &models.Question{
		Title:      "question",
		Complexity: "medium",
		Type:       qt,
		MaxScore:   maxScore,
	}
	if qt.IsChoice() {
		question.Options = mustStringArray(t, append([]string{"distractor"}, correct...))
		question.CorrectAnswers = mustStringArray(t, correct)
	}
	return env.repo.addQuestion(question)
}

// seedExam builds a published exam with the given questions in order
func (env *testEnv) seedExam(questions ...*models.Question) *models.Exam {
	exam := &models.Exam{
		Title:           "exam",
		DurationMinutes: 60,
		IsPublished:     true,
		CreatedBy:       "teacher-1",
	}
	for i, question := range questions {
		exam.Questions = append(exam.Questions, models.ExamQuestion{
			ID:         uuid.New(),
			QuestionID: question.ID,
			Position:   i + 1,
		})
	}
	env.repo.addExam(exam)
	for i := range exam.Questions {
		exam.Questions[i].ExamID = exam.ID
	}
	return exam
}

func (env *testEnv) seedAttempt(exam *models.Exam, studentID string, answers map[string]json.RawMessage) *models.ExamAttempt {
	payload := []byte(`{}`)
	if answers != nil {
		payload, _ = json.Marshal(answers)
	}
	attempt := &models.ExamAttempt{
		ID:               uuid.New(),
		ExamID:           exam.ID,
		StudentID:        studentID,
		Status:           models.AttemptStatusInProgress,
		AutoSavedAnswers: datatypes.JSON(payload),
	}
	env.repo.mu.Lock()
	env.repo.attempts[attempt.ID] = attempt
	env.repo.mu.Unlock()
	return attempt
}
