package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/validator"
)

func TestGradeQuestionSingleChoice(t *testing.T) {
	env := newTestEnv(t)
	question := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"B", "C"}, 3)

	tests := []struct {
		name      string
		submitted json.RawMessage
		wantScore int
		wantRight *bool
	}{
		{"correct option", raw(`"B"`), 3, boolPtr(true)},
		{"other correct option", raw(`"C"`), 3, boolPtr(true)},
		{"wrong option", raw(`"A"`), 0, boolPtr(false)},
		{"empty string", raw(`""`), 0, boolPtr(false)},
		{"null answer", raw(`null`), 0, boolPtr(false)},
		{"missing answer", nil, 0, boolPtr(false)},
		{"not a string", raw(`["B"]`), 0, boolPtr(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, isCorrect, err := env.grading.GradeQuestion(question, tt.submitted)
			if err != nil {
				t.Fatalf("GradeQuestion: %v", err)
			}
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d", score, tt.wantScore)
			}
			assertCorrectness(t, isCorrect, tt.wantRight)
		})
	}
}

func TestGradeQuestionMultiChoice(t *testing.T) {
	env := newTestEnv(t)
	question := env.seedQuestion(t, models.QuestionTypeMultiChoice, []string{"A", "C"}, 2)

	tests := []struct {
		name      string
		submitted json.RawMessage
		wantScore int
		wantRight *bool
	}{
		{"exact match", raw(`["A","C"]`), 2, boolPtr(true)},
		{"order insensitive", raw(`["C","A"]`), 2, boolPtr(true)},
		{"duplicates collapse", raw(`["A","A","C"]`), 2, boolPtr(true)},
		{"subset fails", raw(`["A"]`), 0, boolPtr(false)},
		{"superset fails", raw(`["A","B","C"]`), 0, boolPtr(false)},
		{"disjoint fails", raw(`["B","D"]`), 0, boolPtr(false)},
		{"empty list", raw(`[]`), 0, boolPtr(false)},
		{"not a list", raw(`"A"`), 0, boolPtr(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, isCorrect, err := env.grading.GradeQuestion(question, tt.submitted)
			if err != nil {
				t.Fatalf("GradeQuestion: %v", err)
			}
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d", score, tt.wantScore)
			}
			assertCorrectness(t, isCorrect, tt.wantRight)
		})
	}
}

func TestGradeQuestionManualTypes(t *testing.T) {
	env := newTestEnv(t)

	for _, qt := range []models.QuestionType{models.QuestionTypeText, models.QuestionTypeImageUpload} {
		t.Run(string(qt), func(t *testing.T) {
			question := env.seedQuestion(t, qt, nil, 5)

			score, isCorrect, err := env.grading.GradeQuestion(question, raw(`"a long essay"`))
			if err != nil {
				t.Fatalf("GradeQuestion: %v", err)
			}
			if score != 0 {
				t.Errorf("score = %d, want 0", score)
			}
			if isCorrect != nil {
				t.Errorf("isCorrect = %v, want nil for manual grading", *isCorrect)
			}
		})
	}
}

func TestGradeQuestionDefaultsMaxScore(t *testing.T) {
	env := newTestEnv(t)
	question := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"A"}, 0)

	score, _, err := env.grading.GradeQuestion(question, raw(`"A"`))
	if err != nil {
		t.Fatalf("GradeQuestion: %v", err)
	}
	if score != 1 {
		t.Errorf("score = %d, want 1 for unset max score", score)
	}
}

func TestGradeAttemptAllAutoGradable(t *testing.T) {
	env := newTestEnv(t)
	single := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"B"}, 2)
	multi := env.seedQuestion(t, models.QuestionTypeMultiChoice, []string{"A", "C"}, 3)
	exam := env.seedExam(single, multi)

	attempt := env.seedAttempt(exam, "student-1", map[string]json.RawMessage{
		single.ID.String(): raw(`"B"`),
		multi.ID.String():  raw(`["C","A"]`),
	})

	result, err := env.grading.GradeAttempt(context.Background(), attempt.ID)
	if err != nil {
		t.Fatalf("GradeAttempt: %v", err)
	}

	if result.TotalScore != 5 {
		t.Errorf("TotalScore = %d, want 5", result.TotalScore)
	}
	if result.MaxScore != 5 {
		t.Errorf("MaxScore = %d, want 5", result.MaxScore)
	}
	if !result.FullyGraded {
		t.Error("FullyGraded = false, want true for all-choice exam")
	}
	if len(result.Grades) != 2 {
		t.Fatalf("len(Grades) = %d, want 2", len(result.Grades))
	}

	stored := env.repo.attempts[attempt.ID]
	if stored.Status != models.AttemptStatusGraded {
		t.Errorf("status = %s, want graded", stored.Status)
	}
	if stored.EndTime == nil {
		t.Error("EndTime not set")
	}
	if stored.TotalScore != 5 {
		t.Errorf("stored TotalScore = %d, want 5", stored.TotalScore)
	}
}

func TestGradeAttemptWithManualQuestions(t *testing.T) {
	env := newTestEnv(t)
	single := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"A"}, 2)
	essay := env.seedQuestion(t, models.QuestionTypeText, nil, 5)
	exam := env.seedExam(single, essay)

	attempt := env.seedAttempt(exam, "student-1", map[string]json.RawMessage{
		single.ID.String(): raw(`"A"`),
		essay.ID.String():  raw(`"my essay"`),
	})

	result, err := env.grading.GradeAttempt(context.Background(), attempt.ID)
	if err != nil {
		t.Fatalf("GradeAttempt: %v", err)
	}

	if result.FullyGraded {
		t.Error("FullyGraded = true, want false with an ungraded essay")
	}
	if result.TotalScore != 2 {
		t.Errorf("TotalScore = %d, want 2", result.TotalScore)
	}

	stored := env.repo.attempts[attempt.ID]
	if stored.Status != models.AttemptStatusSubmitted {
		t.Errorf("status = %s, want submitted while the essay is ungraded", stored.Status)
	}

	answers, _ := env.repo.Answer().GetByAttempt(context.Background(), nil, attempt.ID)
	if len(answers) != 2 {
		t.Fatalf("len(answers) = %d, want one row per exam question", len(answers))
	}
	for _, answer := range answers {
		if answer.QuestionID == essay.ID {
			if answer.IsGraded() {
				t.Error("essay answer marked graded before manual review")
			}
			if answer.IsCorrect != nil {
				t.Error("essay correctness set before manual review")
			}
		}
	}
}

func TestGradeAttemptUnansweredQuestionsScoreZero(t *testing.T) {
	env := newTestEnv(t)
	q1 := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"A"}, 2)
	q2 := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"B"}, 2)
	exam := env.seedExam(q1, q2)

	attempt := env.seedAttempt(exam, "student-1", map[string]json.RawMessage{
		q1.ID.String(): raw(`"A"`),
	})

	result, err := env.grading.GradeAttempt(context.Background(), attempt.ID)
	if err != nil {
		t.Fatalf("GradeAttempt: %v", err)
	}

	if result.TotalScore != 2 {
		t.Errorf("TotalScore = %d, want 2", result.TotalScore)
	}
	if !result.FullyGraded {
		t.Error("unanswered choice question should still auto-grade")
	}

	answers, _ := env.repo.Answer().GetByAttempt(context.Background(), nil, attempt.ID)
	if len(answers) != 2 {
		t.Fatalf("len(answers) = %d, want 2", len(answers))
	}
}

func TestGradeAttemptNotInProgress(t *testing.T) {
	env := newTestEnv(t)
	question := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"A"}, 1)
	exam := env.seedExam(question)
	attempt := env.seedAttempt(exam, "student-1", nil)
	attempt.Status = models.AttemptStatusSubmitted

	_, err := env.grading.GradeAttempt(context.Background(), attempt.ID)
	if !errors.Is(err, ErrAttemptNotActive) {
		t.Errorf("err = %v, want ErrAttemptNotActive", err)
	}
}

// TestGradeAttemptRejectsDuplicateAnswerRows re-grades an attempt whose
// answer rows already exist, through reads that still report in_progress.
// The (attempt, question) unique index must stop the second
// materialization.
func TestGradeAttemptRejectsDuplicateAnswerRows(t *testing.T) {
	env := newTestEnv(t)
	question := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"A"}, 2)
	exam := env.seedExam(question)
	attempt := env.seedAttempt(exam, "student-1", map[string]json.RawMessage{
		question.ID.String(): raw(`"A"`),
	})

	if _, err := env.grading.GradeAttempt(context.Background(), attempt.ID); err != nil {
		t.Fatalf("first GradeAttempt: %v", err)
	}

	stale := NewGradingService(&staleReadRepository{Repository: env.repo}, testLogger(), env.validator, env.publisher)
	_, err := stale.GradeAttempt(context.Background(), attempt.ID)
	if !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("err = %v, want ErrAttemptNotActive", err)
	}

	count := 0
	for _, answer := range env.repo.answers {
		if answer.AttemptID == attempt.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("answer rows = %d, want 1 per question", count)
	}
	if env.repo.attempts[attempt.ID].TotalScore != 2 {
		t.Errorf("TotalScore = %d, want the first grading's 2", env.repo.attempts[attempt.ID].TotalScore)
	}
}

func TestGradeAttemptNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.grading.GradeAttempt(context.Background(), uuid.New())
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestManualGrade(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedTeacher("teacher-1")
	single := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"A"}, 2)
	essay := env.seedQuestion(t, models.QuestionTypeText, nil, 5)
	exam := env.seedExam(single, essay)

	attempt := env.seedAttempt(exam, "student-1", map[string]json.RawMessage{
		single.ID.String(): raw(`"A"`),
		essay.ID.String():  raw(`"my essay"`),
	})
	if _, err := env.grading.GradeAttempt(context.Background(), attempt.ID); err != nil {
		t.Fatalf("GradeAttempt: %v", err)
	}

	answers, _ := env.repo.Answer().GetByAttempt(context.Background(), nil, attempt.ID)
	var essayAnswer *models.Answer
	for _, answer := range answers {
		if answer.QuestionID == essay.ID {
			essayAnswer = answer
		}
	}
	if essayAnswer == nil {
		t.Fatal("no essay answer materialized")
	}

	err := env.grading.ManualGrade(context.Background(), essayAnswer.ID, teacher, ManualGradeRequest{
		Score:     4,
		IsCorrect: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("ManualGrade: %v", err)
	}

	stored := env.repo.attempts[attempt.ID]
	if stored.TotalScore != 6 {
		t.Errorf("TotalScore = %d, want 6 after manual grade", stored.TotalScore)
	}
	if stored.Status != models.AttemptStatusGraded {
		t.Errorf("status = %s, want graded once every answer is scored", stored.Status)
	}

	events := env.publisher.GetPublishedEvents()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1 graded event", len(events))
	}
	if events[0].TotalScore == nil || *events[0].TotalScore != 6 {
		t.Errorf("graded event total = %v, want 6", events[0].TotalScore)
	}
}

func TestManualGradeRejectsAutoGradable(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedTeacher("teacher-1")
	single := env.seedQuestion(t, models.QuestionTypeSingleChoice, []string{"A"}, 2)
	exam := env.seedExam(single)

	attempt := env.seedAttempt(exam, "student-1", map[string]json.RawMessage{
		single.ID.String(): raw(`"A"`),
	})
	if _, err := env.grading.GradeAttempt(context.Background(), attempt.ID); err != nil {
		t.Fatalf("GradeAttempt: %v", err)
	}

	answers, _ := env.repo.Answer().GetByAttempt(context.Background(), nil, attempt.ID)
	if len(answers) != 1 {
		t.Fatalf("len(answers) = %d, want 1", len(answers))
	}

	err := env.grading.ManualGrade(context.Background(), answers[0].ID, teacher, ManualGradeRequest{Score: 1})
	if !errors.Is(err, ErrGradingNotAllowed) {
		t.Errorf("err = %v, want ErrGradingNotAllowed", err)
	}
}

func TestManualGradeRejectsStudents(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent("student-1")

	err := env.grading.ManualGrade(context.Background(), uuid.New(), student, ManualGradeRequest{Score: 1})

	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Errorf("err = %v, want PermissionError", err)
	}
}

func TestManualGradeRejectsScoreAboveMax(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedTeacher("teacher-1")
	essay := env.seedQuestion(t, models.QuestionTypeText, nil, 5)
	exam := env.seedExam(essay)

	attempt := env.seedAttempt(exam, "student-1", map[string]json.RawMessage{
		essay.ID.String(): raw(`"essay"`),
	})
	if _, err := env.grading.GradeAttempt(context.Background(), attempt.ID); err != nil {
		t.Fatalf("GradeAttempt: %v", err)
	}

	answers, _ := env.repo.Answer().GetByAttempt(context.Background(), nil, attempt.ID)

	err := env.grading.ManualGrade(context.Background(), answers[0].ID, teacher, ManualGradeRequest{Score: 6})

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		t.Errorf("err = %v, want ValidationErrors for score above max", err)
	}
}

func assertCorrectness(t *testing.T, got, want *bool) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("isCorrect = %v, want %v", fmtBoolPtr(got), fmtBoolPtr(want))
	case *got != *want:
		t.Errorf("isCorrect = %v, want %v", *got, *want)
	}
}

func fmtBoolPtr(b *bool) interface{} {
	if b == nil {
		return "nil"
	}
	return *b
}
