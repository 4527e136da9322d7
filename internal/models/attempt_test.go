package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gorm.io/datatypes"
)

func TestAttemptStatusTransitions(t *testing.T) {
	tests := []struct {
		from    AttemptStatus
		to      AttemptStatus
		allowed bool
	}{
		{AttemptStatusInProgress, AttemptStatusSubmitted, true},
		{AttemptStatusInProgress, AttemptStatusGraded, true},
		{AttemptStatusSubmitted, AttemptStatusGraded, true},

		// The lifecycle never moves backwards
		{AttemptStatusSubmitted, AttemptStatusInProgress, false},
		{AttemptStatusGraded, AttemptStatusInProgress, false},
		{AttemptStatusGraded, AttemptStatusSubmitted, false},

		{AttemptStatusInProgress, AttemptStatusInProgress, false},
		{AttemptStatusGraded, AttemptStatusGraded, false},
		{AttemptStatusInProgress, AttemptStatus("archived"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestAttemptStatusIsTerminal(t *testing.T) {
	if AttemptStatusInProgress.IsTerminal() || AttemptStatusSubmitted.IsTerminal() {
		t.Error("only graded is terminal")
	}
	if !AttemptStatusGraded.IsTerminal() {
		t.Error("graded must be terminal")
	}
}

func TestAttemptIsActive(t *testing.T) {
	attempt := &ExamAttempt{Status: AttemptStatusInProgress}
	if !attempt.IsActive() {
		t.Error("in_progress attempt should be active")
	}

	for _, status := range []AttemptStatus{AttemptStatusSubmitted, AttemptStatusGraded} {
		attempt.Status = status
		if attempt.IsActive() {
			t.Errorf("%s attempt should not be active", status)
		}
	}
}

func TestSavedAnswers(t *testing.T) {
	attempt := &ExamAttempt{}

	saved, err := attempt.SavedAnswers()
	if err != nil {
		t.Fatalf("SavedAnswers on empty blob: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("len = %d, want empty map", len(saved))
	}

	attempt.AutoSavedAnswers = datatypes.JSON(`{"q1":"A","q2":["B","C"]}`)
	saved, err = attempt.SavedAnswers()
	if err != nil {
		t.Fatalf("SavedAnswers: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("len = %d, want 2", len(saved))
	}
	if string(saved["q1"]) != `"A"` {
		t.Errorf("q1 = %s, want \"A\"", saved["q1"])
	}

	var multi []string
	if err := json.Unmarshal(saved["q2"], &multi); err != nil || len(multi) != 2 {
		t.Errorf("q2 = %s, want a two-element list", saved["q2"])
	}

	attempt.AutoSavedAnswers = datatypes.JSON(`not json`)
	if _, err := attempt.SavedAnswers(); err == nil {
		t.Error("malformed blob should fail to decode")
	}
}

func TestAnswerIsGraded(t *testing.T) {
	answer := &Answer{}
	if answer.IsGraded() {
		t.Error("answer without GradedAt should not count as graded")
	}
}

func TestAnswerUniquePerAttemptAndQuestion(t *testing.T) {
	// One answer row per (attempt, question): both columns must share the
	// same composite unique index so the store enforces it.
	answerType := reflect.TypeOf(Answer{})

	indexFor := func(field string) string {
		t.Helper()
		f, ok := answerType.FieldByName(field)
		if !ok {
			t.Fatalf("Answer has no field %s", field)
		}
		for _, part := range strings.Split(f.Tag.Get("gorm"), ";") {
			if name, found := strings.CutPrefix(part, "uniqueIndex:"); found {
				return name
			}
		}
		t.Fatalf("%s carries no uniqueIndex tag", field)
		return ""
	}

	if a, q := indexFor("AttemptID"), indexFor("QuestionID"); a != q {
		t.Errorf("AttemptID index %q != QuestionID index %q", a, q)
	}
}
