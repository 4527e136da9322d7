package services

import (
	"bytes"
	"encoding/json"

	"github.com/Al-amen/exam-system/internal/models"
)

var jsonNull = []byte("null")

// isEmptyAnswer reports whether the submitted value counts as no answer
func isEmptyAnswer(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		return true
	}
	// Empty string and empty list also count as unanswered
	if bytes.Equal(trimmed, []byte(`""`)) || bytes.Equal(trimmed, []byte(`[]`)) {
		return true
	}
	return false
}

func decodeString(raw json.RawMessage) (string, bool) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

func decodeStringList(raw json.RawMessage) ([]string, bool) {
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	return values, true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// stringSetsEqual compares two slices as sets: order and duplicates are
// ignored, membership must match exactly.
func stringSetsEqual(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}

	if len(setA) != len(setB) {
		return false
	}
	for s := range setA {
		if _, ok := setB[s]; !ok {
			return false
		}
	}
	return true
}

func questionMaxScore(q *models.Question) int {
	if q.MaxScore <= 0 {
		return 1
	}
	return q.MaxScore
}

func boolPtr(b bool) *bool {
	return &b
}
