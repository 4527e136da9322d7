package validator

import (
	"fmt"
	"strings"
)

// ValidationError describes a single invalid field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates field errors for one request
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Errors))
	for i, fieldErr := range e.Errors {
		msgs[i] = fieldErr.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a field error
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	e.Errors = append(e.Errors, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors reports whether any field failed
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}
