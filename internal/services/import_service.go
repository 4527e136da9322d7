package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
)

// requiredImportColumns must all appear in the workbook header row
var requiredImportColumns = []string{"title", "complexity", "type"}

type importService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewImportService(repo repositories.Repository, logger *slog.Logger) ImportService {
	return &importService{
		repo:   repo,
		logger: logger,
	}
}

// ImportQuestions parses an .xlsx workbook and inserts every question it
// contains. The import is all-or-nothing: any malformed row aborts the
// whole batch with the row number in the error.
func (s *importService) ImportQuestions(ctx context.Context, r io.Reader, filename string, createdBy string) (*ImportResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return nil, NewImportError(0, "only .xlsx files are supported")
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewImportError(0, "failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewImportError(0, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, NewImportError(0, "failed to read sheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, NewImportError(0, "workbook is empty")
	}

	columns, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}

	questions := make([]*models.Question, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		if isEmptyRow(row) {
			continue
		}

		question, err := parseQuestionRow(columns, row, createdBy)
		if err != nil {
			return nil, &ImportError{Row: rowNum, Err: err}
		}
		questions = append(questions, question)
	}

	if len(questions) == 0 {
		return nil, NewImportError(0, "workbook contains no question rows")
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		return txRepo.Question().CreateBatch(ctx, nil, questions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store imported questions: %w", err)
	}

	s.logger.Info("questions imported",
		"count", len(questions),
		"filename", filename,
		"created_by", createdBy)

	return &ImportResult{Imported: len(questions)}, nil
}

// parseHeader maps lowercased column names to their index and checks the
// required columns are present.
func parseHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}

	var missing []string
	for _, required := range requiredImportColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &ImportError{Row: 1, Err: fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))}
	}

	return columns, nil
}

func parseQuestionRow(columns map[string]int, row []string, createdBy string) (*models.Question, error) {
	title := strings.TrimSpace(cellValue(columns, row, "title"))
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	complexity := strings.TrimSpace(cellValue(columns, row, "complexity"))
	if complexity == "" {
		return nil, fmt.Errorf("complexity is required")
	}

	questionType, err := models.ParseQuestionType(strings.TrimSpace(cellValue(columns, row, "type")))
	if err != nil {
		return nil, err
	}

	maxScore, err := parseMaxScore(cellValue(columns, row, "max_score"))
	if err != nil {
		return nil, err
	}

	var options, correctAnswers []string
	if questionType.IsChoice() {
		options = parseStringList(cellValue(columns, row, "options"))
		correctAnswers = parseStringList(cellValue(columns, row, "correct_answers"))
	}

	optionsJSON, err := models.StringArrayJSON(options)
	if err != nil {
		return nil, err
	}
	correctJSON, err := models.StringArrayJSON(correctAnswers)
	if err != nil {
		return nil, err
	}
	tagsJSON, err := models.StringArrayJSON(parseTags(cellValue(columns, row, "tags")))
	if err != nil {
		return nil, err
	}

	return &models.Question{
		Title:          title,
		Description:    strings.TrimSpace(cellValue(columns, row, "description")),
		Complexity:     complexity,
		Type:           questionType,
		Options:        optionsJSON,
		CorrectAnswers: correctJSON,
		MaxScore:       maxScore,
		Tags:           tagsJSON,
		CreatedBy:      createdBy,
	}, nil
}

func cellValue(columns map[string]int, row []string, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseMaxScore parses the max score cell, defaulting to 1 when empty.
// Spreadsheet tools often render integers as floats, so "2.0" is accepted.
func parseMaxScore(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 1, nil
	}

	if value, err := strconv.Atoi(cell); err == nil {
		if value <= 0 {
			return 0, fmt.Errorf("max_score must be positive, got %d", value)
		}
		return value, nil
	}

	if value, err := strconv.ParseFloat(cell, 64); err == nil {
		score := int(value)
		if score <= 0 || float64(score) != value {
			return 0, fmt.Errorf("invalid max_score %q", cell)
		}
		return score, nil
	}

	return 0, fmt.Errorf("invalid max_score %q", cell)
}

// parseStringList accepts either a JSON string array or a plain cell
// value. Non-JSON cells fall back to comma splitting, and a bare value
// becomes a single-element list.
func parseStringList(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return []string{}
	}

	var values []string
	if err := json.Unmarshal([]byte(cell), &values); err == nil {
		return values
	}

	if strings.Contains(cell, ",") {
		parts := strings.Split(cell, ",")
		values = make([]string, 0, len(parts))
		for _, part := range parts {
			values = append(values, strings.TrimSpace(part))
		}
		return values
	}

	return []string{cell}
}

func parseTags(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return []string{}
	}

	parts := strings.Split(cell, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
