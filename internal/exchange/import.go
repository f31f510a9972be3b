package exchange

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"todo-engine/internal/model"
	"todo-engine/internal/validation"
)

// RowError reports why one record was not imported. Row 0 refers to the
// file as a whole.
type RowError struct {
	Row     int    `json:"row" example:"2"`
	Field   string `json:"field,omitempty" example:"title"`
	Message string `json:"message" example:"title is required"`
}

// ImportResult summarizes an import. It is returned even when nothing
// could be imported.
type ImportResult struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
}

func (r *ImportResult) fail(row int, res validation.Result) {
	r.Failed++
	for _, e := range res.Errors {
		r.Errors = append(r.Errors, RowError{Row: row, Field: e.Field, Message: e.Message})
	}
}

func parseFailure(err error) ImportResult {
	return ImportResult{Errors: []RowError{{Row: 0, Message: err.Error()}}}
}

// ParseJSON reads an export envelope or a bare array of todos. Records are
// numbered from 1.
func ParseJSON(data []byte, now time.Time) ([]model.TodoItem, ImportResult) {
	records, err := jsonRecords(data)
	if err != nil {
		return nil, parseFailure(err)
	}

	result := ImportResult{Errors: []RowError{}}
	items := make([]model.TodoItem, 0, len(records))
	for i, rec := range records {
		row := i + 1
		var raw validation.ImportedTodo
		if err := json.Unmarshal(rec, &raw); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: row, Message: fmt.Sprintf("invalid record: %v", err)})
			continue
		}
		item, res := validation.ValidateImportedTodo(raw, now)
		if !res.Valid {
			result.fail(row, res)
			continue
		}
		items = append(items, item)
	}
	return items, result
}

func jsonRecords(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("file is empty")
	}
	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return records, nil
	}
	var envelope struct {
		Todos []json.RawMessage `json:"todos"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if envelope.Todos == nil {
		return nil, errors.New("invalid JSON: missing todos array")
	}
	return envelope.Todos, nil
}

// ParseCSV reads a CSV file whose first row names the columns (see
// CSVHeader; matching is case-insensitive and order-free). Data rows are
// numbered from 1.
func ParseCSV(data []byte, now time.Time) ([]model.TodoItem, ImportResult) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, parseFailure(errors.New("file is empty"))
	}
	if err != nil {
		return nil, parseFailure(fmt.Errorf("invalid CSV: %w", err))
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := columns["title"]; !ok {
		return nil, parseFailure(errors.New("invalid CSV: missing Title column"))
	}

	result := ImportResult{Errors: []RowError{}}
	var items []model.TodoItem
	for row := 1; ; row++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: row, Message: fmt.Sprintf("invalid CSV row: %v", err)})
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}

		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		raw := validation.ImportedTodo{
			Title:       cell("title"),
			Description: cell("description"),
			Status:      cell("status"),
			Priority:    cell("priority"),
			Category:    cell("category"),
			Tags:        splitTags(cell("tags")),
			DueDate:     cell("due date"),
		}
		var res validation.Result
		res.Valid = true
		raw.CreatedAt = parseTimestamp(cell("created at"), "created_at", &res)
		raw.CompletedAt = parseTimestamp(cell("completed at"), "completed_at", &res)
		if !res.Valid {
			result.fail(row, res)
			continue
		}

		item, res := validation.ValidateImportedTodo(raw, now)
		if !res.Valid {
			result.fail(row, res)
			continue
		}
		items = append(items, item)
	}
	return items, result
}

func splitTags(cell string) []string {
	if cell == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(cell, TagSeparator) {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func parseTimestamp(value, field string, res *validation.Result) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", model.DateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	res.Valid = false
	res.Errors = append(res.Errors, validation.FieldError{
		Field:   field,
		Code:    validation.CodeInvalidDate,
		Message: fmt.Sprintf("%s must be a valid timestamp", field),
	})
	return nil
}
