// Package validation checks todo input. Create and update are strict;
// import is lenient and backfills missing optional fields.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"todo-engine/internal/model"
)

// Error codes reported in FieldError.Code.
const (
	CodeRequired      = "required"
	CodeTooLong       = "too_long"
	CodeTooMany       = "too_many"
	CodeInvalidFormat = "invalid_format"
	CodeInvalidValue  = "invalid_value"
	CodeInvalidDate   = "invalid_date"
)

var (
	tagPattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	markupPattern = regexp.MustCompile(`<[^>]*>`)
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field" example:"title"`
	Message string `json:"message" example:"title is required"`
	Code    string `json:"code" example:"required"`
}

// Result collects the outcome of a validation.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

func (r *Result) add(field, code, format string, args ...any) {
	r.Errors = append(r.Errors, FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	r.Valid = false
}

// Error joins the messages of every field error.
func (r Result) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field has an error.
func (r Result) Has(field string) bool {
	for _, e := range r.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

func newResult() Result {
	return Result{Valid: true}
}

// ValidateCreate checks a create request.
func ValidateCreate(req model.CreateTodoRequest) Result {
	r := newResult()
	checkTitle(&r, req.Title)
	checkDescription(&r, req.Description)
	if req.Priority != "" && !model.ValidPriorities[req.Priority] {
		r.add("priority", CodeInvalidValue, "priority must be one of: high, medium, low")
	}
	checkTags(&r, req.Tags)
	checkDueDate(&r, req.DueDate)
	checkDueTime(&r, req.DueTime)
	return r
}

// ValidateUpdate checks an update request. Absent fields are not checked;
// a present title must still be non-empty.
func ValidateUpdate(req model.UpdateTodoRequest) Result {
	r := newResult()
	if req.Title != nil {
		checkTitle(&r, *req.Title)
	}
	if req.Description != nil {
		checkDescription(&r, *req.Description)
	}
	if req.Status != nil && !model.ValidStatuses[*req.Status] {
		r.add("status", CodeInvalidValue, "status must be one of: active, completed")
	}
	if req.Priority != nil && !model.ValidPriorities[*req.Priority] {
		r.add("priority", CodeInvalidValue, "priority must be one of: high, medium, low")
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) == "" {
		r.add("category", CodeRequired, "category cannot be empty")
	}
	checkTags(&r, req.Tags)
	if req.DueDate != nil {
		checkDueDate(&r, *req.DueDate)
	}
	if req.DueTime != nil {
		checkDueTime(&r, *req.DueTime)
	}
	return r
}

func checkTitle(r *Result, title string) {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		r.add("title", CodeRequired, "title is required")
	case utf8.RuneCountInString(title) > model.MaxTitleLength:
		r.add("title", CodeTooLong, "title must be at most %d characters", model.MaxTitleLength)
	case markupPattern.MatchString(title):
		r.add("title", CodeInvalidFormat, "title must not contain markup")
	}
}

func checkDescription(r *Result, description string) {
	if utf8.RuneCountInString(description) > model.MaxDescriptionLength {
		r.add("description", CodeTooLong, "description must be at most %d characters", model.MaxDescriptionLength)
	}
}

func checkTags(r *Result, tags []string) {
	if len(tags) > model.MaxTags {
		r.add("tags", CodeTooMany, "at most %d tags are allowed", model.MaxTags)
	}
	for _, tag := range tags {
		switch {
		case utf8.RuneCountInString(tag) > model.MaxTagLength:
			r.add("tags", CodeTooLong, "tag %q must be at most %d characters", tag, model.MaxTagLength)
		case !tagPattern.MatchString(tag):
			r.add("tags", CodeInvalidFormat, "tag %q may only contain letters, digits, dashes and underscores", tag)
		}
	}
}

func checkDueDate(r *Result, date string) {
	if date == "" {
		return
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		r.add("due_date", CodeInvalidDate, "due_date must be a valid date (YYYY-MM-DD)")
	}
}

func checkDueTime(r *Result, clock string) {
	if clock == "" {
		return
	}
	if _, err := time.Parse(model.TimeLayout, clock); err != nil {
		r.add("due_time", CodeInvalidDate, "due_time must be a valid time (HH:MM)")
	}
}
