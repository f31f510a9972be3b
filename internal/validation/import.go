package validation

import (
	"strings"
	"time"

	"todo-engine/internal/model"
)

// ImportedTodo is a todo record read from an external file. Every field is
// optional except the title.
type ImportedTodo struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	DueDate     string     `json:"due_date"`
	DueTime     string     `json:"due_time"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	Order       *int64     `json:"order"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// ValidateImportedTodo checks raw and, when valid, returns it as a
// TodoItem with defaults filled in. The returned item has no id.
func ValidateImportedTodo(raw ImportedTodo, now time.Time) (model.TodoItem, Result) {
	r := newResult()
	checkTitle(&r, raw.Title)
	checkDescription(&r, raw.Description)

	status := model.Status(strings.ToLower(strings.TrimSpace(raw.Status)))
	if status == "" {
		status = model.StatusActive
	} else if !model.ValidStatuses[status] {
		r.add("status", CodeInvalidValue, "status must be one of: active, completed")
	}

	priority := model.Priority(strings.ToLower(strings.TrimSpace(raw.Priority)))
	if priority == "" {
		priority = model.PriorityMedium
	} else if !model.ValidPriorities[priority] {
		r.add("priority", CodeInvalidValue, "priority must be one of: high, medium, low")
	}

	checkTags(&r, raw.Tags)
	checkDueDate(&r, raw.DueDate)
	checkDueTime(&r, raw.DueTime)
	if !r.Valid {
		return model.TodoItem{}, r
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = model.DefaultCategoryID
	}

	item := model.TodoItem{
		Title:       strings.TrimSpace(raw.Title),
		Description: raw.Description,
		Status:      status,
		Priority:    priority,
		Category:    category,
		Tags:        append([]string{}, raw.Tags...),
		DueDate:     raw.DueDate,
		DueTime:     raw.DueTime,
		CreatedAt:   timeOr(raw.CreatedAt, now),
		IsDeleted:   raw.IsDeleted,
	}
	item.UpdatedAt = timeOr(raw.UpdatedAt, item.CreatedAt)
	if raw.Order != nil {
		item.Order = *raw.Order
	} else {
		item.Order = item.CreatedAt.UnixMilli()
	}
	if status == model.StatusCompleted {
		completed := timeOr(raw.CompletedAt, item.UpdatedAt)
		item.CompletedAt = &completed
	}
	if raw.IsDeleted {
		deleted := timeOr(raw.DeletedAt, now)
		item.DeletedAt = &deleted
	}
	return item, r
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return *t
}
