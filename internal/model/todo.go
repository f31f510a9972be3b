package model

import "time"

// Status represents the lifecycle state of a TODO item.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = map[Status]bool{
	StatusActive:    true,
	StatusCompleted: true,
}

// Priority represents the urgency of a TODO item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriorities contains all valid priority values.
var ValidPriorities = map[Priority]bool{
	PriorityHigh:   true,
	PriorityMedium: true,
	PriorityLow:    true,
}

// Rank orders priorities from most to least urgent. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// DefaultCategoryID is the category assigned when none is given.
const DefaultCategoryID = "general"

// Field limits shared by validation and import.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxTags              = 3
	MaxTagLength         = 20
)

// Date and time layouts for due dates.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TodoItem is a single task tracked by the engine.
type TodoItem struct {
	ID          string     `json:"id" example:"5f0c1d8e-7a43-4d8e-9a51-0b7a2d1f4c11"`
	Title       string     `json:"title" example:"Buy groceries"`
	Description string     `json:"description,omitempty" example:"Milk, eggs, bread"`
	Status      Status     `json:"status" example:"active" enum:"active,completed"`
	Priority    Priority   `json:"priority" example:"medium" enum:"high,medium,low"`
	Category    string     `json:"category" example:"general"`
	Tags        []string   `json:"tags"`
	DueDate     string     `json:"due_date,omitempty" example:"2026-02-14"`
	DueTime     string     `json:"due_time,omitempty" example:"09:30"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Order       int64      `json:"order"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// IsCompleted reports whether the item is in the completed state.
func (t TodoItem) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// Due returns the due date at local midnight in loc.
func (t TodoItem) Due(loc *time.Location) (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// IsOverdue reports whether an active item's due date lies before the day of now.
func (t TodoItem) IsOverdue(now time.Time) bool {
	if t.Status != StatusActive {
		return false
	}
	due, ok := t.Due(now.Location())
	if !ok {
		return false
	}
	return due.Before(StartOfDay(now))
}

// Clone returns a copy that shares no slices or pointers with t.
func (t TodoItem) Clone() TodoItem {
	c := t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.DeletedAt != nil {
		v := *t.DeletedAt
		c.DeletedAt = &v
	}
	return c
}

// StartOfDay returns local midnight of the day containing ts.
func StartOfDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}

// CreateTodoRequest is the payload for creating a new TODO.
type CreateTodoRequest struct {
	Title       string   `json:"title" example:"Buy groceries"`
	Description string   `json:"description,omitempty" example:"Milk, eggs, bread"`
	Priority    Priority `json:"priority,omitempty" example:"medium" enum:"high,medium,low"`
	Category    string   `json:"category,omitempty" example:"general"`
	Tags        []string `json:"tags,omitempty"`
	DueDate     string   `json:"due_date,omitempty" example:"2026-02-14"`
	DueTime     string   `json:"due_time,omitempty" example:"09:30"`
}

// UpdateTodoRequest is the payload for updating a TODO. All fields are optional.
// A nil Tags slice leaves tags unchanged; an empty one clears them.
type UpdateTodoRequest struct {
	Title       *string   `json:"title,omitempty" example:"Buy groceries"`
	Description *string   `json:"description,omitempty" example:"Milk, eggs, bread, butter"`
	Status      *Status   `json:"status,omitempty" example:"completed" enum:"active,completed"`
	Priority    *Priority `json:"priority,omitempty" example:"high" enum:"high,medium,low"`
	Category    *string   `json:"category,omitempty" example:"work"`
	Tags        []string  `json:"tags,omitempty"`
	DueDate     *string   `json:"due_date,omitempty" example:"2026-02-14"`
	DueTime     *string   `json:"due_time,omitempty" example:"09:30"`
}

// IsEmpty reports whether the update carries no fields.
func (u UpdateTodoRequest) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.Priority == nil &&
		u.Category == nil && u.Tags == nil && u.DueDate == nil && u.DueTime == nil
}

// TodoListResponse wraps a list of todos.
type TodoListResponse struct {
	Todos []TodoItem `json:"todos"`
	Count int        `json:"count" example:"5"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error" example:"not found"`
	Message string `json:"message,omitempty" example:"todo with id 42 not found"`
}
