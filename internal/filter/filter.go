// Package filter narrows, orders and groups an in-memory todo collection.
// Every function is pure: inputs are never modified.
package filter

import (
	"strings"
	"time"

	"todo-engine/internal/model"
)

// Criteria selects todos. Empty fields do not filter. All set fields must
// match (logical AND); list fields match when any element matches.
type Criteria struct {
	Status     model.StatusFilter `json:"status,omitempty"`
	Priorities []model.Priority   `json:"priorities,omitempty"`
	Categories []string           `json:"categories,omitempty"`
	Tags       []string           `json:"tags,omitempty"`

	// DueFrom and DueTo bound the due date inclusively (YYYY-MM-DD).
	DueFrom string `json:"due_from,omitempty"`
	DueTo   string `json:"due_to,omitempty"`

	// HasNoDueDate admits todos without a due date when a due range is set.
	HasNoDueDate bool `json:"has_no_due_date,omitempty"`

	// OverdueOnly keeps only active todos whose due date has passed.
	OverdueOnly bool `json:"overdue_only,omitempty"`
}

// View is a todo annotated with values derived at query time.
type View struct {
	model.TodoItem
	Overdue bool `json:"overdue"`
}

// Annotate marks overdue todos relative to now.
func Annotate(todos []model.TodoItem, now time.Time) []View {
	out := make([]View, len(todos))
	for i, t := range todos {
		out[i] = View{TodoItem: t, Overdue: t.IsOverdue(now)}
	}
	return out
}

// Apply returns the todos matching c, in input order.
func Apply(todos []model.TodoItem, c Criteria, now time.Time) []model.TodoItem {
	out := make([]model.TodoItem, 0, len(todos))
	for _, t := range todos {
		if Matches(t, c, now) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether t satisfies every criterion in c.
func Matches(t model.TodoItem, c Criteria, now time.Time) bool {
	return matchStatus(t, c.Status) &&
		matchPriority(t, c.Priorities) &&
		matchCategory(t, c.Categories) &&
		matchTags(t, c.Tags) &&
		matchDue(t, c, now.Location()) &&
		(!c.OverdueOnly || t.IsOverdue(now))
}

func matchStatus(t model.TodoItem, status model.StatusFilter) bool {
	switch status {
	case model.FilterActive:
		return t.Status == model.StatusActive
	case model.FilterCompleted:
		return t.Status == model.StatusCompleted
	default:
		return true
	}
}

func matchPriority(t model.TodoItem, priorities []model.Priority) bool {
	if len(priorities) == 0 {
		return true
	}
	for _, p := range priorities {
		if t.Priority == p {
			return true
		}
	}
	return false
}

func matchCategory(t model.TodoItem, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if strings.EqualFold(t.Category, c) {
			return true
		}
	}
	return false
}

func matchTags(t model.TodoItem, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range t.Tags {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

func matchDue(t model.TodoItem, c Criteria, loc *time.Location) bool {
	if c.DueFrom == "" && c.DueTo == "" {
		return true
	}
	due, ok := t.Due(loc)
	if !ok {
		return c.HasNoDueDate
	}
	if c.DueFrom != "" {
		if from, err := time.ParseInLocation(model.DateLayout, c.DueFrom, loc); err == nil && due.Before(from) {
			return false
		}
	}
	if c.DueTo != "" {
		if to, err := time.ParseInLocation(model.DateLayout, c.DueTo, loc); err == nil && due.After(to) {
			return false
		}
	}
	return true
}
