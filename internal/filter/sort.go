package filter

import (
	"cmp"
	"slices"
	"strings"

	"todo-engine/internal/model"
)

// Sort returns a stably sorted copy of todos. Todos without a due date sort
// after those with one when sorting by due date, in either direction.
// Descending priority puts high first.
func Sort(todos []model.TodoItem, opt model.SortOption) []model.TodoItem {
	out := slices.Clone(todos)
	desc := opt.Direction == model.SortDesc

	if opt.Field == model.SortDueDate {
		slices.SortStableFunc(out, func(a, b model.TodoItem) int {
			switch {
			case a.DueDate == "" && b.DueDate == "":
				return 0
			case a.DueDate == "":
				return 1
			case b.DueDate == "":
				return -1
			}
			c := cmp.Compare(a.DueDate+" "+a.DueTime, b.DueDate+" "+b.DueTime)
			if desc {
				return -c
			}
			return c
		})
		return out
	}

	compare := comparator(opt.Field)
	slices.SortStableFunc(out, func(a, b model.TodoItem) int {
		c := compare(a, b)
		if desc {
			return -c
		}
		return c
	})
	return out
}

func comparator(field model.SortField) func(a, b model.TodoItem) int {
	switch field {
	case model.SortUpdatedAt:
		return func(a, b model.TodoItem) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	case model.SortPriority:
		// Ascending runs low to high urgency.
		return func(a, b model.TodoItem) int { return cmp.Compare(b.Priority.Rank(), a.Priority.Rank()) }
	case model.SortTitle:
		return func(a, b model.TodoItem) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case model.SortCategory:
		return func(a, b model.TodoItem) int {
			return cmp.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		}
	case model.SortStatus:
		return func(a, b model.TodoItem) int { return cmp.Compare(statusRank(a.Status), statusRank(b.Status)) }
	case model.SortCustom:
		return func(a, b model.TodoItem) int { return cmp.Compare(a.Order, b.Order) }
	default:
		return func(a, b model.TodoItem) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

func statusRank(s model.Status) int {
	if s == model.StatusActive {
		return 0
	}
	return 1
}
