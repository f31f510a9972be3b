package filter

import (
	"time"

	"todo-engine/internal/model"
)

// Date bucket keys, in presentation order.
const (
	BucketOverdue  = "overdue"
	BucketToday    = "today"
	BucketTomorrow = "tomorrow"
	BucketThisWeek = "this_week"
	BucketLater    = "later"
	BucketNoDate   = "no_date"
)

var bucketLabels = map[string]string{
	BucketOverdue:  "Overdue",
	BucketToday:    "Today",
	BucketTomorrow: "Tomorrow",
	BucketThisWeek: "This Week",
	BucketLater:    "Later",
	BucketNoDate:   "No Date",
}

// Group is a labelled partition of todos.
type Group struct {
	Key   string           `json:"key" example:"today"`
	Label string           `json:"label" example:"Today"`
	Todos []model.TodoItem `json:"todos"`
}

// grouper collects groups in preset order, then first-seen order.
type grouper struct {
	order  []string
	known  map[string]bool
	labels map[string]string
	items  map[string][]model.TodoItem
}

func newGrouper(preset []string, labels map[string]string) *grouper {
	g := &grouper{known: make(map[string]bool), labels: labels, items: make(map[string][]model.TodoItem)}
	for _, key := range preset {
		g.order = append(g.order, key)
		g.known[key] = true
	}
	return g
}

func (g *grouper) add(key string, t model.TodoItem) {
	if !g.known[key] {
		g.known[key] = true
		g.order = append(g.order, key)
	}
	g.items[key] = append(g.items[key], t)
}

// groups returns non-empty groups in order.
func (g *grouper) groups() []Group {
	out := make([]Group, 0, len(g.order))
	for _, key := range g.order {
		items := g.items[key]
		if len(items) == 0 {
			continue
		}
		label := g.labels[key]
		if label == "" {
			label = key
		}
		out = append(out, Group{Key: key, Label: label, Todos: items})
	}
	return out
}

// ByCategory groups todos by category id in order of first appearance.
// names maps category ids to display names; missing ids use the id.
func ByCategory(todos []model.TodoItem, names map[string]string) []Group {
	g := newGrouper(nil, names)
	for _, t := range todos {
		g.add(t.Category, t)
	}
	return g.groups()
}

// ByPriority groups todos from high to low priority.
func ByPriority(todos []model.TodoItem) []Group {
	g := newGrouper(
		[]string{string(model.PriorityHigh), string(model.PriorityMedium), string(model.PriorityLow)},
		map[string]string{
			string(model.PriorityHigh):   "High",
			string(model.PriorityMedium): "Medium",
			string(model.PriorityLow):    "Low",
		},
	)
	for _, t := range todos {
		g.add(string(t.Priority), t)
	}
	return g.groups()
}

// ByDate groups todos into due-date buckets relative to now. This Week
// covers the five days after tomorrow.
func ByDate(todos []model.TodoItem, now time.Time) []Group {
	g := newGrouper(
		[]string{BucketOverdue, BucketToday, BucketTomorrow, BucketThisWeek, BucketLater, BucketNoDate},
		bucketLabels,
	)
	for _, t := range todos {
		g.add(DateBucket(t, now), t)
	}
	return g.groups()
}

// DateBucket returns the ByDate bucket key for t.
func DateBucket(t model.TodoItem, now time.Time) string {
	due, ok := t.Due(now.Location())
	if !ok {
		return BucketNoDate
	}
	today := model.StartOfDay(now)
	switch {
	case due.Before(today):
		return BucketOverdue
	case due.Equal(today):
		return BucketToday
	case due.Equal(today.AddDate(0, 0, 1)):
		return BucketTomorrow
	case due.Before(today.AddDate(0, 0, 7)):
		return BucketThisWeek
	default:
		return BucketLater
	}
}
