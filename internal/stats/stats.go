// Package stats derives aggregate metrics from the todo collection.
package stats

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"todo-engine/internal/model"
	"todo-engine/internal/storage"
)

// HistoryDays is the length of the daily histogram.
const HistoryDays = 7

// DayCount is one day of the histogram.
type DayCount struct {
	Date      string `json:"date" example:"2026-02-12"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

// Statistics summarizes the non-deleted todos.
type Statistics struct {
	Total                  int                    `json:"total"`
	Active                 int                    `json:"active"`
	Completed              int                    `json:"completed"`
	Overdue                int                    `json:"overdue"`
	CompletedToday         int                    `json:"completed_today"`
	CompletedThisWeek      int                    `json:"completed_this_week"`
	CompletedThisMonth     int                    `json:"completed_this_month"`
	CompletionRate         int                    `json:"completion_rate" example:"50"`
	PriorityDistribution   map[model.Priority]int `json:"priority_distribution"`
	CategoryDistribution   map[string]int         `json:"category_distribution"`
	AverageCompletionHours float64                `json:"average_completion_hours"`
	Daily                  []DayCount             `json:"daily"`
	CurrentStreak          int                    `json:"current_streak"`
	LongestStreak          int                    `json:"longest_streak"`
	CalculatedAt           time.Time              `json:"calculated_at"`
}

// Calculate computes statistics over todos relative to now. Soft-deleted
// todos are ignored. Day boundaries are midnights in now's location and
// weeks start on Sunday.
func Calculate(todos []model.TodoItem, now time.Time) Statistics {
	today := model.StartOfDay(now)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	s := Statistics{
		PriorityDistribution: map[model.Priority]int{
			model.PriorityHigh:   0,
			model.PriorityMedium: 0,
			model.PriorityLow:    0,
		},
		CategoryDistribution: make(map[string]int),
		CalculatedAt:         now,
	}

	daily := make([]DayCount, HistoryDays)
	dayIndex := make(map[string]int, HistoryDays)
	for i := range daily {
		day := today.AddDate(0, 0, i-HistoryDays+1).Format(model.DateLayout)
		daily[i].Date = day
		dayIndex[day] = i
	}

	completionDays := make(map[string]bool)
	var totalHours float64

	for _, t := range todos {
		if t.IsDeleted {
			continue
		}
		s.Total++
		s.PriorityDistribution[t.Priority]++
		s.CategoryDistribution[t.Category]++
		if i, ok := dayIndex[t.CreatedAt.In(now.Location()).Format(model.DateLayout)]; ok {
			daily[i].Created++
		}

		if t.Status != model.StatusCompleted {
			s.Active++
			if t.IsOverdue(now) {
				s.Overdue++
			}
			continue
		}

		s.Completed++
		if t.CompletedAt == nil {
			continue
		}
		done := t.CompletedAt.In(now.Location())
		if !done.Before(today) {
			s.CompletedToday++
		}
		if !done.Before(weekStart) {
			s.CompletedThisWeek++
		}
		if !done.Before(monthStart) {
			s.CompletedThisMonth++
		}
		day := done.Format(model.DateLayout)
		completionDays[day] = true
		if i, ok := dayIndex[day]; ok {
			daily[i].Completed++
		}
		totalHours += done.Sub(t.CreatedAt).Hours()
	}

	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	if s.Completed > 0 {
		s.AverageCompletionHours = math.Round(totalHours/float64(s.Completed)*10) / 10
	}
	s.Daily = daily
	s.CurrentStreak, s.LongestStreak = streaks(completionDays, today)
	return s
}

// streaks returns the run of consecutive completion days ending today or
// yesterday, and the longest run overall.
func streaks(days map[string]bool, today time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	start := today
	if !days[start.Format(model.DateLayout)] {
		start = today.AddDate(0, 0, -1)
	}
	for d := start; days[d.Format(model.DateLayout)]; d = d.AddDate(0, 0, -1) {
		current++
	}

	sorted := make([]time.Time, 0, len(days))
	for day := range days {
		t, err := time.ParseInLocation(model.DateLayout, day, today.Location())
		if err == nil {
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return current, longest
}

// TodoLister supplies the collection to aggregate.
type TodoLister interface {
	GetAll(ctx context.Context, includeDeleted bool) ([]model.TodoItem, error)
}

// Service computes statistics on demand and keeps the latest snapshot under
// storage.KeyStatistics. The snapshot is a cache; it is never read back as
// a source of truth.
type Service struct {
	todos  TodoLister
	store  *storage.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service. store may be nil to skip caching.
func NewService(todos TodoLister, store *storage.Service, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{todos: todos, store: store, logger: logger, now: now}
}

// Calculate recomputes statistics from the current collection.
func (s *Service) Calculate(ctx context.Context) (Statistics, error) {
	todos, err := s.todos.GetAll(ctx, false)
	if err != nil {
		return Statistics{}, err
	}
	result := Calculate(todos, s.now())
	if s.store != nil {
		if err := s.store.Set(ctx, storage.KeyStatistics, result); err != nil {
			s.logger.Warn("failed to cache statistics", slog.String("error", err.Error()))
		}
	}
	return result, nil
}
