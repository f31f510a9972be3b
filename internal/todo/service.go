// Package todo implements the todo lifecycle over the persisted collection.
//
// Every mutation is a read-modify-write of the whole collection stored under
// storage.KeyTodos. Mutations are serialized within the process.
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"todo-engine/internal/model"
	"todo-engine/internal/storage"
	"todo-engine/internal/validation"
)

// ErrNotFound is returned when an operation targets an unknown id.
var ErrNotFound = errors.New("todo not found")

// DefaultCleanupDays is the retention used when Cleanup gets a non-positive age.
const DefaultCleanupDays = 30

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// Service owns id generation, timestamps and state transitions of todos.
type Service struct {
	store  *storage.Service
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

// NewService creates a Service persisting through store.
func NewService(store *storage.Service, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) load(ctx context.Context) ([]model.TodoItem, error) {
	var todos []model.TodoItem
	if _, err := s.store.Get(ctx, storage.KeyTodos, &todos); err != nil {
		return nil, fmt.Errorf("load todos: %w", err)
	}
	return todos, nil
}

func (s *Service) save(ctx context.Context, todos []model.TodoItem) error {
	if todos == nil {
		todos = []model.TodoItem{}
	}
	if err := s.store.Set(ctx, storage.KeyTodos, todos); err != nil {
		return fmt.Errorf("save todos: %w", err)
	}
	return nil
}

func indexOf(todos []model.TodoItem, id string) int {
	for i := range todos {
		if todos[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// uniqueID draws ids until one is unused by any todo, deleted or not.
func (s *Service) uniqueID(taken map[string]bool) string {
	for {
		id := s.newID()
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}

func takenIDs(todos []model.TodoItem) map[string]bool {
	taken := make(map[string]bool, len(todos))
	for _, t := range todos {
		taken[t.ID] = true
	}
	return taken
}

// nextOrder returns an order value at least now in milliseconds and above
// every existing order.
func nextOrder(todos []model.TodoItem, now time.Time) int64 {
	order := now.UnixMilli()
	for _, t := range todos {
		if t.Order >= order {
			order = t.Order + 1
		}
	}
	return order
}

// GetAll returns todos, excluding soft-deleted ones unless includeDeleted.
func (s *Service) GetAll(ctx context.Context, includeDeleted bool) ([]model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.TodoItem, 0, len(todos))
	for _, t := range todos {
		if t.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// GetByID returns a todo by id, including soft-deleted ones.
func (s *Service) GetByID(ctx context.Context, id string) (model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return model.TodoItem{}, err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return model.TodoItem{}, notFound(id)
	}
	return todos[i], nil
}

// CountByCategory counts todos, deleted or not, assigned to category.
func (s *Service) CountByCategory(ctx context.Context, category string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range todos {
		if strings.EqualFold(t.Category, category) {
			n++
		}
	}
	return n, nil
}

// Create validates req and appends a new active todo. An invalid request
// returns the validation result and no error.
func (s *Service) Create(ctx context.Context, req model.CreateTodoRequest) (model.TodoItem, validation.Result, error) {
	res := validation.ValidateCreate(req)
	if !res.Valid {
		return model.TodoItem{}, res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return model.TodoItem{}, res, err
	}

	now := s.now()
	item := model.TodoItem{
		ID:          s.uniqueID(takenIDs(todos)),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      model.StatusActive,
		Priority:    req.Priority,
		Category:    strings.TrimSpace(req.Category),
		Tags:        append([]string{}, req.Tags...),
		DueDate:     req.DueDate,
		DueTime:     req.DueTime,
		CreatedAt:   now,
		UpdatedAt:   now,
		Order:       nextOrder(todos, now),
	}
	if item.Priority == "" {
		item.Priority = model.PriorityMedium
	}
	if item.Category == "" {
		item.Category = model.DefaultCategoryID
	}

	if err := s.save(ctx, append(todos, item)); err != nil {
		return model.TodoItem{}, res, err
	}
	s.logger.Info("todo created", slog.String("id", item.ID))
	return item, res, nil
}

// applyUpdate merges req into t and stamps it.
func applyUpdate(t *model.TodoItem, req model.UpdateTodoRequest, now time.Time) {
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.Category != nil {
		t.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tags != nil {
		t.Tags = append([]string{}, req.Tags...)
	}
	if req.DueDate != nil {
		t.DueDate = *req.DueDate
	}
	if req.DueTime != nil {
		t.DueTime = *req.DueTime
	}
	if req.Status != nil {
		setStatus(t, *req.Status, now)
	}
	t.UpdatedAt = now
}

// setStatus keeps CompletedAt present exactly when the status is completed.
func setStatus(t *model.TodoItem, status model.Status, now time.Time) {
	switch status {
	case model.StatusCompleted:
		if t.Status != model.StatusCompleted || t.CompletedAt == nil {
			completed := now
			t.CompletedAt = &completed
		}
	default:
		t.CompletedAt = nil
	}
	t.Status = status
}

// Update merges req into the todo with id.
func (s *Service) Update(ctx context.Context, id string, req model.UpdateTodoRequest) (model.TodoItem, validation.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return model.TodoItem{}, validation.Result{}, err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return model.TodoItem{}, validation.Result{}, notFound(id)
	}

	res := validation.ValidateUpdate(req)
	if !res.Valid {
		return model.TodoItem{}, res, nil
	}

	applyUpdate(&todos[i], req, s.now())
	if err := s.save(ctx, todos); err != nil {
		return model.TodoItem{}, res, err
	}
	s.logger.Info("todo updated", slog.String("id", id))
	return todos[i], res, nil
}

// ToggleComplete flips a todo between active and completed.
func (s *Service) ToggleComplete(ctx context.Context, id string) (model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return model.TodoItem{}, err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return model.TodoItem{}, notFound(id)
	}

	now := s.now()
	next := model.StatusCompleted
	if todos[i].Status == model.StatusCompleted {
		next = model.StatusActive
	}
	setStatus(&todos[i], next, now)
	todos[i].UpdatedAt = now

	if err := s.save(ctx, todos); err != nil {
		return model.TodoItem{}, err
	}
	s.logger.Info("todo toggled", slog.String("id", id), slog.String("status", string(next)))
	return todos[i], nil
}

// Delete soft-deletes a todo, or removes it entirely when permanent.
func (s *Service) Delete(ctx context.Context, id string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return notFound(id)
	}

	if permanent {
		todos = append(todos[:i], todos[i+1:]...)
	} else {
		softDelete(&todos[i], s.now())
	}
	if err := s.save(ctx, todos); err != nil {
		return err
	}
	s.logger.Info("todo deleted", slog.String("id", id), slog.Bool("permanent", permanent))
	return nil
}

func softDelete(t *model.TodoItem, now time.Time) {
	deleted := now
	t.IsDeleted = true
	t.DeletedAt = &deleted
	t.UpdatedAt = now
}

// Restore clears the soft-delete marker. The status is left as it was.
func (s *Service) Restore(ctx context.Context, id string) (model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return model.TodoItem{}, err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return model.TodoItem{}, notFound(id)
	}

	todos[i].IsDeleted = false
	todos[i].DeletedAt = nil
	todos[i].UpdatedAt = s.now()
	if err := s.save(ctx, todos); err != nil {
		return model.TodoItem{}, err
	}
	s.logger.Info("todo restored", slog.String("id", id))
	return todos[i], nil
}

// Duplicate copies a todo into a new active item.
func (s *Service) Duplicate(ctx context.Context, id string) (model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return model.TodoItem{}, err
	}
	i := indexOf(todos, id)
	if i < 0 {
		return model.TodoItem{}, notFound(id)
	}

	now := s.now()
	dup := todos[i].Clone()
	dup.ID = s.uniqueID(takenIDs(todos))
	dup.Title = copyTitle(dup.Title)
	dup.Status = model.StatusActive
	dup.CompletedAt = nil
	dup.IsDeleted = false
	dup.DeletedAt = nil
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.Order = nextOrder(todos, now)

	if err := s.save(ctx, append(todos, dup)); err != nil {
		return model.TodoItem{}, err
	}
	s.logger.Info("todo duplicated", slog.String("id", id), slog.String("copy", dup.ID))
	return dup, nil
}

func copyTitle(title string) string {
	const suffix = " (copy)"
	runes := []rune(title)
	if limit := model.MaxTitleLength - len(suffix); len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + suffix
}

// BulkUpdate applies req to every todo whose id is listed, in one write.
// Unknown ids are skipped.
func (s *Service) BulkUpdate(ctx context.Context, ids []string, req model.UpdateTodoRequest) ([]model.TodoItem, validation.Result, error) {
	res := validation.ValidateUpdate(req)
	if !res.Valid {
		return nil, res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return nil, res, err
	}

	wanted := toSet(ids)
	now := s.now()
	var updated []model.TodoItem
	for i := range todos {
		if !wanted[todos[i].ID] {
			continue
		}
		applyUpdate(&todos[i], req, now)
		updated = append(updated, todos[i])
	}
	if len(updated) == 0 {
		return []model.TodoItem{}, res, nil
	}

	if err := s.save(ctx, todos); err != nil {
		return nil, res, err
	}
	s.logger.Info("todos bulk updated", slog.Int("count", len(updated)))
	return updated, res, nil
}

// BulkToggle marks every listed todo completed or active.
func (s *Service) BulkToggle(ctx context.Context, ids []string, completed bool) ([]model.TodoItem, error) {
	status := model.StatusActive
	if completed {
		status = model.StatusCompleted
	}
	updated, _, err := s.BulkUpdate(ctx, ids, model.UpdateTodoRequest{Status: &status})
	return updated, err
}

// BulkDelete deletes every listed todo in one write and returns how many matched.
func (s *Service) BulkDelete(ctx context.Context, ids []string, permanent bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	wanted := toSet(ids)
	now := s.now()
	kept := todos[:0]
	count := 0
	for _, t := range todos {
		if !wanted[t.ID] {
			kept = append(kept, t)
			continue
		}
		count++
		if permanent {
			continue
		}
		softDelete(&t, now)
		kept = append(kept, t)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.save(ctx, kept); err != nil {
		return 0, err
	}
	s.logger.Info("todos bulk deleted", slog.Int("count", count), slog.Bool("permanent", permanent))
	return count, nil
}

// Reorder sets the order of each listed todo to its position in ids.
// Todos not listed keep their order.
func (s *Service) Reorder(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return err
	}

	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}
	now := s.now()
	moved := 0
	for i := range todos {
		pos, ok := position[todos[i].ID]
		if !ok {
			continue
		}
		todos[i].Order = int64(pos)
		todos[i].UpdatedAt = now
		moved++
	}
	if moved == 0 {
		return nil
	}

	if err := s.save(ctx, todos); err != nil {
		return err
	}
	s.logger.Info("todos reordered", slog.Int("count", moved))
	return nil
}

// Cleanup permanently removes completed todos finished more than daysOld
// days ago and returns how many were removed. Active todos are never touched.
func (s *Service) Cleanup(ctx context.Context, daysOld int) (int, error) {
	if daysOld <= 0 {
		daysOld = DefaultCleanupDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().AddDate(0, 0, -daysOld)
	kept := todos[:0]
	removed := 0
	for _, t := range todos {
		if t.Status == model.StatusCompleted && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.save(ctx, kept); err != nil {
		return 0, err
	}
	s.logger.Info("cleanup removed completed todos", slog.Int("count", removed), slog.Int("days_old", daysOld))
	return removed, nil
}

// ClearCompleted soft-deletes every visible completed todo.
func (s *Service) ClearCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	count := 0
	for i := range todos {
		if todos[i].Status == model.StatusCompleted && !todos[i].IsDeleted {
			softDelete(&todos[i], now)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.save(ctx, todos); err != nil {
		return 0, err
	}
	s.logger.Info("completed todos cleared", slog.Int("count", count))
	return count, nil
}

// Merge appends items under freshly generated ids in one write and returns
// the stored copies.
func (s *Service) Merge(ctx context.Context, items []model.TodoItem) ([]model.TodoItem, error) {
	if len(items) == 0 {
		return []model.TodoItem{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	taken := takenIDs(todos)
	merged := make([]model.TodoItem, len(items))
	for i, item := range items {
		item = item.Clone()
		item.ID = s.uniqueID(taken)
		if item.Tags == nil {
			item.Tags = []string{}
		}
		merged[i] = item
	}

	if err := s.save(ctx, append(todos, merged...)); err != nil {
		return nil, err
	}
	s.logger.Info("todos merged", slog.Int("count", len(merged)))
	return merged, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
