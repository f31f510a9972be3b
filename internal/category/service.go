// Package category manages the small collection of todo categories.
package category

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

var (
	// ErrNotFound is returned when an operation targets an unknown category.
	ErrNotFound = errors.New("category not found")

	// ErrDefaultCategory is returned when changing or deleting a system category.
	ErrDefaultCategory = errors.New("default categories cannot be modified")

	// ErrCategoryInUse is returned when deleting a category todos still reference.
	ErrCategoryInUse = errors.New("category is in use")
)

// DefaultColor is used when a category is created without one.
const DefaultColor = "#607D8B"

// TodoCounter reports how many todos reference a category.
type TodoCounter interface {
	CountByCategory(ctx context.Context, category string) (int, error)
}

// Service manages categories persisted under storage.KeyCategories.
type Service struct {
	store  *storage.Service
	todos  TodoCounter
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewService creates a Service.
func NewService(store *storage.Service, todos TodoCounter, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, todos: todos, logger: logger, now: now}
}

// load returns stored categories, seeding the defaults when none exist.
func (s *Service) load(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	found, err := s.store.Get(ctx, storage.KeyCategories, &cats)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if found && len(cats) > 0 {
		return cats, nil
	}
	cats = model.DefaultCategories(s.now())
	if err := s.save(ctx, cats); err != nil {
		return nil, err
	}
	s.logger.Info("default categories seeded", slog.Int("count", len(cats)))
	return cats, nil
}

func (s *Service) save(ctx context.Context, cats []model.Category) error {
	if err := s.store.Set(ctx, storage.KeyCategories, cats); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	return nil
}

func indexOf(cats []model.Category, id string) int {
	for i := range cats {
		if strings.EqualFold(cats[i].ID, id) {
			return i
		}
	}
	return -1
}

func namesExcept(cats []model.Category, skip int) []string {
	names := make([]string, 0, len(cats))
	for i, c := range cats {
		if i != skip {
			names = append(names, c.Name)
		}
	}
	return names
}

// List returns every category in display order.
func (s *Service) List(ctx context.Context) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Names maps category ids to display names.
func (s *Service) Names(ctx context.Context) (map[string]string, error) {
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

// Get returns a category by id.
func (s *Service) Get(ctx context.Context, id string) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.load(ctx)
	if err != nil {
		return model.Category{}, err
	}
	i := indexOf(cats, id)
	if i < 0 {
		return model.Category{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cats[i], nil
}

// Create adds a custom category.
func (s *Service) Create(ctx context.Context, req model.CreateCategoryRequest) (model.Category, validation.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.load(ctx)
	if err != nil {
		return model.Category{}, validation.Result{}, err
	}
	res := validation.ValidateCategory(req.Name, req.Color, namesExcept(cats, -1))
	if !res.Valid {
		return model.Category{}, res, nil
	}

	c := model.Category{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Color:     req.Color,
		Order:     len(cats),
		CreatedAt: s.now(),
	}
	if c.Color == "" {
		c.Color = DefaultColor
	}
	if err := s.save(ctx, append(cats, c)); err != nil {
		return model.Category{}, res, err
	}
	s.logger.Info("category created", slog.String("id", c.ID), slog.String("name", c.Name))
	return c, res, nil
}

// Update renames or recolors a custom category.
func (s *Service) Update(ctx context.Context, id string, req model.UpdateCategoryRequest) (model.Category, validation.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.load(ctx)
	if err != nil {
		return model.Category{}, validation.Result{}, err
	}
	i := indexOf(cats, id)
	if i < 0 {
		return model.Category{}, validation.Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cats[i].IsDefault {
		return model.Category{}, validation.Result{}, fmt.Errorf("%w: %s", ErrDefaultCategory, id)
	}

	name, color := cats[i].Name, cats[i].Color
	if req.Name != nil {
		name = *req.Name
	}
	if req.Color != nil {
		color = *req.Color
	}
	res := validation.ValidateCategory(name, color, namesExcept(cats, i))
	if !res.Valid {
		return model.Category{}, res, nil
	}

	cats[i].Name = strings.TrimSpace(name)
	cats[i].Color = color
	if err := s.save(ctx, cats); err != nil {
		return model.Category{}, res, err
	}
	s.logger.Info("category updated", slog.String("id", id))
	return cats[i], res, nil
}

// Delete removes a custom category no todo references.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(cats, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if cats[i].IsDefault {
		return fmt.Errorf("%w: %s", ErrDefaultCategory, id)
	}
	n, err := s.todos.CountByCategory(ctx, cats[i].ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d todos reference %s", ErrCategoryInUse, n, id)
	}

	cats = append(cats[:i], cats[i+1:]...)
	for j := range cats {
		cats[j].Order = j
	}
	if err := s.save(ctx, cats); err != nil {
		return err
	}
	s.logger.Info("category deleted", slog.String("id", id))
	return nil
}

// Reorder sets each listed category's order to its position in ids;
// unlisted categories follow in their previous order.
func (s *Service) Reorder(ctx context.Context, ids []string) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	ordered := make([]model.Category, 0, len(cats))
	used := make(map[int]bool, len(cats))
	for _, id := range ids {
		if i := indexOf(cats, id); i >= 0 && !used[i] {
			ordered = append(ordered, cats[i])
			used[i] = true
		}
	}
	for i, c := range cats {
		if !used[i] {
			ordered = append(ordered, c)
		}
	}
	for j := range ordered {
		ordered[j].Order = j
	}
	if err := s.save(ctx, ordered); err != nil {
		return nil, err
	}
	return ordered, nil
}
