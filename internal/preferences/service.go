// Package preferences stores the singleton user preference record.
package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"todo-engine/internal/model"
	"todo-engine/internal/storage"
	"todo-engine/internal/validation"
)

// Service reads and patches preferences stored under storage.KeyPreferences.
type Service struct {
	store  *storage.Service
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a Service.
func NewService(store *storage.Service, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Get returns stored preferences, or the defaults when none are stored.
func (s *Service) Get(ctx context.Context) (model.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (model.Preferences, error) {
	prefs := model.DefaultPreferences()
	found, err := s.store.Get(ctx, storage.KeyPreferences, &prefs)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	if !found {
		return model.DefaultPreferences(), nil
	}
	return prefs, nil
}

// Update applies the set fields of req.
func (s *Service) Update(ctx context.Context, req model.UpdatePreferencesRequest) (model.Preferences, validation.Result, error) {
	res := validation.ValidatePreferences(req)
	if !res.Valid {
		return model.Preferences{}, res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.load(ctx)
	if err != nil {
		return model.Preferences{}, res, err
	}
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.DefaultSort != nil {
		prefs.DefaultSort = *req.DefaultSort
	}
	if req.DefaultFilter != nil {
		prefs.DefaultFilter = *req.DefaultFilter
	}
	if req.DefaultPriority != nil {
		prefs.DefaultPriority = *req.DefaultPriority
	}
	if req.DefaultCategory != nil {
		prefs.DefaultCategory = *req.DefaultCategory
	}
	if req.ConfirmDelete != nil {
		prefs.ConfirmDelete = *req.ConfirmDelete
	}
	if req.AutoSave != nil {
		prefs.AutoSave = *req.AutoSave
	}
	if req.ShowCompleted != nil {
		prefs.ShowCompleted = *req.ShowCompleted
	}
	if req.CompactView != nil {
		prefs.CompactView = *req.CompactView
	}

	if err := s.store.Set(ctx, storage.KeyPreferences, prefs); err != nil {
		return model.Preferences{}, res, fmt.Errorf("save preferences: %w", err)
	}
	s.logger.Info("preferences updated")
	return prefs, res, nil
}

// Reset restores the defaults.
func (s *Service) Reset(ctx context.Context) (model.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := model.DefaultPreferences()
	if err := s.store.Set(ctx, storage.KeyPreferences, prefs); err != nil {
		return model.Preferences{}, fmt.Errorf("save preferences: %w", err)
	}
	s.logger.Info("preferences reset")
	return prefs, nil
}
