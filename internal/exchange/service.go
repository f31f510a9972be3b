package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"todo-engine/internal/model"
)

// TodoStore is the part of the todo service exports and imports go through.
type TodoStore interface {
	GetAll(ctx context.Context, includeDeleted bool) ([]model.TodoItem, error)
	Merge(ctx context.Context, items []model.TodoItem) ([]model.TodoItem, error)
}

// CategoryNamer maps existing category ids to display names.
type CategoryNamer interface {
	Names(ctx context.Context) (map[string]string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithCategories makes imports resolve each record's category against the
// existing categories. Unknown categories become the default category.
func WithCategories(c CategoryNamer) Option {
	return func(s *Service) { s.categories = c }
}

// Service exports the collection and merges imported files into it.
type Service struct {
	todos      TodoStore
	categories CategoryNamer
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a Service.
func NewService(todos TodoStore, logger *slog.Logger, now func() time.Time, opts ...Option) *Service {
	if now == nil {
		now = time.Now
	}
	s := &Service{todos: todos, logger: logger, now: now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolveCategories rewrites each item's category to an existing id. A
// category given by display name, in any case, maps to its id.
func (s *Service) resolveCategories(ctx context.Context, items []model.TodoItem) error {
	if s.categories == nil {
		return nil
	}
	names, err := s.categories.Names(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]string, len(names))
	for id, name := range names {
		byName[strings.ToLower(name)] = id
	}

	remapped := 0
	for i := range items {
		category := items[i].Category
		if _, ok := names[category]; ok {
			continue
		}
		if id, ok := byName[strings.ToLower(category)]; ok {
			items[i].Category = id
			continue
		}
		items[i].Category = model.DefaultCategoryID
		remapped++
	}
	if remapped > 0 {
		s.logger.Info("unknown import categories mapped to default", slog.Int("count", remapped))
	}
	return nil
}

// Export renders the collection in format.
func (s *Service) Export(ctx context.Context, format Format, includeDeleted bool) ([]byte, error) {
	todos, err := s.todos.GetAll(ctx, includeDeleted)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = ExportJSON(todos, s.now())
	case FormatCSV:
		data, err = ExportCSV(todos)
	case FormatMarkdown:
		data = ExportMarkdown(todos, s.now())
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("todos exported", slog.String("format", string(format)), slog.Int("count", len(todos)), slog.Int("bytes", len(data)))
	return data, nil
}

// Import parses data and merges every valid record into the collection
// under fresh ids. Malformed files yield a result with a row 0 error rather
// than an error; only storage failures are returned as errors.
func (s *Service) Import(ctx context.Context, format Format, data []byte) (ImportResult, error) {
	var (
		items  []model.TodoItem
		result ImportResult
	)
	switch format {
	case FormatJSON:
		items, result = ParseJSON(data, s.now())
	case FormatCSV:
		items, result = ParseCSV(data, s.now())
	default:
		return parseFailure(fmt.Errorf("unsupported import format %q", format)), nil
	}

	if len(items) > 0 {
		if err := s.resolveCategories(ctx, items); err != nil {
			return ImportResult{}, err
		}
		if _, err := s.todos.Merge(ctx, items); err != nil {
			return ImportResult{}, err
		}
	}
	result.Imported = len(items)
	if result.Errors == nil {
		result.Errors = []RowError{}
	}

	s.logger.Info("todos imported",
		slog.String("format", string(format)),
		slog.Int("imported", result.Imported),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}
