package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"todo-engine/internal/app"
	"todo-engine/internal/filter"
	"todo-engine/internal/model"
	"todo-engine/internal/search"
)

// TodoHandler handles HTTP requests for TODO operations.
type TodoHandler struct {
	app    *app.App
	logger *slog.Logger
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(a *app.App, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{app: a, logger: logger}
}

// --- Input/Output types for huma ---

type ListTodosInput struct {
	Status         string   `query:"status" enum:"all,active,completed" doc:"Filter by status"`
	Priority       []string `query:"priority" doc:"Any of these priorities (comma separated)"`
	Category       []string `query:"category" doc:"Any of these category ids (comma separated)"`
	Tag            []string `query:"tag" doc:"Any of these tags (comma separated)"`
	DueFrom        string   `query:"due_from" doc:"Earliest due date (YYYY-MM-DD)"`
	DueTo          string   `query:"due_to" doc:"Latest due date (YYYY-MM-DD)"`
	NoDueDate      bool     `query:"no_due_date" doc:"Include todos without a due date when a due range is set"`
	Overdue        bool     `query:"overdue" doc:"Only overdue todos"`
	Q              string   `query:"q" doc:"Search text; every word must match"`
	Fuzzy          bool     `query:"fuzzy" doc:"Use fuzzy scoring instead of exact search"`
	Threshold      float64  `query:"threshold" minimum:"0" maximum:"1" doc:"Fuzzy acceptance threshold"`
	Sort           string   `query:"sort" enum:"created_at,updated_at,due_date,priority,title,category,status,custom" doc:"Sort field"`
	Order          string   `query:"order" enum:"asc,desc" default:"asc" doc:"Sort direction"`
	GroupBy        string   `query:"group_by" enum:"category,priority,date" doc:"Group the result"`
	IncludeDeleted bool     `query:"include_deleted" doc:"Include soft-deleted todos"`
}

type ListTodosOutput struct {
	Body app.ListResult
}

type CreateTodoInput struct {
	Body model.CreateTodoRequest
}

type TodoOutput struct {
	Body model.TodoItem
}

type TodoIDInput struct {
	ID string `path:"id" doc:"TODO ID"`
}

type UpdateTodoInput struct {
	ID   string `path:"id" doc:"TODO ID"`
	Body model.UpdateTodoRequest
}

type DeleteTodoInput struct {
	ID        string `path:"id" doc:"TODO ID"`
	Permanent bool   `query:"permanent" doc:"Remove the todo instead of soft-deleting it"`
}

type BulkUpdateInput struct {
	Body struct {
		IDs     []string                `json:"ids" minItems:"1"`
		Changes model.UpdateTodoRequest `json:"changes"`
	}
}

type BulkUpdateOutput struct {
	Body model.TodoListResponse
}

type BulkToggleInput struct {
	Body struct {
		IDs       []string `json:"ids" minItems:"1"`
		Completed bool     `json:"completed"`
	}
}

type SearchTodosInput struct {
	Q         string  `query:"q" required:"true" doc:"Search text"`
	Fuzzy     bool    `query:"fuzzy" doc:"Use fuzzy scoring"`
	Threshold float64 `query:"threshold" minimum:"0" maximum:"1" doc:"Fuzzy acceptance threshold"`
}

type SearchTodosOutput struct {
	Body struct {
		Matches []search.Match `json:"matches"`
		Count   int            `json:"count"`
	}
}

type BulkDeleteInput struct {
	Body struct {
		IDs       []string `json:"ids" minItems:"1"`
		Permanent bool     `json:"permanent,omitempty"`
	}
}

type CountOutput struct {
	Body struct {
		Count int `json:"count" example:"2"`
	}
}

type ReorderInput struct {
	Body struct {
		IDs []string `json:"ids"`
	}
}

type CleanupInput struct {
	Body struct {
		DaysOld int `json:"days_old,omitempty" minimum:"0" example:"30" doc:"Age threshold in days; 0 uses the configured default"`
	}
}

// RegisterRoutes registers all TODO routes with the huma API.
func (h *TodoHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-todos",
		Method:      http.MethodGet,
		Path:        "/api/v1/todos",
		Summary:     "List TODOs",
		Description: "Retrieve TODO items with optional search, filters, sorting and grouping.",
		Tags:        []string{"todos"},
	}, h.ListTodos)

	huma.Register(api, huma.Operation{
		OperationID:   "create-todo",
		Method:        http.MethodPost,
		Path:          "/api/v1/todos",
		Summary:       "Create a new TODO",
		Tags:          []string{"todos"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateTodo)

	huma.Register(api, huma.Operation{
		OperationID: "get-todo",
		Method:      http.MethodGet,
		Path:        "/api/v1/todos/{id}",
		Summary:     "Get a TODO by ID",
		Description: "Retrieve a single TODO item by its ID, including soft-deleted items.",
		Tags:        []string{"todos"},
	}, h.GetTodo)

	huma.Register(api, huma.Operation{
		OperationID: "update-todo",
		Method:      http.MethodPut,
		Path:        "/api/v1/todos/{id}",
		Summary:     "Update a TODO",
		Description: "Update an existing TODO item. Only provided fields are changed.",
		Tags:        []string{"todos"},
	}, h.UpdateTodo)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-todo",
		Method:        http.MethodDelete,
		Path:          "/api/v1/todos/{id}",
		Summary:       "Delete a TODO",
		Description:   "Soft-delete a TODO item, or remove it permanently.",
		Tags:          []string{"todos"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteTodo)

	huma.Register(api, huma.Operation{
		OperationID: "restore-todo",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/{id}/restore",
		Summary:     "Restore a soft-deleted TODO",
		Tags:        []string{"todos"},
	}, h.RestoreTodo)

	huma.Register(api, huma.Operation{
		OperationID: "toggle-todo",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/{id}/toggle",
		Summary:     "Toggle completion of a TODO",
		Tags:        []string{"todos"},
	}, h.ToggleTodo)

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-todo",
		Method:        http.MethodPost,
		Path:          "/api/v1/todos/{id}/duplicate",
		Summary:       "Duplicate a TODO",
		Tags:          []string{"todos"},
		DefaultStatus: http.StatusCreated,
	}, h.DuplicateTodo)

	huma.Register(api, huma.Operation{
		OperationID: "bulk-update-todos",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/bulk/update",
		Summary:     "Update several TODOs at once",
		Tags:        []string{"todos"},
	}, h.BulkUpdate)

	huma.Register(api, huma.Operation{
		OperationID: "bulk-toggle-todos",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/bulk/toggle",
		Summary:     "Complete or reopen several TODOs at once",
		Tags:        []string{"todos"},
	}, h.BulkToggle)

	huma.Register(api, huma.Operation{
		OperationID: "search-todos",
		Method:      http.MethodGet,
		Path:        "/api/v1/todos/search",
		Summary:     "Search TODOs",
		Description: "Return matching TODOs with a relevance score.",
		Tags:        []string{"todos"},
	}, h.SearchTodos)

	huma.Register(api, huma.Operation{
		OperationID: "bulk-delete-todos",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/bulk/delete",
		Summary:     "Delete several TODOs at once",
		Tags:        []string{"todos"},
	}, h.BulkDelete)

	huma.Register(api, huma.Operation{
		OperationID:   "reorder-todos",
		Method:        http.MethodPost,
		Path:          "/api/v1/todos/reorder",
		Summary:       "Set the manual order of TODOs",
		Tags:          []string{"todos"},
		DefaultStatus: http.StatusNoContent,
	}, h.Reorder)

	huma.Register(api, huma.Operation{
		OperationID: "cleanup-todos",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/cleanup",
		Summary:     "Purge old completed TODOs",
		Tags:        []string{"todos"},
	}, h.Cleanup)

	huma.Register(api, huma.Operation{
		OperationID: "clear-completed-todos",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/clear-completed",
		Summary:     "Soft-delete every completed TODO",
		Tags:        []string{"todos"},
	}, h.ClearCompleted)
}

func (h *TodoHandler) ListTodos(ctx context.Context, input *ListTodosInput) (*ListTodosOutput, error) {
	q := app.Query{
		Criteria: filter.Criteria{
			Status:       model.StatusFilter(input.Status),
			Categories:   splitValues(input.Category),
			Tags:         splitValues(input.Tag),
			DueFrom:      input.DueFrom,
			DueTo:        input.DueTo,
			HasNoDueDate: input.NoDueDate,
			OverdueOnly:  input.Overdue,
		},
		Search:         input.Q,
		Fuzzy:          input.Fuzzy,
		FuzzyThreshold: input.Threshold,
		Sort:           model.SortOption{Field: model.SortField(input.Sort), Direction: model.SortDirection(input.Order)},
		GroupBy:        app.Grouping(input.GroupBy),
		IncludeDeleted: input.IncludeDeleted,
	}
	for _, p := range splitValues(input.Priority) {
		priority := model.Priority(strings.ToLower(p))
		if !model.ValidPriorities[priority] {
			return nil, huma.Error400BadRequest(fmt.Sprintf("unknown priority %q", p))
		}
		q.Criteria.Priorities = append(q.Criteria.Priorities, priority)
	}

	result, err := h.app.List(ctx, q)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to retrieve todos")
	}
	return &ListTodosOutput{Body: result}, nil
}

func (h *TodoHandler) CreateTodo(ctx context.Context, input *CreateTodoInput) (*TodoOutput, error) {
	todo, res, err := h.app.Todos.Create(ctx, input.Body)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to create todo")
	}
	if !res.Valid {
		return nil, invalid(res)
	}
	return &TodoOutput{Body: todo}, nil
}

func (h *TodoHandler) GetTodo(ctx context.Context, input *TodoIDInput) (*TodoOutput, error) {
	todo, err := h.app.Todos.GetByID(ctx, input.ID)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to retrieve todo", slog.String("id", input.ID))
	}
	return &TodoOutput{Body: todo}, nil
}

func (h *TodoHandler) UpdateTodo(ctx context.Context, input *UpdateTodoInput) (*TodoOutput, error) {
	todo, res, err := h.app.Todos.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to update todo", slog.String("id", input.ID))
	}
	if !res.Valid {
		return nil, invalid(res)
	}
	return &TodoOutput{Body: todo}, nil
}

func (h *TodoHandler) DeleteTodo(ctx context.Context, input *DeleteTodoInput) (*struct{}, error) {
	if err := h.app.Todos.Delete(ctx, input.ID, input.Permanent); err != nil {
		return nil, apiError(h.logger, err, "failed to delete todo", slog.String("id", input.ID))
	}
	return nil, nil
}

func (h *TodoHandler) RestoreTodo(ctx context.Context, input *TodoIDInput) (*TodoOutput, error) {
	todo, err := h.app.Todos.Restore(ctx, input.ID)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to restore todo", slog.String("id", input.ID))
	}
	return &TodoOutput{Body: todo}, nil
}

func (h *TodoHandler) ToggleTodo(ctx context.Context, input *TodoIDInput) (*TodoOutput, error) {
	todo, err := h.app.Todos.ToggleComplete(ctx, input.ID)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to toggle todo", slog.String("id", input.ID))
	}
	return &TodoOutput{Body: todo}, nil
}

func (h *TodoHandler) DuplicateTodo(ctx context.Context, input *TodoIDInput) (*TodoOutput, error) {
	todo, err := h.app.Todos.Duplicate(ctx, input.ID)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to duplicate todo", slog.String("id", input.ID))
	}
	return &TodoOutput{Body: todo}, nil
}

func (h *TodoHandler) BulkUpdate(ctx context.Context, input *BulkUpdateInput) (*BulkUpdateOutput, error) {
	todos, res, err := h.app.Todos.BulkUpdate(ctx, input.Body.IDs, input.Body.Changes)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to update todos")
	}
	if !res.Valid {
		return nil, invalid(res)
	}
	return &BulkUpdateOutput{Body: model.TodoListResponse{Todos: todos, Count: len(todos)}}, nil
}

func (h *TodoHandler) BulkToggle(ctx context.Context, input *BulkToggleInput) (*BulkUpdateOutput, error) {
	todos, err := h.app.Todos.BulkToggle(ctx, input.Body.IDs, input.Body.Completed)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to toggle todos")
	}
	return &BulkUpdateOutput{Body: model.TodoListResponse{Todos: todos, Count: len(todos)}}, nil
}

func (h *TodoHandler) SearchTodos(ctx context.Context, input *SearchTodosInput) (*SearchTodosOutput, error) {
	matches, err := h.app.SearchTodos(ctx, input.Q, input.Fuzzy, input.Threshold)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to search todos")
	}
	out := &SearchTodosOutput{}
	out.Body.Matches = matches
	out.Body.Count = len(matches)
	return out, nil
}

func (h *TodoHandler) BulkDelete(ctx context.Context, input *BulkDeleteInput) (*CountOutput, error) {
	n, err := h.app.Todos.BulkDelete(ctx, input.Body.IDs, input.Body.Permanent)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to delete todos")
	}
	out := &CountOutput{}
	out.Body.Count = n
	return out, nil
}

func (h *TodoHandler) Reorder(ctx context.Context, input *ReorderInput) (*struct{}, error) {
	if err := h.app.Todos.Reorder(ctx, input.Body.IDs); err != nil {
		return nil, apiError(h.logger, err, "failed to reorder todos")
	}
	return nil, nil
}

func (h *TodoHandler) Cleanup(ctx context.Context, input *CleanupInput) (*CountOutput, error) {
	days := input.Body.DaysOld
	if days == 0 {
		days = h.app.Config.Todo.CleanupDays
	}
	n, err := h.app.Todos.Cleanup(ctx, days)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to clean up todos")
	}
	out := &CountOutput{}
	out.Body.Count = n
	return out, nil
}

func (h *TodoHandler) ClearCompleted(ctx context.Context, _ *struct{}) (*CountOutput, error) {
	n, err := h.app.Todos.ClearCompleted(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to clear completed todos")
	}
	out := &CountOutput{}
	out.Body.Count = n
	return out, nil
}

// splitValues accepts both repeated and comma-separated query values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
