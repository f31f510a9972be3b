package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"

	"todo-engine/internal/app"
	"todo-engine/internal/config"
	"todo-engine/internal/logger"
	"todo-engine/internal/model"
	"todo-engine/internal/storage"
)

var now = time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T, quota int64) humatest.TestAPI {
	t.Helper()
	log := logger.Discard()
	a, err := app.New(context.Background(), config.Default(), log,
		app.WithAdapter(storage.NewMemoryAdapter(quota)),
		app.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("app.New() error: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	_, api := humatest.New(t)
	Register(api, a, log)
	return api
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, resp.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("status = %d, want %d\n%s", resp.Code, want, resp.Body.String())
	}
}

func createTodo(t *testing.T, api humatest.TestAPI, body map[string]any) model.TodoItem {
	t.Helper()
	resp := api.Post("/api/v1/todos", body)
	expectStatus(t, resp, http.StatusCreated)
	return decode[model.TodoItem](t, resp)
}

type listBody struct {
	Todos []struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Overdue bool   `json:"overdue"`
	} `json:"todos"`
	Groups []struct {
		Key   string           `json:"key"`
		Todos []model.TodoItem `json:"todos"`
	} `json:"groups"`
	Count int `json:"count"`
	Total int `json:"total"`
}

type problem struct {
	Status int `json:"status"`
	Errors []struct {
		Location string `json:"location"`
		Value    any    `json:"value"`
	} `json:"errors"`
}

func TestTodoLifecycle(t *testing.T) {
	api := newTestAPI(t, 0)

	created := createTodo(t, api, map[string]any{"title": "Buy milk", "priority": "high", "tags": []string{"home"}})
	if created.ID == "" || created.Status != model.StatusActive || created.Priority != model.PriorityHigh {
		t.Fatalf("created = %+v", created)
	}
	path := "/api/v1/todos/" + created.ID

	resp := api.Get(path)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.TodoItem](t, resp); got.Title != "Buy milk" {
		t.Errorf("GET title = %q", got.Title)
	}

	resp = api.Put(path, map[string]any{"title": "Buy oat milk"})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.TodoItem](t, resp); got.Title != "Buy oat milk" || got.Priority != model.PriorityHigh {
		t.Errorf("PUT = %+v", got)
	}

	resp = api.Post(path + "/toggle")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.TodoItem](t, resp); got.Status != model.StatusCompleted || got.CompletedAt == nil {
		t.Errorf("toggle = %+v", got)
	}

	expectStatus(t, api.Delete(path), http.StatusNoContent)
	if got := decode[listBody](t, api.Get("/api/v1/todos")); got.Count != 0 {
		t.Errorf("list after delete has %d todos", got.Count)
	}
	if got := decode[listBody](t, api.Get("/api/v1/todos?include_deleted=true")); got.Count != 1 {
		t.Errorf("list with deleted has %d todos, want 1", got.Count)
	}

	resp = api.Post(path + "/restore")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.TodoItem](t, resp); got.IsDeleted || got.Status != model.StatusCompleted {
		t.Errorf("restore = %+v", got)
	}

	expectStatus(t, api.Delete(path+"?permanent=true"), http.StatusNoContent)
	expectStatus(t, api.Get(path), http.StatusNotFound)
	expectStatus(t, api.Post(path+"/toggle"), http.StatusNotFound)
}

func TestCreateTodoValidation(t *testing.T) {
	api := newTestAPI(t, 0)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"empty title", map[string]any{"title": "   "}, "body.title"},
		{"markup", map[string]any{"title": "<script>x</script>"}, "body.title"},
		{"bad due date", map[string]any{"title": "Ok", "due_date": "2026-02-30"}, "body.due_date"},
		{"too many tags", map[string]any{"title": "Ok", "tags": []string{"a", "b", "c", "d"}}, "body.tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.Post("/api/v1/todos", tt.body)
			expectStatus(t, resp, http.StatusUnprocessableEntity)
			p := decode[problem](t, resp)
			if len(p.Errors) == 0 || p.Errors[0].Location != tt.field {
				t.Errorf("errors = %+v, want location %s", p.Errors, tt.field)
			}
		})
	}

	if got := decode[listBody](t, api.Get("/api/v1/todos")); got.Total != 0 {
		t.Errorf("rejected creates were stored: total %d", got.Total)
	}
}

func TestListTodos(t *testing.T) {
	api := newTestAPI(t, 0)
	createTodo(t, api, map[string]any{"title": "Pay rent", "priority": "high", "category": "finance", "due_date": "2026-06-01"})
	createTodo(t, api, map[string]any{"title": "Buy milk", "priority": "low", "category": "shopping", "tags": []string{"home"}})
	createTodo(t, api, map[string]any{"title": "Call mom", "priority": "medium", "category": "personal"})

	tests := []struct {
		name   string
		query  string
		titles []string
	}{
		{"priority list sorted by title", "?priority=high,low&sort=title", []string{"Buy milk", "Pay rent"}},
		{"priority descending", "?sort=priority&order=desc", []string{"Pay rent", "Call mom", "Buy milk"}},
		{"tag", "?tag=home", []string{"Buy milk"}},
		{"overdue", "?overdue=true", []string{"Pay rent"}},
		{"search", "?q=milk", []string{"Buy milk"}},
		{"fuzzy search", "?q=mlk&fuzzy=true&threshold=0.9", []string{"Buy milk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.Get("/api/v1/todos" + tt.query)
			expectStatus(t, resp, http.StatusOK)
			got := decode[listBody](t, resp)
			var titles []string
			for _, v := range got.Todos {
				titles = append(titles, v.Title)
			}
			if strings.Join(titles, "|") != strings.Join(tt.titles, "|") {
				t.Errorf("titles = %v, want %v", titles, tt.titles)
			}
			if got.Total != 3 {
				t.Errorf("total = %d, want 3", got.Total)
			}
		})
	}

	got := decode[listBody](t, api.Get("/api/v1/todos?group_by=priority"))
	if len(got.Groups) != 3 || got.Groups[0].Key != "high" {
		t.Errorf("groups = %+v", got.Groups)
	}
	if got := decode[listBody](t, api.Get("/api/v1/todos?overdue=true")); !got.Todos[0].Overdue {
		t.Error("overdue todo not annotated")
	}

	expectStatus(t, api.Get("/api/v1/todos?priority=urgent"), http.StatusBadRequest)
}

func TestSearchAndBulk(t *testing.T) {
	api := newTestAPI(t, 0)
	a := createTodo(t, api, map[string]any{"title": "Buy milk"})
	b := createTodo(t, api, map[string]any{"title": "Buy bread"})
	createTodo(t, api, map[string]any{"title": "Walk dog"})

	type searchBody struct {
		Matches []struct {
			Score float64 `json:"score"`
		} `json:"matches"`
		Count int `json:"count"`
	}
	if got := decode[searchBody](t, api.Get("/api/v1/todos/search?q=buy")); got.Count != 2 {
		t.Errorf("search count = %d, want 2", got.Count)
	}

	resp := api.Post("/api/v1/todos/bulk/toggle", map[string]any{"ids": []string{a.ID, b.ID, "missing"}, "completed": true})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.TodoListResponse](t, resp); got.Count != 2 {
		t.Errorf("bulk toggle updated %d, want 2", got.Count)
	}

	resp = api.Post("/api/v1/todos/bulk/update", map[string]any{"ids": []string{a.ID}, "changes": map[string]any{"priority": "urgent"}})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = api.Post("/api/v1/todos/clear-completed")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[struct{ Count int }](t, resp); got.Count != 2 {
		t.Errorf("clear-completed count = %d, want 2", got.Count)
	}

	resp = api.Post("/api/v1/todos/bulk/delete", map[string]any{"ids": []string{a.ID, b.ID}, "permanent": true})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[struct{ Count int }](t, resp); got.Count != 2 {
		t.Errorf("bulk delete count = %d, want 2", got.Count)
	}
	if got := decode[listBody](t, api.Get("/api/v1/todos?include_deleted=true")); got.Total != 1 {
		t.Errorf("total after purge = %d, want 1", got.Total)
	}
}

func TestCategories(t *testing.T) {
	api := newTestAPI(t, 0)

	type listCats struct {
		Categories []model.Category `json:"categories"`
	}
	if got := decode[listCats](t, api.Get("/api/v1/categories")); len(got.Categories) != 6 {
		t.Fatalf("seeded %d categories, want 6", len(got.Categories))
	}

	resp := api.Post("/api/v1/categories", map[string]any{"name": "Errands"})
	expectStatus(t, resp, http.StatusCreated)
	errands := decode[model.Category](t, resp)

	resp = api.Post("/api/v1/categories", map[string]any{"name": "errands"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if p := decode[problem](t, resp); p.Errors[0].Location != "body.name" || p.Errors[0].Value != "duplicate" {
		t.Errorf("duplicate problem = %+v", p)
	}

	expectStatus(t, api.Put("/api/v1/categories/work", map[string]any{"name": "Job"}), http.StatusConflict)
	expectStatus(t, api.Delete("/api/v1/categories/work"), http.StatusConflict)

	createTodo(t, api, map[string]any{"title": "Post letter", "category": errands.ID})
	expectStatus(t, api.Delete("/api/v1/categories/"+errands.ID), http.StatusConflict)
	expectStatus(t, api.Delete("/api/v1/categories/nope"), http.StatusNotFound)
}

func TestPreferences(t *testing.T) {
	api := newTestAPI(t, 0)

	resp := api.Patch("/api/v1/preferences", map[string]any{"theme": "dark", "compact_view": true})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.Preferences](t, resp); got.Theme != model.ThemeDark || !got.CompactView {
		t.Errorf("PATCH = %+v", got)
	}
	if got := decode[model.Preferences](t, api.Get("/api/v1/preferences")); got.Theme != model.ThemeDark {
		t.Errorf("GET theme = %s", got.Theme)
	}

	expectStatus(t, api.Patch("/api/v1/preferences", map[string]any{"theme": "neon"}), http.StatusUnprocessableEntity)

	resp = api.Post("/api/v1/preferences/reset")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.Preferences](t, resp); got != model.DefaultPreferences() {
		t.Errorf("reset = %+v", got)
	}
}

func TestExportImport(t *testing.T) {
	api := newTestAPI(t, 0)
	createTodo(t, api, map[string]any{"title": "Buy milk", "tags": []string{"home"}})

	resp := api.Get("/api/v1/export?format=csv")
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); cd != `attachment; filename="todos-2026-06-10.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(resp.Body.String(), "Buy milk") {
		t.Errorf("export body = %q", resp.Body.String())
	}

	resp = api.Post("/api/v1/import?format=csv", "Content-Type: text/csv",
		strings.NewReader("Title,Priority\nPay rent,high\n,low\n"))
	expectStatus(t, resp, http.StatusOK)
	type importBody struct {
		Imported int `json:"imported"`
		Failed   int `json:"failed"`
		Errors   []struct {
			Row   int    `json:"row"`
			Field string `json:"field"`
		} `json:"errors"`
	}
	got := decode[importBody](t, resp)
	if got.Imported != 1 || got.Failed != 1 || got.Errors[0].Row != 2 || got.Errors[0].Field != "title" {
		t.Errorf("import result = %+v", got)
	}

	resp = api.Get("/api/v1/export?format=json")
	expectStatus(t, resp, http.StatusOK)
	resp = api.Post("/api/v1/import?format=json", "Content-Type: application/json", bytes.NewReader(resp.Body.Bytes()))
	expectStatus(t, resp, http.StatusOK)
	if got := decode[importBody](t, resp); got.Imported != 2 || got.Failed != 0 {
		t.Errorf("json re-import = %+v", got)
	}
	if got := decode[listBody](t, api.Get("/api/v1/todos")); got.Count != 4 {
		t.Errorf("count after imports = %d, want 4", got.Count)
	}
}

func TestStatsAndStorage(t *testing.T) {
	api := newTestAPI(t, 0)
	todo := createTodo(t, api, map[string]any{"title": "Buy milk"})
	createTodo(t, api, map[string]any{"title": "Walk dog"})
	expectStatus(t, api.Post("/api/v1/todos/"+todo.ID+"/toggle"), http.StatusOK)

	type statsBody struct {
		Total          int `json:"total"`
		Completed      int `json:"completed"`
		CompletionRate int `json:"completion_rate"`
		CurrentStreak  int `json:"current_streak"`
	}
	got := decode[statsBody](t, api.Get("/api/v1/stats"))
	if got.Total != 2 || got.Completed != 1 || got.CompletionRate != 50 || got.CurrentStreak != 1 {
		t.Errorf("stats = %+v", got)
	}

	info := decode[storage.Info](t, api.Get("/api/v1/storage"))
	if info.Backend != "memory" || info.Used == 0 {
		t.Errorf("storage info = %+v", info)
	}

	resp := api.Get("/api/v1/storage/backup")
	expectStatus(t, resp, http.StatusOK)
	blob := append([]byte(nil), resp.Body.Bytes()...)

	createTodo(t, api, map[string]any{"title": "Added after backup"})
	expectStatus(t, api.Post("/api/v1/storage/restore", "Content-Type: application/json", bytes.NewReader(blob)), http.StatusNoContent)
	if got := decode[listBody](t, api.Get("/api/v1/todos")); got.Count != 2 {
		t.Errorf("count after restore = %d, want 2", got.Count)
	}

	resp = api.Post("/api/v1/storage/restore", "Content-Type: application/json", strings.NewReader(`{"version":"1"}`))
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestQuotaExceeded(t *testing.T) {
	api := newTestAPI(t, 150)
	resp := api.Post("/api/v1/todos", map[string]any{"title": fmt.Sprintf("Todo %d", 1)})
	expectStatus(t, resp, http.StatusInsufficientStorage)
}
