package validation

import (
	"strings"
	"testing"
	"time"

	"todo-engine/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name      string
		req       model.CreateTodoRequest
		wantField string
		wantCode  string
	}{
		{"minimal", model.CreateTodoRequest{Title: "Buy milk"}, "", ""},
		{"full", model.CreateTodoRequest{
			Title: "Report", Description: "Q3", Priority: model.PriorityHigh,
			Tags: []string{"work", "q3_2026", "urgent-ish"}, DueDate: "2026-02-28", DueTime: "09:30",
		}, "", ""},
		{"empty title", model.CreateTodoRequest{Title: "   "}, "title", CodeRequired},
		{"title at limit", model.CreateTodoRequest{Title: strings.Repeat("é", model.MaxTitleLength)}, "", ""},
		{"title too long", model.CreateTodoRequest{Title: strings.Repeat("a", model.MaxTitleLength+1)}, "title", CodeTooLong},
		{"markup", model.CreateTodoRequest{Title: "<script>x</script>"}, "title", CodeInvalidFormat},
		{"lone angle bracket", model.CreateTodoRequest{Title: "1 < 2"}, "", ""},
		{"description too long", model.CreateTodoRequest{Title: "x", Description: strings.Repeat("d", model.MaxDescriptionLength+1)}, "description", CodeTooLong},
		{"bad priority", model.CreateTodoRequest{Title: "x", Priority: "urgent"}, "priority", CodeInvalidValue},
		{"too many tags", model.CreateTodoRequest{Title: "x", Tags: []string{"a", "b", "c", "d"}}, "tags", CodeTooMany},
		{"tag too long", model.CreateTodoRequest{Title: "x", Tags: []string{strings.Repeat("t", model.MaxTagLength+1)}}, "tags", CodeTooLong},
		{"tag with space", model.CreateTodoRequest{Title: "x", Tags: []string{"two words"}}, "tags", CodeInvalidFormat},
		{"bad date", model.CreateTodoRequest{Title: "x", DueDate: "2026-02-30"}, "due_date", CodeInvalidDate},
		{"bad time", model.CreateTodoRequest{Title: "x", DueTime: "25:00"}, "due_time", CodeInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateCreate(tt.req)
			if tt.wantField == "" {
				if !res.Valid {
					t.Fatalf("ValidateCreate() invalid: %s", res.Error())
				}
				return
			}
			if res.Valid {
				t.Fatalf("ValidateCreate() valid, want error on %s", tt.wantField)
			}
			if !res.Has(tt.wantField) {
				t.Fatalf("errors %v do not include %s", res.Errors, tt.wantField)
			}
			if res.Errors[0].Code != tt.wantCode {
				t.Errorf("code = %s, want %s", res.Errors[0].Code, tt.wantCode)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name      string
		req       model.UpdateTodoRequest
		wantField string
	}{
		{"empty patch", model.UpdateTodoRequest{}, ""},
		{"status only", model.UpdateTodoRequest{Status: ptr(model.StatusCompleted)}, ""},
		{"clear due date", model.UpdateTodoRequest{DueDate: ptr("")}, ""},
		{"blank title", model.UpdateTodoRequest{Title: ptr("")}, "title"},
		{"bad status", model.UpdateTodoRequest{Status: ptr(model.Status("done"))}, "status"},
		{"bad priority", model.UpdateTodoRequest{Priority: ptr(model.Priority("p0"))}, "priority"},
		{"blank category", model.UpdateTodoRequest{Category: ptr(" ")}, "category"},
		{"bad tags", model.UpdateTodoRequest{Tags: []string{"ok", "not ok"}}, "tags"},
		{"bad date", model.UpdateTodoRequest{DueDate: ptr("tomorrow")}, "due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateUpdate(tt.req)
			if tt.wantField == "" {
				if !res.Valid {
					t.Fatalf("ValidateUpdate() invalid: %s", res.Error())
				}
				return
			}
			if res.Valid || !res.Has(tt.wantField) {
				t.Fatalf("ValidateUpdate() = %+v, want error on %s", res, tt.wantField)
			}
		})
	}
}

func TestValidateImportedTodoDefaults(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	item, res := ValidateImportedTodo(ImportedTodo{Title: "  Imported  "}, now)
	if !res.Valid {
		t.Fatalf("ValidateImportedTodo() invalid: %s", res.Error())
	}
	if item.Title != "Imported" {
		t.Errorf("Title = %q, want trimmed", item.Title)
	}
	if item.Status != model.StatusActive || item.Priority != model.PriorityMedium || item.Category != model.DefaultCategoryID {
		t.Errorf("defaults = %s/%s/%s", item.Status, item.Priority, item.Category)
	}
	if !item.CreatedAt.Equal(now) || !item.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want now", item.CreatedAt, item.UpdatedAt)
	}
	if item.Order != now.UnixMilli() {
		t.Errorf("Order = %d, want %d", item.Order, now.UnixMilli())
	}
	if item.Tags == nil {
		t.Error("Tags is nil, want empty slice")
	}
	if item.CompletedAt != nil {
		t.Error("active import has CompletedAt")
	}
}

func TestValidateImportedTodoCompleted(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	created := now.Add(-48 * time.Hour)

	item, res := ValidateImportedTodo(ImportedTodo{Title: "Done", Status: "Completed", CreatedAt: &created}, now)
	if !res.Valid {
		t.Fatalf("ValidateImportedTodo() invalid: %s", res.Error())
	}
	if item.Status != model.StatusCompleted {
		t.Errorf("Status = %s, want completed", item.Status)
	}
	if item.CompletedAt == nil || !item.CompletedAt.Equal(created) {
		t.Errorf("CompletedAt = %v, want %v", item.CompletedAt, created)
	}
}

func TestValidateImportedTodoRejects(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		raw   ImportedTodo
		field string
	}{
		{"missing title", ImportedTodo{}, "title"},
		{"bad status", ImportedTodo{Title: "x", Status: "archived"}, "status"},
		{"bad priority", ImportedTodo{Title: "x", Priority: "critical"}, "priority"},
		{"bad date", ImportedTodo{Title: "x", DueDate: "01/02/2026"}, "due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := ValidateImportedTodo(tt.raw, now)
			if res.Valid || !res.Has(tt.field) {
				t.Errorf("ValidateImportedTodo() = %+v, want error on %s", res, tt.field)
			}
		})
	}
}

func TestValidateCategory(t *testing.T) {
	existing := []string{"Work", "Personal"}
	tests := []struct {
		name, catName, color string
		field                string
	}{
		{"ok", "Errands", "#A1B2C3", ""},
		{"no color", "Errands", "", ""},
		{"empty", " ", "", "name"},
		{"too long", strings.Repeat("n", model.MaxCategoryNameLength+1), "", "name"},
		{"duplicate ignores case", "work", "", "name"},
		{"bad color", "Errands", "red", "color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateCategory(tt.catName, tt.color, existing)
			if tt.field == "" {
				if !res.Valid {
					t.Fatalf("ValidateCategory() invalid: %s", res.Error())
				}
				return
			}
			if res.Valid || !res.Has(tt.field) {
				t.Errorf("ValidateCategory() = %+v, want error on %s", res, tt.field)
			}
		})
	}
}

func TestValidatePreferences(t *testing.T) {
	ok := ValidatePreferences(model.UpdatePreferencesRequest{
		Theme:       ptr(model.ThemeDark),
		DefaultSort: &model.SortOption{Field: model.SortPriority, Direction: model.SortDesc},
	})
	if !ok.Valid {
		t.Fatalf("ValidatePreferences() invalid: %s", ok.Error())
	}

	bad := ValidatePreferences(model.UpdatePreferencesRequest{
		Theme:       ptr(model.Theme("neon")),
		DefaultSort: &model.SortOption{Field: "color", Direction: "up"},
	})
	if bad.Valid || !bad.Has("theme") || !bad.Has("default_sort") {
		t.Errorf("ValidatePreferences() = %+v, want theme and default_sort errors", bad)
	}
}
