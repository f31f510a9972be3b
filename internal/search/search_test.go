package search

import (
	"math"
	"testing"

	"todo-engine/internal/model"
)

func sampleTodos() []model.TodoItem {
	return []model.TodoItem{
		{ID: "1", Title: "Buy milk", Description: "and eggs", Tags: []string{"shopping"}},
		{ID: "2", Title: "Write report", Description: "Quarterly numbers", Tags: []string{"work"}},
		{ID: "3", Title: "Call mom", Tags: []string{"family"}},
	}
}

func ids(todos []model.TodoItem) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearch(t *testing.T) {
	todos := sampleTodos()
	s := NewService()
	s.BuildIndex(todos)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"title word", "milk", []string{"1"}},
		{"case insensitive", "REPORT", []string{"2"}},
		{"description", "quarterly", []string{"2"}},
		{"tag", "family", []string{"3"}},
		{"substring of token", "port", []string{"2"}},
		{"all terms must match", "buy eggs", []string{"1"}},
		{"one term missing", "buy report", []string{}},
		{"no match", "zebra", []string{}},
		{"short query returns input", "m", []string{"1", "2", "3"}},
		{"blank query returns input", "   ", []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(s.Search(todos, tt.query))
			if !equal(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearchFallsBackForStaleEntries(t *testing.T) {
	todos := sampleTodos()
	s := NewService()
	s.BuildIndex(todos)

	todos[2].Title = "Call dentist"
	todos = append(todos, model.TodoItem{ID: "4", Title: "Dentist appointment"})

	got := ids(s.Search(todos, "dentist"))
	if !equal(got, []string{"3", "4"}) {
		t.Errorf("Search() = %v, want [3 4]", got)
	}
	if got := ids(s.Search(todos, "mom")); len(got) != 0 {
		t.Errorf("Search(mom) = %v, want stale text ignored", got)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		text, query string
		want        float64
	}{
		{"buy milk", "bml", 1},
		{"buy milk", "BUY", 1},
		{"buy milk", "mlkx", 0.75},
		{"buy milk", "zz", 0},
		{"buy milk", "", 0},
	}
	for _, tt := range tests {
		if got := Score(tt.text, tt.query); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Score(%q, %q) = %v, want %v", tt.text, tt.query, got, tt.want)
		}
	}
}

func TestFuzzySearch(t *testing.T) {
	todos := sampleTodos()
	s := NewService()

	matches := s.FuzzySearch(todos, "rprt", 0)
	if len(matches) == 0 || matches[0].Todo.ID != "2" {
		t.Fatalf("FuzzySearch(rprt) = %+v, want report first", matches)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not sorted by score: %+v", matches)
		}
	}
	for _, m := range matches {
		if m.Score < DefaultFuzzyThreshold {
			t.Errorf("match %s below threshold: %v", m.Todo.ID, m.Score)
		}
	}

	if got := s.FuzzySearch(todos, "qqqq", 0.5); len(got) != 0 {
		t.Errorf("FuzzySearch(qqqq) = %+v, want none", got)
	}

	short := s.FuzzySearch(todos, "x", 0.9)
	if len(short) != len(todos) {
		t.Errorf("short query returned %d matches, want all %d", len(short), len(todos))
	}
}
