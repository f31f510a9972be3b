// Package exchange converts the todo collection to and from files.
package exchange

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"todo-engine/internal/model"
)

// Format is a supported file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ValidFormats contains all export formats.
var ValidFormats = map[Format]bool{
	FormatJSON:     true,
	FormatCSV:      true,
	FormatMarkdown: true,
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/json"
	}
}

// Extension returns the file extension of f.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ExportVersion identifies the JSON envelope format.
const ExportVersion = "1.0"

// Envelope is the JSON export document.
type Envelope struct {
	Version    string           `json:"version"`
	ExportDate time.Time        `json:"export_date"`
	Todos      []model.TodoItem `json:"todos"`
}

// CSVHeader is the header row of CSV exports and imports.
var CSVHeader = []string{"Title", "Description", "Status", "Priority", "Category", "Tags", "Due Date", "Created At", "Completed At"}

// TagSeparator joins tags in CSV cells.
const TagSeparator = ";"

// ExportJSON writes todos in the versioned JSON envelope.
func ExportJSON(todos []model.TodoItem, now time.Time) ([]byte, error) {
	if todos == nil {
		todos = []model.TodoItem{}
	}
	data, err := json.MarshalIndent(Envelope{Version: ExportVersion, ExportDate: now.UTC(), Todos: todos}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// ExportCSV writes todos as RFC 4180 CSV with a header row.
func ExportCSV(todos []model.TodoItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range todos {
		completed := ""
		if t.CompletedAt != nil {
			completed = t.CompletedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.Category,
			strings.Join(t.Tags, TagSeparator),
			t.DueDate,
			t.CreatedAt.UTC().Format(time.RFC3339),
			completed,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

var priorityGlyphs = map[model.Priority]string{
	model.PriorityHigh:   "🔴",
	model.PriorityMedium: "🟡",
	model.PriorityLow:    "🟢",
}

// ExportMarkdown writes todos as a checklist split into active and completed
// sections.
func ExportMarkdown(todos []model.TodoItem, now time.Time) []byte {
	var active, completed []model.TodoItem
	for _, t := range todos {
		if t.Status == model.StatusCompleted {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}

	var b strings.Builder
	b.WriteString("# Todo List Export\n\n")
	fmt.Fprintf(&b, "Exported on %s\n\n", now.Format("2006-01-02 15:04"))
	writeSection(&b, "Active Tasks", active)
	writeSection(&b, "Completed Tasks", completed)
	return []byte(b.String())
}

func writeSection(b *strings.Builder, title string, todos []model.TodoItem) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(todos) == 0 {
		b.WriteString("_None_\n\n")
		return
	}
	for _, t := range todos {
		box := " "
		if t.Status == model.StatusCompleted {
			box = "x"
		}
		fmt.Fprintf(b, "- [%s] %s %s\n", box, priorityGlyphs[t.Priority], t.Title)
		if t.Description != "" {
			fmt.Fprintf(b, "  - Description: %s\n", strings.ReplaceAll(t.Description, "\n", " "))
		}
		fmt.Fprintf(b, "  - Category: %s\n", t.Category)
		if len(t.Tags) > 0 {
			fmt.Fprintf(b, "  - Tags: %s\n", strings.Join(t.Tags, ", "))
		}
		if t.DueDate != "" {
			fmt.Fprintf(b, "  - Due: %s\n", strings.TrimSpace(t.DueDate+" "+t.DueTime))
		}
		if t.CompletedAt != nil {
			fmt.Fprintf(b, "  - Completed: %s\n", t.CompletedAt.Format("2006-01-02 15:04"))
		}
	}
	b.WriteString("\n")
}
