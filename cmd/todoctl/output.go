package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"todo-engine/internal/filter"
	"todo-engine/internal/model"
	"todo-engine/internal/validation"
)

// shortIDLength is how much of a todo id list output shows.
const shortIDLength = 8

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	groupStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}

	columns = []struct {
		title string
		width int
	}{
		{"ID", shortIDLength + 2},
		{"PRI", 8},
		{"STATUS", 11},
		{"DUE", 18},
		{"CATEGORY", 12},
		{"TITLE", 0},
	}
)

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func cell(value string, width int, style lipgloss.Style) string {
	if width == 0 {
		return style.Render(value)
	}
	value = truncate.StringWithTail(value, uint(width-1), "~")
	return style.Width(width).Render(value)
}

func printHeader(w io.Writer) {
	var b strings.Builder
	for _, c := range columns {
		b.WriteString(cell(c.title, c.width, headerStyle))
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
}

func printRow(w io.Writer, v filter.View) {
	due := "-"
	if v.DueDate != "" {
		due = strings.TrimSpace(v.DueDate + " " + v.DueTime)
	}
	dueStyle := lipgloss.NewStyle()
	if v.Overdue {
		dueStyle = overdueStyle
	}
	statusStyle := lipgloss.NewStyle()
	status := string(v.Status)
	switch {
	case v.IsDeleted:
		status = "deleted"
		statusStyle = mutedStyle
	case v.IsCompleted():
		statusStyle = doneStyle
	}

	row := []string{
		cell(shortID(v.ID), columns[0].width, mutedStyle),
		cell(string(v.Priority), columns[1].width, priorityStyles[v.Priority]),
		cell(status, columns[2].width, statusStyle),
		cell(due, columns[3].width, dueStyle),
		cell(v.Category, columns[4].width, lipgloss.NewStyle()),
		cell(v.Title, columns[5].width, lipgloss.NewStyle()),
	}
	fmt.Fprintln(w, strings.Join(row, ""))
}

// printTable prints todos in a table format.
func printTable(w io.Writer, views []filter.View) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No todos found.")
		return
	}
	printHeader(w)
	for _, v := range views {
		printRow(w, v)
	}
}

// printGroups prints each group under its label.
func printGroups(w io.Writer, groups []filter.Group, now time.Time) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No todos found.")
		return
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, groupStyle.Render(fmt.Sprintf("%s (%d)", g.Label, len(g.Todos))))
		printHeader(w)
		for _, v := range filter.Annotate(g.Todos, now) {
			printRow(w, v)
		}
	}
}

// detailWidth is the wrap width of the show command.
const detailWidth = 72

// printDetail prints every field of one todo, wrapping the description.
func printDetail(w io.Writer, t model.TodoItem, now time.Time) {
	field := func(name, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("%-10s", name+":")), value)
	}
	status := string(t.Status)
	if t.IsDeleted {
		status += " (deleted)"
	}
	due := strings.TrimSpace(t.DueDate + " " + t.DueTime)
	if t.IsOverdue(now) {
		due = overdueStyle.Render(due + " (overdue)")
	}

	field("ID", t.ID)
	field("Title", t.Title)
	field("Status", status)
	field("Priority", priorityStyles[t.Priority].Render(string(t.Priority)))
	field("Category", t.Category)
	field("Tags", strings.Join(t.Tags, ", "))
	field("Due", due)
	field("Created", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	if t.CompletedAt != nil {
		field("Completed", t.CompletedAt.Local().Format("2006-01-02 15:04"))
	}
	if t.Description != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(wordwrap.String(t.Description, detailWidth-2), "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// validationError turns a failed validation result into a CLI error.
func validationError(res validation.Result) error {
	msgs := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}

var (
	rendererMu sync.Mutex
	renderers  = map[int]*glamour.TermRenderer{}
)

// renderMarkdown formats markdown for the terminal, falling back to the
// raw text when no renderer can be built.
func renderMarkdown(input []byte, width int) []byte {
	renderer := markdownRenderer(width)
	if renderer == nil {
		return input
	}
	out, err := renderer.RenderBytes(input)
	if err != nil {
		return input
	}
	return out
}

func markdownRenderer(width int) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if cached, ok := renderers[width]; ok {
		return cached
	}
	style := styles.ASCIIStyleConfig
	style.Item.BlockPrefix = "- "
	created, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[width] = created
	return created
}
