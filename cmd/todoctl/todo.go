package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todo-engine/internal/app"
	"todo-engine/internal/filter"
	"todo-engine/internal/model"
)

// add
var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a new todo",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var (
	addDescription string
	addPriority    string
	addCategory    string
	addTags        []string
	addDue         string
	addAt          string
)

// list
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List todos",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var (
	listStatus     string
	listPriorities []string
	listCategories []string
	listTags       []string
	listDueFrom    string
	listDueTo      string
	listNoDue      bool
	listOverdue    bool
	listSearch     string
	listFuzzy      bool
	listSort       string
	listDesc       bool
	listGroup      string
	listDeleted    bool
	listJSON       bool
)

// done
var doneCmd = &cobra.Command{
	Use:   "done <id>...",
	Short: "Toggle completion of one or more todos",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDone,
}

// rm
var rmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete one or more todos",
	Long: `Delete one or more todos.

Todos are soft-deleted and can be brought back with restore. Use
--permanent to remove them for good.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

var rmPermanent bool

// restore
var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a deleted todo",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show every field of a todo",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(addCmd, listCmd, showCmd, doneCmd, rmCmd, restoreCmd)

	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Description")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "Priority (high, medium, low)")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "Category id")
	addCmd.Flags().StringArrayVarP(&addTags, "tag", "t", nil, "Tag (repeatable)")
	addCmd.Flags().StringVar(&addDue, "due", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&addAt, "at", "", "Due time (HH:MM)")

	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (all, active, completed)")
	listCmd.Flags().StringSliceVar(&listPriorities, "priority", nil, "Filter by priorities")
	listCmd.Flags().StringSliceVar(&listCategories, "category", nil, "Filter by category ids")
	listCmd.Flags().StringSliceVar(&listTags, "tag", nil, "Filter by tags")
	listCmd.Flags().StringVar(&listDueFrom, "due-from", "", "Earliest due date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listDueTo, "due-to", "", "Latest due date (YYYY-MM-DD)")
	listCmd.Flags().BoolVar(&listNoDue, "no-due", false, "Keep undated todos when a due range is set")
	listCmd.Flags().BoolVar(&listOverdue, "overdue", false, "Only overdue todos")
	listCmd.Flags().StringVarP(&listSearch, "search", "q", "", "Search text")
	listCmd.Flags().BoolVar(&listFuzzy, "fuzzy", false, "Fuzzy search")
	listCmd.Flags().StringVar(&listSort, "sort", "", "Sort field (created_at, updated_at, due_date, priority, title, category, status, custom)")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "Sort descending")
	listCmd.Flags().StringVar(&listGroup, "group", "", "Group by category, priority or date")
	listCmd.Flags().BoolVar(&listDeleted, "deleted", false, "Include deleted todos")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	rmCmd.Flags().BoolVar(&rmPermanent, "permanent", false, "Remove instead of soft-deleting")
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	req := model.CreateTodoRequest{
		Title:       strings.Join(args, " "),
		Description: addDescription,
		Priority:    model.Priority(strings.ToLower(addPriority)),
		Category:    addCategory,
		Tags:        addTags,
		DueDate:     addDue,
		DueTime:     addAt,
	}
	if req.Priority == "" || req.Category == "" {
		prefs, err := a.Preferences.Get(cmd.Context())
		if err != nil {
			return err
		}
		if req.Priority == "" {
			req.Priority = prefs.DefaultPriority
		}
		if req.Category == "" {
			req.Category = prefs.DefaultCategory
		}
	}

	item, res, err := a.Todos.Create(cmd.Context(), req)
	if err != nil {
		return err
	}
	if !res.Valid {
		return validationError(res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", shortID(item.ID), item.Title)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	q := app.Query{
		Criteria: filter.Criteria{
			Status:       model.StatusFilter(listStatus),
			Categories:   listCategories,
			Tags:         listTags,
			DueFrom:      listDueFrom,
			DueTo:        listDueTo,
			HasNoDueDate: listNoDue,
			OverdueOnly:  listOverdue,
		},
		Search:         listSearch,
		Fuzzy:          listFuzzy,
		GroupBy:        app.Grouping(listGroup),
		IncludeDeleted: listDeleted,
	}
	for _, p := range listPriorities {
		priority := model.Priority(strings.ToLower(p))
		if !model.ValidPriorities[priority] {
			return fmt.Errorf("unknown priority %q", p)
		}
		q.Criteria.Priorities = append(q.Criteria.Priorities, priority)
	}
	if listStatus != "" && !model.ValidStatusFilters[q.Criteria.Status] {
		return fmt.Errorf("unknown status %q", listStatus)
	}
	if listSort != "" {
		field := model.SortField(listSort)
		if !model.ValidSortFields[field] {
			return fmt.Errorf("unknown sort field %q", listSort)
		}
		q.Sort = model.SortOption{Field: field, Direction: model.SortAsc}
		if listDesc {
			q.Sort.Direction = model.SortDesc
		}
	}

	result, err := a.List(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if q.GroupBy != app.GroupNone {
		printGroups(out, result.Groups, a.Now())
		return nil
	}
	printTable(out, result.Todos)
	return nil
}

func runDone(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	ids, err := resolveIDs(cmd.Context(), a, args)
	if err != nil {
		return err
	}
	for _, id := range ids {
		item, err := a.Todos.ToggleComplete(cmd.Context(), id)
		if err != nil {
			return err
		}
		verb := "Reopened"
		if item.IsCompleted() {
			verb = "Completed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", verb, shortID(item.ID), item.Title)
	}
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	ids, err := resolveIDs(cmd.Context(), a, args)
	if err != nil {
		return err
	}
	n, err := a.Todos.BulkDelete(cmd.Context(), ids, rmPermanent)
	if err != nil {
		return err
	}
	verb := "Deleted"
	if rmPermanent {
		verb = "Permanently deleted"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d todo(s)\n", verb, n)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	id, err := resolveID(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}
	item, err := a.Todos.Restore(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s %s\n", shortID(item.ID), item.Title)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	id, err := resolveID(cmd.Context(), a, args[0])
	if err != nil {
		return err
	}
	item, err := a.Todos.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	printDetail(cmd.OutOrStdout(), item, a.Now())
	return nil
}
