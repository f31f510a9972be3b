package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"todo-engine/internal/exchange"
	"todo-engine/internal/model"
	"todo-engine/internal/storage"
)

// stats
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show completion statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsJSON bool

// export
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export todos as JSON, CSV or Markdown",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var (
	exportFormat  string
	exportOutput  string
	exportDeleted bool
	exportRender  bool
	exportWidth   int
)

// import
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import todos from a JSON or CSV file",
	Long: `Import todos from a JSON or CSV file.

Imported todos get fresh ids and are added to the existing collection.
Rows that fail validation are reported and skipped. The format is taken
from the file extension unless --format is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importFormat string

// cleanup
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Permanently remove old completed todos",
	Args:  cobra.NoArgs,
	RunE:  runCleanup,
}

var cleanupDays int

// backup
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Store a backup snapshot, or write one to a file",
	Args:  cobra.NoArgs,
	RunE:  runBackup,
}

var backupOutput string

// storage
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Show storage usage and the last backup",
	Args:  cobra.NoArgs,
	RunE:  runStorage,
}

// restore-backup
var restoreBackupCmd = &cobra.Command{
	Use:   "restore-backup [file]",
	Short: "Replace all data with a backup",
	Long: `Replace all data with a backup.

Without a file the stored snapshot from the last "backup" is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestoreBackup,
}

func init() {
	rootCmd.AddCommand(statsCmd, exportCmd, importCmd, cleanupCmd, backupCmd, restoreBackupCmd, storageCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, csv, markdown)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportDeleted, "deleted", false, "Include deleted todos")
	exportCmd.Flags().BoolVar(&exportRender, "render", false, "Render markdown even when stdout is not a terminal")
	exportCmd.Flags().IntVar(&exportWidth, "width", 80, "Wrap width for --render")

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Import format (json, csv)")

	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "Remove todos completed more than this many days ago (default from config)")

	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Write the backup to a file instead of storing it")
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	s, err := a.Stats.Calculate(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	label := func(name string) string { return headerStyle.Render(fmt.Sprintf("%-22s", name)) }
	fmt.Fprintf(out, "%s%d\n", label("Total"), s.Total)
	fmt.Fprintf(out, "%s%d\n", label("Active"), s.Active)
	fmt.Fprintf(out, "%s%d\n", label("Completed"), s.Completed)
	fmt.Fprintf(out, "%s%d\n", label("Overdue"), s.Overdue)
	fmt.Fprintf(out, "%s%d%%\n", label("Completion rate"), s.CompletionRate)
	fmt.Fprintf(out, "%s%d / %d / %d\n", label("Done today/week/month"), s.CompletedToday, s.CompletedThisWeek, s.CompletedThisMonth)
	fmt.Fprintf(out, "%s%.1fh\n", label("Avg completion time"), s.AverageCompletionHours)
	fmt.Fprintf(out, "%s%d (longest %d)\n", label("Streak"), s.CurrentStreak, s.LongestStreak)

	fmt.Fprintf(out, "%s", label("By priority"))
	for _, p := range []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow} {
		fmt.Fprintf(out, "%s=%d ", p, s.PriorityDistribution[p])
	}
	fmt.Fprintln(out)

	if len(s.CategoryDistribution) > 0 {
		cats := make([]string, 0, len(s.CategoryDistribution))
		for c := range s.CategoryDistribution {
			cats = append(cats, c)
		}
		slices.Sort(cats)
		parts := make([]string, len(cats))
		for i, c := range cats {
			parts[i] = fmt.Sprintf("%s=%d", c, s.CategoryDistribution[c])
		}
		fmt.Fprintf(out, "%s%s\n", label("By category"), strings.Join(parts, " "))
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	format := exchange.Format(strings.ToLower(exportFormat))
	if format == "md" {
		format = exchange.FormatMarkdown
	}
	if !exchange.ValidFormats[format] {
		return fmt.Errorf("unknown export format %q", exportFormat)
	}

	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	data, err := a.Exchange.Export(cmd.Context(), format, exportDeleted)
	if err != nil {
		return err
	}
	if exportOutput != "" {
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", exportOutput)
		return nil
	}
	if format == exchange.FormatMarkdown && (exportRender || isTerminal(cmd.OutOrStdout())) {
		data = renderMarkdown(data, exportWidth)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// formatFromPath guesses an import format from the file extension.
func formatFromPath(path string) exchange.Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return exchange.FormatCSV
	}
	return exchange.FormatJSON
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	format := exchange.Format(strings.ToLower(importFormat))
	if format == "" {
		format = formatFromPath(args[0])
	}

	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	result, err := a.Exchange.Import(cmd.Context(), format, data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d, failed %d\n", result.Imported, result.Failed)
	for _, e := range result.Errors {
		field := e.Field
		if field == "" {
			field = "-"
		}
		fmt.Fprintf(out, "  row %d %s: %s\n", e.Row, field, e.Message)
	}
	if result.Imported == 0 && result.Failed == 0 && len(result.Errors) > 0 {
		return fmt.Errorf("import failed")
	}
	return nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	days := cleanupDays
	if days <= 0 {
		days = a.Config.Todo.CleanupDays
	}
	n, err := a.Todos.Cleanup(cmd.Context(), days)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d todo(s) completed more than %d days ago\n", n, days)
	return nil
}

func runBackup(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	if backupOutput != "" {
		blob, err := a.Store.CreateBackup(cmd.Context())
		if err != nil {
			return err
		}
		if err := os.WriteFile(backupOutput, blob, 0o600); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", backupOutput)
		return nil
	}

	at, err := a.Store.SaveBackup(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup saved at %s\n", at.Format(time.RFC3339))
	return nil
}

func runRestoreBackup(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	var blob []byte
	if len(args) == 1 {
		blob, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read backup file: %w", err)
		}
	} else {
		var stored json.RawMessage
		found, err := a.Store.Get(cmd.Context(), storage.KeyBackup, &stored)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no stored backup; run backup first")
		}
		blob = stored
	}

	if err := a.Store.RestoreBackup(cmd.Context(), blob); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Backup restored")
	return nil
}

func runStorage(cmd *cobra.Command, _ []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	info, err := a.Store.StorageInfo(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	label := func(name string) string { return headerStyle.Render(fmt.Sprintf("%-12s", name)) }
	fmt.Fprintf(out, "%s%s\n", label("Backend"), info.Backend)
	if info.Quota > 0 {
		fmt.Fprintf(out, "%s%s of %s (%.2f%%)\n", label("Used"),
			humanize.Bytes(uint64(info.Used)), humanize.Bytes(uint64(info.Quota)), info.Percentage)
	} else {
		fmt.Fprintf(out, "%s%s\n", label("Used"), humanize.Bytes(uint64(info.Used)))
	}

	var backupAt time.Time
	found, err := a.Store.Get(cmd.Context(), storage.KeyBackupDate, &backupAt)
	if err != nil {
		return err
	}
	if found {
		fmt.Fprintf(out, "%s%s\n", label("Last backup"), humanize.RelTime(backupAt, a.Now(), "ago", "from now"))
	} else {
		fmt.Fprintf(out, "%snever\n", label("Last backup"))
	}

	if info.Warning {
		fmt.Fprintln(out, overdueStyle.Render("Storage is nearly full; export or clean up old todos."))
	}
	return nil
}
