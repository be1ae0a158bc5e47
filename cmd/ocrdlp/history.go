package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/database"
	"github.com/ocrdlp/ocrdlp/internal/model"
	"github.com/ocrdlp/ocrdlp/internal/report"
)

// NewHistoryCmd creates the history command.
// This command browses run records stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [query]",
		Short: "Browse past dataset build runs",
		Long: `History lists past build runs stored in the run database and shows
their reports.

Every 'ocrdlp build' saves its run report, so history works across
sessions: list which queries have been built, inspect per-run counts, and
re-print the report of any stored run.

Examples:
  # List all queries with stored runs
  ocrdlp history --list-queries

  # List the run history for a query
  ocrdlp history "invoice document"

  # Show the latest run report for a query
  ocrdlp history --latest "invoice document"

  # Show a specific run by ID
  ocrdlp history --run-id 6c1f... "invoice document"

  # JSON output for scripting
  ocrdlp history --latest --json "invoice document"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().BoolP("list-queries", "L", false,
		"List all queries that have stored runs")

	// Report selection flags
	cmd.Flags().Bool("latest", false,
		"Show the latest run report for the query")
	cmd.Flags().String("run-id", "",
		"Show the run with this ID (use the listing to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listQueries, err := cmd.Flags().GetBool("list-queries")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database; a failed validation
	// should not take the single-writer lock.
	var query string
	if !listQueries {
		if len(args) == 0 {
			return errors.New("query is required (use --list-queries to see stored queries)")
		}
		query = args[0]
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Best effort cleanup

	ctx := context.Background()

	if listQueries {
		return listStoredQueries(ctx, db)
	}

	latest, err := cmd.Flags().GetBool("latest")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetString("run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	if latest || runID != "" {
		return showStoredRun(ctx, db, query, runID, jsonOutput, markdownOutput)
	}

	return listRunHistory(ctx, db, query)
}

// listStoredQueries lists all queries that have run records in the database.
func listStoredQueries(ctx context.Context, db *database.RunDB) error {
	queries, err := db.ListQueries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queries: %w", err)
	}

	if len(queries) == 0 {
		fmt.Println("No stored runs found in the database.")
		fmt.Println("\nUse 'ocrdlp build <query>' to build a dataset.")
		return nil
	}

	fmt.Printf("Stored queries (%d):\n\n", len(queries))
	for _, q := range queries {
		fmt.Printf("  • %s\n", q)
	}
	fmt.Println("\nUse 'ocrdlp history <query>' to see the run history for a query.")

	return nil
}

// listRunHistory lists all run records for a specific query.
func listRunHistory(ctx context.Context, db *database.RunDB, query string) error {
	runs, err := db.GetRunHistory(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No run history found for %q\n", query)
		fmt.Println("\nUse 'ocrdlp build' to build a dataset for this query.")
		return nil
	}

	fmt.Printf("Run history for %q (%d runs):\n\n", query, len(runs))
	fmt.Printf("  %-36s  %-20s  %-8s  %s\n", "ID", "Date", "Engine", "Counts")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, meta := range runs {
		fmt.Printf("  %-36s  %-20s  %-8s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.Engine,
			formatCountSummary(meta.CountSummary),
		)
	}

	fmt.Println("\nUse 'ocrdlp history --latest <query>' to show the latest run report.")
	fmt.Println("Use 'ocrdlp history --run-id <id> <query>' to show a specific run.")

	return nil
}

// formatCountSummary formats the per-stage count map for the listing.
func formatCountSummary(summary map[string]int) string {
	if len(summary) == 0 {
		return "N/A"
	}

	var parts []string
	for _, key := range []string{"urls", "downloads", "classified", "valid", "invalid"} {
		if v, ok := summary[key]; ok {
			parts = append(parts, fmt.Sprintf("%s:%d", key, v))
		}
	}

	if len(parts) == 0 {
		return "N/A"
	}
	return strings.Join(parts, " ")
}

// showStoredRun prints a stored run report in the requested format.
func showStoredRun(ctx context.Context, db *database.RunDB, query, runID string, jsonOutput, markdownOutput bool) error {
	var (
		runReport *model.RunReport
		err       error
	)

	if runID != "" {
		runReport, err = db.GetRunReportByID(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to get run %s: %w", runID, err)
		}
		if runReport == nil {
			return fmt.Errorf("run with ID %s not found", runID)
		}
		if runReport.Query != query {
			return fmt.Errorf("run %s belongs to query %q, not %q", runID, runReport.Query, query)
		}
	} else {
		runReport, err = db.GetLatestRunReport(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to get latest run: %w", err)
		}
		if runReport == nil {
			return fmt.Errorf("no runs found for %q", query)
		}
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runReport)
	}

	if markdownOutput {
		writer := report.NewMarkdownWriter(os.Stdout)
		_, err := writer.Write(runReport)
		return err
	}

	writer := report.NewSimpleWriter(os.Stdout)
	_, err = writer.Write(runReport)
	return err
}
