package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/dataset"
	"github.com/ocrdlp/ocrdlp/internal/report"
	"github.com/ocrdlp/ocrdlp/internal/stats"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [label-file]",
		Short: "Summarize label quality for an existing label file",
		Long: `Validate reads a JSONL label file and reports on dataset quality:
valid and error-marked record counts, per-field presence rates, and value
distributions for the key label fields.

No network access is needed; validation is a pure read of the label file.

Examples:
  # Validate the default label file
  ocrdlp validate

  # Validate a specific file with full field presence detail
  ocrdlp validate --verbose path/to/labels.jsonl

  # Markdown summary for a dataset README
  ocrdlp validate --markdown labels.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidateCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write summary to specified file path")
	cmd.Flags().Bool("show-empty", false,
		"Show empty distribution sections in text output")

	return cmd
}

// runValidateCmd executes the validate command.
func runValidateCmd(cmd *cobra.Command, args []string) error {
	labelFile := config.DefaultLabelFile
	if len(args) > 0 {
		labelFile = args[0]
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
	reportFile, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	showEmpty, err := cmd.Flags().GetBool("show-empty")
	if err != nil {
		return err
	}

	records, err := dataset.ReadLabels(labelFile)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("label file %s contains no records", labelFile)
	}

	summary := stats.Summarize(records)

	writer, cleanup, err := summaryWriter(jsonOutput, markdownOutput, reportFile,
		getVerboseFlag(cmd), showEmpty)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := writer.WriteSummary(&summary); err != nil {
		return err
	}
	return nil
}

// summaryWriter selects the report writer for the requested format and
// destination. The returned cleanup closes the output file when one was
// opened.
func summaryWriter(jsonOutput, markdownOutput bool, reportFile string, verbose, showEmpty bool) (report.Writer, func(), error) {
	output := os.Stdout
	cleanup := func() {}

	if reportFile != "" {
		dir := filepath.Dir(reportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(reportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		cleanup = func() { f.Close() } //nolint:errcheck // Best effort cleanup
	}

	switch {
	case jsonOutput:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), cleanup, nil
	case markdownOutput:
		return report.NewMarkdownWriter(output), cleanup, nil
	default:
		return report.NewSimpleWriter(output,
			report.WithVerbose(verbose),
			report.WithShowEmpty(showEmpty),
		), cleanup, nil
	}
}
