package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ocrdlp/ocrdlp/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no data are shown.
	showEmpty bool

	// verbose enables per-field presence rates in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with per-field presence rates.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full run report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writePipeline(&sb, report)
	if report.Summary != nil {
		w.writeSummary(&sb, report.Summary)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs only the validation summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.ValidationSummary) (int, error) {
	var sb strings.Builder

	w.writeSummary(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      DATASET BUILD REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Query:    %s\n", report.Query))
	sb.WriteString(fmt.Sprintf("Engine:   %s\n", report.Engine))
	sb.WriteString(fmt.Sprintf("Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", report.Duration().Round(10*time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", statusText(report)))

	sb.WriteString("\n")
}

// statusText returns the status line based on report state.
func statusText(report *model.RunReport) string {
	if report.Cancelled {
		return "CANCELLED (partial results)"
	}
	if report.ErrorMessage != "" {
		return "ERROR - " + report.ErrorMessage
	}
	return "Complete"
}

// writePipeline writes the per-stage counts section.
func (w *SimpleWriter) writePipeline(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PIPELINE\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  URLs found:      %d\n", report.URLCount()))
	sb.WriteString(fmt.Sprintf("  Downloaded:      %d\n", report.DownloadCount()))
	sb.WriteString(fmt.Sprintf("  Failed:          %d\n", report.FailedDownloads()))
	sb.WriteString(fmt.Sprintf("  Classified:      %d\n", len(report.Records)))

	if report.ImageDir != "" {
		sb.WriteString(fmt.Sprintf("\n  Image directory: %s\n", report.ImageDir))
	}
	if report.LabelFile != "" {
		sb.WriteString(fmt.Sprintf("  Label file:      %s\n", report.LabelFile))
	}
	sb.WriteString("\n")
}

// writeSummary writes the validation summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.ValidationSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("VALIDATION SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:   %d records\n", summary.TotalRecords))
	sb.WriteString(fmt.Sprintf("  VALID:   %d (%.1f%%)\n", summary.ValidCount, summary.ValidRate()*100))
	sb.WriteString(fmt.Sprintf("  INVALID: %d\n", summary.InvalidCount))
	sb.WriteString("\n")

	if w.verbose {
		w.writeFieldPresence(sb, summary)
	}

	w.writeDistribution(sb, "CATEGORY DISTRIBUTION", summary.CategoryDistribution)
	w.writeDistribution(sb, "DIFFICULTY DISTRIBUTION", summary.DifficultyDistribution)
	w.writeDistribution(sb, "LANGUAGE DISTRIBUTION", summary.LanguageDistribution)
}

// writeFieldPresence writes the per-field presence rates in canonical
// field order.
func (w *SimpleWriter) writeFieldPresence(sb *strings.Builder, summary *model.ValidationSummary) {
	sb.WriteString("FIELD PRESENCE\n\n")
	for _, field := range model.LabelFields() {
		rate := summary.FieldPresenceRates[field]
		if rate == 0 && !w.showEmpty {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-26s %5.1f%%\n", field, rate*100))
	}
	sb.WriteString("\n")
}

// writeDistribution writes one value distribution section.
func (w *SimpleWriter) writeDistribution(sb *strings.Builder, title string, dist []model.ValueCount) {
	if len(dist) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(title)
	sb.WriteString("\n\n")

	if len(dist) == 0 {
		sb.WriteString("  No values\n")
	} else {
		for _, vc := range dist {
			sb.WriteString(fmt.Sprintf("  %-26s %4d (%.1f%%)\n", vc.Value, vc.Count, vc.Percentage))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by ocrdlp\n")
	sb.WriteString("https://github.com/ocrdlp/ocrdlp\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
