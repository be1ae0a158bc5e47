package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/ocrdlp/ocrdlp/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writePipeline(md, report)
	if report.Summary != nil {
		w.writeSummary(md, report.Summary)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs only the validation summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.ValidationSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Validation Summary")
	md.PlainText("")
	w.writeSummary(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Dataset Build Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", "`" + report.Query + "`"},
			{"Engine", report.Engine},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(10 * time.Millisecond).String()},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RunReport) string {
	if report.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

// writePipeline writes the per-stage counts section.
func (w *MarkdownWriter) writePipeline(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Pipeline")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Count"},
		Rows: [][]string{
			{"URLs found", strconv.Itoa(report.URLCount())},
			{"Downloaded", strconv.Itoa(report.DownloadCount())},
			{"Failed downloads", strconv.Itoa(report.FailedDownloads())},
			{"Classified", strconv.Itoa(len(report.Records))},
		},
	})
	md.PlainText("")

	if report.ImageDir != "" {
		md.PlainTextf("Images: `%s`", report.ImageDir)
		md.PlainText("")
	}
	if report.LabelFile != "" {
		md.PlainTextf("Labels: `%s`", report.LabelFile)
		md.PlainText("")
	}
}

// writeSummary writes the validation summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *model.ValidationSummary) {
	md.H2("Validation Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Total records", strconv.Itoa(summary.TotalRecords)},
			{"Valid", strconv.Itoa(summary.ValidCount)},
			{"Invalid", strconv.Itoa(summary.InvalidCount)},
			{"**Valid rate**", "**" + fmt.Sprintf("%.1f%%", summary.ValidRate()*100) + "**"},
		},
	})
	md.PlainText("")

	w.writeAlert(md, summary)
	w.writeFieldPresence(md, summary)

	if len(summary.CategoryDistribution) > 0 {
		w.writePieChart(md, summary.CategoryDistribution)
	}
	w.writeDistribution(md, "Category Distribution", summary.CategoryDistribution)
	w.writeDistribution(md, "Difficulty Distribution", summary.DifficultyDistribution)
	w.writeDistribution(md, "Language Distribution", summary.LanguageDistribution)
}

// writeAlert writes an appropriate alert based on the valid rate.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.ValidationSummary) {
	switch {
	case summary.TotalRecords == 0:
		md.Note("No records to validate.")
	case summary.ValidCount == 0:
		md.Cautionf(
			"No valid records! All %d record(s) failed classification or lack a document category.",
			summary.TotalRecords,
		)
	case summary.ValidRate() < 0.5:
		md.Warningf(
			"Low valid rate. %d of %d record(s) are invalid; the dataset may need reclassification.",
			summary.InvalidCount, summary.TotalRecords,
		)
	case summary.InvalidCount > 0:
		md.Importantf(
			"%d record(s) are invalid and will be excluded from the dataset.",
			summary.InvalidCount,
		)
	default:
		md.Tip("All records are valid.")
	}
	md.PlainText("")
}

// writeFieldPresence writes the per-field presence rate table in canonical
// field order.
func (w *MarkdownWriter) writeFieldPresence(md *markdown.Markdown, summary *model.ValidationSummary) {
	md.H3("Field Presence")
	md.PlainText("")

	rows := make([][]string, 0, len(model.LabelFields()))
	for _, field := range model.LabelFields() {
		rate := summary.FieldPresenceRates[field]
		rows = append(rows, []string{field, fmt.Sprintf("%.1f%%", rate*100)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Field", "Presence"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart for the category distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, dist []model.ValueCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Document Category Distribution"),
		piechart.WithShowData(true),
	)

	for _, vc := range dist {
		if vc.Count > 0 {
			chart.LabelAndIntValue(vc.Value, uint64(vc.Count)) //nolint:gosec // Counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeDistribution writes one value distribution as a table.
func (w *MarkdownWriter) writeDistribution(md *markdown.Markdown, title string, dist []model.ValueCount) {
	md.H3(title)
	md.PlainText("")

	if len(dist) == 0 {
		md.PlainText("No values.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(dist))
	for i, vc := range dist {
		rows[i] = []string{
			vc.Value,
			strconv.Itoa(vc.Count),
			fmt.Sprintf("%.1f%%", vc.Percentage),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Value", "Count", "Share"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ocrdlp](https://github.com/ocrdlp/ocrdlp)*")
}
