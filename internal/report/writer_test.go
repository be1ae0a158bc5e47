package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ocrdlp/ocrdlp/internal/model"
	"github.com/ocrdlp/ocrdlp/internal/stats"
)

// createTestReport creates a run report with sample data for testing.
func createTestReport() *model.RunReport {
	report := model.NewRunReport("indian invoice documents", "serper")
	report.URLs = []string{
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
		"https://example.com/c.jpg",
	}
	report.Downloads = []model.DownloadRecord{
		{SourceURL: report.URLs[0], LocalPath: "dataset/image_000001.jpg"},
		{SourceURL: report.URLs[1], LocalPath: "dataset/image_000002.jpg"},
	}
	report.Records = []model.ClassificationRecord{
		{DocumentCategory: "invoice", OCRDifficulty: "medium", LanguagePrimary: "English", ConfidenceScore: 0.9},
		model.NewErrorRecord("dataset/image_000002.jpg", "API request failed: status 429"),
	}
	report.ImageDir = "dataset"
	report.LabelFile = "dataset/labels.jsonl"

	summary := stats.Summarize(report.Records)
	report.Summary = &summary
	report.Finish()

	return report
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "DATASET BUILD REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "indian invoice documents") {
			t.Error("expected output to contain query")
		}
		if !strings.Contains(output, "serper") {
			t.Error("expected output to contain engine name")
		}
	})

	t.Run("writes pipeline counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "URLs found:      3") {
			t.Error("expected URL count in output")
		}
		if !strings.Contains(output, "Downloaded:      2") {
			t.Error("expected download count in output")
		}
		if !strings.Contains(output, "Failed:          1") {
			t.Error("expected failed count in output")
		}
	})

	t.Run("writes validation summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "VALIDATION SUMMARY") {
			t.Error("expected output to contain validation summary")
		}
		if !strings.Contains(output, "VALID:   1") {
			t.Error("expected valid count in output")
		}
		if !strings.Contains(output, "invoice") {
			t.Error("expected category distribution in output")
		}
	})

	t.Run("verbose mode includes field presence", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "FIELD PRESENCE") {
			t.Error("expected verbose output to contain field presence")
		}
		if !strings.Contains(output, "document_category") {
			t.Error("expected verbose output to list fields")
		}
	})

	t.Run("handles cancelled report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()
		report.Cancelled = true

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "CANCELLED") {
			t.Error("expected output to indicate cancellation")
		}
	})

	t.Run("shows error in status", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()
		report.ErrorMessage = "no images downloaded"

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "ERROR") {
			t.Error("expected ERROR in status")
		}
		if !strings.Contains(output, "no images downloaded") {
			t.Error("expected error message in output")
		}
	})

	t.Run("WriteSummary outputs summary without run info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		report := createTestReport()

		_, err := w.WriteSummary(report.Summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "VALIDATION SUMMARY") {
			t.Error("expected validation summary header")
		}
		if strings.Contains(output, "PIPELINE") {
			t.Error("summary-only output should not contain pipeline section")
		}
	})

	t.Run("showEmpty includes empty distributions", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowEmpty(true))

		summary := stats.Summarize(nil)
		_, err := w.WriteSummary(&summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "CATEGORY DISTRIBUTION") {
			t.Error("expected empty category distribution section with showEmpty")
		}
		if !strings.Contains(output, "No values") {
			t.Error("expected 'No values' marker for empty distribution")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed model.RunReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if parsed.Query != "indian invoice documents" {
			t.Errorf("expected query %q, got %q", "indian invoice documents", parsed.Query)
		}
		if parsed.Summary == nil || parsed.Summary.ValidCount != 1 {
			t.Error("expected summary with valid count 1 in JSON output")
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) > 1 {
			t.Errorf("expected compact output (1 line), got %d lines", len(lines))
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) < 5 {
			t.Errorf("expected multi-line output, got %d lines", len(lines))
		}
	})

	t.Run("serializes the fatal error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		report := createTestReport()
		report.Error = errTest

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed model.RunReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.ErrorMessage != "test failure" {
			t.Errorf("expected error message %q, got %q", "test failure", parsed.ErrorMessage)
		}
	})

	t.Run("WriteSummary outputs the summary alone", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		report := createTestReport()

		_, err := w.WriteSummary(report.Summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed model.ValidationSummary
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.TotalRecords != 2 {
			t.Errorf("expected total records 2, got %d", parsed.TotalRecords)
		}
	})
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "test failure" }

// TestFullJSONWriter tests the full JSON writer with metadata.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("includes version in output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "1.2.0", WithPrettyPrint())
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed JSONReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if parsed.Version != "1.2.0" {
			t.Errorf("expected version %q, got %q", "1.2.0", parsed.Version)
		}
		if parsed.Summary == nil {
			t.Error("expected summary in wrapped output")
		}
	})
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		w1 := NewSimpleWriter(&buf1)
		w2 := NewJSONWriter(&buf2)

		multi := NewMultiWriter(w1, w2)
		report := createTestReport()

		_, err := multi.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if buf1.Len() == 0 {
			t.Error("expected buf1 to have content")
		}
		if buf2.Len() == 0 {
			t.Error("expected buf2 to have content")
		}

		if strings.Contains(buf1.String(), "{") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.Contains(buf2.String(), "{") {
			t.Error("expected buf2 (JSON) to contain JSON")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		multi := NewMultiWriter()
		summary := stats.Summarize(nil)

		n, err := multi.WriteSummary(&summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 bytes written for empty writers, got %d", n)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# Dataset Build Report") {
			t.Error("expected output to contain H1 header")
		}
		if !strings.Contains(output, "indian invoice documents") {
			t.Error("expected output to contain query")
		}
	})

	t.Run("writes pipeline table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Pipeline") {
			t.Error("expected pipeline section header")
		}
		if !strings.Contains(output, "URLs found") {
			t.Error("expected URL count row")
		}
	})

	t.Run("writes validation summary with field presence", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Validation Summary") {
			t.Error("expected validation summary header")
		}
		if !strings.Contains(output, "### Field Presence") {
			t.Error("expected field presence section")
		}
		if !strings.Contains(output, "ocr_difficulty") {
			t.Error("expected field names in presence table")
		}
	})

	t.Run("includes pie chart for category distribution", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "pie") {
			t.Error("expected output to contain mermaid pie chart")
		}
		if !strings.Contains(output, "invoice") {
			t.Error("expected category label in pie chart")
		}
	})

	t.Run("includes alert for invalid records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// One of two records is invalid, so the valid rate sits at 50%
		// and the importance alert fires.
		output := buf.String()
		if !strings.Contains(output, "[!IMPORTANT]") {
			t.Error("expected IMPORTANT alert for partially invalid batch")
		}
	})

	t.Run("includes caution alert when nothing is valid", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		summary := stats.Summarize([]model.ClassificationRecord{
			model.NewErrorRecord("image_000001.jpg", "boom"),
		})

		_, err := w.WriteSummary(&summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected CAUTION alert when no records are valid")
		}
	})

	t.Run("includes tip alert when everything is valid", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		summary := stats.Summarize([]model.ClassificationRecord{
			{DocumentCategory: "invoice"},
		})

		_, err := w.WriteSummary(&summary)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected TIP alert when all records are valid")
		}
	})

	t.Run("handles cancelled report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()
		report.Cancelled = true

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Cancelled") {
			t.Error("expected output to indicate cancellation")
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		report := createTestReport()

		_, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "https://github.com/ocrdlp/ocrdlp") {
			t.Error("expected footer with repository link")
		}
	})
}
