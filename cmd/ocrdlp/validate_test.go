package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestLabels writes a small JSONL label file and returns its path.
func writeTestLabels(t *testing.T) string {
	t.Helper()

	lines := []string{
		`{"document_category":"invoice","contains_pii":true,"confidence_score":0.9}`,
		`{"document_category":"receipt","confidence_score":0.8}`,
		`{"error":"API request failed: status 429"}`,
	}

	path := filepath.Join(t.TempDir(), "labels.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestNewValidateCmd tests the validate command creation.
func TestNewValidateCmd(t *testing.T) {
	t.Parallel()

	cmd := NewValidateCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "validate [label-file]" {
			t.Errorf("expected use 'validate [label-file]', got %q", cmd.Use)
		}
	})

	t.Run("has format flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"json", "markdown", "report", "show-empty"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %q flag", name)
			}
		}
	})
}

// TestRunValidateCmd tests validate command execution.
func TestRunValidateCmd(t *testing.T) {
	t.Run("writes text summary to report file", func(t *testing.T) {
		labelFile := writeTestLabels(t)
		reportFile := filepath.Join(t.TempDir(), "summary.txt")

		cmd := NewValidateCmd()
		cmd.SetArgs([]string{"-r", reportFile, labelFile})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(reportFile) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatal(err)
		}
		out := string(content)
		if !strings.Contains(out, "VALIDATION SUMMARY") {
			t.Errorf("unexpected summary output: %s", out)
		}
		if !strings.Contains(out, "3") {
			t.Errorf("expected total of 3 records in output: %s", out)
		}
	})

	t.Run("writes markdown summary", func(t *testing.T) {
		labelFile := writeTestLabels(t)
		reportFile := filepath.Join(t.TempDir(), "summary.md")

		cmd := NewValidateCmd()
		cmd.SetArgs([]string{"-m", "-r", reportFile, labelFile})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(reportFile) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(content), "Validation Summary") {
			t.Errorf("unexpected summary output: %s", content)
		}
	})

	t.Run("writes json summary", func(t *testing.T) {
		labelFile := writeTestLabels(t)
		reportFile := filepath.Join(t.TempDir(), "summary.json")

		cmd := NewValidateCmd()
		cmd.SetArgs([]string{"-j", "-r", reportFile, labelFile})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(reportFile) //nolint:gosec // Test-controlled path
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(content), `"total_records": 3`) {
			t.Errorf("unexpected summary output: %s", content)
		}
	})

	t.Run("rejects conflicting formats", func(t *testing.T) {
		labelFile := writeTestLabels(t)

		cmd := NewValidateCmd()
		cmd.SetArgs([]string{"-j", "-m", labelFile})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for conflicting formats")
		}
	})

	t.Run("fails on missing label file", func(t *testing.T) {
		cmd := NewValidateCmd()
		cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.jsonl")})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for missing label file")
		}
	})

	t.Run("fails on empty label file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.jsonl")
		if err := os.WriteFile(path, nil, 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewValidateCmd()
		cmd.SetArgs([]string{path})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for empty label file")
		}
	})
}
