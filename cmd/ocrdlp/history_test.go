package main

import (
	"testing"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history [query]" {
			t.Errorf("expected use 'history [query]', got %q", cmd.Use)
		}
	})

	t.Run("has selection flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"list-queries", "latest", "run-id", "json", "markdown"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %q flag", name)
			}
		}
	})
}

// TestFormatCountSummary tests count summary formatting for the listing.
func TestFormatCountSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		summary map[string]int
		want    string
	}{
		{
			name:    "nil summary",
			summary: nil,
			want:    "N/A",
		},
		{
			name:    "empty summary",
			summary: map[string]int{},
			want:    "N/A",
		},
		{
			name: "full summary in canonical order",
			summary: map[string]int{
				"invalid":    1,
				"valid":      9,
				"classified": 10,
				"downloads":  10,
				"urls":       12,
			},
			want: "urls:12 downloads:10 classified:10 valid:9 invalid:1",
		},
		{
			name:    "unknown keys are ignored",
			summary: map[string]int{"bogus": 3},
			want:    "N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatCountSummary(tt.summary); got != tt.want {
				t.Errorf("formatCountSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}
