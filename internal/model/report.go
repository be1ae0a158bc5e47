package model

import (
	"time"

	"github.com/google/uuid"
)

// RunReport is the main result structure for one dataset-building run.
// It accumulates the output of each pipeline stage: discovered URLs,
// download records, classification records, and the final summary.
//
// Design decision: We use a single large struct rather than per-stage
// result types to simplify serialization and database storage. Steps
// append to it as they execute.
type RunReport struct {
	// ID uniquely identifies this run.
	ID string `json:"id"`

	// Query is the image search query for this run.
	Query string `json:"query"`

	// Engine is the search engine name used (serper, serpapi, unsplash,
	// flickr, or mixed).
	Engine string `json:"engine"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run completed, zero while in progress.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// URLs are the image URLs discovered by the search stage, unique
	// within the run and capped at the configured limit.
	URLs []string `json:"urls,omitempty"`

	// Downloads are the records for successfully downloaded images.
	// len(Downloads) may be less than len(URLs).
	Downloads []DownloadRecord `json:"downloads,omitempty"`

	// Records are the per-image classification results, one per
	// downloaded image, well-formed or error-marked.
	Records []ClassificationRecord `json:"records,omitempty"`

	// Summary is the validation summary computed over Records.
	Summary *ValidationSummary `json:"summary,omitempty"`

	// LabelFile is the path of the JSONL label file written for this run.
	LabelFile string `json:"label_file,omitempty"`

	// ImageDir is the directory the images were written to.
	ImageDir string `json:"image_dir,omitempty"`

	// PerformedSteps names the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled indicates the run was interrupted before completing.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error holds the fatal error that aborted the run, if any.
	// Per-item failures are not recorded here; they are reflected in the
	// stage counts instead.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRunReport creates a RunReport for the given query and engine.
func NewRunReport(query, engine string) *RunReport {
	return &RunReport{
		ID:        uuid.New().String(),
		Query:     query,
		Engine:    engine,
		StartedAt: time.Now(),
	}
}

// URLCount returns the number of discovered URLs.
func (r *RunReport) URLCount() int { return len(r.URLs) }

// DownloadCount returns the number of successful downloads.
func (r *RunReport) DownloadCount() int { return len(r.Downloads) }

// FailedDownloads returns the number of URLs that did not produce a file.
func (r *RunReport) FailedDownloads() int { return len(r.URLs) - len(r.Downloads) }

// Finish stamps the completion time.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the elapsed run time. If the run has not finished,
// it measures up to now.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
