package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ocrdlp/ocrdlp/internal/classify"
	"github.com/ocrdlp/ocrdlp/internal/database"
	"github.com/ocrdlp/ocrdlp/internal/dataset"
	"github.com/ocrdlp/ocrdlp/internal/download"
	"github.com/ocrdlp/ocrdlp/internal/imagemeta"
	"github.com/ocrdlp/ocrdlp/internal/model"
	"github.com/ocrdlp/ocrdlp/internal/search"
	"github.com/ocrdlp/ocrdlp/internal/stats"
)

// SearchStep discovers image URLs for the run's query.
//
// Design decision: Search is a separate step because:
// 1. Its result (the URL list) feeds every later stage
// 2. A search-only run is a useful dry-run before spending download quota
// 3. Engine failures degrade to an empty list rather than aborting
type SearchStep struct {
	// searcher performs the engine queries.
	searcher *search.Searcher

	// engine selects which provider(s) to query.
	engine search.Engine

	// limit caps the number of URLs carried forward.
	limit int

	// logger for structured logging.
	logger *slog.Logger
}

// SearchStepOption configures a SearchStep.
type SearchStepOption func(*SearchStep)

// WithSearchLogger sets a custom logger for the search step.
func WithSearchLogger(logger *slog.Logger) SearchStepOption {
	return func(s *SearchStep) {
		s.logger = logger
	}
}

// NewSearchStep creates a search step for the given engine and limit.
func NewSearchStep(searcher *search.Searcher, engine search.Engine, limit int, opts ...SearchStepOption) *SearchStep {
	s := &SearchStep{
		searcher: searcher,
		engine:   engine,
		limit:    limit,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SearchStep) Name() string {
	return "search"
}

// Do executes the search step. An empty result is not an error here; later
// steps decide whether an empty run is fatal.
func (s *SearchStep) Do(ctx context.Context, report *model.RunReport) error {
	report.URLs = s.searcher.Search(ctx, report.Query, s.engine, s.limit)

	s.logger.Info("search complete",
		"query", report.Query,
		"engine", string(s.engine),
		"urls", len(report.URLs),
	)
	return nil
}

// DownloadStep fetches the discovered URLs into the image directory.
// Images below the configured minimum dimensions are discarded after
// download; tiny thumbnails are useless for OCR testing.
type DownloadStep struct {
	// downloader performs the concurrent fetches.
	downloader *download.Downloader

	// destDir is the image output directory.
	destDir string

	// minWidth and minHeight discard undersized images when positive.
	minWidth  int
	minHeight int

	// history and historyWindow skip URLs already downloaded within
	// the window. Nil history disables cross-run deduplication.
	history       *database.RunDB
	historyWindow time.Duration

	// logger for structured logging.
	logger *slog.Logger
}

// DownloadStepOption configures a DownloadStep.
type DownloadStepOption func(*DownloadStep)

// WithMinDimensions discards downloaded images smaller than the given
// pixel dimensions. Zero disables the filter.
func WithMinDimensions(width, height int) DownloadStepOption {
	return func(s *DownloadStep) {
		s.minWidth = width
		s.minHeight = height
	}
}

// WithDownloadHistory skips URLs recorded as downloaded within window,
// using the run database as the cross-run record. A zero window disables
// the check.
func WithDownloadHistory(db *database.RunDB, window time.Duration) DownloadStepOption {
	return func(s *DownloadStep) {
		s.history = db
		s.historyWindow = window
	}
}

// WithDownloadLogger sets a custom logger for the download step.
func WithDownloadLogger(logger *slog.Logger) DownloadStepOption {
	return func(s *DownloadStep) {
		s.logger = logger
	}
}

// NewDownloadStep creates a download step writing into destDir.
func NewDownloadStep(downloader *download.Downloader, destDir string, opts ...DownloadStepOption) *DownloadStep {
	s := &DownloadStep{
		downloader: downloader,
		destDir:    destDir,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do executes the download step.
func (s *DownloadStep) Do(ctx context.Context, report *model.RunReport) error {
	if len(report.URLs) == 0 {
		return fmt.Errorf("no image URLs to download for query %q", report.Query)
	}

	urls := report.URLs
	if s.history != nil && s.historyWindow > 0 {
		urls = s.filterRecent(ctx, urls)
		if len(urls) == 0 {
			return fmt.Errorf("all %d image URLs for query %q were downloaded within the last %s",
				len(report.URLs), report.Query, s.historyWindow)
		}
	}

	_, records, err := s.downloader.DownloadAll(ctx, urls, s.destDir)
	if err != nil {
		return err
	}

	if s.minWidth > 0 || s.minHeight > 0 {
		records = s.filterUndersized(records)
	}

	report.Downloads = records
	report.ImageDir = s.destDir

	s.logger.Info("download complete",
		"query", report.Query,
		"downloaded", len(records),
		"failed", len(urls)-len(records),
		"skipped", len(report.URLs)-len(urls),
	)

	if len(records) == 0 {
		return fmt.Errorf("no images downloaded for query %q", report.Query)
	}
	return nil
}

// filterRecent drops URLs the run database has seen within the history
// window. Lookup failures keep the URL; a broken history database should
// not block fresh downloads.
func (s *DownloadStep) filterRecent(ctx context.Context, urls []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		recent, err := s.history.HasRecentDownload(ctx, u, s.historyWindow)
		if err != nil {
			s.logger.Warn("download history lookup failed", "url", u, "error", err)
			kept = append(kept, u)
			continue
		}
		if recent {
			s.logger.Debug("skipping recently downloaded URL", "url", u)
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// filterUndersized drops records whose image is smaller than the configured
// minimum, removing the file as well. Files that fail to decode are kept;
// the classifier decides what to do with them.
func (s *DownloadStep) filterUndersized(records []model.DownloadRecord) []model.DownloadRecord {
	kept := make([]model.DownloadRecord, 0, len(records))
	for _, rec := range records {
		info, err := imagemeta.Inspect(rec.LocalPath)
		if err != nil {
			kept = append(kept, rec)
			continue
		}
		if !imagemeta.MeetsMinimum(info, s.minWidth, s.minHeight) {
			s.logger.Debug("discarding undersized image",
				"path", rec.LocalPath,
				"width", info.Width,
				"height", info.Height,
			)
			if err := os.Remove(rec.LocalPath); err != nil {
				s.logger.Warn("failed to remove undersized image", "path", rec.LocalPath, "error", err)
			}
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// ClassifyStep labels each downloaded image and appends the records to the
// JSONL label file.
//
// Design decision: Classification is sequential rather than concurrent
// because vision APIs rate-limit per account, and a per-image request
// already takes seconds; interleaving requests buys little and trips
// limits sooner.
type ClassifyStep struct {
	// classifier labels one image at a time.
	classifier classify.Classifier

	// labelFile is the JSONL output path.
	labelFile string

	// logger for structured logging.
	logger *slog.Logger
}

// ClassifyStepOption configures a ClassifyStep.
type ClassifyStepOption func(*ClassifyStep)

// WithClassifyLogger sets a custom logger for the classify step.
func WithClassifyLogger(logger *slog.Logger) ClassifyStepOption {
	return func(s *ClassifyStep) {
		s.logger = logger
	}
}

// NewClassifyStep creates a classification step writing labels to labelFile.
func NewClassifyStep(classifier classify.Classifier, labelFile string, opts ...ClassifyStepOption) *ClassifyStep {
	s := &ClassifyStep{
		classifier: classifier,
		labelFile:  labelFile,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classification step. Images come from the download
// records when present, otherwise from scanning the image directory, so
// the step also works on a pre-populated dataset.
func (s *ClassifyStep) Do(ctx context.Context, report *model.RunReport) error {
	images := make([]string, 0, len(report.Downloads))
	for _, rec := range report.Downloads {
		images = append(images, rec.LocalPath)
	}
	if len(images) == 0 && report.ImageDir != "" {
		found, err := dataset.ListImages(report.ImageDir)
		if err != nil {
			return err
		}
		images = found
	}
	if len(images) == 0 {
		return fmt.Errorf("no images to classify for query %q", report.Query)
	}

	writer, err := dataset.NewLabelWriter(s.labelFile)
	if err != nil {
		return err
	}
	defer writer.Close() //nolint:errcheck // Each Append syncs; Close has nothing left to flush

	for i, imagePath := range images {
		// Stop between images on cancellation; records written so far
		// stay on disk.
		select {
		case <-ctx.Done():
			report.Cancelled = true
			return ctx.Err()
		default:
		}

		s.logger.Debug("classifying image",
			"image", imagePath,
			"index", i+1,
			"total", len(images),
		)

		record := s.classifier.Classify(ctx, imagePath)
		report.Records = append(report.Records, record)

		if err := writer.Append(record); err != nil {
			return fmt.Errorf("append label for %s: %w", imagePath, err)
		}
	}

	report.LabelFile = s.labelFile

	s.logger.Info("classification complete",
		"query", report.Query,
		"classified", len(images),
	)
	return nil
}

// SummarizeStep computes the validation summary over the run's records.
type SummarizeStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// SummarizeStepOption configures a SummarizeStep.
type SummarizeStepOption func(*SummarizeStep)

// WithSummarizeLogger sets a custom logger for the summarize step.
func WithSummarizeLogger(logger *slog.Logger) SummarizeStepOption {
	return func(s *SummarizeStep) {
		s.logger = logger
	}
}

// NewSummarizeStep creates a summarize step.
func NewSummarizeStep(opts ...SummarizeStepOption) *SummarizeStep {
	s := &SummarizeStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SummarizeStep) Name() string {
	return "summarize"
}

// Do executes the summarize step. Summarizing an empty record set is
// fine; the summary just reports zero totals.
func (s *SummarizeStep) Do(_ context.Context, report *model.RunReport) error {
	summary := stats.Summarize(report.Records)
	report.Summary = &summary

	s.logger.Info("summary complete",
		"query", report.Query,
		"total", summary.TotalRecords,
		"valid", summary.ValidCount,
		"invalid", summary.InvalidCount,
	)
	return nil
}

// SaveStep persists the run report to the run history database.
type SaveStep struct {
	// db is the run history store.
	db *database.RunDB

	// logger for structured logging.
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a save step writing to db.
func NewSaveStep(db *database.RunDB, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do executes the save step.
func (s *SaveStep) Do(ctx context.Context, report *model.RunReport) error {
	if err := s.db.SaveRunReport(ctx, report); err != nil {
		return err
	}

	s.logger.Debug("run saved",
		"run_id", report.ID,
		"query", report.Query,
	)
	return nil
}
