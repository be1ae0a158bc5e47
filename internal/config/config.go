package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultEngine is the search engine used when none is specified.
	// Serper has the most generous free tier of the supported providers.
	DefaultEngine = "serper"

	// DefaultLimit caps how many image URLs a search returns.
	DefaultLimit = 10

	// DefaultTimeout is the per-request timeout for search and download
	// requests. Image hosts are ordinary clearnet servers, so 30 seconds
	// is generous.
	DefaultTimeout = 30 * time.Second

	// DefaultClassifyTimeout is the per-request timeout for vision model
	// calls. Vision completions routinely take tens of seconds for large
	// images, so this is longer than the transfer timeout.
	DefaultClassifyTimeout = 60 * time.Second

	// DefaultDownloadConcurrency bounds concurrent image fetches.
	// Unbounded concurrency against arbitrary third-party hosts risks
	// throttling or bans; 8 keeps throughput without hammering anyone.
	DefaultDownloadConcurrency = 8

	// DefaultUserAgent is a browser-like User-Agent for image downloads.
	// Some image hosts reject requests with default client identifiers.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// DefaultMaxBodySize limits the maximum image size to read.
	// 20MB covers any realistic document photo while preventing memory
	// exhaustion from mislabeled URLs.
	DefaultMaxBodySize = 20 * 1024 * 1024

	// DefaultModel is the vision model used for classification.
	DefaultModel = "gpt-4o"

	// DefaultLabelFile is the JSONL file classification results are
	// appended to.
	DefaultLabelFile = "labels.jsonl"

	// DefaultPurpose tags every record with the dataset's intent.
	DefaultPurpose = "OCR_DLP_performance_testing"

	// DefaultMinWidth and DefaultMinHeight are the smallest image
	// dimensions kept after download. Smaller files are thumbnails or
	// icons with no usable document text.
	DefaultMinWidth  = 100
	DefaultMinHeight = 100

	// DefaultDedupWindow is how long a downloaded URL counts as fresh.
	// URLs fetched within this window are skipped on later runs, so
	// repeated builds of the same query spend quota on new images.
	DefaultDedupWindow = 24 * time.Hour

	// DefaultBatchSize is the number of queries processed concurrently
	// when several queries are given. Two keeps the vision API under
	// its rate limits while overlapping search and download latency.
	DefaultBatchSize = 2

	// AppName is the application name used for XDG directory paths.
	AppName = "ocrdlp"
)

// Config holds all configuration options for ocrdlp.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested per-stage
// structs. The number of options is manageable, and nesting would add
// complexity without significant benefit.
type Config struct {
	// Query is the image search query.
	Query string

	// Engine selects the search provider: serper, serpapi, unsplash,
	// flickr, or mixed.
	Engine string

	// Limit is the maximum number of image URLs to return from a search.
	// The adapter never returns more than Limit URLs; fewer is acceptable.
	Limit int

	// OutputDir is the directory downloaded images are written to.
	OutputDir string

	// LabelFile is the JSONL output path for classification records.
	LabelFile string

	// Timeout is the per-request timeout for search and download calls.
	Timeout time.Duration

	// ClassifyTimeout is the per-request timeout for vision model calls.
	ClassifyTimeout time.Duration

	// DownloadConcurrency bounds concurrent image fetches.
	DownloadConcurrency int

	// UserAgent is sent with image download requests.
	UserAgent string

	// MaxBodySize is the maximum response body size to read per image.
	MaxBodySize int64

	// Model is the vision model name used for classification.
	Model string

	// MinWidth and MinHeight are the smallest image dimensions retained
	// by the post-download filter. Zero disables the filter.
	MinWidth  int
	MinHeight int

	// BatchSize is the number of queries processed concurrently when
	// multiple queries are given.
	BatchSize int

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// JSONReport emits the run report as JSON instead of plain text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport emits the run report as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// SaveToDB persists run summaries to the SQLite history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string

	// ConfigFilePath is an explicit .ocrdlp config file path.
	// Empty means search the current and home directories.
	ConfigFilePath string

	// MixedEngines is the engine order used by the mixed composite mode.
	// Results are concatenated in this order before deduplication.
	MixedEngines []string

	// Credentials holds the API keys for all external services.
	// Constructed once at process start; providers never read the
	// environment themselves.
	Credentials Credentials
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero values
// because most defaults are non-zero. This also documents the defaults.
func NewConfig() *Config {
	return &Config{
		Engine:              DefaultEngine,
		Limit:               DefaultLimit,
		LabelFile:           DefaultLabelFile,
		Timeout:             DefaultTimeout,
		ClassifyTimeout:     DefaultClassifyTimeout,
		DownloadConcurrency: DefaultDownloadConcurrency,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         DefaultMaxBodySize,
		Model:               DefaultModel,
		MinWidth:            DefaultMinWidth,
		MinHeight:           DefaultMinHeight,
		BatchSize:           DefaultBatchSize,
		MixedEngines:        []string{"serper", "serpapi", "unsplash", "flickr"},
	}
}

// XDGDataDir returns the XDG data directory for ocrdlp.
// On Linux: ~/.local/share/ocrdlp
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ocrdlp.
// On Linux: ~/.config/ocrdlp
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first error found; fixing one error often makes others
// irrelevant.
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return ErrInvalidLimit
	}

	if c.Timeout <= 0 || c.ClassifyTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.DownloadConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
