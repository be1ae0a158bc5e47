package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/ocrdlp/ocrdlp/internal/classify"
	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/database"
	"github.com/ocrdlp/ocrdlp/internal/download"
	"github.com/ocrdlp/ocrdlp/internal/log"
	"github.com/ocrdlp/ocrdlp/internal/model"
	"github.com/ocrdlp/ocrdlp/internal/pipeline"
	"github.com/ocrdlp/ocrdlp/internal/report"
	"github.com/ocrdlp/ocrdlp/internal/search"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [query...]",
		Short: "Build a labeled image dataset for one or more queries",
		Long: `Build runs the full dataset pipeline for each query:

1. Search the configured engine for image URLs
2. Download and validate the images
3. Label each image through the vision model
4. Summarize label quality and persist the run

Examples:
  # Build a dataset for a single query
  ocrdlp build "invoice document"

  # Use a different engine and a larger result cap
  ocrdlp build --engine unsplash --limit 50 "receipt photo"

  # Build datasets for several queries concurrently
  ocrdlp build --batch 3 "invoice" "receipt" "id card"

  # Use a preset from the .ocrdlp config file
  ocrdlp build --preset invoices

  # Output a Markdown report to a file
  ocrdlp build --markdown --report report.md "contract scan"

Configuration file (.ocrdlp) example:
  defaults:
    engine: serper
    limit: 20
  presets:
    invoices:
      query: "invoice document scan"
      outputDir: dataset/invoices`,
		Args: cobra.ArbitraryArgs,
		RunE: runBuildCmd,
	}

	// Search flags
	cmd.Flags().StringP("engine", "e", config.DefaultEngine,
		"Search engine: serper, serpapi, unsplash, flickr, or mixed")
	cmd.Flags().IntP("limit", "n", config.DefaultLimit,
		"Maximum number of image URLs per query")

	// Download flags
	cmd.Flags().StringP("output", "o", "dataset",
		"Directory downloaded images are written to")
	cmd.Flags().Int("concurrency", config.DefaultDownloadConcurrency,
		"Number of concurrent image downloads")
	cmd.Flags().Int("min-width", config.DefaultMinWidth,
		"Discard downloaded images narrower than this (0 disables)")
	cmd.Flags().Int("min-height", config.DefaultMinHeight,
		"Discard downloaded images shorter than this (0 disables)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout for search and download calls")

	// Classification flags
	cmd.Flags().StringP("labels", "l", config.DefaultLabelFile,
		"JSONL file classification records are appended to")
	cmd.Flags().String("model", config.DefaultModel,
		"Vision model used for classification")
	cmd.Flags().Duration("classify-timeout", config.DefaultClassifyTimeout,
		"Per-request timeout for vision model calls")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of queries processed concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ocrdlp in current or home directory)")
	cmd.Flags().StringP("preset", "p", "",
		"Preset name from the configuration file")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runBuildCmd executes the build command.
func runBuildCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, queries, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential masking
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runBuild(ctx, cfg, queries, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config and query list from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, []string, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Engine, err = cmd.Flags().GetString("engine")
	if err != nil {
		return nil, nil, err
	}

	cfg.Limit, err = cmd.Flags().GetInt("limit")
	if err != nil {
		return nil, nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, nil, err
	}

	cfg.DownloadConcurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, nil, err
	}

	cfg.MinWidth, err = cmd.Flags().GetInt("min-width")
	if err != nil {
		return nil, nil, err
	}

	cfg.MinHeight, err = cmd.Flags().GetInt("min-height")
	if err != nil {
		return nil, nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, nil, err
	}

	cfg.LabelFile, err = cmd.Flags().GetString("labels")
	if err != nil {
		return nil, nil, err
	}

	cfg.Model, err = cmd.Flags().GetString("model")
	if err != nil {
		return nil, nil, err
	}

	cfg.ClassifyTimeout, err = cmd.Flags().GetDuration("classify-timeout")
	if err != nil {
		return nil, nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	presetName, err := cmd.Flags().GetString("preset")
	if err != nil {
		return nil, nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save run history using the XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Load presets from the config file.
	// If the user explicitly specified a config file path, error if not found.
	// If no path specified, silently skip when no file exists.
	queries := args
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if len(cf.MixedEngines) > 0 {
			cfg.MixedEngines = cf.MixedEngines
		}
		queries = applyPreset(cmd, cfg, cf.GetPreset(presetName), queries)
	case explicitConfigPath:
		return nil, nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	case presetName != "":
		return nil, nil, fmt.Errorf("preset %q requested but no configuration file found", presetName)
	}

	// Credentials come from the environment only; they never appear in
	// the config file or on the command line.
	cfg.Credentials = config.CredentialsFromEnv()

	return cfg, queries, nil
}

// applyPreset overlays preset values onto the config. Explicit flags win
// over preset values; the preset query is used only when no queries were
// given as arguments.
func applyPreset(cmd *cobra.Command, cfg *config.Config, preset config.Preset, queries []string) []string {
	if preset.Engine != "" && !cmd.Flags().Changed("engine") {
		cfg.Engine = preset.Engine
	}
	if preset.Limit > 0 && !cmd.Flags().Changed("limit") {
		cfg.Limit = preset.Limit
	}
	if preset.OutputDir != "" && !cmd.Flags().Changed("output") {
		cfg.OutputDir = preset.OutputDir
	}
	if preset.LabelFile != "" && !cmd.Flags().Changed("labels") {
		cfg.LabelFile = preset.LabelFile
	}
	if len(queries) == 0 && preset.Query != "" {
		queries = []string{preset.Query}
	}
	return queries
}

// runBuild executes the dataset build.
func runBuild(ctx context.Context, cfg *config.Config, queries []string, logger *slog.Logger) error {
	if len(queries) == 0 {
		return config.ErrNoQuery
	}

	engine, err := search.ParseEngine(cfg.Engine)
	if err != nil {
		return err
	}

	logger.Info("starting dataset build",
		"queries", queries,
		"engine", cfg.Engine,
		"limit", cfg.Limit,
		"output", cfg.OutputDir,
	)

	// Open run history database
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Best effort cleanup
	logger.Info("database opened", "dir", cfg.DBDir)

	factory := newPipelineFactory(cfg, engine, db, logger, len(queries) > 1)

	// Use the batch processor for concurrent runs if multiple queries
	if len(queries) > 1 && cfg.BatchSize > 1 {
		return runBatchBuild(ctx, cfg, queries, factory, logger)
	}

	// Single query or sequential runs
	return runSequentialBuild(ctx, cfg, queries, factory, logger)
}

// newPipelineFactory wires the pipeline steps from the configuration.
// When perQueryDirs is set, each query gets its own image subdirectory so
// position-assigned filenames from different queries cannot collide.
func newPipelineFactory(cfg *config.Config, engine search.Engine, db *database.RunDB, logger *slog.Logger, perQueryDirs bool) func(query string) *pipeline.Pipeline {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	classifyClient := &http.Client{Timeout: cfg.ClassifyTimeout}

	mixedOrder := make([]search.Engine, 0, len(cfg.MixedEngines))
	for _, name := range cfg.MixedEngines {
		mixedOrder = append(mixedOrder, search.Engine(name))
	}

	searcher := search.NewSearcher(httpClient, cfg.Credentials,
		search.WithLogger(logger),
		search.WithMixedOrder(mixedOrder),
	)

	downloader := download.NewDownloader(httpClient,
		download.WithConcurrency(cfg.DownloadConcurrency),
		download.WithUserAgent(cfg.UserAgent),
		download.WithMaxBodySize(cfg.MaxBodySize),
		download.WithLogger(logger),
	)

	classifier := classify.NewVisionClassifier(classifyClient, cfg.Credentials.OpenAIKey,
		classify.WithModel(cfg.Model),
		classify.WithLogger(logger),
	)

	return func(query string) *pipeline.Pipeline {
		imageDir := cfg.OutputDir
		if perQueryDirs {
			imageDir = filepath.Join(cfg.OutputDir, slugify(query))
		}

		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(
			pipeline.NewSearchStep(searcher, engine, cfg.Limit,
				pipeline.WithSearchLogger(logger)),
			pipeline.NewDownloadStep(downloader, imageDir,
				pipeline.WithMinDimensions(cfg.MinWidth, cfg.MinHeight),
				pipeline.WithDownloadHistory(db, config.DefaultDedupWindow),
				pipeline.WithDownloadLogger(logger)),
			pipeline.NewClassifyStep(classifier, cfg.LabelFile,
				pipeline.WithClassifyLogger(logger)),
			pipeline.NewSummarizeStep(pipeline.WithSummarizeLogger(logger)),
			pipeline.NewSaveStep(db, pipeline.WithSaveLogger(logger)),
		)
		return p
	}
}

// slugify turns a search query into a filesystem-safe directory name.
func slugify(query string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, query)
	return strings.Trim(strings.Join(strings.FieldsFunc(mapped, func(r rune) bool { return r == '-' }), "-"), "-")
}

// runSequentialBuild processes queries one at a time.
func runSequentialBuild(ctx context.Context, cfg *config.Config, queries []string, factory func(string) *pipeline.Pipeline, logger *slog.Logger) error {
	var succeeded int

	for _, query := range queries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		runReport := model.NewRunReport(query, cfg.Engine)
		startTime := time.Now()

		// The spinner writes to stderr so piped stdout stays clean.
		// Verbose logging makes it redundant noise.
		var spin *spinner.Spinner
		if !cfg.Verbose {
			spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(os.Stderr))
			spin.Suffix = fmt.Sprintf(" building dataset for %q...", query)
			spin.Start()
		}

		err := factory(query).Execute(ctx, runReport)
		runReport.Finish()

		if spin != nil {
			spin.Stop()
		}

		if err != nil {
			logger.Error("build failed", "query", query, "error", err)
			fmt.Fprintf(os.Stderr, "Build error for %q: %v\n", query, err)
			continue
		}
		succeeded++

		elapsed := time.Since(startTime)
		fmt.Fprintf(os.Stderr, "Build for %q completed in %s\n\n", query, elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, runReport); err != nil {
			logger.Error("report failed", "query", query, "error", err)
		}
	}

	if succeeded == 0 {
		return fmt.Errorf("all %d build(s) failed", len(queries))
	}
	return nil
}

// runBatchBuild processes multiple queries concurrently using BatchProcessor.
func runBatchBuild(ctx context.Context, cfg *config.Config, queries []string, factory func(string) *pipeline.Pipeline, logger *slog.Logger) error {
	fmt.Fprintf(os.Stderr, "Starting batch build of %d queries (concurrency: %d)...\n\n",
		len(queries), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithEngine(cfg.Engine),
		pipeline.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	var succeeded int
	err := bp.ProcessBatchWithCallback(ctx, queries, func(runReport *model.RunReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		if runReport.ErrorMessage != "" {
			fmt.Fprintf(os.Stderr, "[%d/%d] Build failed: %q: %s\n",
				index+1, len(queries), runReport.Query, runReport.ErrorMessage)
			return
		}
		succeeded++

		fmt.Fprintf(os.Stderr, "[%d/%d] Build completed: %q\n", index+1, len(queries), runReport.Query)

		if err := outputReport(cfg, runReport); err != nil {
			logger.Error("report failed", "query", runReport.Query, "error", err)
		}
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nBatch build completed in %s\n", elapsed.Round(time.Millisecond))

	if succeeded == 0 {
		return fmt.Errorf("all %d build(s) failed", len(queries))
	}
	return nil
}

// outputReport outputs the run report in the requested format.
func outputReport(cfg *config.Config, runReport *model.RunReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// 0600 because reports name local files and queries that may
		// reveal what is being tested
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close() //nolint:errcheck // Best effort cleanup
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (detailed report with all data)
	if cfg.JSONReport {
		writer := report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
		_, err := writer.Write(runReport)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(runReport)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	_, err := writer.Write(runReport)
	return err
}
