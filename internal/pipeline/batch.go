package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent processing of multiple search queries.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-run execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each run.
	// We use a factory to ensure each run gets a fresh pipeline instance.
	pipelineFactory func(query string) *Pipeline

	// engine is the search engine name recorded on each run report.
	engine string

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed run reports.
	// Access is synchronized via mutex.
	results []*model.RunReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Default is 2 if not specified: each run already downloads images
// concurrently, and search and classification APIs rate-limit aggressively.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithEngine sets the search engine name recorded on each run report.
func WithEngine(engine string) BatchOption {
	return func(b *BatchProcessor) {
		if engine != "" {
			b.engine = engine
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each query to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// runs and allows per-query customization (e.g., per-query output dirs).
func NewBatchProcessor(pipelineFactory func(query string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		engine:          config.DefaultEngine,
		concurrency:     2,
		results:         make([]*model.RunReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch builds datasets for multiple queries concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each query gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports collected, even for queries that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, queries []string) ([]*model.RunReport, error) {
	bp.logger.Info("starting batch processing",
		"total_queries", len(queries),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.RunReport, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, query := range queries {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing query",
				"query", query,
				"index", i+1,
				"total", len(queries),
			)

			// Create report for this query
			report := model.NewRunReport(query, bp.engine)

			// Create and execute pipeline
			pipeline := bp.pipelineFactory(query)
			err := pipeline.Execute(ctx, report)
			report.Finish()

			// Store result regardless of error
			// The report contains error information if the run failed
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("run failed",
					"query", query,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other runs
				// The error is recorded in the report
				return nil
			}

			bp.logger.Info("run completed",
				"query", query,
			)

			return nil
		})
	}

	// Wait for all runs to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_queries", len(queries),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback processes multiple queries and calls a callback
// for each completed run. This is useful for streaming results.
//
// The callback receives the report and the index of the query in the
// original slice. The callback is called from the goroutine that completed
// the run, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	queries []string,
	callback func(report *model.RunReport, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_queries", len(queries),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, query := range queries {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewRunReport(query, bp.engine)
			pipeline := bp.pipelineFactory(query)
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report
			report.Finish()

			// Call the callback with the result
			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
