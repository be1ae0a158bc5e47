package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/download"
	"github.com/ocrdlp/ocrdlp/internal/log"
	"github.com/ocrdlp/ocrdlp/internal/model"
	"github.com/ocrdlp/ocrdlp/internal/pipeline"
	"github.com/ocrdlp/ocrdlp/internal/search"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [query]",
		Short: "Search and download images without classifying them",
		Long: `Download fetches images into the output directory without running the
vision model. URLs come either from a search for the given query or from a
file with one URL per line.

Images below the minimum dimensions are discarded after download. Use
'ocrdlp classify' later to label the directory.

Examples:
  # Search and download
  ocrdlp download --limit 30 "invoice document"

  # Download a prepared URL list
  ocrdlp download --urls-file urls.txt -o dataset/invoices`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDownloadCmd,
	}

	cmd.Flags().StringP("engine", "e", config.DefaultEngine,
		"Search engine: serper, serpapi, unsplash, flickr, or mixed")
	cmd.Flags().IntP("limit", "n", config.DefaultLimit,
		"Maximum number of image URLs per query")
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
	cmd.Flags().String("urls-file", "",
		"Read image URLs from this file (one per line) instead of searching")

	return cmd
}

// runDownloadCmd executes the download command.
func runDownloadCmd(cmd *cobra.Command, args []string) error {
	engineName, err := cmd.Flags().GetString("engine")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	outputDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	minWidth, err := cmd.Flags().GetInt("min-width")
	if err != nil {
		return err
	}
	minHeight, err := cmd.Flags().GetInt("min-height")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	urlsFile, err := cmd.Flags().GetString("urls-file")
	if err != nil {
		return err
	}

	if urlsFile == "" && len(args) == 0 {
		return config.ErrNoQuery
	}
	if timeout <= 0 {
		return config.ErrInvalidTimeout
	}
	if concurrency <= 0 {
		return config.ErrInvalidConcurrency
	}

	logger := log.NewSecureLogger(os.Stderr, getVerboseFlag(cmd))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	client := &http.Client{Timeout: timeout}
	downloader := download.NewDownloader(client,
		download.WithConcurrency(concurrency),
		download.WithUserAgent(config.DefaultUserAgent),
		download.WithMaxBodySize(config.DefaultMaxBodySize),
		download.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))

	var runReport *model.RunReport
	if urlsFile != "" {
		urls, err := readURLsFile(urlsFile)
		if err != nil {
			return err
		}
		runReport = model.NewRunReport(urlsFile, "file")
		runReport.URLs = urls
	} else {
		engine, err := search.ParseEngine(engineName)
		if err != nil {
			return err
		}
		if limit <= 0 {
			return config.ErrInvalidLimit
		}

		searcher := search.NewSearcher(client, config.CredentialsFromEnv(),
			search.WithLogger(logger))
		p.AddStep(pipeline.NewSearchStep(searcher, engine, limit,
			pipeline.WithSearchLogger(logger)))

		runReport = model.NewRunReport(args[0], engineName)
	}

	p.AddStep(pipeline.NewDownloadStep(downloader, outputDir,
		pipeline.WithMinDimensions(minWidth, minHeight),
		pipeline.WithDownloadLogger(logger)))

	if err := p.Execute(ctx, runReport); err != nil {
		return err
	}
	runReport.Finish()

	fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d of %d images to %s\n",
		runReport.DownloadCount(), runReport.URLCount(), outputDir)
	return nil
}

// readURLsFile reads one URL per line, skipping blank lines and # comments.
func readURLsFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided URL list path is intentional
	if err != nil {
		return nil, fmt.Errorf("open URL list: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read URL list: %w", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("URL list %s contains no URLs", path)
	}
	return urls, nil
}
