package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/model"
)

// Downloader fetches image URLs and materializes them as local files.
//
// A single Downloader is safe for use by one batch at a time; the underlying
// HTTP client is shared read-only across all concurrent fetches, so
// connection pooling works across the batch.
type Downloader struct {
	// client is the shared HTTP client. It should have a finite timeout.
	client *http.Client

	// concurrency bounds simultaneous fetches.
	concurrency int

	// userAgent is sent with every request. Some image hosts reject
	// default client identifiers.
	userAgent string

	// maxBodySize limits how many bytes are read per image.
	maxBodySize int64

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithConcurrency bounds the number of simultaneous fetches.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithUserAgent sets the User-Agent header for image requests.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// WithMaxBodySize limits the bytes read per image.
func WithMaxBodySize(size int64) Option {
	return func(d *Downloader) {
		if size > 0 {
			d.maxBodySize = size
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader with the given HTTP client.
func NewDownloader(client *http.Client, opts ...Option) *Downloader {
	d := &Downloader{
		client:      client,
		concurrency: config.DefaultDownloadConcurrency,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// DownloadAll fetches every URL into destDir and returns a mapping from
// source URL to local path for the URLs that succeeded, plus one
// DownloadRecord per written file in input order.
//
// The destination directory (including parents) is created before any fetch
// begins; failure to create it is the only error this method returns.
// Every per-URL failure (non-success status, timeout, I/O error) is logged
// and skipped, never aborting the remaining downloads.
//
// Filenames are image_NNNNNN.<ext> where NNNNNN is the URL's 1-based
// position in the input slice. The sequence number is fixed before dispatch,
// so concurrent completion order never affects name assignment.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string, destDir string) (map[string]string, []model.DownloadRecord, error) {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create destination directory %s: %w", destDir, err)
	}

	// Indexed by input position so completion order is irrelevant.
	slots := make([]*model.DownloadRecord, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i, rawURL := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rec, err := d.fetchOne(ctx, rawURL, destDir, i)
			if err != nil {
				d.logger.Warn("download failed, skipping",
					"url", rawURL,
					"error", err,
				)
				return nil
			}

			slots[i] = rec
			d.logger.Debug("downloaded",
				"url", rawURL,
				"path", rec.LocalPath,
				"bytes", rec.SizeBytes,
			)
			return nil
		})
	}

	// The only error errgroup can surface here is context cancellation;
	// partial results are still returned so callers can report on what
	// completed before the interrupt.
	waitErr := g.Wait()

	results := make(map[string]string, len(urls))
	records := make([]model.DownloadRecord, 0, len(urls))
	for _, rec := range slots {
		if rec == nil {
			continue
		}
		results[rec.SourceURL] = rec.LocalPath
		records = append(records, *rec)
	}

	if waitErr != nil && ctx.Err() != nil {
		d.logger.Warn("download batch interrupted",
			"completed", len(records),
			"total", len(urls),
		)
	}

	return results, records, nil
}

// fetchOne downloads a single URL to its position-assigned filename.
// The file is written only after the full body has been read, so failed
// downloads never leave partial files behind.
func (d *Downloader) fetchOne(ctx context.Context, rawURL, destDir string, index int) (*model.DownloadRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	contentType := resp.Header.Get("Content-Type")
	ext := inferExtension(contentType, rawURL)

	filename := fmt.Sprintf("image_%06d%s", index+1, ext)
	destPath := filepath.Join(destDir, filename)

	// 0600 because document images routinely contain PII.
	if err := os.WriteFile(destPath, body, 0600); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &model.DownloadRecord{
		SourceURL:   rawURL,
		LocalPath:   destPath,
		SizeBytes:   int64(len(body)),
		ContentType: contentType,
	}, nil
}

// knownExtensions are the URL path extensions accepted by the fallback.
var knownExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".webp": ".webp",
}

// inferExtension picks the file extension for a downloaded image.
//
// Order: declared content-type first (authoritative when present), then the
// extension in the URL path (many servers omit or misreport content-type),
// then .jpg as the default.
func inferExtension(contentType, rawURL string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg") || strings.Contains(ct, "jpg"):
		return ".jpg"
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	}

	if u, err := url.Parse(rawURL); err == nil {
		if ext, ok := knownExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
			return ext
		}
	}

	return ".jpg"
}
