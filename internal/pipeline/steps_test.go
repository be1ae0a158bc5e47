package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/database"
	"github.com/ocrdlp/ocrdlp/internal/dataset"
	"github.com/ocrdlp/ocrdlp/internal/download"
	"github.com/ocrdlp/ocrdlp/internal/model"
	"github.com/ocrdlp/ocrdlp/internal/search"
)

// fakeProvider implements search.Provider with canned URLs.
type fakeProvider struct {
	name string
	urls []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ string, limit int) ([]string, error) {
	if limit < len(f.urls) {
		return f.urls[:limit], nil
	}
	return f.urls, nil
}

// fakeClassifier implements classify.Classifier with canned records.
type fakeClassifier struct {
	category string
}

func (f *fakeClassifier) Classify(_ context.Context, imagePath string) model.ClassificationRecord {
	return model.ClassificationRecord{
		DocumentCategory: f.category,
		Metadata:         model.RecordMetadata{ImagePath: imagePath},
	}
}

// encodePNG renders a solid PNG of the given size.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.White)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSearchStep(t *testing.T) {
	t.Parallel()

	t.Run("fills the report with discovered URLs", func(t *testing.T) {
		t.Parallel()

		provider := &fakeProvider{
			name: "serper",
			urls: []string{"https://example.com/a.jpg", "https://example.com/b.jpg"},
		}
		searcher := search.NewSearcher(http.DefaultClient, config.Credentials{},
			search.WithProvider(search.EngineSerper, provider))

		step := NewSearchStep(searcher, search.EngineSerper, 10)
		report := model.NewRunReport("invoice documents", "serper")

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.URLCount() != 2 {
			t.Errorf("URL count = %d, want 2", report.URLCount())
		}
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		t.Parallel()

		searcher := search.NewSearcher(http.DefaultClient, config.Credentials{},
			search.WithProvider(search.EngineSerper, &fakeProvider{name: "serper"}))

		step := NewSearchStep(searcher, search.EngineSerper, 10)
		report := model.NewRunReport("nothing findable", "serper")

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.URLCount() != 0 {
			t.Errorf("URL count = %d, want 0", report.URLCount())
		}
	})
}

func TestDownloadStep(t *testing.T) {
	t.Parallel()

	t.Run("downloads images into the report", func(t *testing.T) {
		t.Parallel()

		imgBytes := encodePNG(t, 200, 200)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.Write(imgBytes) //nolint:errcheck // test server
		}))
		defer srv.Close()

		destDir := filepath.Join(t.TempDir(), "dataset")
		downloader := download.NewDownloader(srv.Client())
		step := NewDownloadStep(downloader, destDir)

		report := model.NewRunReport("invoice documents", "serper")
		report.URLs = []string{srv.URL + "/a.png", srv.URL + "/b.png"}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.DownloadCount() != 2 {
			t.Errorf("download count = %d, want 2", report.DownloadCount())
		}
		if report.ImageDir != destDir {
			t.Errorf("image dir = %q, want %q", report.ImageDir, destDir)
		}
	})

	t.Run("discards images below minimum dimensions", func(t *testing.T) {
		t.Parallel()

		small := encodePNG(t, 10, 10)
		large := encodePNG(t, 200, 200)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			if strings.Contains(r.URL.Path, "small") {
				w.Write(small) //nolint:errcheck // test server
				return
			}
			w.Write(large) //nolint:errcheck // test server
		}))
		defer srv.Close()

		destDir := filepath.Join(t.TempDir(), "dataset")
		downloader := download.NewDownloader(srv.Client())
		step := NewDownloadStep(downloader, destDir, WithMinDimensions(100, 100))

		report := model.NewRunReport("invoice documents", "serper")
		report.URLs = []string{srv.URL + "/small.png", srv.URL + "/large.png"}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.DownloadCount() != 1 {
			t.Fatalf("download count = %d, want 1 after size filter", report.DownloadCount())
		}

		// The undersized file must be gone from disk too.
		if _, err := os.Stat(filepath.Join(destDir, "image_000001.png")); !os.IsNotExist(err) {
			t.Error("undersized image file should have been removed")
		}
	})

	t.Run("skips URLs downloaded in an earlier run", func(t *testing.T) {
		t.Parallel()

		imgBytes := encodePNG(t, 200, 200)
		var requested []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested = append(requested, r.URL.Path)
			w.Header().Set("Content-Type", "image/png")
			w.Write(imgBytes) //nolint:errcheck // test server
		}))
		defer srv.Close()

		rdb, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer rdb.Close() //nolint:errcheck // test cleanup

		seen := &model.DownloadRecord{
			SourceURL: srv.URL + "/seen.png",
			LocalPath: "dataset/image_000001.png",
		}
		if _, err := rdb.InsertDownloadRecord(context.Background(), "earlier-run", seen); err != nil {
			t.Fatal(err)
		}

		destDir := filepath.Join(t.TempDir(), "dataset")
		downloader := download.NewDownloader(srv.Client())
		step := NewDownloadStep(downloader, destDir,
			WithDownloadHistory(rdb, time.Hour))

		report := model.NewRunReport("invoice documents", "serper")
		report.URLs = []string{srv.URL + "/seen.png", srv.URL + "/fresh.png"}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.DownloadCount() != 1 {
			t.Fatalf("download count = %d, want 1 after history filter", report.DownloadCount())
		}
		if len(requested) != 1 || requested[0] != "/fresh.png" {
			t.Errorf("requested paths = %v, want only /fresh.png", requested)
		}
	})

	t.Run("fails when every URL was downloaded recently", func(t *testing.T) {
		t.Parallel()

		rdb, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer rdb.Close() //nolint:errcheck // test cleanup

		seen := &model.DownloadRecord{
			SourceURL: "https://example.com/seen.png",
			LocalPath: "dataset/image_000001.png",
		}
		if _, err := rdb.InsertDownloadRecord(context.Background(), "earlier-run", seen); err != nil {
			t.Fatal(err)
		}

		downloader := download.NewDownloader(http.DefaultClient)
		step := NewDownloadStep(downloader, t.TempDir(),
			WithDownloadHistory(rdb, time.Hour))

		report := model.NewRunReport("invoice documents", "serper")
		report.URLs = []string{"https://example.com/seen.png"}

		if err := step.Do(context.Background(), report); err == nil {
			t.Fatal("expected error when history filters every URL")
		}
	})

	t.Run("fails when the report has no URLs", func(t *testing.T) {
		t.Parallel()

		downloader := download.NewDownloader(http.DefaultClient)
		step := NewDownloadStep(downloader, t.TempDir())

		report := model.NewRunReport("invoice documents", "serper")
		if err := step.Do(context.Background(), report); err == nil {
			t.Fatal("expected error for empty URL list")
		}
	})

	t.Run("fails when nothing could be downloaded", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		}))
		defer srv.Close()

		downloader := download.NewDownloader(srv.Client())
		step := NewDownloadStep(downloader, filepath.Join(t.TempDir(), "dataset"))

		report := model.NewRunReport("invoice documents", "serper")
		report.URLs = []string{srv.URL + "/gone.jpg"}

		if err := step.Do(context.Background(), report); err == nil {
			t.Fatal("expected error when all downloads fail")
		}
	})
}

func TestClassifyStep(t *testing.T) {
	t.Parallel()

	t.Run("classifies downloads and writes labels", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		imgPath := filepath.Join(dir, "image_000001.jpg")
		if err := os.WriteFile(imgPath, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}

		labelFile := filepath.Join(dir, "labels.jsonl")
		step := NewClassifyStep(&fakeClassifier{category: "invoice"}, labelFile)

		report := model.NewRunReport("invoice documents", "serper")
		report.Downloads = []model.DownloadRecord{{SourceURL: "https://example.com/a.jpg", LocalPath: imgPath}}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Records) != 1 {
			t.Fatalf("record count = %d, want 1", len(report.Records))
		}
		if report.LabelFile != labelFile {
			t.Errorf("label file = %q, want %q", report.LabelFile, labelFile)
		}

		written, err := dataset.ReadLabels(labelFile)
		if err != nil {
			t.Fatal(err)
		}
		if len(written) != 1 || written[0].DocumentCategory != "invoice" {
			t.Errorf("label file records = %+v", written)
		}
	})

	t.Run("falls back to scanning the image directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		for _, name := range []string{"image_000001.jpg", "image_000002.png"} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
				t.Fatal(err)
			}
		}

		step := NewClassifyStep(&fakeClassifier{category: "receipt"}, filepath.Join(dir, "labels.jsonl"))

		report := model.NewRunReport("receipt photos", "serper")
		report.ImageDir = dir

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Records) != 2 {
			t.Errorf("record count = %d, want 2", len(report.Records))
		}
	})

	t.Run("fails without images", func(t *testing.T) {
		t.Parallel()

		step := NewClassifyStep(&fakeClassifier{category: "invoice"}, filepath.Join(t.TempDir(), "labels.jsonl"))
		report := model.NewRunReport("invoice documents", "serper")

		if err := step.Do(context.Background(), report); err == nil {
			t.Fatal("expected error with no images")
		}
	})

	t.Run("stops between images on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		dir := t.TempDir()
		imgPath := filepath.Join(dir, "image_000001.jpg")
		if err := os.WriteFile(imgPath, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}

		step := NewClassifyStep(&fakeClassifier{category: "invoice"}, filepath.Join(dir, "labels.jsonl"))
		report := model.NewRunReport("invoice documents", "serper")
		report.Downloads = []model.DownloadRecord{{SourceURL: "u", LocalPath: imgPath}}

		if err := step.Do(ctx, report); err == nil {
			t.Fatal("expected cancellation error")
		}
		if !report.Cancelled {
			t.Error("report should be marked cancelled")
		}
	})
}

func TestSummarizeStep(t *testing.T) {
	t.Parallel()

	step := NewSummarizeStep()
	report := model.NewRunReport("invoice documents", "serper")
	report.Records = []model.ClassificationRecord{
		{DocumentCategory: "invoice"},
		model.NewErrorRecord("image_000002.jpg", "boom"),
	}

	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Summary == nil {
		t.Fatal("expected summary on report")
	}
	if report.Summary.ValidCount != 1 || report.Summary.InvalidCount != 1 {
		t.Errorf("summary counts = %d/%d, want 1/1", report.Summary.ValidCount, report.Summary.InvalidCount)
	}
}

func TestSaveStep(t *testing.T) {
	t.Parallel()

	rdb, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer rdb.Close() //nolint:errcheck // test cleanup

	step := NewSaveStep(rdb)
	report := model.NewRunReport("invoice documents", "serper")

	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := rdb.GetRunReportByID(context.Background(), report.ID)
	if err != nil {
		t.Fatal(err)
	}
	if saved == nil || saved.Query != "invoice documents" {
		t.Errorf("saved report = %+v", saved)
	}
}
