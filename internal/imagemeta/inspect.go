package imagemeta

import (
	"fmt"
	"image"
	"os"

	// Register decoders for the formats the downloader emits.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/ocrdlp/ocrdlp/internal/model"
)

// Inspect reads an image file's dimensions, format, size, and EXIF
// orientation. EXIF extraction is best-effort: most web images carry no
// EXIF block, and its absence is not an error.
func Inspect(path string) (*model.ImageInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	f, err := os.Open(path) //nolint:gosec // Path comes from our own downloader
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}

	return &model.ImageInfo{
		Width:           cfg.Width,
		Height:          cfg.Height,
		Format:          format,
		SizeBytes:       stat.Size(),
		EXIFOrientation: exifOrientation(path),
	}, nil
}

// exifOrientation extracts the EXIF orientation tag value (1-8).
// Returns zero when the file has no EXIF data or no orientation tag.
func exifOrientation(path string) int {
	rawExif, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		return 0
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 0
	}

	for _, entry := range entries {
		if entry.TagName != "Orientation" {
			continue
		}
		switch v := entry.Value.(type) {
		case []uint16:
			if len(v) > 0 {
				return int(v[0])
			}
		case uint16:
			return int(v)
		}
	}

	return 0
}

// MeetsMinimum reports whether the image is at least minWidth x minHeight
// pixels. Zero minimums disable the check for that axis. Images below the
// minimum are thumbnails or icons with no usable document text.
func MeetsMinimum(info *model.ImageInfo, minWidth, minHeight int) bool {
	if info == nil {
		return false
	}
	if minWidth > 0 && info.Width < minWidth {
		return false
	}
	if minHeight > 0 && info.Height < minHeight {
		return false
	}
	return true
}
