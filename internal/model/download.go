package model

// DownloadRecord describes one successfully downloaded image.
// Identity is the destination filename, which is assigned from the URL's
// position in the input sequence, not derived from the URL itself. The same
// URL downloaded in two runs produces distinct files unless the destination
// directory is cleared first.
type DownloadRecord struct {
	// SourceURL is the URL the image was fetched from.
	SourceURL string `json:"source_url"`

	// LocalPath is the path of the written file. It exists and is
	// non-empty at the moment the record is created.
	LocalPath string `json:"local_path"`

	// SizeBytes is the number of bytes written.
	SizeBytes int64 `json:"size_bytes"`

	// ContentType is the Content-Type header the server declared,
	// possibly empty or misreported.
	ContentType string `json:"content_type,omitempty"`
}
