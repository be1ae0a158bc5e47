package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ocrdlp/ocrdlp/internal/model"
)

// LabelWriter appends classification records to a JSONL file.
//
// Design decision: Each Append writes and syncs one complete line rather
// than buffering the batch because:
//  1. Classification runs are long and interruptible; a killed run must
//     leave every completed record on disk
//  2. One record per line keeps the file greppable and streamable
//  3. Append mode lets repeated runs extend an existing label file
type LabelWriter struct {
	f    *os.File
	path string
}

// NewLabelWriter opens path for appending, creating it (and its parent
// directory) if needed.
func NewLabelWriter(path string) (*LabelWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create label directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // Path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}

	return &LabelWriter{f: f, path: path}, nil
}

// Path returns the label file path.
func (w *LabelWriter) Path() string {
	return w.path
}

// Append writes one record as a single JSON line and flushes it to disk.
func (w *LabelWriter) Append(record model.ClassificationRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync label file: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *LabelWriter) Close() error {
	return w.f.Close()
}

// ReadLabels reads every record from a JSONL label file. Blank lines are
// skipped; a malformed line is an error naming its line number.
func ReadLabels(path string) ([]model.ClassificationRecord, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	var records []model.ClassificationRecord

	scanner := bufio.NewScanner(f)
	// Records with a preserved raw response can exceed the default
	// 64KB scanner buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record model.ClassificationRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("parse label file %s line %d: %w", path, lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}

	return records, nil
}
