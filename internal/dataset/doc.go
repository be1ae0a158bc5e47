// Package dataset handles the on-disk layout of a built dataset: the image
// directory and the JSONL label file. Labels are appended one JSON object
// per line and flushed per record, so a partially completed run still
// leaves a readable label file.
package dataset
