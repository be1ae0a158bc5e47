// Package download fetches image URLs concurrently, validates each
// response, infers a file extension, and writes the bytes to sequentially
// named files. Per-URL failures are logged and skipped; only a destination
// directory that cannot be created aborts a batch.
package download
