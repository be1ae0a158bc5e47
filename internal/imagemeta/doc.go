// Package imagemeta inspects downloaded image files: pixel dimensions,
// decoded format, file size, and EXIF orientation. It backs the
// post-download quality filter and the provenance metadata attached to
// classification records.
package imagemeta
