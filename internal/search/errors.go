package search

import "errors"

// Provider-level errors. These never escape the Searcher: it converts them
// to an empty result and a log line, keeping every search call best-effort.
var (
	// ErrMissingCredential is returned by a provider whose API key is
	// not configured.
	ErrMissingCredential = errors.New("missing credential for search engine")

	// ErrUnexpectedStatus is returned when a provider responds with a
	// non-success HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)
