// Package search wraps multiple external image-search APIs behind one
// operation: given a query, an engine selector, and a result cap, return a
// deduplicated ordered list of image URLs.
//
// The adapter is best-effort per call: a missing credential, transport
// error, non-success status, or unparseable response is logged and converted
// to an empty result, never propagated to the caller. This enables graceful
// multi-engine fallback in the mixed composite mode.
package search
