// Package model defines the core data structures shared across the
// application: classification records, download records, validation
// summaries, and the run report that accumulates pipeline results.
package model
