// Package stats computes validation summaries over batches of
// classification records: valid/invalid counts, per-field presence rates,
// and value distributions. Summarize is a pure function of its input and
// performs no I/O, which keeps it deterministic under test.
package stats
