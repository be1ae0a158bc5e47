// Package pipeline provides a framework for executing run steps in sequence.
//
// The pipeline pattern is used to build datasets through multiple stages:
// image search, download, classification, summarization, and persistence.
// Each stage is implemented as a Step that receives the current run report
// and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running runs
// 4. Partial pipelines implement the search-only and classify-only commands
//
// The pipeline supports both individual runs and batch processing of
// multiple queries with concurrency control using errgroup.
package pipeline
