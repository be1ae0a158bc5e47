// Package main provides the entry point for the ocrdlp CLI.
//
// ocrdlp builds labeled image datasets for OCR and DLP performance
// testing. It searches image providers for document photos, downloads
// and validates the results, labels each image through a vision model,
// and reports on dataset quality.
//
// Usage:
//
//	ocrdlp build "invoice document"
//	ocrdlp build --engine unsplash "receipt photo" "passport scan"
//
// See --help for all available options.
package main

// main is the entry point for ocrdlp.
func main() {
	Execute()
}
