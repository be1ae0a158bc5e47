// Package config provides configuration structures and utilities for ocrdlp.
// It defines the options for image search, download, classification, and
// report generation, plus the credential set for external APIs.
package config
