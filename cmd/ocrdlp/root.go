// Package main provides the entry point for the ocrdlp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ocrdlp.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocrdlp",
		Short: "Image dataset builder for OCR and DLP testing",
		Long: `ocrdlp collects labeled document-image datasets for OCR and DLP testing.

It searches image providers (Serper, SerpAPI, Unsplash, Flickr) for document
photos, downloads and validates the results, labels each image through a
vision model, and writes JSONL label records alongside the images.

API keys are read from the environment:
  SERPER_API_KEY, SERPAPI_KEY, UNSPLASH_ACCESS_KEY, FLICKR_KEY, OPENAI_API_KEY`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewBuildCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewDownloadCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
