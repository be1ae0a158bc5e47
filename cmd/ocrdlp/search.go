package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/log"
	"github.com/ocrdlp/ocrdlp/internal/search"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for image URLs without downloading",
		Long: `Search queries the configured engine and prints the discovered image
URLs, one per line. It is a dry run for 'ocrdlp build': no downloads, no
vision model calls, no download quota spent.

Examples:
  # Search the default engine
  ocrdlp search "invoice document"

  # Mixed mode merges all configured engines in order
  ocrdlp search --engine mixed --limit 40 "receipt photo"

  # JSON output for scripting
  ocrdlp search --json "passport scan"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().StringP("engine", "e", config.DefaultEngine,
		"Search engine: serper, serpapi, unsplash, flickr, or mixed")
	cmd.Flags().IntP("limit", "n", config.DefaultLimit,
		"Maximum number of image URLs to return")
	cmd.Flags().BoolP("json", "j", false,
		"Output URLs as a JSON array")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	engineName, err := cmd.Flags().GetString("engine")
	if err != nil {
		return err
	}
	engine, err := search.ParseEngine(engineName)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return config.ErrInvalidLimit
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := log.NewSecureLogger(os.Stderr, getVerboseFlag(cmd))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	query := strings.Join(args, " ")

	client := &http.Client{Timeout: config.DefaultTimeout}
	searcher := search.NewSearcher(client, config.CredentialsFromEnv(),
		search.WithLogger(logger))

	urls := searcher.Search(ctx, query, engine, limit)
	if len(urls) == 0 {
		return fmt.Errorf("no image URLs found for %q on engine %q", query, engineName)
	}

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(urls)
	}

	for _, u := range urls {
		fmt.Fprintln(cmd.OutOrStdout(), u)
	}
	return nil
}
