package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocrdlp/ocrdlp/internal/classify"
	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/log"
	"github.com/ocrdlp/ocrdlp/internal/model"
	"github.com/ocrdlp/ocrdlp/internal/pipeline"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <image-dir>",
		Short: "Label an existing image directory through the vision model",
		Long: `Classify labels every image in a directory through the vision model and
appends one JSONL record per image to the label file.

Use this to label images collected outside of 'ocrdlp build', or to
re-label a dataset with a different model. Classification failures produce
error-marked records rather than aborting, so a flaky API leaves a
complete, auditable label file.

Examples:
  # Label all images in a directory
  ocrdlp classify dataset/invoices

  # Use a different model and label file
  ocrdlp classify --model gpt-4o-mini --labels relabeled.jsonl dataset/invoices`,
		Args: cobra.ExactArgs(1),
		RunE: runClassifyCmd,
	}

	cmd.Flags().StringP("labels", "l", config.DefaultLabelFile,
		"JSONL file classification records are appended to")
	cmd.Flags().String("model", config.DefaultModel,
		"Vision model used for classification")
	cmd.Flags().Duration("classify-timeout", config.DefaultClassifyTimeout,
		"Per-request timeout for vision model calls")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write report to specified file path")

	return cmd
}

// runClassifyCmd executes the classify command.
func runClassifyCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()

	var err error
	cfg.LabelFile, err = cmd.Flags().GetString("labels")
	if err != nil {
		return err
	}
	cfg.Model, err = cmd.Flags().GetString("model")
	if err != nil {
		return err
	}
	cfg.ClassifyTimeout, err = cmd.Flags().GetDuration("classify-timeout")
	if err != nil {
		return err
	}
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Credentials = config.CredentialsFromEnv()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	imageDir := args[0]
	if _, err := os.Stat(imageDir); err != nil {
		return fmt.Errorf("image directory %s: %w", imageDir, err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	classifier := classify.NewVisionClassifier(
		&http.Client{Timeout: cfg.ClassifyTimeout},
		cfg.Credentials.OpenAIKey,
		classify.WithModel(cfg.Model),
		classify.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewClassifyStep(classifier, cfg.LabelFile,
			pipeline.WithClassifyLogger(logger)),
		pipeline.NewSummarizeStep(pipeline.WithSummarizeLogger(logger)),
	)

	runReport := model.NewRunReport(imageDir, "local")
	runReport.ImageDir = imageDir

	if err := p.Execute(ctx, runReport); err != nil {
		return err
	}
	runReport.Finish()

	return outputReport(cfg, runReport)
}
