package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ocrdlp/ocrdlp/internal/config"
	"github.com/ocrdlp/ocrdlp/internal/imagemeta"
	"github.com/ocrdlp/ocrdlp/internal/model"
)

// defaultBaseURL is the OpenAI chat completions endpoint.
const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

// maxCompletionTokens caps the model's response length. A full label set
// serializes well under this.
const maxCompletionTokens = 1500

// Classifier labels one image. Implementations always return a record:
// well-formed on success, error-marked on any failure.
type Classifier interface {
	Classify(ctx context.Context, imagePath string) model.ClassificationRecord
}

// VisionClassifier labels document images through a vision-capable chat
// completions API.
type VisionClassifier struct {
	// client is the HTTP client. It should have a finite timeout;
	// vision completions are slow but never unbounded.
	client *http.Client

	// apiKey authenticates requests. An empty key makes every Classify
	// call return an error-marked record.
	apiKey string

	// baseURL is the chat completions endpoint.
	baseURL string

	// model is the vision model name.
	model string

	// purpose tags each record's metadata with the dataset intent.
	purpose string

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a VisionClassifier.
type Option func(*VisionClassifier)

// WithBaseURL overrides the API endpoint. Used in tests and for
// API-compatible self-hosted models.
func WithBaseURL(u string) Option {
	return func(c *VisionClassifier) {
		c.baseURL = u
	}
}

// WithModel sets the vision model name.
func WithModel(m string) Option {
	return func(c *VisionClassifier) {
		if m != "" {
			c.model = m
		}
	}
}

// WithPurpose sets the purpose tag recorded in each record's metadata.
func WithPurpose(p string) Option {
	return func(c *VisionClassifier) {
		c.purpose = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *VisionClassifier) {
		c.logger = logger
	}
}

// NewVisionClassifier creates a classifier authenticated with apiKey.
func NewVisionClassifier(client *http.Client, apiKey string, opts ...Option) *VisionClassifier {
	c := &VisionClassifier{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   config.DefaultModel,
		purpose: config.DefaultPurpose,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Classify labels one image. Any failure (unreadable file, missing
// credential, transport error, non-success status, unparseable or
// schema-violating output) yields an error-marked record; Classify never
// returns an error value, so callers can batch without per-item recovery.
func (c *VisionClassifier) Classify(ctx context.Context, imagePath string) model.ClassificationRecord {
	if c.apiKey == "" {
		return c.errorRecord(imagePath, "", "API key not configured")
	}

	imageData, err := os.ReadFile(imagePath) //nolint:gosec // Path comes from our own downloader
	if err != nil {
		return c.errorRecord(imagePath, "", fmt.Sprintf("read image: %v", err))
	}

	content, err := c.requestCompletion(ctx, imageData)
	if err != nil {
		return c.errorRecord(imagePath, "", err.Error())
	}

	record, err := parseRecord(content)
	if err != nil {
		c.logger.Warn("classification output rejected",
			"image", imagePath,
			"error", err,
		)
		return c.errorRecord(imagePath, content, err.Error())
	}

	c.fillMetadata(&record, imagePath)

	c.logger.Debug("classified",
		"image", imagePath,
		"category", record.DocumentCategory,
		"difficulty", record.OCRDifficulty,
		"confidence", record.ConfidenceScore,
	)

	return record
}

// requestCompletion sends the vision request and returns the model's text
// response.
func (c *VisionClassifier) requestCompletion(ctx context.Context, imageData []byte) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": classificationPrompt},
					{
						"type": "image_url",
						"image_url": map[string]any{
							"url":    dataURL,
							"detail": "high",
						},
					},
				},
			},
		},
		"max_tokens":  maxCompletionTokens,
		"temperature": 0.1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed: status %d", resp.StatusCode)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// parseRecord extracts, sanitizes, validates, and decodes the model's JSON
// output into a record.
func parseRecord(content string) (model.ClassificationRecord, error) {
	var record model.ClassificationRecord

	jsonText := extractJSON(content)
	if jsonText == "" {
		return record, fmt.Errorf("no JSON object in response")
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(jsonText), &m); err != nil {
		return record, fmt.Errorf("parse JSON: %w", err)
	}

	sanitizeRecord(m)

	if err := validateRecord(m); err != nil {
		return record, err
	}

	// Round-trip through JSON to decode the sanitized map into the
	// typed record.
	cleaned, err := json.Marshal(m)
	if err != nil {
		return record, fmt.Errorf("re-encode record: %w", err)
	}
	if err := json.Unmarshal(cleaned, &record); err != nil {
		return record, fmt.Errorf("decode record: %w", err)
	}

	return record, nil
}

// extractJSON pulls the JSON object out of a model response that may wrap
// it in a markdown fence or surrounding prose.
func extractJSON(content string) string {
	if start := strings.Index(content, "```json"); start >= 0 {
		rest := content[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		return content[start : end+1]
	}

	return ""
}

// errorRecord builds an error-marked record with metadata filled in.
func (c *VisionClassifier) errorRecord(imagePath, rawResponse, errMsg string) model.ClassificationRecord {
	record := model.NewErrorRecord(imagePath, errMsg)
	record.RawResponse = rawResponse
	c.fillMetadata(&record, imagePath)
	return record
}

// fillMetadata stamps provenance onto a record. Image inspection is
// best-effort; a file that fails to decode simply gets no ImageInfo.
func (c *VisionClassifier) fillMetadata(record *model.ClassificationRecord, imagePath string) {
	record.Metadata.ID = uuid.New().String()
	record.Metadata.ImagePath = imagePath
	record.Metadata.ClassifiedAt = time.Now()
	record.Metadata.Model = c.model
	record.Metadata.Purpose = c.purpose

	if info, err := imagemeta.Inspect(imagePath); err == nil {
		record.Metadata.ImageInfo = info
	}
}
