package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// defaultSerperURL is the Serper.dev image search endpoint.
const defaultSerperURL = "https://google.serper.dev/images"

// serperMaxResults is the largest page size Serper accepts per request.
const serperMaxResults = 100

// SerperProvider searches Google Images through the Serper.dev API.
// Serper returns a flat list of image objects; the URL lives in either the
// imageUrl or the link field depending on the result type.
type SerperProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// SerperOption configures a SerperProvider.
type SerperOption func(*SerperProvider)

// WithSerperBaseURL overrides the API endpoint. Used in tests.
func WithSerperBaseURL(u string) SerperOption {
	return func(p *SerperProvider) {
		p.baseURL = u
	}
}

// NewSerperProvider creates a Serper.dev provider.
// An empty apiKey is allowed; Search then fails with ErrMissingCredential.
func NewSerperProvider(client *http.Client, apiKey string, opts ...SerperOption) *SerperProvider {
	p := &SerperProvider{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultSerperURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the engine name.
func (p *SerperProvider) Name() string { return string(EngineSerper) }

// Search returns image URLs for the query, at most limit.
func (p *SerperProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredential
	}

	payload := map[string]any{
		"q":   query,
		"num": min(limit, serperMaxResults),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: serper returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var parsed struct {
		Images []struct {
			ImageURL string `json:"imageUrl"` //nolint:tagliatelle // Serper wire format
			Link     string `json:"link"`
		} `json:"images"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse serper response: %w", err)
	}

	urls := make([]string, 0, len(parsed.Images))
	for _, img := range parsed.Images {
		switch {
		case img.ImageURL != "":
			urls = append(urls, img.ImageURL)
		case img.Link != "":
			urls = append(urls, img.Link)
		}
	}

	return truncate(urls, limit), nil
}

// maxResponseSize bounds how much of a provider response we parse.
// Search responses are small JSON documents; 5MB is far above any
// legitimate payload.
const maxResponseSize = 5 * 1024 * 1024
