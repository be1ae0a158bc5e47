package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// defaultSerpAPIURL is the SerpAPI search endpoint.
const defaultSerpAPIURL = "https://serpapi.com/search"

// serpAPIMaxResults is the largest page size SerpAPI accepts per request.
const serpAPIMaxResults = 100

// SerpAPIProvider searches Google Images through SerpAPI.
// SerpAPI nests results under images_results; the full-size URL is in the
// original field.
type SerpAPIProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// SerpAPIOption configures a SerpAPIProvider.
type SerpAPIOption func(*SerpAPIProvider)

// WithSerpAPIBaseURL overrides the API endpoint. Used in tests.
func WithSerpAPIBaseURL(u string) SerpAPIOption {
	return func(p *SerpAPIProvider) {
		p.baseURL = u
	}
}

// NewSerpAPIProvider creates a SerpAPI provider.
func NewSerpAPIProvider(client *http.Client, apiKey string, opts ...SerpAPIOption) *SerpAPIProvider {
	p := &SerpAPIProvider{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultSerpAPIURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the engine name.
func (p *SerpAPIProvider) Name() string { return string(EngineSerpAPI) }

// Search returns image URLs for the query, at most limit.
func (p *SerpAPIProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredential
	}

	params := url.Values{}
	params.Set("engine", "google_images")
	params.Set("q", query)
	params.Set("api_key", p.apiKey)
	params.Set("num", strconv.Itoa(min(limit, serpAPIMaxResults)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build serpapi request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: serpapi returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var parsed struct {
		ImagesResults []struct {
			Original string `json:"original"`
		} `json:"images_results"` //nolint:tagliatelle // SerpAPI wire format
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse serpapi response: %w", err)
	}

	urls := make([]string, 0, len(parsed.ImagesResults))
	for _, img := range parsed.ImagesResults {
		if img.Original != "" {
			urls = append(urls, img.Original)
		}
	}

	return truncate(urls, limit), nil
}
