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

// defaultUnsplashURL is the Unsplash photo search endpoint.
const defaultUnsplashURL = "https://api.unsplash.com/search/photos"

// unsplashMaxPerPage is the largest page size Unsplash accepts.
const unsplashMaxPerPage = 30

// UnsplashProvider searches the Unsplash photo library.
// Unsplash nests each photo's renditions under urls; we take the regular
// rendition, which balances resolution against download size.
type UnsplashProvider struct {
	client    *http.Client
	accessKey string
	baseURL   string
}

// UnsplashOption configures an UnsplashProvider.
type UnsplashOption func(*UnsplashProvider)

// WithUnsplashBaseURL overrides the API endpoint. Used in tests.
func WithUnsplashBaseURL(u string) UnsplashOption {
	return func(p *UnsplashProvider) {
		p.baseURL = u
	}
}

// NewUnsplashProvider creates an Unsplash provider.
func NewUnsplashProvider(client *http.Client, accessKey string, opts ...UnsplashOption) *UnsplashProvider {
	p := &UnsplashProvider{
		client:    client,
		accessKey: accessKey,
		baseURL:   defaultUnsplashURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the engine name.
func (p *UnsplashProvider) Name() string { return string(EngineUnsplash) }

// Search returns image URLs for the query, at most limit.
func (p *UnsplashProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if p.accessKey == "" {
		return nil, ErrMissingCredential
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(min(limit, unsplashMaxPerPage)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+p.accessKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unsplash request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unsplash returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
			} `json:"urls"`
		} `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse unsplash response: %w", err)
	}

	urls := make([]string, 0, len(parsed.Results))
	for _, photo := range parsed.Results {
		if photo.URLs.Regular != "" {
			urls = append(urls, photo.URLs.Regular)
		}
	}

	return truncate(urls, limit), nil
}
