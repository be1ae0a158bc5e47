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

// defaultFlickrURL is the Flickr REST endpoint.
const defaultFlickrURL = "https://api.flickr.com/services/rest/"

// flickrMaxPerPage is the largest page size Flickr accepts.
const flickrMaxPerPage = 100

// FlickrProvider searches Flickr photos.
// Flickr does not return image URLs directly: each photo object carries
// farm/server/id/secret components that must be reassembled into the static
// CDN URL template.
type FlickrProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// FlickrOption configures a FlickrProvider.
type FlickrOption func(*FlickrProvider)

// WithFlickrBaseURL overrides the API endpoint. Used in tests.
func WithFlickrBaseURL(u string) FlickrOption {
	return func(p *FlickrProvider) {
		p.baseURL = u
	}
}

// NewFlickrProvider creates a Flickr provider.
func NewFlickrProvider(client *http.Client, apiKey string, opts ...FlickrOption) *FlickrProvider {
	p := &FlickrProvider{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultFlickrURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the engine name.
func (p *FlickrProvider) Name() string { return string(EngineFlickr) }

// Search returns image URLs for the query, at most limit.
func (p *FlickrProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredential
	}

	params := url.Values{}
	params.Set("method", "flickr.photos.search")
	params.Set("api_key", p.apiKey)
	params.Set("text", query)
	params.Set("format", "json")
	params.Set("nojsoncallback", "1")
	params.Set("per_page", strconv.Itoa(min(limit, flickrMaxPerPage)))
	params.Set("media", "photos")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build flickr request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flickr request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: flickr returned %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var parsed struct {
		Photos struct {
			Photo []struct {
				// Farm is numeric in Flickr's JSON.
				Farm   json.Number `json:"farm"`
				Server string      `json:"server"`
				ID     string      `json:"id"`
				Secret string      `json:"secret"`
			} `json:"photo"`
		} `json:"photos"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse flickr response: %w", err)
	}

	urls := make([]string, 0, len(parsed.Photos.Photo))
	for _, photo := range parsed.Photos.Photo {
		if photo.Server == "" || photo.ID == "" || photo.Secret == "" {
			continue
		}
		// The _b suffix requests the large (1024px) rendition.
		urls = append(urls, fmt.Sprintf("https://farm%s.staticflickr.com/%s/%s_%s_b.jpg",
			photo.Farm.String(), photo.Server, photo.ID, photo.Secret))
	}

	return truncate(urls, limit), nil
}
