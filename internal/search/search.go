package search

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ocrdlp/ocrdlp/internal/config"
)

// Provider is one search backend. Implementations parse their provider's
// response shape into a flat URL list and return at most limit URLs in the
// provider's natural result order.
//
// Design decision: One implementation per provider behind a common
// interface rather than a single function with provider-specific branches.
// Each provider's parsing lives in its own unit, which keeps response-shape
// quirks testable in isolation.
type Provider interface {
	// Name returns the provider's engine name for logging.
	Name() string

	// Search returns image URLs for the query, capped at limit.
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Searcher dispatches search calls to the configured providers and merges
// results in mixed mode. All failures are contained per call: the caller
// always receives a (possibly empty) URL list, never an error.
type Searcher struct {
	// providers maps engine names to their implementations.
	providers map[Engine]Provider

	// mixedOrder is the fixed engine order for composite searches.
	mixedOrder []Engine

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// WithProvider registers or replaces a provider. Used by tests to inject
// fakes and by callers to extend the engine set.
func WithProvider(engine Engine, p Provider) Option {
	return func(s *Searcher) {
		s.providers[engine] = p
	}
}

// WithMixedOrder sets the engine order used by the mixed composite mode.
// Unknown engine names are skipped at search time.
func WithMixedOrder(engines []Engine) Option {
	return func(s *Searcher) {
		if len(engines) > 0 {
			s.mixedOrder = engines
		}
	}
}

// NewSearcher creates a Searcher with all built-in providers, authenticated
// from the given credentials. The client is shared across providers;
// it should have a finite timeout configured.
func NewSearcher(client *http.Client, creds config.Credentials, opts ...Option) *Searcher {
	s := &Searcher{
		providers: map[Engine]Provider{
			EngineSerper:   NewSerperProvider(client, creds.SerperKey),
			EngineSerpAPI:  NewSerpAPIProvider(client, creds.SerpAPIKey),
			EngineUnsplash: NewUnsplashProvider(client, creds.UnsplashKey),
			EngineFlickr:   NewFlickrProvider(client, creds.FlickrKey),
		},
		mixedOrder: Engines(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Search returns at most limit deduplicated image URLs for the query.
//
// A missing credential, transport error, non-success status, or parse error
// is logged and yields an empty (or partial, in mixed mode) result. Callers
// must treat an empty result as "no results", not as a hard error.
func (s *Searcher) Search(ctx context.Context, query string, engine Engine, limit int) []string {
	if limit <= 0 {
		return nil
	}

	if engine == EngineMixed {
		return s.searchMixed(ctx, query, limit)
	}

	urls := s.searchOne(ctx, query, engine, limit)
	return truncate(dedupe(urls), limit)
}

// searchOne runs a single provider and contains its failure.
func (s *Searcher) searchOne(ctx context.Context, query string, engine Engine, limit int) []string {
	p, ok := s.providers[engine]
	if !ok {
		s.logger.Warn("no provider registered for engine", "engine", engine)
		return nil
	}

	urls, err := p.Search(ctx, query, limit)
	if err != nil {
		s.logger.Warn("search failed, returning no results",
			"engine", engine,
			"query", query,
			"error", err,
		)
		return nil
	}

	s.logger.Debug("search completed",
		"engine", engine,
		"query", query,
		"urls", len(urls),
	)
	return urls
}

// searchMixed queries the configured engines in fixed order, concatenates
// their results preserving discovery order, and drops exact-duplicate URLs.
func (s *Searcher) searchMixed(ctx context.Context, query string, limit int) []string {
	var merged []string
	for _, engine := range s.mixedOrder {
		if engine == EngineMixed {
			continue
		}
		merged = append(merged, s.searchOne(ctx, query, engine, limit)...)
	}
	return truncate(dedupe(merged), limit)
}

// dedupe drops exact-duplicate URLs, keeping first occurrences in order.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	result := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		result = append(result, u)
	}
	return result
}

// truncate caps the list at limit.
func truncate(urls []string, limit int) []string {
	if len(urls) > limit {
		return urls[:limit]
	}
	return urls
}
