package search

import (
	"fmt"

	"github.com/ocrdlp/ocrdlp/internal/config"
)

// Engine identifies a selectable image-search provider.
type Engine string

// Supported engines.
const (
	// EngineSerper is the Serper.dev Google Images API.
	EngineSerper Engine = "serper"

	// EngineSerpAPI is SerpAPI's Google Images endpoint.
	EngineSerpAPI Engine = "serpapi"

	// EngineUnsplash is the Unsplash photo search API.
	EngineUnsplash Engine = "unsplash"

	// EngineFlickr is the Flickr REST photo search API.
	EngineFlickr Engine = "flickr"

	// EngineMixed queries multiple engines and merges their results.
	EngineMixed Engine = "mixed"
)

// Engines lists all single-provider engines in the default mixed-mode order.
func Engines() []Engine {
	return []Engine{EngineSerper, EngineSerpAPI, EngineUnsplash, EngineFlickr}
}

// ParseEngine converts an engine name to an Engine.
// Unknown names return config.ErrUnknownEngine.
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case EngineSerper, EngineSerpAPI, EngineUnsplash, EngineFlickr, EngineMixed:
		return Engine(s), nil
	default:
		return "", fmt.Errorf("%w: %q (supported: serper, serpapi, unsplash, flickr, mixed)",
			config.ErrUnknownEngine, s)
	}
}

// String returns the engine name.
func (e Engine) String() string { return string(e) }
