package config

import "os"

// Environment variable names for external API credentials.
const (
	EnvSerperKey   = "SERPER_API_KEY"
	EnvSerpAPIKey  = "SERPAPI_KEY"
	EnvUnsplashKey = "UNSPLASH_ACCESS_KEY"
	EnvFlickrKey   = "FLICKR_KEY"
	EnvOpenAIKey   = "OPENAI_API_KEY"
)

// Credentials holds API keys for all external services.
//
// Design decision: Credentials are loaded once at process start and passed
// into constructors explicitly. Providers never read the environment
// themselves, which avoids hidden global state and makes a missing key
// testable by passing an empty Credentials value.
type Credentials struct {
	// SerperKey authenticates against the Serper.dev image search API.
	SerperKey string

	// SerpAPIKey authenticates against SerpAPI's Google Images endpoint.
	SerpAPIKey string

	// UnsplashKey is the Unsplash access key (Client-ID authorization).
	UnsplashKey string

	// FlickrKey authenticates against the Flickr REST API.
	FlickrKey string

	// OpenAIKey authenticates against the vision model API.
	OpenAIKey string
}

// CredentialsFromEnv reads all credentials from the environment.
// Missing variables leave the corresponding key empty; absence of a key for
// a requested engine is not fatal and is handled per-call by the search
// adapter.
func CredentialsFromEnv() Credentials {
	return Credentials{
		SerperKey:   os.Getenv(EnvSerperKey),
		SerpAPIKey:  os.Getenv(EnvSerpAPIKey),
		UnsplashKey: os.Getenv(EnvUnsplashKey),
		FlickrKey:   os.Getenv(EnvFlickrKey),
		OpenAIKey:   os.Getenv(EnvOpenAIKey),
	}
}
