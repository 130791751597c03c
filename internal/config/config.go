// Package config assembles runtime configuration from the environment. The
// upstream API key is the only mandatory value; everything else has a
// production default.
package config

import (
	"time"

	"wayfarer/internal/env"
)

// Config holds every tunable of the service.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// PlacesAPIKey authenticates against the upstream places API. Injected
	// only; it must never be committed, cached or logged.
	PlacesAPIKey string
	// PlacesBaseURL points at the upstream API root; tests point it at a
	// fake.
	PlacesBaseURL string
	// RequestTimeout bounds one upstream call.
	RequestTimeout time.Duration
	// UpstreamRPS throttles outbound calls; 0 disables throttling.
	UpstreamRPS float64
	// BreakerFailures opens the upstream circuit after that many
	// consecutive failures; 0 disables the breaker.
	BreakerFailures int

	// CacheTTL is how long fetched place data stays fresh.
	CacheTTL time.Duration

	// SearchRadiusMeters is the radius for every region query.
	SearchRadiusMeters int
	// TopK bounds ranking output.
	TopK int
	// RegionRetries retries a failed region fetch that many times.
	RegionRetries int

	// APIRateLimit is the per-client request budget per minute on the HTTP
	// surface.
	APIRateLimit int

	// KafkaBroker and KafkaTopic enable the search event feed when both
	// are set.
	KafkaBroker string
	KafkaTopic  string

	// LogLevel is a zerolog level name; LogConsole switches to
	// human-readable output.
	LogLevel   string
	LogConsole bool
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	apiKey, err := env.Require("PLACES_API_KEY")
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:         env.Get("LISTEN_ADDR", ":3000"),
		PlacesAPIKey:       apiKey,
		PlacesBaseURL:      env.Get("PLACES_BASE_URL", ""),
		RequestTimeout:     env.GetDuration("REQUEST_TIMEOUT", 10*time.Second),
		UpstreamRPS:        env.GetFloat("UPSTREAM_RPS", 10),
		BreakerFailures:    env.GetInt("BREAKER_FAILURES", 5),
		CacheTTL:           env.GetDuration("CACHE_TTL", 24*time.Hour),
		SearchRadiusMeters: env.GetInt("SEARCH_RADIUS_METERS", 50_000),
		TopK:               env.GetInt("TOP_K", 5),
		RegionRetries:      env.GetInt("REGION_RETRIES", 0),
		APIRateLimit:       env.GetInt("API_RATE_LIMIT", 100),
		KafkaBroker:        env.Get("KAFKA_BROKER", ""),
		KafkaTopic:         env.Get("KAFKA_TOPIC", ""),
		LogLevel:           env.Get("LOG_LEVEL", "info"),
		LogConsole:         env.GetBool("LOG_CONSOLE", false),
	}, nil
}

// EventFeedEnabled reports whether search events should be published.
func (c *Config) EventFeedEnabled() bool {
	return c.KafkaBroker != "" && c.KafkaTopic != ""
}

// Redacted returns a copy safe for logging: the credential is masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.PlacesAPIKey != "" {
		out.PlacesAPIKey = "****"
	}
	return out
}
