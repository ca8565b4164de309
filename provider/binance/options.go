package binance

import (
	"io"
	"log/slog"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond is the default outbound request budget per client
const DefaultRequestsPerSecond = 5

type clientConfig struct {
	limiter *rate.Limiter
	logger  *slog.Logger
	spotURL string
	p2pURL  string
	apiKey  string
}

func newClientConfig(opts ...Option) *clientConfig {
	cfg := &clientConfig{
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		spotURL: spotBaseURL,
		p2pURL:  p2pSearchURL,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

type Option func(c *clientConfig)

// WithLogger specifies the logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithLimiter specifies the outbound rate limiter. Clients of the same
// venue can share a single limiter
func WithLimiter(l *rate.Limiter) Option {
	return func(c *clientConfig) {
		c.limiter = l
	}
}

// WithAPIKey specifies the Binance API key, sent with spot requests
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithSpotURL overrides the spot API base URL
func WithSpotURL(u string) Option {
	return func(c *clientConfig) {
		c.spotURL = u
	}
}

// WithP2PURL overrides the P2P search endpoint
func WithP2PURL(u string) Option {
	return func(c *clientConfig) {
		c.p2pURL = u
	}
}
