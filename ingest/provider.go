package ingest

import (
	"context"
	"time"

	"github.com/sig-0/remesas/quote"
)

// Provider is a single quote bag provider
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// Interval returns the interval at which the provider should be called
	Interval() time.Duration

	// Fetch is the provider's main fetch job, yielding a quote bag
	Fetch(context.Context) (*quote.Bag, error)
}

// Sink consumes the fetched quote bags
type Sink interface {
	// PublishQuotes publishes a freshly fetched quote bag
	PublishQuotes(context.Context, *quote.Bag) error
}
