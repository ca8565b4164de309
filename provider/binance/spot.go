//nolint:tagliatelle // Binance API uses camel case
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/sig-0/remesas/quote"
)

const spotBaseURL = "https://api.binance.com"

var errMissingPrice = errors.New("response is missing a valid price")

// spotStrategy is a single spot price endpoint, and the response field holding the price
type spotStrategy struct {
	name  string
	path  string
	parse func([]byte) (string, error)
}

// spotStrategies are the spot endpoints, tried in order
var spotStrategies = []spotStrategy{
	{
		name: "avgPrice",
		path: "/api/v3/avgPrice",
		parse: func(b []byte) (string, error) {
			var raw struct {
				Price string `json:"price"`
			}

			err := json.Unmarshal(b, &raw)

			return raw.Price, err
		},
	},
	{
		name: "tickerPrice",
		path: "/api/v3/ticker/price",
		parse: func(b []byte) (string, error) {
			var raw struct {
				Price string `json:"price"`
			}

			err := json.Unmarshal(b, &raw)

			return raw.Price, err
		},
	},
	{
		name: "ticker24hr",
		path: "/api/v3/ticker/24hr",
		parse: func(b []byte) (string, error) {
			var raw struct {
				LastPrice string `json:"lastPrice"`
			}

			err := json.Unmarshal(b, &raw)

			return raw.LastPrice, err
		},
	},
}

// SpotClient fetches spot prices from Binance
type SpotClient struct {
	client         *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
	baseURL        string
	apiKey         string
	attemptTimeout time.Duration
}

// NewSpotClient creates a new Binance spot client.
// Every endpoint attempt is bound by the given timeout
func NewSpotClient(attemptTimeout time.Duration, opts ...Option) *SpotClient {
	cfg := newClientConfig(opts...)

	return &SpotClient{
		client:         &http.Client{},
		limiter:        cfg.limiter,
		logger:         cfg.logger,
		baseURL:        cfg.spotURL,
		apiKey:         cfg.apiKey,
		attemptTimeout: attemptTimeout,
	}
}

// Spot fetches the spot price of the pair, trying every endpoint strategy
// in order until one yields a positive finite price.
// Returns nil if all strategies fail
func (c *SpotClient) Spot(ctx context.Context, pair quote.Pair) *quote.Quote {
	for _, strategy := range spotStrategies {
		price, err := c.attempt(ctx, strategy, pair)
		if err != nil {
			c.logger.Warn(
				"spot strategy failed",
				"strategy", strategy.name,
				"pair", pair.String(),
				"err", err,
			)

			if ctx.Err() != nil {
				return nil
			}

			continue
		}

		return &quote.Quote{
			FetchedAt:    time.Now().UTC(),
			Kind:         quote.KindSpot,
			Asset:        pair.Asset,
			CounterAsset: pair.CounterAsset,
			Source:       strategy.name,
			Value:        price,
		}
	}

	return nil
}

// attempt executes a single spot strategy, bound by the attempt timeout
func (c *SpotClient) attempt(
	ctx context.Context,
	strategy spotStrategy,
	pair quote.Pair,
) (float64, error) {
	attemptCtx, cancelFn := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancelFn()

	if err := c.limiter.Wait(attemptCtx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + strategy.path + "?symbol=" + url.QueryEscape(pair.Symbol())

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("unable to create GET request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("unable to read response: %w", err)
	}

	rawPrice, err := strategy.parse(body)
	if err != nil {
		return 0, fmt.Errorf("unable to decode response: %w", err)
	}

	price, ok := parsePrice(rawPrice)
	if !ok {
		return 0, errMissingPrice
	}

	return price, nil
}
