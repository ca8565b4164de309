//nolint:tagliatelle // Binance API uses camel case
package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/storage/types"
)

const p2pSearchURL = "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"

// p2pRequest is the request body for the Binance P2P search API
type p2pRequest struct {
	Asset     types.Currency `json:"asset"`
	Fiat      types.Currency `json:"fiat"`
	TradeType quote.Side     `json:"tradeType"`
	Rows      int            `json:"rows"`
	Page      int            `json:"page"`
}

// p2pResponse is the response from the Binance P2P search API
type p2pResponse struct {
	Data []p2pOffer `json:"data"`
}

type p2pOffer struct {
	Adv p2pAdv `json:"adv"`
}

type p2pAdv struct {
	Price string `json:"price"`
}

// P2PClient queries ranked USDT/fiat offers from Binance P2P
type P2PClient struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	url     string
}

// NewP2PClient creates a new Binance P2P offer client
func NewP2PClient(timeout time.Duration, opts ...Option) *P2PClient {
	cfg := newClientConfig(opts...)

	return &P2PClient{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: cfg.limiter,
		logger:  cfg.logger,
		url:     cfg.p2pURL,
	}
}

// Offers fetches up to rows offers on the given trade side, in the order
// ranked by the venue. Any failure yields an empty sequence
func (c *P2PClient) Offers(
	ctx context.Context,
	asset, fiat types.Currency,
	side quote.Side,
	rows int,
) []float64 {
	offers, err := c.fetchOffers(ctx, asset, fiat, side, rows)
	if err != nil {
		c.logger.Warn(
			"unable to fetch p2p offers",
			"asset", asset,
			"fiat", fiat,
			"side", side,
			"err", err,
		)

		return []float64{}
	}

	return offers
}

// fetchOffers queries Binance P2P and parses the offer prices
func (c *P2PClient) fetchOffers(
	ctx context.Context,
	asset, fiat types.Currency,
	side quote.Side,
	rows int,
) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqBody := p2pRequest{
		Asset:     asset,
		Fiat:      fiat,
		TradeType: side,
		Rows:      rows,
		Page:      1,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create POST request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute POST request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w", err)
	}

	var apiResp p2pResponse
	if err = json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	offers := make([]float64, 0, len(apiResp.Data))

	for _, offer := range apiResp.Data {
		price, ok := parsePrice(offer.Adv.Price)
		if !ok {
			continue
		}

		offers = append(offers, price)
	}

	return offers, nil
}

// parsePrice parses a price string, accepting only positive finite values
func parsePrice(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}

	if !quote.IsValidPrice(parsed) {
		return 0, false
	}

	return parsed, true
}
