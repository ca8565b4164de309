package serve

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/sig-0/remesas/provider/bcv"
	"github.com/sig-0/remesas/provider/binance"
	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/server"
)

var (
	errInvalidFallback    = errors.New("fallback rates must be positive numbers")
	errInvalidRequestRate = errors.New("requests per second must be a positive number")
)

// ProvidersConfig is the quote acquisition configuration
type ProvidersConfig struct {
	APIKey      string
	BCVURL      string
	CLPStrategy string
	VESStrategy string

	SpotFallback float64
	CLPFallback  float64
	VESFallback  float64

	RequestsPerSecond float64
	Rows              int

	RequestTimeout time.Duration
	Interval       time.Duration
}

// RegisterFlags registers the quote acquisition flags
func (c *ProvidersConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.APIKey,
		"binance-api-key",
		"",
		"the Binance API key, sent with spot requests",
	)

	fs.StringVar(
		&c.BCVURL,
		"bcv-url",
		bcv.DefaultURL,
		"the BCV page with the official reference rates, empty to disable",
	)

	fs.StringVar(
		&c.CLPStrategy,
		"clp-strategy",
		quote.Average(3).String(),
		"the USDT/CLP buy offer selection strategy (index:k or average:n)",
	)

	fs.StringVar(
		&c.VESStrategy,
		"ves-strategy",
		quote.Index(3).String(),
		"the USDT/VES sell offer selection strategy (index:k or average:n)",
	)

	fs.Float64Var(
		&c.SpotFallback,
		"fallback-wld-usdt",
		quote.DefaultSpotFallback,
		"the WLD/USDT rate used when the spot price is unavailable",
	)

	fs.Float64Var(
		&c.CLPFallback,
		"fallback-usdt-clp",
		quote.DefaultCLPBuyFallback,
		"the USDT/CLP rate used when the P2P buy offers are unavailable",
	)

	fs.Float64Var(
		&c.VESFallback,
		"fallback-usdt-ves",
		quote.DefaultVESSellFallback,
		"the USDT/VES rate used when the P2P sell offers are unavailable",
	)

	fs.Float64Var(
		&c.RequestsPerSecond,
		"binance-rps",
		binance.DefaultRequestsPerSecond,
		"the outbound Binance request budget, per second",
	)

	fs.IntVar(
		&c.Rows,
		"p2p-rows",
		quote.DefaultRows,
		"the number of P2P offers queried per leg",
	)

	fs.DurationVar(
		&c.RequestTimeout,
		"request-timeout",
		10*time.Second,
		"the timeout of a single upstream request",
	)

	fs.DurationVar(
		&c.Interval,
		"refresh-interval",
		quote.DefaultInterval,
		"the quote refresh interval",
	)
}

// FallbackRates returns the fallback constants, as served by the rate summary
func (c *ProvidersConfig) FallbackRates() server.FallbackRates {
	return server.FallbackRates{
		WLDToUSDT:      c.SpotFallback,
		USDTToCLPP2P:   c.CLPFallback,
		VESPerUSDTSell: c.VESFallback,
	}
}

// Adapter creates the quote acquisition adapter.
// Both Binance clients share a single rate limiter
func (c *ProvidersConfig) Adapter(logger *slog.Logger) (*quote.Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, v := range []float64{c.SpotFallback, c.CLPFallback, c.VESFallback} {
		if !quote.IsValidPrice(v) {
			return nil, errInvalidFallback
		}
	}

	if !quote.IsValidPrice(c.RequestsPerSecond) {
		return nil, errInvalidRequestRate
	}

	clpStrategy, err := quote.ParseStrategy(c.CLPStrategy)
	if err != nil {
		return nil, fmt.Errorf("invalid CLP strategy: %w", err)
	}

	vesStrategy, err := quote.ParseStrategy(c.VESStrategy)
	if err != nil {
		return nil, fmt.Errorf("invalid VES strategy: %w", err)
	}

	burst := max(int(c.RequestsPerSecond), 1)

	var (
		limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
		opts    = []binance.Option{
			binance.WithLimiter(limiter),
			binance.WithAPIKey(c.APIKey),
			binance.WithLogger(logger),
		}

		spotClient = binance.NewSpotClient(c.RequestTimeout, opts...)
		p2pClient  = binance.NewP2PClient(c.RequestTimeout, opts...)
	)

	adapterOpts := []quote.AdapterOption{
		quote.WithLogger(logger),
		quote.WithSpotFallback(c.SpotFallback),
		quote.WithRows(c.Rows),
		quote.WithInterval(c.Interval),
		quote.WithLegs(
			quote.Leg{
				Fiat:     currencies.CLP,
				Side:     quote.SideBuy,
				Strategy: clpStrategy,
				Fallback: c.CLPFallback,
			},
			quote.Leg{
				Fiat:     currencies.VES,
				Side:     quote.SideSell,
				Strategy: vesStrategy,
				Fallback: c.VESFallback,
			},
		),
	}

	// Official BCV reference rates, diagnostic only
	if c.BCVURL != "" {
		adapterOpts = append(
			adapterOpts,
			quote.WithReferenceSources(bcv.NewClient(c.BCVURL, c.RequestTimeout)),
		)
	}

	return quote.NewAdapter(spotClient, p2pClient, adapterOpts...), nil
}
