package quote

import (
	"log/slog"
	"time"

	"github.com/sig-0/remesas/provider/currencies"
)

const (
	// DefaultSpotFallback is the WLD/USDT reference used when every spot strategy fails
	DefaultSpotFallback = 1.19

	// DefaultCLPBuyFallback is the USDT/CLP reference used when the CLP book is unavailable
	DefaultCLPBuyFallback = 963.0

	// DefaultVESSellFallback is the USDT/VES reference used when the VES book is unavailable
	DefaultVESSellFallback = 36.0

	// DefaultRows is the number of P2P offers queried per leg
	DefaultRows = 10

	// DefaultInterval is the refresh interval of the quote bag
	DefaultInterval = 5 * time.Minute
)

// DefaultSpotPair is the spot pair the adapter acquires
func DefaultSpotPair() Pair {
	return Pair{
		Asset:        currencies.WLD,
		CounterAsset: currencies.USDT,
	}
}

// DefaultLegs returns the P2P legs required for derivation:
// USDT/CLP on the buy side, and USDT/VES on the sell side
func DefaultLegs() []Leg {
	return []Leg{
		{
			Fiat:     currencies.CLP,
			Side:     SideBuy,
			Strategy: Average(3),
			Fallback: DefaultCLPBuyFallback,
		},
		{
			Fiat:     currencies.VES,
			Side:     SideSell,
			Strategy: Index(3), // skip the thin, aggressive top of the VES book
			Fallback: DefaultVESSellFallback,
		},
	}
}

type AdapterOption func(a *Adapter)

// WithLogger specifies the logger for the adapter
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = l
	}
}

// WithSpotFallback specifies the spot fallback constant
func WithSpotFallback(v float64) AdapterOption {
	return func(a *Adapter) {
		a.spotFallback = v
	}
}

// WithLegs overrides the acquired P2P legs
func WithLegs(legs ...Leg) AdapterOption {
	return func(a *Adapter) {
		a.legs = legs
	}
}

// WithRows specifies how many offers are queried per leg
func WithRows(rows int) AdapterOption {
	return func(a *Adapter) {
		if rows > 0 {
			a.rows = rows
		}
	}
}

// WithInterval specifies the refresh interval reported to the scheduler
func WithInterval(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.interval = d
	}
}

// WithReferenceSources adds diagnostic reference sources
func WithReferenceSources(sources ...ReferenceSource) AdapterOption {
	return func(a *Adapter) {
		a.reference = append(a.reference, sources...)
	}
}
