package quote

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/storage/types"
)

// SpotSource fetches a spot price, trying its endpoint strategies in order.
// It returns nil if every strategy failed
type SpotSource interface {
	Spot(ctx context.Context, pair Pair) *Quote
}

// OfferSource fetches ranked P2P offer prices.
// It returns an empty sequence on any failure
type OfferSource interface {
	Offers(ctx context.Context, asset, fiat types.Currency, side Side, rows int) []float64
}

// ReferenceSource fetches diagnostic reference quotes (ex. official rates)
type ReferenceSource interface {
	Name() string
	Reference(ctx context.Context) ([]*Quote, error)
}

// Leg is a single USDT/fiat P2P quote the adapter acquires
type Leg struct {
	Fiat     types.Currency
	Side     Side
	Strategy Strategy
	Fallback float64
}

// Adapter is the quote acquisition adapter. It produces a best-effort
// quote bag from the configured sources, and never fails its caller
type Adapter struct {
	spot      SpotSource
	offers    OfferSource
	reference []ReferenceSource
	logger    *slog.Logger

	spotPair     Pair
	spotFallback float64
	legs         []Leg
	rows         int
	interval     time.Duration
}

// NewAdapter creates a new quote acquisition adapter
func NewAdapter(spot SpotSource, offers OfferSource, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		spot:         spot,
		offers:       offers,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		spotPair:     DefaultSpotPair(),
		spotFallback: DefaultSpotFallback,
		legs:         DefaultLegs(),
		rows:         DefaultRows,
		interval:     DefaultInterval,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Adapter) Name() string {
	return "Quote acquisition (" + a.spotPair.String() + ")"
}

func (a *Adapter) Interval() time.Duration {
	return a.interval
}

// Fetch acquires every quote concurrently and joins them into a bag.
// Missing quotes are replaced with the configured fallback constants.
// The only error returned is the context error, if the context is done
func (a *Adapter) Fetch(ctx context.Context) (*Bag, error) {
	var (
		spotQuote  *Quote
		legQuotes  = make([]*Quote, len(a.legs))
		references = make([][]*Quote, len(a.reference))
		fetchTime  = time.Now().UTC()
	)

	var g errgroup.Group

	g.Go(func() error {
		spotQuote = a.fetchSpot(ctx, fetchTime)

		return nil
	})

	for i, leg := range a.legs {
		g.Go(func() error {
			legQuotes[i] = a.fetchLeg(ctx, leg, fetchTime)

			return nil
		})
	}

	for i, src := range a.reference {
		g.Go(func() error {
			refs, err := src.Reference(ctx)
			if err != nil {
				a.logger.Warn(
					"unable to fetch reference quotes",
					"source", src.Name(),
					"err", err,
				)

				return nil
			}

			references[i] = refs

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never fail

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bag := NewBag(fetchTime)
	bag.WLDToUSDT = spotQuote

	for i, leg := range a.legs {
		switch leg.Side {
		case SideSell:
			bag.USDTToFiatSell[leg.Fiat] = legQuotes[i]
		default:
			bag.USDTToFiatBuy[leg.Fiat] = legQuotes[i]
		}
	}

	for _, refs := range references {
		bag.Reference = append(bag.Reference, refs...)
	}

	return bag, nil
}

// fetchSpot fetches the spot quote, substituting the fallback if unavailable
func (a *Adapter) fetchSpot(ctx context.Context, fetchTime time.Time) *Quote {
	if a.spot != nil {
		if q := a.spot.Spot(ctx, a.spotPair); q != nil {
			if _, ok := q.Usable(); ok {
				return q
			}
		}
	}

	a.logger.Warn(
		"spot quote unavailable, using fallback",
		"pair", a.spotPair.String(),
		"fallback", a.spotFallback,
	)

	return &Quote{
		FetchedAt:    fetchTime,
		Kind:         KindSpot,
		Asset:        a.spotPair.Asset,
		CounterAsset: a.spotPair.CounterAsset,
		Source:       SourceFallback,
		Value:        a.spotFallback,
	}
}

// fetchLeg fetches the offers for a single P2P leg and applies its strategy
func (a *Adapter) fetchLeg(ctx context.Context, leg Leg, fetchTime time.Time) *Quote {
	q := &Quote{
		FetchedAt:    fetchTime,
		Kind:         leg.Side.Kind(),
		Asset:        currencies.USDT,
		CounterAsset: leg.Fiat,
		Source:       "p2p:" + leg.Strategy.String(),
	}

	if a.offers != nil {
		offers := a.offers.Offers(ctx, currencies.USDT, leg.Fiat, leg.Side, a.rows)

		if price, ok := SelectOffer(offers, leg.Strategy); ok && IsValidPrice(price) {
			q.Value = price

			return q
		}
	}

	a.logger.Warn(
		"p2p quote unavailable, using fallback",
		"fiat", leg.Fiat,
		"side", leg.Side,
		"fallback", leg.Fallback,
	)

	q.Source = SourceFallback
	q.Value = leg.Fallback

	return q
}
