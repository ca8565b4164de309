package quote

import (
	"math"
	"time"

	"github.com/sig-0/remesas/storage/types"
)

// Kind is the type of upstream observation a quote represents
type Kind string

const (
	KindSpot     Kind = "spot"
	KindP2PBuy   Kind = "p2p-buy"
	KindP2PSell  Kind = "p2p-sell"
	KindOfficial Kind = "official"
)

func (k Kind) String() string {
	return string(k)
}

// Side is the P2P trade side, from the platform's perspective
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) String() string {
	return string(s)
}

// Kind returns the quote kind produced by offers on this side
func (s Side) Kind() Kind {
	if s == SideSell {
		return KindP2PSell
	}

	return KindP2PBuy
}

// SourceFallback tags quotes substituted with a configured constant
const SourceFallback = "fallback"

// Pair is an asset / counter-asset pair
type Pair struct {
	Asset        types.Currency `json:"asset"`
	CounterAsset types.Currency `json:"counter_asset"`
}

// Symbol returns the venue symbol of the pair (ex. WLDUSDT)
func (p Pair) Symbol() string {
	return p.Asset.String() + p.CounterAsset.String()
}

func (p Pair) String() string {
	return p.Asset.String() + "/" + p.CounterAsset.String()
}

// Quote is a single upstream-observed value
type Quote struct {
	FetchedAt    time.Time      `json:"fetched_at"`
	Kind         Kind           `json:"kind"`
	Asset        types.Currency `json:"asset"`
	CounterAsset types.Currency `json:"counter_asset"`
	Source       string         `json:"source"`
	Value        float64        `json:"value"`
}

// Usable returns the quote value, if the quote is present and the value
// is a positive finite number
func (q *Quote) Usable() (float64, bool) {
	if q == nil {
		return 0, false
	}

	if !IsValidPrice(q.Value) {
		return 0, false
	}

	return q.Value, true
}

// IsFallback returns true if the quote value is a configured constant
func (q *Quote) IsFallback() bool {
	return q != nil && q.Source == SourceFallback
}

// IsValidPrice returns true for positive finite values
func IsValidPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Bag is the set of quotes a rate matrix is derived from
type Bag struct {
	FetchedAt      time.Time                 `json:"fetched_at"`
	WLDToUSDT      *Quote                    `json:"wld_to_usdt"`
	USDTToFiatBuy  map[types.Currency]*Quote `json:"usdt_to_fiat_buy"`
	USDTToFiatSell map[types.Currency]*Quote `json:"usdt_to_fiat_sell"`
	Reference      []*Quote                  `json:"reference,omitempty"`
}

// NewBag creates an empty quote bag
func NewBag(fetchedAt time.Time) *Bag {
	return &Bag{
		FetchedAt:      fetchedAt,
		USDTToFiatBuy:  make(map[types.Currency]*Quote),
		USDTToFiatSell: make(map[types.Currency]*Quote),
	}
}

// Buy returns the USDT buy-side quote for the fiat, if any
func (b *Bag) Buy(fiat types.Currency) *Quote {
	if b == nil || b.USDTToFiatBuy == nil {
		return nil
	}

	return b.USDTToFiatBuy[fiat]
}

// Sell returns the USDT sell-side quote for the fiat, if any
func (b *Bag) Sell(fiat types.Currency) *Quote {
	if b == nil || b.USDTToFiatSell == nil {
		return nil
	}

	return b.USDTToFiatSell[fiat]
}

// Spot returns the WLD/USDT spot quote, if any
func (b *Bag) Spot() *Quote {
	if b == nil {
		return nil
	}

	return b.WLDToUSDT
}

// Sources lists the source tag of every primitive quote, keyed by quote name
func (b *Bag) Sources() map[string]string {
	out := make(map[string]string)

	if b == nil {
		return out
	}

	if b.WLDToUSDT != nil {
		out["WLD_USDT_"+b.WLDToUSDT.Kind.String()] = b.WLDToUSDT.Source
	}

	for fiat, q := range b.USDTToFiatBuy {
		if q != nil {
			out["USDT_"+fiat.String()+"_"+q.Kind.String()] = q.Source
		}
	}

	for fiat, q := range b.USDTToFiatSell {
		if q != nil {
			out["USDT_"+fiat.String()+"_"+q.Kind.String()] = q.Source
		}
	}

	return out
}
