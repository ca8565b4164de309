// Package binance provides the Binance quote sources.
//
// # Spot
//
// API: https://api.binance.com
//
// Fetches the spot price for a symbol (ex. WLDUSDT), trying the
// following endpoints in order, until one yields a positive price:
//
//	/api/v3/avgPrice      -> price
//	/api/v3/ticker/price  -> price
//	/api/v3/ticker/24hr   -> lastPrice
//
// Each attempt is bound by its own timeout. A timeout, a non-2xx
// response or a malformed body fails only that attempt.
//
// # P2P
//
// API: https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search
//
// Fetches a single page of ranked offers for an asset / fiat / trade side.
// Offer prices are returned in venue order, without re-sorting, so that
// the caller's selection strategy (index or average) applies to the
// ranking as delivered. Unparsable or non-positive prices are dropped.
// Transport failures yield an empty offer list.
//
// Both clients share a rate limiter (golang.org/x/time/rate) when
// configured with the same WithLimiter option.
package binance
