package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/quote"
)

var wldUSDT = quote.Pair{
	Asset:        currencies.WLD,
	CounterAsset: currencies.USDT,
}

func TestSpotClient_Spot(t *testing.T) {
	t.Parallel()

	t.Run("first strategy succeeds", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v3/avgPrice", r.URL.Path)
			assert.Equal(t, "WLDUSDT", r.URL.Query().Get("symbol"))
			assert.Equal(t, "key", r.Header.Get("X-MBX-APIKEY"))

			_, _ = w.Write([]byte(`{"mins":5,"price":"1.19"}`))
		}))
		defer srv.Close()

		c := NewSpotClient(time.Second, WithSpotURL(srv.URL), WithAPIKey("key"))

		q := c.Spot(context.Background(), wldUSDT)
		require.NotNil(t, q)

		assert.Equal(t, 1.19, q.Value)
		assert.Equal(t, "avgPrice", q.Source)
		assert.Equal(t, quote.KindSpot, q.Kind)
		assert.Equal(t, currencies.WLD, q.Asset)
		assert.Equal(t, currencies.USDT, q.CounterAsset)
	})

	t.Run("falls through failing strategies", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v3/avgPrice":
				w.WriteHeader(http.StatusInternalServerError)
			case "/api/v3/ticker/price":
				_, _ = w.Write([]byte(`{"symbol":"WLDUSDT","price":"not-a-number"}`))
			default:
				_, _ = w.Write([]byte(`{"symbol":"WLDUSDT","lastPrice":"1.25"}`))
			}
		}))
		defer srv.Close()

		q := NewSpotClient(time.Second, WithSpotURL(srv.URL)).Spot(context.Background(), wldUSDT)
		require.NotNil(t, q)

		assert.Equal(t, 1.25, q.Value)
		assert.Equal(t, "ticker24hr", q.Source)
	})

	t.Run("attempt timeout moves to the next strategy", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v3/avgPrice" {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}

				return
			}

			_, _ = w.Write([]byte(`{"price":"1.30"}`))
		}))
		defer srv.Close()

		q := NewSpotClient(50*time.Millisecond, WithSpotURL(srv.URL)).Spot(context.Background(), wldUSDT)
		require.NotNil(t, q)

		assert.Equal(t, 1.30, q.Value)
		assert.Equal(t, "tickerPrice", q.Source)
	})

	t.Run("all strategies fail", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"price":"0"}`))
		}))
		defer srv.Close()

		assert.Nil(t, NewSpotClient(time.Second, WithSpotURL(srv.URL)).Spot(context.Background(), wldUSDT))
	})
}

func TestP2PClient_Offers(t *testing.T) {
	t.Parallel()

	t.Run("offers in venue order", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)

			var req p2pRequest

			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			assert.Equal(t, currencies.USDT, req.Asset)
			assert.Equal(t, currencies.VES, req.Fiat)
			assert.Equal(t, quote.SideSell, req.TradeType)
			assert.Equal(t, 10, req.Rows)
			assert.Equal(t, 1, req.Page)

			_, _ = w.Write([]byte(`{"data":[
				{"adv":{"price":"38.10"}},
				{"adv":{"price":"37.95"}},
				{"adv":{"price":"nope"}},
				{"adv":{"price":"-1"}},
				{"adv":{"price":"38.40"}}
			]}`))
		}))
		defer srv.Close()

		offers := NewP2PClient(time.Second, WithP2PURL(srv.URL)).Offers(
			context.Background(),
			currencies.USDT,
			currencies.VES,
			quote.SideSell,
			10,
		)

		assert.Equal(t, []float64{38.10, 37.95, 38.40}, offers)
	})

	testTable := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":`))
			},
		},
		{
			name: "no offers",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":[]}`))
			},
		},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(testCase.handler)
			defer srv.Close()

			offers := NewP2PClient(time.Second, WithP2PURL(srv.URL)).Offers(
				context.Background(),
				currencies.USDT,
				currencies.CLP,
				quote.SideBuy,
				5,
			)

			require.NotNil(t, offers)
			assert.Empty(t, offers)
		})
	}

	t.Run("unreachable venue", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		offers := NewP2PClient(time.Second, WithP2PURL(srv.URL)).Offers(
			context.Background(),
			currencies.USDT,
			currencies.CLP,
			quote.SideBuy,
			5,
		)

		assert.Empty(t, offers)
	})
}
