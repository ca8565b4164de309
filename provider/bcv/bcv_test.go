package bcv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/quote"
)

const bcvPage = `<html><body>
<div id="euro"><div class="col-sm-6 col-xs-6 centrado"><strong> 42,51230000 </strong></div></div>
<div id="dolar"><div class="col-sm-6 col-xs-6 centrado"><strong> 36,71842100 </strong></div></div>
</body></html>`

func TestClient_Reference(t *testing.T) {
	t.Parallel()

	t.Run("valid page", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(bcvPage))
		}))
		defer srv.Close()

		quotes, err := NewClient(srv.URL, time.Second).Reference(context.Background())
		require.NoError(t, err)
		require.Len(t, quotes, 2)

		assert.Equal(t, currencies.USD, quotes[0].Asset)
		assert.Equal(t, currencies.VES, quotes[0].CounterAsset)
		assert.Equal(t, quote.KindOfficial, quotes[0].Kind)
		assert.Equal(t, Source, quotes[0].Source)
		assert.InDelta(t, 36.7184, quotes[0].Value, 1e-9)

		assert.InDelta(t, 42.5123, quotes[1].Value, 1e-9)
	})

	t.Run("no sections", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><body>maintenance</body></html>`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Reference(context.Background())

		assert.ErrorIs(t, err, errNoRates)
	})

	t.Run("invalid status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Reference(context.Background())

		assert.Error(t, err)
	})
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	v, err := parseNumber(" 1.234,56 ")
	require.NoError(t, err)
	assert.InDelta(t, 1234.56, v, 1e-9)

	for _, raw := range []string{"", "abc", "0,00", "-3,5"} {
		_, err := parseNumber(raw)

		assert.Error(t, err, raw)
	}
}
