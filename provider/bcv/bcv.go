// Package bcv provides the official Banco Central de Venezuela reference rates.
//
// Source: "BCV"
// URL: https://www.bcv.org.ve/
//
// The official USD/VES and EUR/VES rates are scraped from the BCV home page.
// They are not used for rate derivation; they are attached to the quote bag
// as diagnostic reference values, so operators can compare the P2P sell
// quote against the official rate.
package bcv

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/storage/types"
)

// Source is the source tag of BCV reference quotes
const Source = "BCV"

const DefaultURL = "https://www.bcv.org.ve/"

var (
	errInvalidRate = errors.New("invalid rate")
	errNoRates     = errors.New("no reference rates found")
)

// sections maps the BCV page section IDs to the quoted currency
var sections = map[string]types.Currency{
	"dolar": currencies.USD,
	"euro":  "EUR",
}

// Client scrapes the BCV website
type Client struct {
	client *http.Client
	url    string
}

// NewClient creates a new BCV reference rate client
func NewClient(url string, timeout time.Duration) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // BCV serves an incomplete chain
	}

	return &Client{
		client: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
		url: url,
	}
}

func (c *Client) Name() string {
	return Source
}

// Reference fetches the official reference quotes
func (c *Client) Reference(ctx context.Context) ([]*quote.Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to construct query doc: %w", err)
	}

	var (
		fetchTime = time.Now().UTC()
		out       = make([]*quote.Quote, 0, len(sections))
	)

	// Keep a stable order, USD first
	for _, id := range []string{"dolar", "euro"} {
		rate, err := sectionRate(doc, id)
		if err != nil {
			continue
		}

		out = append(out, &quote.Quote{
			FetchedAt:    fetchTime,
			Kind:         quote.KindOfficial,
			Asset:        sections[id],
			CounterAsset: currencies.VES,
			Source:       Source,
			Value:        rate,
		})
	}

	if len(out) == 0 {
		return nil, errNoRates
	}

	return out, nil
}

// sectionRate extracts the rate shown in the given page section
func sectionRate(doc *goquery.Document, id string) (float64, error) {
	sel := doc.Find("#" + id)
	if sel.Length() == 0 {
		return 0, fmt.Errorf("missing element #%s", id)
	}

	txt := sel.Find(".col-sm-6.col-xs-6.centrado").First().Text()
	if strings.TrimSpace(txt) == "" {
		txt = sel.Find(".centrado").First().Text()
	}

	v, err := parseNumber(txt)
	if err != nil {
		return 0, fmt.Errorf("unable to parse rate value for %s: %w", id, err)
	}

	return math.Round(v*1e4) / 1e4, nil
}

// parseNumber parses a BCV formatted number.
// BCV uses comma as decimal separator: "1.234,56" -> 1234.56
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidRate
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse rate %q: %w", s, err)
	}

	if !quote.IsValidPrice(f) {
		return 0, errInvalidRate
	}

	return f, nil
}
