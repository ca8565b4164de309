package server

import (
	"time"

	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/rates"
	"github.com/sig-0/remesas/settlement"
	"github.com/sig-0/remesas/storage/types"
)

// FallbackRates are the reference rates served when no snapshot exists
type FallbackRates struct {
	WLDToUSDT      float64 `json:"WLD_to_USDT"`
	USDTToCLPP2P   float64 `json:"USDT_to_CLP_P2P"`
	VESPerUSDTSell float64 `json:"VES_per_USDT_SELL"`
}

// DefaultFallbackRates returns the quote acquisition fallback constants
func DefaultFallbackRates() FallbackRates {
	return FallbackRates{
		WLDToUSDT:      quote.DefaultSpotFallback,
		USDTToCLPP2P:   quote.DefaultCLPBuyFallback,
		VESPerUSDTSell: quote.DefaultVESSellFallback,
	}
}

// RateSummaryResponse is the flat rate summary
type RateSummaryResponse struct {
	Meta    *RateSummaryMeta `json:"meta,omitempty"`
	Message string           `json:"message,omitempty"`
	FallbackRates
	Success bool `json:"success"`
}

type RateSummaryMeta struct {
	FetchedAt time.Time         `json:"fetched_at"`
	BuiltAt   time.Time         `json:"built_at"`
	Sources   map[string]string `json:"sources"`
	Reference []*quote.Quote    `json:"reference,omitempty"`
	Version   uint64            `json:"version"`
}

// RatesResponse is the complete rate matrix
type RatesResponse struct {
	BuiltAt   time.Time                 `json:"built_at"`
	FetchedAt time.Time                 `json:"fetched_at"`
	Matrix    rates.Matrix              `json:"matrix"`
	Margins   settlement.MarginPercents `json:"margins"`
	Sources   map[string]string         `json:"sources"`
	Version   uint64                    `json:"version"`
}

// ConvertResponse is a single conversion quote
type ConvertResponse struct {
	rates.Conversion
	Version uint64 `json:"version"`
}

type ReceiptRequest struct {
	ReceiptURL string `json:"receipt_url"`
}

type StatusUpdateRequest struct {
	Status          types.Status `json:"status"`
	AdminReceiptURL string       `json:"admin_receipt_url,omitempty"`
}

type AccountsResponse struct {
	Results []*types.AdminAccount `json:"results"`
}

// MarginsResponse holds the margins in effect, both as
// percentages and as the fractions applied to the rates
type MarginsResponse struct {
	Percent  settlement.MarginPercents `json:"percent"`
	Fraction types.MarginConfig        `json:"fraction"`
}

type ErrorResponse struct {
	Fields map[string]string `json:"fields,omitempty"`
	Error  string            `json:"error"`
}
