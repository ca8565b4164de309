package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/settlement"
	"github.com/sig-0/remesas/storage/types"
)

// maxBodySize caps request bodies
const maxBodySize = 1 << 20

var (
	errRatesUnavailable = errors.New("unable to fetch rates, serving reference values")
	errInternal         = errors.New("internal error")
	errInvalidBody      = errors.New("invalid request body")

	errInvalidLimit  = errors.New("invalid limit")
	errInvalidOffset = errors.New("invalid offset")
	errInvalidAmount = errors.New("invalid amount")
	errInvalidStatus = errors.New("invalid status")
)

// RateSummary serves the flat summary of the acquired quotes.
// The reference fallback rates are served with a 500 if no
// snapshot was built yet
func (s *Server) RateSummary(w http.ResponseWriter, _ *http.Request) {
	snap := s.book.Current()
	if snap == nil {
		writeJSON(w, http.StatusInternalServerError, &RateSummaryResponse{
			Success:       false,
			Message:       errRatesUnavailable.Error(),
			FallbackRates: s.fallback,
		})

		return
	}

	resp := &RateSummaryResponse{
		Success:       true,
		FallbackRates: s.fallback,
		Meta: &RateSummaryMeta{
			FetchedAt: snap.Quotes.FetchedAt,
			BuiltAt:   snap.BuiltAt,
			Sources:   snap.Quotes.Sources(),
			Reference: snap.Quotes.Reference,
			Version:   snap.Version,
		},
	}

	if v, ok := snap.Quotes.Spot().Usable(); ok {
		resp.WLDToUSDT = v
	}

	if v, ok := snap.Quotes.Buy(currencies.CLP).Usable(); ok {
		resp.USDTToCLPP2P = v
	}

	if v, ok := snap.Quotes.Sell(currencies.VES).Usable(); ok {
		resp.VESPerUSDTSell = v
	}

	writeJSON(w, http.StatusOK, resp)
}

// Rates serves the complete rate matrix
func (s *Server) Rates(w http.ResponseWriter, _ *http.Request) {
	snap := s.book.Current()
	if snap == nil {
		s.writeServiceError(w, settlement.ErrRatesUnavailable)

		return
	}

	writeJSON(w, http.StatusOK, &RatesResponse{
		BuiltAt:   snap.BuiltAt,
		FetchedAt: snap.Quotes.FetchedAt,
		Matrix:    snap.Matrix,
		Margins:   settlement.ToPercents(snap.Margins),
		Sources:   snap.Quotes.Sources(),
		Version:   snap.Version,
	})
}

// Convert quotes the conversion of an amount between two currencies
func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var (
		fromParam   = r.URL.Query().Get("from")
		toParam     = r.URL.Query().Get("to")
		amountParam = r.URL.Query().Get("amount")
	)

	from, err := parseCurrency(fromParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	to, err := parseCurrency(toParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(amountParam), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidAmount)

		return
	}

	snap := s.book.Current()
	if snap == nil {
		s.writeServiceError(w, settlement.ErrRatesUnavailable)

		return
	}

	conv, err := snap.Matrix.Quote(from, to, amount)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &ConvertResponse{
		Conversion: conv,
		Version:    snap.Version,
	})
}

func parseCurrency(v string) (types.Currency, error) {
	c := types.Currency(strings.ToUpper(strings.TrimSpace(v)))
	if !currencies.IsSupported(c) {
		return "", errors.New("unsupported currency (must be one of CLP, VES, WLD, USDT)")
	}

	return c, nil
}

func parseLimitOffset(limitRaw, offsetRaw string) (uint, uint, error) {
	var limit uint

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, 0, errInvalidLimit
		}

		limit = uint(n)
	}

	var offset uint

	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, 0, errInvalidOffset
		}

		offset = uint(n)
	}

	return limit, offset, nil
}

func parseStatus(v string) (*types.Status, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil, nil
	}

	status := types.Status(v)
	if !status.Valid() {
		return nil, errInvalidStatus
	}

	return &status, nil
}

// decodeJSON decodes the size-capped request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidBody
	}

	return nil
}

// writeServiceError maps a service error to its HTTP status
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var verr *settlement.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, &ErrorResponse{
			Error:  "validation failed",
			Fields: verr.Fields,
		})
	case errors.Is(err, settlement.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, settlement.ErrNotAuthorized)
	case errors.Is(err, settlement.ErrNotFound):
		writeError(w, http.StatusNotFound, settlement.ErrNotFound)
	case errors.Is(err, settlement.ErrInvalidTransition),
		errors.Is(err, settlement.ErrReceiptRequired):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, settlement.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, settlement.ErrInvalidAmount)
	case errors.Is(err, settlement.ErrRouteUnavailable):
		writeError(w, http.StatusUnprocessableEntity, settlement.ErrRouteUnavailable)
	case errors.Is(err, settlement.ErrRatesUnavailable):
		writeError(w, http.StatusServiceUnavailable, settlement.ErrRatesUnavailable)
	default:
		s.logger.Error(
			"unable to serve request",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errInternal)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
