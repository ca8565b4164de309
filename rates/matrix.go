package rates

import (
	"errors"
	"sort"

	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/storage/types"
)

// ErrRouteUnavailable is returned when a pair has no usable rate
var ErrRouteUnavailable = errors.New("exchange route is currently unavailable")

// Key returns the matrix key of the ordered pair (ex. CLP_to_VES)
func Key(from, to types.Currency) string {
	return from.String() + "_to_" + to.String()
}

// Matrix maps ordered pair keys to rates.
// A nil rate is an explicitly unavailable pair, a missing key is a pair
// that is not a remittance route at all
type Matrix map[string]*float64

// Rate returns the usable rate of the ordered pair
func (m Matrix) Rate(from, to types.Currency) (float64, bool) {
	r, ok := m[Key(from, to)]
	if !ok || r == nil {
		return 0, false
	}

	return *r, true
}

// Has returns true if the pair is a known entry, available or not
func (m Matrix) Has(from, to types.Currency) bool {
	_, ok := m[Key(from, to)]

	return ok
}

// Keys returns the sorted matrix keys
func (m Matrix) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// set stores a forward rate and its exact reciprocal.
// A rate that is not a positive finite number nulls both sides
func (m Matrix) set(from, to types.Currency, r float64, ok bool) {
	if !ok || !quote.IsValidPrice(r) {
		m[Key(from, to)] = nil
		m[Key(to, from)] = nil

		return
	}

	inverse := 1 / r
	if !quote.IsValidPrice(inverse) {
		m[Key(from, to)] = nil
		m[Key(to, from)] = nil

		return
	}

	m[Key(from, to)] = &r
	m[Key(to, from)] = &inverse
}
