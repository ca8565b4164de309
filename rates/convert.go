package rates

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/sig-0/remesas/storage/types"
)

// ErrInvalidAmount is returned for amounts that are not positive finite numbers
var ErrInvalidAmount = errors.New("amount must be a positive number")

// receivePlaces is the number of decimal places of a displayed receive amount
const receivePlaces = 2

// maxReceive keeps the rounded receive amount within the float64 range
const maxReceive = math.MaxFloat64 / 2

// Conversion is the result of converting an amount through the matrix
type Conversion struct {
	From    types.Currency `json:"from"`
	To      types.Currency `json:"to"`
	Amount  float64        `json:"amount"`
	Rate    float64        `json:"rate"`
	Raw     float64        `json:"raw"`
	Receive float64        `json:"receive"`
}

// Convert returns the raw converted amount (amount * rate), without rounding.
// A product that overflows the float64 range yields 0
func Convert(amount, rate float64) float64 {
	if !validAmount(amount) || !validAmount(rate) {
		return 0
	}

	raw := amount * rate
	if !validAmount(raw) {
		return 0
	}

	return raw
}

// ReceiveAmount returns the converted amount rounded up to 2 decimal places.
// The result is never below the raw product
func ReceiveAmount(amount, rate float64) float64 {
	raw := Convert(amount, rate)
	if raw == 0 || raw > maxReceive {
		return 0
	}

	// The shortest decimal representation of the raw product is used, so
	// a product like 351.3 is not bumped to 351.31 by binary noise
	ceil, _ := decimal.NewFromFloat(raw).RoundCeil(receivePlaces).Float64()

	// Guard against the float64 conversion landing below the raw product
	if ceil < raw {
		ceil = math.Nextafter(ceil, math.Inf(1))
	}

	return ceil
}

// Quote converts the amount between the two currencies using the matrix
func (m Matrix) Quote(from, to types.Currency, amount float64) (Conversion, error) {
	if !validAmount(amount) {
		return Conversion{}, ErrInvalidAmount
	}

	rate, ok := m.Rate(from, to)
	if !ok {
		return Conversion{}, ErrRouteUnavailable
	}

	// Amounts whose conversion overflows are rejected
	receive := ReceiveAmount(amount, rate)
	if receive == 0 {
		return Conversion{}, ErrInvalidAmount
	}

	return Conversion{
		From:    from,
		To:      to,
		Amount:  amount,
		Rate:    rate,
		Raw:     Convert(amount, rate),
		Receive: receive,
	}, nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
