package currencies

import "github.com/sig-0/remesas/storage/types"

var (
	CLP  types.Currency = "CLP"
	VES  types.Currency = "VES"
	WLD  types.Currency = "WLD"
	USDT types.Currency = "USDT"
	USD  types.Currency = "USD"
)

// Supported returns the currencies a remittance can be quoted in
func Supported() []types.Currency {
	return []types.Currency{CLP, VES, WLD, USDT}
}

// IsSupported returns true if the currency can be quoted
func IsSupported(c types.Currency) bool {
	for _, s := range Supported() {
		if s == c {
			return true
		}
	}

	return false
}
