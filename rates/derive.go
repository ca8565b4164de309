package rates

import (
	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/storage/types"
)

// Derive builds the complete rate matrix from the quote bag and the
// margin configuration. It performs no I/O, and never fails:
// a pair whose inputs are unavailable is present with a nil rate.
//
// Every CLP-denominated leg uses the USDT/CLP P2P buy quote.
// Inverse pairs are the exact reciprocal of the forward rate
func Derive(bag *quote.Bag, m types.MarginConfig) Matrix {
	var (
		matrix = make(Matrix, 16)

		wldUSDT, hasSpot   = bag.Spot().Usable()
		usdtCLP, hasCLPBuy = bag.Buy(currencies.CLP).Usable()
		usdtVES, hasVESSel = bag.Sell(currencies.VES).Usable()
	)

	for _, c := range currencies.Supported() {
		one := 1.0
		matrix[Key(c, c)] = &one
	}

	// WLD -> CLP
	matrix.set(
		currencies.WLD,
		currencies.CLP,
		wldUSDT*usdtCLP*(1-m.DiscountWLDCLP),
		hasSpot && hasCLPBuy,
	)

	// CLP -> VES
	var clpVES float64
	if hasCLPBuy && hasVESSel {
		clpVES = (usdtVES / usdtCLP) * (1 - m.DiscountCLPVES)
	}

	matrix.set(
		currencies.CLP,
		currencies.VES,
		clpVES,
		hasCLPBuy && hasVESSel,
	)

	// USDT -> CLP
	matrix.set(
		currencies.USDT,
		currencies.CLP,
		usdtCLP*(1+m.MarginUSDTCLP),
		hasCLPBuy,
	)

	// USDT -> VES, pass-through
	matrix.set(
		currencies.USDT,
		currencies.VES,
		usdtVES,
		hasVESSel,
	)

	// No cross path between WLD and VES
	matrix[Key(currencies.WLD, currencies.VES)] = nil
	matrix[Key(currencies.VES, currencies.WLD)] = nil

	return matrix
}
