package quote

import (
	"context"

	"github.com/sig-0/remesas/storage/types"
)

type (
	spotDelegate      func(context.Context, Pair) *Quote
	offersDelegate    func(context.Context, types.Currency, types.Currency, Side, int) []float64
	referenceDelegate func(context.Context) ([]*Quote, error)
)

type mockSpotSource struct {
	spotFn spotDelegate
}

func (m *mockSpotSource) Spot(ctx context.Context, pair Pair) *Quote {
	if m.spotFn != nil {
		return m.spotFn(ctx, pair)
	}

	return nil
}

type mockOfferSource struct {
	offersFn offersDelegate
}

func (m *mockOfferSource) Offers(
	ctx context.Context,
	asset, fiat types.Currency,
	side Side,
	rows int,
) []float64 {
	if m.offersFn != nil {
		return m.offersFn(ctx, asset, fiat, side, rows)
	}

	return nil
}

type mockReferenceSource struct {
	referenceFn referenceDelegate
}

func (m *mockReferenceSource) Name() string {
	return "mock reference"
}

func (m *mockReferenceSource) Reference(ctx context.Context) ([]*Quote, error) {
	if m.referenceFn != nil {
		return m.referenceFn(ctx)
	}

	return nil, nil
}
