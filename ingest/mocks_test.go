package ingest

import (
	"context"
	"time"

	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/storage/types"
)

type (
	nameDelegate     func() string
	intervalDelegate func() time.Duration
	fetchDelegate    func(context.Context) (*quote.Bag, error)
)

type mockProvider struct {
	nameFn     nameDelegate
	intervalFn intervalDelegate
	fetchFn    fetchDelegate
}

func (m *mockProvider) Name() string {
	if m.nameFn != nil {
		return m.nameFn()
	}

	return ""
}

func (m *mockProvider) Interval() time.Duration {
	if m.intervalFn != nil {
		return m.intervalFn()
	}

	return 0
}

func (m *mockProvider) Fetch(ctx context.Context) (*quote.Bag, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return nil, nil
}

type publishQuotesDelegate func(context.Context, *quote.Bag) error

type mockSink struct {
	publishQuotesFn publishQuotesDelegate
}

func (m *mockSink) PublishQuotes(ctx context.Context, bag *quote.Bag) error {
	if m.publishQuotesFn != nil {
		return m.publishQuotesFn(ctx, bag)
	}

	return nil
}

type (
	marginsDelegate      func(context.Context) (types.MarginConfig, error)
	watchMarginsDelegate func(context.Context) (<-chan types.MarginConfig, error)
	setMarginsDelegate   func(types.MarginConfig) error
)

type mockMarginSource struct {
	marginsFn      marginsDelegate
	watchMarginsFn watchMarginsDelegate
}

func (m *mockMarginSource) Margins(ctx context.Context) (types.MarginConfig, error) {
	if m.marginsFn != nil {
		return m.marginsFn(ctx)
	}

	return types.MarginConfig{}, nil
}

func (m *mockMarginSource) WatchMargins(ctx context.Context) (<-chan types.MarginConfig, error) {
	if m.watchMarginsFn != nil {
		return m.watchMarginsFn(ctx)
	}

	return nil, nil
}

type mockMarginTarget struct {
	setMarginsFn setMarginsDelegate
}

func (m *mockMarginTarget) SetMargins(c types.MarginConfig) error {
	if m.setMarginsFn != nil {
		return m.setMarginsFn(c)
	}

	return nil
}
