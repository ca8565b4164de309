package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/quote"
)

const testProviderName = "test-provider"

// testBag creates a quote bag with a single spot quote
func testBag(source string, value float64) *quote.Bag {
	bag := quote.NewBag(time.Now().UTC())
	bag.WLDToUSDT = &quote.Quote{
		Kind:         quote.KindSpot,
		Asset:        currencies.WLD,
		CounterAsset: currencies.USDT,
		Source:       source,
		Value:        value,
	}

	return bag
}

func TestOrchestrator_New(t *testing.T) {
	t.Parallel()

	t.Run("default orchestrator", func(t *testing.T) {
		t.Parallel()

		o := New(&mockSink{})

		require.NotNil(t, o)

		assert.NotNil(t, o.sink)
		assert.NotNil(t, o.logger)
		assert.Equal(t, time.Second, o.queryInterval)
		assert.Equal(t, DefaultRetryInterval, o.retryInterval)
	})

	t.Run("query interval", func(t *testing.T) {
		t.Parallel()

		o := New(&mockSink{}, WithQueryInterval(time.Minute))

		require.NotNil(t, o)
		assert.Equal(t, time.Minute, o.queryInterval)
	})
}

func TestOrchestrator_Register(t *testing.T) {
	t.Parallel()

	t.Run("nil provider", func(t *testing.T) {
		t.Parallel()

		o := New(&mockSink{})

		assert.ErrorIs(t, o.Register(nil), errInvalidProvider)
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()

		var (
			o = New(&mockSink{})

			provider = &mockProvider{
				nameFn: func() string {
					return ""
				},
				intervalFn: func() time.Duration {
					return time.Hour
				},
			}
		)

		assert.ErrorIs(t, o.Register(provider), errInvalidProvider)
	})

	t.Run("zero interval", func(t *testing.T) {
		t.Parallel()

		var (
			o = New(&mockSink{})

			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return 0
				},
			}
		)

		assert.ErrorIs(t, o.Register(provider), errInvalidInterval)
	})

	t.Run("negative interval", func(t *testing.T) {
		t.Parallel()

		var (
			o = New(&mockSink{})

			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return -time.Hour
				},
			}
		)

		assert.ErrorIs(t, o.Register(provider), errInvalidInterval)
	})

	t.Run("valid provider", func(t *testing.T) {
		t.Parallel()

		var (
			o = New(&mockSink{})

			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return time.Hour
				},
			}
		)

		require.NoError(t, o.Register(provider))

		// Verify provider was registered
		var count int

		o.registeredProviders.Range(
			func(_, _ any) bool {
				count++

				return true
			},
		)

		assert.Equal(t, 1, count)
	})

	t.Run("schedule provider", func(t *testing.T) {
		t.Parallel()

		var (
			o = New(&mockSink{})

			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return time.Hour
				},
			}
		)

		require.NoError(t, o.Register(provider))
		assert.Equal(t, 1, o.q.Len())

		// The scheduled time should be in the past or now (immediate)
		scheduled := o.q.Index(0)
		assert.True(t, scheduled.at.Before(time.Now().Add(time.Second)))
	})
}

func TestOrchestrator_Start(t *testing.T) {
	t.Parallel()

	t.Run("ctx canceled", func(t *testing.T) {
		t.Parallel()

		var (
			o     = New(&mockSink{}, WithQueryInterval(time.Millisecond*10))
			errCh = make(chan error, 1)
		)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- o.Start(ctx)
		}()

		cancel()

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("orchestrator did not shut down in time")
		}
	})

	t.Run("provider fetch published", func(t *testing.T) {
		t.Parallel()

		var (
			published   *quote.Bag
			publishDone = make(chan struct{})

			expectedBag = testBag("avgPrice", 1.19)

			sink = &mockSink{
				publishQuotesFn: func(_ context.Context, bag *quote.Bag) error {
					published = bag

					close(publishDone)

					return nil
				},
			}

			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return time.Hour
				},
				fetchFn: func(_ context.Context) (*quote.Bag, error) {
					return expectedBag, nil
				},
			}
		)

		var (
			o     = New(sink, WithQueryInterval(time.Millisecond*10))
			errCh = make(chan error, 1)
		)

		require.NoError(t, o.Register(provider))

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- o.Start(ctx)
		}()

		select {
		case <-publishDone:
			// Success
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for quotes to be published")
		}

		cancel()
		require.NoError(t, <-errCh)

		assert.Same(t, expectedBag, published)
	})

	t.Run("reschedule provider (success)", func(t *testing.T) {
		t.Parallel()

		var (
			fetchCount atomic.Int32
			fetchDone  = make(chan struct{})
		)

		var (
			o = New(&mockSink{}, WithQueryInterval(time.Millisecond*10))

			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return time.Millisecond * 50
				},
				fetchFn: func(_ context.Context) (*quote.Bag, error) {
					if fetchCount.Add(1) == 2 {
						close(fetchDone)
					}

					return testBag("avgPrice", 1.19), nil
				},
			}
			errCh = make(chan error, 1)
		)

		require.NoError(t, o.Register(provider))

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- o.Start(ctx)
		}()

		select {
		case <-fetchDone:
			// Success
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for reschedule")
		}

		cancel()
		require.NoError(t, <-errCh)

		assert.GreaterOrEqual(t, fetchCount.Load(), int32(2))
	})

	t.Run("retries on fetch error", func(t *testing.T) {
		t.Parallel()

		var (
			fetchCount atomic.Int32
			retryDone  = make(chan struct{})
		)

		var (
			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return time.Hour
				},
				fetchFn: func(_ context.Context) (*quote.Bag, error) {
					if fetchCount.Add(1) == 2 {
						close(retryDone)
					}

					return nil, errors.New("fetch error")
				},
			}

			o = New(
				&mockSink{},
				WithQueryInterval(time.Millisecond*10),
				WithRetryInterval(time.Millisecond*50),
			)

			errCh = make(chan error, 1)
		)

		require.NoError(t, o.Register(provider))

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- o.Start(ctx)
		}()

		select {
		case <-retryDone:
			// Success
		case <-time.After(time.Second * 5):
			t.Fatal("timeout waiting for retry")
		}

		cancel()
		require.NoError(t, <-errCh)

		assert.GreaterOrEqual(t, fetchCount.Load(), int32(2))
	})

	t.Run("multiple providers", func(t *testing.T) {
		t.Parallel()

		var (
			publishedBags sync.Map
			publishCount  atomic.Int32
			allPublished  = make(chan struct{})
			errCh         = make(chan error, 1)

			sink = &mockSink{
				publishQuotesFn: func(_ context.Context, bag *quote.Bag) error {
					publishedBags.Store(bag.WLDToUSDT.Source, bag)

					if publishCount.Add(1) == 2 {
						close(allPublished)
					}

					return nil
				},
			}
			providers = []*mockProvider{
				{
					nameFn: func() string {
						return "provider-1"
					},
					intervalFn: func() time.Duration {
						return time.Hour
					},
					fetchFn: func(_ context.Context) (*quote.Bag, error) {
						return testBag("source-1", 1.19), nil
					},
				},
				{
					nameFn: func() string {
						return "provider-2"
					},
					intervalFn: func() time.Duration {
						return time.Hour
					},
					fetchFn: func(_ context.Context) (*quote.Bag, error) {
						return testBag("source-2", 1.21), nil
					},
				},
			}

			o = New(sink, WithQueryInterval(time.Millisecond*10))
		)

		for _, p := range providers {
			require.NoError(t, o.Register(p))
		}

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- o.Start(ctx)
		}()

		select {
		case <-allPublished:
			// Success
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for providers")
		}

		cancel()
		require.NoError(t, <-errCh)

		_, ok1 := publishedBags.Load("source-1")
		_, ok2 := publishedBags.Load("source-2")

		assert.True(t, ok1, "source-1 should be published")
		assert.True(t, ok2, "source-2 should be published")
	})

	t.Run("sink publish error", func(t *testing.T) {
		t.Parallel()

		var (
			publishAttempts atomic.Int32
			publishesDone   = make(chan struct{})
			errCh           = make(chan error, 1)

			sink = &mockSink{
				publishQuotesFn: func(_ context.Context, _ *quote.Bag) error {
					if publishAttempts.Add(1) == 2 {
						close(publishesDone)
					}

					return errors.New("sink error")
				},
			}
			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return time.Millisecond * 50
				},
				fetchFn: func(_ context.Context) (*quote.Bag, error) {
					return testBag("avgPrice", 1.19), nil
				},
			}

			o = New(sink, WithQueryInterval(time.Millisecond*10))
		)

		require.NoError(t, o.Register(provider))

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- o.Start(ctx)
		}()

		select {
		case <-publishesDone:
			// Success
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for publish attempts")
		}

		cancel()
		require.NoError(t, <-errCh)
	})

	t.Run("nil bag is not published", func(t *testing.T) {
		t.Parallel()

		var (
			fetchCount atomic.Int32
			fetchDone  = make(chan struct{})
			published  atomic.Bool
			errCh      = make(chan error, 1)

			sink = &mockSink{
				publishQuotesFn: func(_ context.Context, _ *quote.Bag) error {
					published.Store(true)

					return nil
				},
			}
			provider = &mockProvider{
				nameFn: func() string {
					return testProviderName
				},
				intervalFn: func() time.Duration {
					return time.Millisecond * 20
				},
				fetchFn: func(_ context.Context) (*quote.Bag, error) {
					if fetchCount.Add(1) == 2 {
						close(fetchDone)
					}

					return nil, nil
				},
			}

			o = New(sink, WithQueryInterval(time.Millisecond*10))
		)

		require.NoError(t, o.Register(provider))

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- o.Start(ctx)
		}()

		select {
		case <-fetchDone:
			// Success
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for reschedule")
		}

		cancel()
		require.NoError(t, <-errCh)

		assert.False(t, published.Load())
	})
}
