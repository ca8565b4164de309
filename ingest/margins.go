package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/sig-0/remesas/storage/types"
)

var errNilTarget = errors.New("nil margin target")

// MarginSource is the config store holding the margin configuration
type MarginSource interface {
	// Margins reads the stored margin configuration
	Margins(ctx context.Context) (types.MarginConfig, error)

	// WatchMargins subscribes to margin configuration updates.
	// The returned channel is closed when the subscription ends
	WatchMargins(ctx context.Context) (<-chan types.MarginConfig, error)
}

// MarginTarget applies margin configuration updates
type MarginTarget interface {
	SetMargins(types.MarginConfig) error
}

// MarginWatcher keeps the margin configuration of the target in sync
// with the config store
type MarginWatcher struct {
	source MarginSource
	target MarginTarget
	logger *slog.Logger
}

// NewMarginWatcher creates a new margin watcher
func NewMarginWatcher(source MarginSource, target MarginTarget, logger *slog.Logger) *MarginWatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &MarginWatcher{
		source: source,
		target: target,
		logger: logger,
	}
}

// Load reads the stored margins once, and applies them.
// If the store is empty or the read fails, the defaults are applied
func (w *MarginWatcher) Load(ctx context.Context) types.MarginConfig {
	m, err := w.source.Margins(ctx)
	if err != nil {
		w.logger.Warn(
			"unable to load margins, using defaults",
			"err", err,
		)

		m = types.DefaultMarginConfig()
	}

	if err := w.target.SetMargins(m); err != nil {
		w.logger.Warn(
			"stored margins are invalid, using defaults",
			"err", err,
		)

		m = types.DefaultMarginConfig()
		_ = w.target.SetMargins(m) //nolint:errcheck // defaults are valid
	}

	return m
}

// Start loads the margins, and applies every subsequent update until
// the context is done [BLOCKING].
// If the subscription fails or ends, the last applied margins stay in effect
func (w *MarginWatcher) Start(ctx context.Context) error {
	if w.target == nil {
		return errNilTarget
	}

	w.Load(ctx)

	updates, err := w.source.WatchMargins(ctx)
	if err != nil {
		w.logger.Error(
			"unable to subscribe to margin updates",
			"err", err,
		)

		<-ctx.Done()

		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, more := <-updates:
			if !more {
				w.logger.Warn("margin subscription ended, keeping last known margins")

				<-ctx.Done()

				return nil
			}

			if err := w.target.SetMargins(m); err != nil {
				w.logger.Warn(
					"rejected margin update",
					"err", err,
				)

				continue
			}

			w.logger.Info(
				"applied margin update",
				"updated_by", m.UpdatedBy,
				"discount_wld_clp", m.DiscountWLDCLP,
				"discount_clp_ves", m.DiscountCLPVES,
				"margin_usdt_clp", m.MarginUSDTCLP,
			)
		}
	}
}
