package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sig-0/remesas/ingest"
	"github.com/sig-0/remesas/rates"
	"github.com/sig-0/remesas/server"
	"github.com/sig-0/remesas/settlement"
	"github.com/sig-0/remesas/storage"
	"github.com/sig-0/remesas/storage/types"
)

// run wires the rate book, the quote ingestion and the settlement
// workflow over the given store, and serves them until interrupted
func (c *serveCfg) run(ctx context.Context, logger *slog.Logger, store storage.Storage) error {
	// Create the rate book, with the default margins
	// until the stored ones are loaded
	book := rates.NewBook(
		types.DefaultMarginConfig(),
		rates.WithLogger(logger),
	)

	// Create the quote acquisition adapter
	adapter, err := c.providers.Adapter(logger)
	if err != nil {
		return fmt.Errorf("unable to create quote adapter: %w", err)
	}

	// Create the ingestion service
	orchestrator := ingest.New(book, ingest.WithLogger(logger))
	if err = orchestrator.Register(adapter); err != nil {
		return fmt.Errorf("unable to register provider: %w", err)
	}

	// Keep the margins in sync with the config store
	watcher := ingest.NewMarginWatcher(store, book, logger)

	// Create the settlement workflow
	svc := settlement.NewService(
		store,
		book,
		settlement.WithLogger(logger),
		settlement.WithAdmins(c.config.AdminIDs()...),
	)

	// Create the server instance
	s, err := server.New(
		book,
		svc,
		server.WithLogger(logger),
		server.WithConfig(c.config),
		server.WithFallbackRates(c.providers.FallbackRates()),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the ingestion service
	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	// Start the margin watcher
	group.Go(func() error {
		return watcher.Start(gCtx)
	})

	return group.Wait()
}
