package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sig-0/remesas/quote"
	"github.com/sig-0/remesas/storage/types"
)

var errNilBag = errors.New("nil quote bag")

// Snapshot is an immutable, versioned view of the derived rates.
// It is never modified after being published
type Snapshot struct {
	BuiltAt time.Time          `json:"built_at"`
	Quotes  *quote.Bag         `json:"quotes"`
	Matrix  Matrix             `json:"matrix"`
	Margins types.MarginConfig `json:"margins"`
	Version uint64             `json:"version"`
}

// Book owns the current rate snapshot.
// Readers always observe a complete snapshot; writers rebuild the entire
// matrix on every quote or margin change
type Book struct {
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]

	mux     sync.Mutex // serializes writers
	quotes  *quote.Bag
	margins types.MarginConfig
	version uint64
}

// NewBook creates a new rate book, with the given initial margins.
// The book holds no snapshot until the first quote bag is published
func NewBook(margins types.MarginConfig, opts ...BookOption) *Book {
	b := &Book{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		margins: margins,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// BookOption is a configuration option for the book
type BookOption func(b *Book)

// WithLogger specifies the logger for the book
func WithLogger(l *slog.Logger) BookOption {
	return func(b *Book) {
		b.logger = l
	}
}

// Current returns the latest snapshot, or nil if no quotes were published yet
func (b *Book) Current() *Snapshot {
	return b.current.Load()
}

// PublishQuotes rebuilds the matrix with the given quote bag
func (b *Book) PublishQuotes(_ context.Context, bag *quote.Bag) error {
	if bag == nil {
		return errNilBag
	}

	b.mux.Lock()
	defer b.mux.Unlock()

	b.quotes = bag
	b.rebuild()

	return nil
}

// SetMargins rebuilds the matrix with the given margin configuration.
// Invalid configurations are rejected, and the current snapshot is kept
func (b *Book) SetMargins(m types.MarginConfig) error {
	if err := m.Validate(); err != nil {
		return err
	}

	b.mux.Lock()
	defer b.mux.Unlock()

	b.margins = m

	// Nothing to derive from yet
	if b.quotes == nil {
		return nil
	}

	b.rebuild()

	return nil
}

// Margins returns the margin configuration in effect
func (b *Book) Margins() types.MarginConfig {
	b.mux.Lock()
	defer b.mux.Unlock()

	return b.margins
}

// rebuild derives a new snapshot and publishes it.
// Must be called with the writer lock held
func (b *Book) rebuild() {
	b.version++

	snap := &Snapshot{
		BuiltAt: time.Now().UTC(),
		Quotes:  b.quotes,
		Matrix:  Derive(b.quotes, b.margins),
		Margins: b.margins,
		Version: b.version,
	}

	b.current.Store(snap)

	b.logger.Info(
		"published rate snapshot",
		"version", snap.Version,
		"fetched_at", b.quotes.FetchedAt,
	)
}
