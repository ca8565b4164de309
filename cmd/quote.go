package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/remesas/cmd/env"
	"github.com/sig-0/remesas/cmd/serve"
	"github.com/sig-0/remesas/rates"
	"github.com/sig-0/remesas/storage/types"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var errInvalidFormat = errors.New("invalid output format")

// quoteCfg wraps the quote configuration
type quoteCfg struct {
	providers serve.ProvidersConfig

	format  string
	verbose bool
}

// newQuoteCmd creates the quote command
func newQuoteCmd() *ffcli.Command {
	cfg := &quoteCfg{}

	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "quote",
		ShortUsage: "quote [flags]",
		LongHelp:   "Acquires the quotes once, and prints the derived rate snapshot",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *quoteCfg) registerFlags(fs *flag.FlagSet) {
	c.providers.RegisterFlags(fs)

	fs.BoolVar(
		&c.verbose,
		"verbose",
		false,
		"log the acquisition to stderr",
	)

	fs.StringVar(
		&c.format,
		"format",
		formatJSON,
		"the output format (json, table)",
	)
}

func (c *quoteCfg) exec(ctx context.Context, _ []string) error {
	if c.format != formatJSON && c.format != formatTable {
		return fmt.Errorf("%w: %q", errInvalidFormat, c.format)
	}

	var w io.Writer = io.Discard
	if c.verbose {
		w = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(w, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	adapter, err := c.providers.Adapter(logger)
	if err != nil {
		return fmt.Errorf("unable to create quote adapter: %w", err)
	}

	bag, err := adapter.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch quotes: %w", err)
	}

	book := rates.NewBook(types.DefaultMarginConfig(), rates.WithLogger(logger))
	if err = book.PublishQuotes(ctx, bag); err != nil {
		return fmt.Errorf("unable to derive rates: %w", err)
	}

	if c.format == formatTable {
		return writeTable(os.Stdout, book.Current().Matrix)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(book.Current())
}

// writeTable writes the matrix one pair per line, in key order.
// Unavailable pairs are shown as "-"
func writeTable(w io.Writer, m rates.Matrix) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "PAIR\tRATE") //nolint:errcheck // flushed below

	for _, key := range m.Keys() {
		value := "-"
		if r := m[key]; r != nil {
			value = strconv.FormatFloat(*r, 'f', -1, 64)
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\n", key, value) //nolint:errcheck // flushed below
	}

	return tw.Flush()
}
