package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/remesas/rates"
)

func TestQuote_WriteTable(t *testing.T) {
	t.Parallel()

	var (
		rate = 36.5
		m    = rates.Matrix{
			"WLD_to_VES":  nil,
			"USDT_to_VES": &rate,
			"CLP_to_VES":  nil,
		}
		out bytes.Buffer
	)

	require.NoError(t, writeTable(&out, m))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, []string{"PAIR", "RATE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"CLP_to_VES", "-"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"USDT_to_VES", "36.5"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"WLD_to_VES", "-"}, strings.Fields(lines[3]))
}

func TestQuote_InvalidFormat(t *testing.T) {
	t.Parallel()

	cfg := &quoteCfg{format: "xml"}

	assert.ErrorIs(t, cfg.exec(context.Background(), nil), errInvalidFormat)
}
