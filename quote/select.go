package quote

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidStrategy = errors.New("invalid selection strategy")

// SelectionMode is the offer selection policy
type SelectionMode string

const (
	// SelectIndex picks the k-th offer (0-based), as ranked by the venue
	SelectIndex SelectionMode = "index"

	// SelectAverage averages the first n offers
	SelectAverage SelectionMode = "average"
)

// Strategy selects a single price out of a ranked list of P2P offers.
// Averaging smooths noise on thick books, while a deeper index skips
// the most aggressive top-of-book offers on thin books
type Strategy struct {
	Mode SelectionMode
	N    int
}

// Index creates an index:k strategy
func Index(k int) Strategy {
	return Strategy{Mode: SelectIndex, N: k}
}

// Average creates an average:n strategy
func Average(n int) Strategy {
	return Strategy{Mode: SelectAverage, N: n}
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s:%d", s.Mode, s.N)
}

// ParseStrategy parses the "index:k" / "average:n" form
func ParseStrategy(raw string) (Strategy, error) {
	mode, n, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %q (expected mode:n)", errInvalidStrategy, raw)
	}

	v, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil {
		return Strategy{}, fmt.Errorf("%w: %q: %w", errInvalidStrategy, raw, err)
	}

	switch SelectionMode(strings.ToLower(strings.TrimSpace(mode))) {
	case SelectIndex:
		if v < 0 {
			return Strategy{}, fmt.Errorf("%w: index must be >= 0", errInvalidStrategy)
		}

		return Index(v), nil
	case SelectAverage:
		if v < 1 {
			return Strategy{}, fmt.Errorf("%w: average must be >= 1", errInvalidStrategy)
		}

		return Average(v), nil
	default:
		return Strategy{}, fmt.Errorf("%w: unknown mode %q", errInvalidStrategy, mode)
	}
}

// SelectOffer applies the strategy over the offers, in the order
// they were delivered by the venue (no re-sorting).
// Returns false if there are no offers to select from
func SelectOffer(offers []float64, s Strategy) (float64, bool) {
	if len(offers) == 0 {
		return 0, false
	}

	switch s.Mode {
	case SelectAverage:
		if s.N < 1 || len(offers) < s.N {
			return offers[0], true
		}

		var sum float64
		for _, o := range offers[:s.N] {
			sum += o
		}

		return sum / float64(s.N), true
	default:
		k := s.N
		if k < 0 {
			k = 0
		}

		if k > len(offers)-1 {
			k = len(offers) - 1
		}

		return offers[k], true
	}
}
