package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sig-0/remesas/storage/types"
)

var (
	errNotANumber   = errors.New("must be a number")
	errPercentRange = errors.New("must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// fractionPlaces is the precision at which margin fractions are stored
const fractionPlaces = 6

// MarginPercents is an admin margin update, as percentages (0-100).
// Empty fields keep their current value
type MarginPercents struct {
	DiscountWLDCLP json.Number `json:"discount_wld_clp,omitempty"`
	DiscountCLPVES json.Number `json:"discount_clp_ves,omitempty"`
	MarginUSDTCLP  json.Number `json:"margin_usdt_clp,omitempty"`
}

// ToPercents converts the margin fractions to percentages
func ToPercents(m types.MarginConfig) MarginPercents {
	toPercent := func(f float64) json.Number {
		return json.Number(decimal.NewFromFloat(f).Mul(hundred).String())
	}

	return MarginPercents{
		DiscountWLDCLP: toPercent(m.DiscountWLDCLP),
		DiscountCLPVES: toPercent(m.DiscountCLPVES),
		MarginUSDTCLP:  toPercent(m.MarginUSDTCLP),
	}
}

// Margins returns the margin configuration in effect [ADMIN]
func (s *Service) Margins(_ context.Context, adminID string) (types.MarginConfig, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return types.MarginConfig{}, err
	}

	return s.book.Margins(), nil
}

// UpdateMargins validates and stores a margin update [ADMIN].
// Any invalid field rejects the whole update
func (s *Service) UpdateMargins(
	ctx context.Context,
	adminID string,
	p MarginPercents,
) (types.MarginConfig, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return types.MarginConfig{}, err
	}

	// Updates patch the margins in effect, one at a time
	s.marginsMux.Lock()
	defer s.marginsMux.Unlock()

	var (
		verr = newValidationError()
		m    = s.book.Margins()
	)

	fields := []struct {
		name   string
		raw    json.Number
		target *float64
	}{
		{"discount_wld_clp", p.DiscountWLDCLP, &m.DiscountWLDCLP},
		{"discount_clp_ves", p.DiscountCLPVES, &m.DiscountCLPVES},
		{"margin_usdt_clp", p.MarginUSDTCLP, &m.MarginUSDTCLP},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.raw.String()) == "" {
			continue
		}

		fraction, err := percentToFraction(f.raw.String())
		if err != nil {
			verr.add(f.name, err.Error())

			continue
		}

		*f.target = fraction
	}

	if err := verr.orNil(); err != nil {
		return types.MarginConfig{}, err
	}

	m.UpdatedBy = adminID
	m.UpdatedAt = s.now().UTC()

	if err := s.store.SaveMargins(ctx, m); err != nil {
		return types.MarginConfig{}, fmt.Errorf("unable to save margins: %w", err)
	}

	// Applied right away, the live subscription delivers the same values
	if err := s.book.SetMargins(m); err != nil {
		return types.MarginConfig{}, fmt.Errorf("unable to apply margins: %w", err)
	}

	s.logger.Info(
		"margins updated",
		"admin", adminID,
		"discount_wld_clp", m.DiscountWLDCLP,
		"discount_clp_ves", m.DiscountCLPVES,
		"margin_usdt_clp", m.MarginUSDTCLP,
	)

	return m, nil
}

// percentToFraction parses a 0-100 percentage into a [0, 1] fraction,
// rounded to the stored precision
func percentToFraction(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)

	p, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, errNotANumber
	}

	if p.IsNegative() || p.GreaterThan(hundred) {
		return 0, errPercentRange
	}

	f, _ := p.Div(hundred).Round(fractionPlaces).Float64()

	return f, nil
}
