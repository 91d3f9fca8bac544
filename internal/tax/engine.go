// Package tax computes jurisdiction specific tax breakdowns in minor units.
package tax

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

// Breakdown is the result of a tax calculation. Primary+Secondary+Combined
// always equals TotalTax and Subtotal+TotalTax equals Total.
type Breakdown struct {
	Jurisdiction  string
	Subtotal      int64
	Primary       int64
	Secondary     int64
	Combined      int64
	TotalTax      int64
	Total         int64
	EffectiveRate decimal.Decimal
}

// Snapshot converts the breakdown into the form frozen on invoices.
func (b Breakdown) Snapshot() model.TaxSnapshot {
	return model.TaxSnapshot{
		Jurisdiction: b.Jurisdiction,
		Primary:      b.Primary,
		Secondary:    b.Secondary,
		Combined:     b.Combined,
		TotalTax:     b.TotalTax,
	}
}

// Engine is an immutable rate table with a fallback jurisdiction.
type Engine struct {
	defaultJurisdiction string
	rates               map[string]model.TaxRates
}

// NewEngine builds an engine from the built-in table overlaid with settings.
func NewEngine(settings model.TaxSettings) (*Engine, error) {
	rates := DefaultRates()
	for code, r := range settings.Rates {
		code = NormalizeJurisdiction(code)
		if err := ValidateRates(code, r); err != nil {
			return nil, err
		}
		rates[code] = r
	}

	def := NormalizeJurisdiction(settings.DefaultJurisdiction)
	if def == "" {
		def = DefaultJurisdiction
	}
	if _, ok := rates[def]; !ok {
		return nil, domainErrors.Validationf("default jurisdiction %q has no rates", def)
	}

	return &Engine{defaultJurisdiction: def, rates: rates}, nil
}

// Default returns an engine over the built-in table.
func Default() *Engine {
	e, _ := NewEngine(model.TaxSettings{})
	return e
}

// NormalizeJurisdiction trims and upper-cases a region code.
func NormalizeJurisdiction(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateRates rejects malformed jurisdiction profiles.
func ValidateRates(code string, r model.TaxRates) error {
	if len(code) != 2 {
		return domainErrors.Validationf("jurisdiction %q must be a 2-letter code", code)
	}
	if r.Primary.IsNegative() || r.Secondary.IsNegative() || r.Combined.IsNegative() {
		return domainErrors.Validationf("jurisdiction %s: rates must not be negative", code)
	}
	if !r.Combined.IsZero() && (!r.Primary.IsZero() || !r.Secondary.IsZero()) {
		return domainErrors.Validationf("jurisdiction %s: combined rate excludes primary and secondary", code)
	}
	if r.Primary.Add(r.Secondary).Add(r.Combined).GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return domainErrors.Validationf("jurisdiction %s: rates must be fractions below 1", code)
	}
	return nil
}

// DefaultJurisdiction returns the fallback code.
func (e *Engine) DefaultJurisdiction() string {
	return e.defaultJurisdiction
}

// Jurisdictions lists known codes in alphabetical order.
func (e *Engine) Jurisdictions() []string {
	codes := make([]string, 0, len(e.rates))
	for code := range e.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Rates resolves a jurisdiction, falling back to the default for unknown codes.
func (e *Engine) Rates(jurisdiction string) (string, model.TaxRates) {
	code := NormalizeJurisdiction(jurisdiction)
	if r, ok := e.rates[code]; ok {
		return code, r
	}
	return e.defaultJurisdiction, e.rates[e.defaultJurisdiction]
}

// CalculateTax computes a forward breakdown for a subtotal in minor units.
func (e *Engine) CalculateTax(subtotal int64, jurisdiction string) (Breakdown, error) {
	if subtotal < 0 {
		return Breakdown{}, domainErrors.Validationf("subtotal must not be negative")
	}
	code, r := e.Rates(jurisdiction)
	base := decimal.NewFromInt(subtotal)

	b := Breakdown{
		Jurisdiction:  code,
		Subtotal:      subtotal,
		Primary:       roundMinor(base.Mul(r.Primary)),
		Secondary:     roundMinor(base.Mul(r.Secondary)),
		Combined:      roundMinor(base.Mul(r.Combined)),
		EffectiveRate: sumRates(r),
	}
	b.TotalTax = b.Primary + b.Secondary + b.Combined
	b.Total = b.Subtotal + b.TotalTax
	return b, nil
}

// CalculateTaxFromTotal derives the subtotal from a tax-inclusive total and
// runs the forward calculation on it. The resulting Total may differ from the
// input by one minor unit due to rounding.
func (e *Engine) CalculateTaxFromTotal(total int64, jurisdiction string) (Breakdown, error) {
	if total < 0 {
		return Breakdown{}, domainErrors.Validationf("total must not be negative")
	}
	_, r := e.Rates(jurisdiction)
	divisor := decimal.NewFromInt(1).Add(sumRates(r))
	subtotal := roundMinor(decimal.NewFromInt(total).DivRound(divisor, 8))
	return e.CalculateTax(subtotal, jurisdiction)
}

func sumRates(r model.TaxRates) decimal.Decimal {
	return r.Primary.Add(r.Secondary).Add(r.Combined)
}

// roundMinor rounds half-up to a whole minor unit. Inputs are non-negative.
func roundMinor(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
