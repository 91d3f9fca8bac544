package tax

import (
	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderdesk/internal/domain/model"
)

// DefaultJurisdiction is used when no stored setting overrides it.
const DefaultJurisdiction = "ON"

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s).Shift(-2)
}

func split(primary, secondary string) model.TaxRates {
	return model.TaxRates{Primary: pct(primary), Secondary: pct(secondary), Combined: decimal.Zero}
}

func harmonized(combined string) model.TaxRates {
	return model.TaxRates{Primary: decimal.Zero, Secondary: decimal.Zero, Combined: pct(combined)}
}

// DefaultRates returns the built-in Canadian rate table. The map is freshly
// allocated on each call.
func DefaultRates() map[string]model.TaxRates {
	return map[string]model.TaxRates{
		"AB": split("5", "0"),
		"BC": split("5", "7"),
		"MB": split("5", "7"),
		"NB": harmonized("15"),
		"NL": harmonized("15"),
		"NS": harmonized("14"),
		"NT": split("5", "0"),
		"NU": split("5", "0"),
		"ON": harmonized("13"),
		"PE": harmonized("15"),
		"QC": split("5", "9.975"),
		"SK": split("5", "6"),
		"YT": split("5", "0"),
	}
}
