package dto

import "github.com/shopspring/decimal"

// TaxRates is a jurisdiction rate profile expressed as fractions.
type TaxRates struct {
	Primary   decimal.Decimal `json:"primary"`
	Secondary decimal.Decimal `json:"secondary"`
	Combined  decimal.Decimal `json:"combined"`
}

// TaxSettings is the effective tax table.
type TaxSettings struct {
	DefaultJurisdiction string              `json:"default_jurisdiction"`
	Rates               map[string]TaxRates `json:"rates"`
}

// InvoiceSettings configures numbering and terms.
type InvoiceSettings struct {
	NumberPrefix     string `json:"number_prefix"`
	PaymentTermsDays int    `json:"payment_terms_days"`
	SendOnCreate     bool   `json:"send_on_create"`
}

// ReminderSettings configures reminder offsets.
type ReminderSettings struct {
	DaysBefore   []int `json:"days_before"`
	DaysAfter    []int `json:"days_after"`
	MaxReminders int   `json:"max_reminders"`
}

// TaxBreakdown is the result of a tax calculation.
type TaxBreakdown struct {
	Jurisdiction  string          `json:"jurisdiction"`
	Subtotal      int64           `json:"subtotal"`
	Primary       int64           `json:"primary"`
	Secondary     int64           `json:"secondary"`
	Combined      int64           `json:"combined"`
	TotalTax      int64           `json:"total_tax"`
	Total         int64           `json:"total"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
}

// TaxQuery is the query string of the tax preview endpoints.
type TaxQuery struct {
	Subtotal     *int64 `form:"subtotal"`
	Total        *int64 `form:"total"`
	Jurisdiction string `form:"jurisdiction"`
}
