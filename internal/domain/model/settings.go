package model

import "github.com/shopspring/decimal"

// TaxRates is the rate profile of a jurisdiction. A jurisdiction uses either
// Combined alone or Primary and Secondary.
type TaxRates struct {
	Primary   decimal.Decimal
	Secondary decimal.Decimal
	Combined  decimal.Decimal
}

// TaxSettings configures the tax engine.
type TaxSettings struct {
	DefaultJurisdiction string
	Rates               map[string]TaxRates
}

// InvoiceSettings configures invoice numbering and terms.
type InvoiceSettings struct {
	NumberPrefix     string
	PaymentTermsDays int
	SendOnCreate     bool
}

// ReminderSettings configures which offsets around the due date trigger reminders.
type ReminderSettings struct {
	DaysBefore   []int
	DaysAfter    []int
	MaxReminders int
}
