package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type settingsRepository struct {
	q querier
}

func (r *settingsRepository) GetTax(ctx context.Context) (*model.TaxSettings, error) {
	settings := model.TaxSettings{Rates: map[string]model.TaxRates{}}
	found := false

	err := r.q.QueryRow(ctx, `SELECT default_jurisdiction FROM tax_settings WHERE id`).Scan(&settings.DefaultJurisdiction)
	switch {
	case err == nil:
		found = true
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, dbError(err, "select tax settings")
	}

	rows, err := r.q.Query(ctx, `SELECT jurisdiction, primary_rate::text, secondary_rate::text, combined_rate::text FROM tax_rates ORDER BY jurisdiction`)
	if err != nil {
		return nil, dbError(err, "select tax rates")
	}
	defer rows.Close()

	for rows.Next() {
		var code, primary, secondary, combined string
		if err := rows.Scan(&code, &primary, &secondary, &combined); err != nil {
			return nil, dbError(err, "scan tax rate")
		}
		rates, err := parseRates(primary, secondary, combined)
		if err != nil {
			return nil, fmt.Errorf("tax rate %s: %w", code, err)
		}
		settings.Rates[code] = rates
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "iterate tax rates")
	}

	if !found {
		return nil, nil
	}
	return &settings, nil
}

func parseRates(primary, secondary, combined string) (model.TaxRates, error) {
	var (
		r   model.TaxRates
		err error
	)
	if r.Primary, err = decimal.NewFromString(primary); err != nil {
		return r, err
	}
	if r.Secondary, err = decimal.NewFromString(secondary); err != nil {
		return r, err
	}
	if r.Combined, err = decimal.NewFromString(combined); err != nil {
		return r, err
	}
	return r, nil
}

// SaveTax replaces the stored rate overrides. It issues several statements, so
// callers run it on a Tx.
func (r *settingsRepository) SaveTax(ctx context.Context, settings model.TaxSettings) error {
	const upsert = `INSERT INTO tax_settings (id, default_jurisdiction) VALUES (TRUE, $1)
                    ON CONFLICT (id) DO UPDATE SET default_jurisdiction = EXCLUDED.default_jurisdiction`
	if _, err := r.q.Exec(ctx, upsert, settings.DefaultJurisdiction); err != nil {
		return dbError(err, "save tax settings")
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM tax_rates`); err != nil {
		return dbError(err, "clear tax rates")
	}
	const insertRate = `INSERT INTO tax_rates (jurisdiction, primary_rate, secondary_rate, combined_rate)
                        VALUES ($1, $2::numeric, $3::numeric, $4::numeric)`
	for code, rates := range settings.Rates {
		if _, err := r.q.Exec(ctx, insertRate, code, rates.Primary.String(), rates.Secondary.String(), rates.Combined.String()); err != nil {
			return dbError(err, "insert tax rate")
		}
	}
	return nil
}

func (r *settingsRepository) GetInvoice(ctx context.Context) (*model.InvoiceSettings, error) {
	var s model.InvoiceSettings
	err := r.q.QueryRow(ctx, `SELECT number_prefix, payment_terms_days, send_on_create FROM invoice_settings WHERE id`).
		Scan(&s.NumberPrefix, &s.PaymentTermsDays, &s.SendOnCreate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError(err, "select invoice settings")
	}
	return &s, nil
}

func (r *settingsRepository) SaveInvoice(ctx context.Context, s model.InvoiceSettings) error {
	const query = `INSERT INTO invoice_settings (id, number_prefix, payment_terms_days, send_on_create)
                   VALUES (TRUE, $1, $2, $3)
                   ON CONFLICT (id) DO UPDATE SET number_prefix = EXCLUDED.number_prefix,
                       payment_terms_days = EXCLUDED.payment_terms_days,
                       send_on_create = EXCLUDED.send_on_create`
	_, err := r.q.Exec(ctx, query, s.NumberPrefix, s.PaymentTermsDays, s.SendOnCreate)
	return dbError(err, "save invoice settings")
}

func (r *settingsRepository) GetReminder(ctx context.Context) (*model.ReminderSettings, error) {
	var (
		before, after []int32
		s             model.ReminderSettings
	)
	err := r.q.QueryRow(ctx, `SELECT days_before, days_after, max_reminders FROM reminder_settings WHERE id`).
		Scan(&before, &after, &s.MaxReminders)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError(err, "select reminder settings")
	}
	s.DaysBefore = toInts(before)
	s.DaysAfter = toInts(after)
	return &s, nil
}

func (r *settingsRepository) SaveReminder(ctx context.Context, s model.ReminderSettings) error {
	const query = `INSERT INTO reminder_settings (id, days_before, days_after, max_reminders)
                   VALUES (TRUE, $1, $2, $3)
                   ON CONFLICT (id) DO UPDATE SET days_before = EXCLUDED.days_before,
                       days_after = EXCLUDED.days_after,
                       max_reminders = EXCLUDED.max_reminders`
	_, err := r.q.Exec(ctx, query, toInt32s(s.DaysBefore), toInt32s(s.DaysAfter), s.MaxReminders)
	return dbError(err, "save reminder settings")
}

func toInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func toInt32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}
