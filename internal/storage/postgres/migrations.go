package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

const migrationLockKey = 727_001

type migration struct {
	version    int
	name       string
	statements []string
}

// Capabilities are schema features resolved once at startup. Repositories
// pick their query set from these flags instead of probing at runtime.
type Capabilities struct {
	SchemaVersion int
	WebhookLedger bool
}

const webhookLedgerVersion = 2

var migrations = []migration{
	{
		version: 1,
		name:    "core schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS orders (
                id BIGSERIAL PRIMARY KEY,
                status TEXT NOT NULL CHECK (status IN ('pending','submitted','in_progress','quoted','quote_viewed','quote_accepted','invoiced','paid','completed','delivered','cancelled')),
                customer_name TEXT NOT NULL,
                customer_email TEXT NOT NULL,
                customer_phone TEXT NOT NULL DEFAULT '',
                package_name TEXT NOT NULL,
                base_price BIGINT NOT NULL CHECK (base_price >= 0),
                add_ons JSONB NOT NULL DEFAULT '[]',
                subtotal BIGINT NOT NULL CHECK (subtotal >= 0),
                tax_amount BIGINT NOT NULL DEFAULT 0,
                total_amount BIGINT NOT NULL DEFAULT 0,
                jurisdiction CHAR(2) NOT NULL,
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
                updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE TABLE IF NOT EXISTS order_status_history (
                id BIGSERIAL PRIMARY KEY,
                order_id BIGINT NOT NULL REFERENCES orders(id),
                previous_status TEXT NOT NULL,
                new_status TEXT NOT NULL,
                actor_id TEXT NOT NULL,
                notes TEXT NOT NULL DEFAULT '',
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE SEQUENCE IF NOT EXISTS invoice_number_seq START WITH 1001`,
			`CREATE TABLE IF NOT EXISTS invoices (
                id BIGSERIAL PRIMARY KEY,
                order_id BIGINT NOT NULL UNIQUE REFERENCES orders(id),
                number TEXT NOT NULL UNIQUE,
                external_reference TEXT NOT NULL UNIQUE,
                status TEXT NOT NULL CHECK (status IN ('draft','sent','paid','cancelled')),
                source TEXT NOT NULL DEFAULT 'standard',
                amount BIGINT NOT NULL CHECK (amount >= 0),
                subtotal BIGINT NOT NULL,
                tax_jurisdiction CHAR(2) NOT NULL,
                tax_primary BIGINT NOT NULL,
                tax_secondary BIGINT NOT NULL,
                tax_combined BIGINT NOT NULL,
                tax_total BIGINT NOT NULL,
                line_items JSONB NOT NULL,
                issue_date TIMESTAMPTZ NOT NULL,
                due_date TIMESTAMPTZ NOT NULL,
                payment_terms_days INT NOT NULL,
                sent_at TIMESTAMPTZ,
                paid_at TIMESTAMPTZ,
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE TABLE IF NOT EXISTS payments (
                id BIGSERIAL PRIMARY KEY,
                invoice_id BIGINT NOT NULL REFERENCES invoices(id),
                external_reference TEXT NOT NULL UNIQUE,
                amount BIGINT NOT NULL,
                status TEXT NOT NULL CHECK (status IN ('succeeded','refunded','failed')),
                method TEXT NOT NULL,
                source TEXT NOT NULL,
                notes TEXT NOT NULL DEFAULT '',
                paid_at TIMESTAMPTZ NOT NULL,
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE TABLE IF NOT EXISTS reminder_logs (
                id BIGSERIAL PRIMARY KEY,
                order_id BIGINT NOT NULL REFERENCES orders(id),
                invoice_id BIGINT NOT NULL REFERENCES invoices(id),
                reminder_type TEXT NOT NULL,
                days_until_due INT NOT NULL,
                success BOOLEAN NOT NULL,
                error TEXT NOT NULL DEFAULT '',
                sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE TABLE IF NOT EXISTS reminder_pauses (
                order_id BIGINT PRIMARY KEY REFERENCES orders(id),
                paused_by TEXT NOT NULL,
                paused_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE TABLE IF NOT EXISTS tax_settings (
                id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
                default_jurisdiction CHAR(2) NOT NULL
            )`,
			`CREATE TABLE IF NOT EXISTS tax_rates (
                jurisdiction CHAR(2) PRIMARY KEY,
                primary_rate NUMERIC(9,6) NOT NULL DEFAULT 0,
                secondary_rate NUMERIC(9,6) NOT NULL DEFAULT 0,
                combined_rate NUMERIC(9,6) NOT NULL DEFAULT 0
            )`,
			`CREATE TABLE IF NOT EXISTS invoice_settings (
                id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
                number_prefix TEXT NOT NULL,
                payment_terms_days INT NOT NULL CHECK (payment_terms_days >= 0),
                send_on_create BOOLEAN NOT NULL
            )`,
			`CREATE TABLE IF NOT EXISTS reminder_settings (
                id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
                days_before INT[] NOT NULL,
                days_after INT[] NOT NULL,
                max_reminders INT NOT NULL CHECK (max_reminders >= 1)
            )`,
			`CREATE TABLE IF NOT EXISTS staff_users (
                id BIGSERIAL PRIMARY KEY,
                login TEXT UNIQUE NOT NULL,
                password_hash TEXT NOT NULL,
                role TEXT NOT NULL CHECK (role IN ('admin','staff','viewer')),
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE TABLE IF NOT EXISTS audit_log (
                id BIGSERIAL PRIMARY KEY,
                actor_id TEXT NOT NULL,
                action TEXT NOT NULL,
                entity TEXT NOT NULL,
                entity_id BIGINT NOT NULL,
                details JSONB NOT NULL DEFAULT '{}',
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
			`CREATE INDEX IF NOT EXISTS idx_history_order ON order_status_history(order_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_invoices_unpaid ON invoices(status) WHERE status IN ('draft','sent')`,
			`CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id)`,
			`CREATE INDEX IF NOT EXISTS idx_reminder_logs_order ON reminder_logs(order_id, sent_at DESC)`,
		},
	},
	{
		version: webhookLedgerVersion,
		name:    "webhook event ledger",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS webhook_events (
                event_id TEXT PRIMARY KEY,
                event_type TEXT NOT NULL,
                outcome TEXT NOT NULL,
                processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
            )`,
		},
	},
}

func (s *Storage) migrate(ctx context.Context) error {
	const createTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INT PRIMARY KEY,
        name TEXT NOT NULL,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	for _, m := range migrations {
		m := m
		err := s.WithinTransaction(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(migrationLockKey)); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING`, m.version, m.name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			for _, stmt := range m.statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			s.logger.Info("migration applied", slog.Int("version", m.version), slog.String("name", m.name))
			return nil
		})
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *Storage) loadCapabilities(ctx context.Context) (Capabilities, error) {
	var version int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return Capabilities{}, fmt.Errorf("read schema version: %w", err)
	}
	return capabilitiesFor(version), nil
}

func capabilitiesFor(version int) Capabilities {
	return Capabilities{
		SchemaVersion: version,
		WebhookLedger: version >= webhookLedgerVersion,
	}
}
