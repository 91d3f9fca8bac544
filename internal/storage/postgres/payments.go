package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type paymentRepository struct {
	q querier
}

// webhookEventRepository is a no-op ledger on schemas that predate it; the
// payment reference constraint remains the idempotency guard there.
type webhookEventRepository struct {
	q       querier
	enabled bool
}

func (r *paymentRepository) Insert(ctx context.Context, p *model.Payment) (bool, error) {
	const query = `INSERT INTO payments (invoice_id, external_reference, amount, status, method, source, notes, paid_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                   ON CONFLICT (external_reference) DO NOTHING
                   RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query, p.InvoiceID, p.ExternalReference, p.Amount, p.Status, p.Method, p.Source, p.Notes, p.PaidAt).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, dbError(err, "insert payment")
	}
	return true, nil
}

func (r *paymentRepository) UpdateStatusByReference(ctx context.Context, reference string, status model.PaymentStatus) (bool, error) {
	tag, err := r.q.Exec(ctx, `UPDATE payments SET status=$1 WHERE external_reference=$2`, status, reference)
	if err != nil {
		return false, dbError(err, "update payment status")
	}
	return tag.RowsAffected() > 0, nil
}

// HasManualForOrder reports whether a manual completion payment exists for the order.
func (r *paymentRepository) HasManualForOrder(ctx context.Context, orderID int64) (bool, error) {
	const query = `SELECT EXISTS (
                       SELECT 1 FROM payments p JOIN invoices i ON i.id = p.invoice_id
                       WHERE i.order_id=$1 AND p.source=$2
                   )`
	var exists bool
	if err := r.q.QueryRow(ctx, query, orderID, model.PaymentSourceManual).Scan(&exists); err != nil {
		return false, dbError(err, "check manual payment")
	}
	return exists, nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID int64) ([]model.Payment, error) {
	const query = `SELECT id, invoice_id, external_reference, amount, status, method, source, notes, paid_at, created_at
                   FROM payments WHERE invoice_id=$1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, dbError(err, "select payments")
	}
	defer rows.Close()

	var result []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.ExternalReference, &p.Amount, &p.Status, &p.Method,
			&p.Source, &p.Notes, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, dbError(err, "scan payment")
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "iterate payments")
	}
	return result, nil
}

func (r *webhookEventRepository) Record(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	if !r.enabled {
		return true, nil
	}
	const query = `INSERT INTO webhook_events (event_id, event_type, outcome)
                   VALUES ($1, $2, $3)
                   ON CONFLICT (event_id) DO NOTHING
                   RETURNING processed_at`
	err := r.q.QueryRow(ctx, query, event.EventID, event.EventType, event.Outcome).Scan(&event.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, dbError(err, "record webhook event")
	}
	return true, nil
}
