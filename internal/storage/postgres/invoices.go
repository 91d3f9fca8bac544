package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type invoiceRepository struct {
	q querier
}

const invoiceColumns = `id, order_id, number, external_reference, status, source, amount, subtotal,
       tax_jurisdiction, tax_primary, tax_secondary, tax_combined, tax_total, line_items,
       issue_date, due_date, payment_terms_days, sent_at, paid_at, created_at`

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var (
		inv   model.Invoice
		items []byte
	)
	err := row.Scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.ExternalReference, &inv.Status, &inv.Source,
		&inv.Amount, &inv.Subtotal, &inv.Tax.Jurisdiction, &inv.Tax.Primary, &inv.Tax.Secondary,
		&inv.Tax.Combined, &inv.Tax.TotalTax, &items, &inv.IssueDate, &inv.DueDate, &inv.PaymentTermsDays,
		&inv.SentAt, &inv.PaidAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.LineItems); err != nil {
			return nil, err
		}
	}
	return &inv, nil
}

func (r *invoiceRepository) Create(ctx context.Context, inv *model.Invoice) (bool, error) {
	const query = `INSERT INTO invoices (order_id, number, external_reference, status, source, amount, subtotal,
                   tax_jurisdiction, tax_primary, tax_secondary, tax_combined, tax_total, line_items,
                   issue_date, due_date, payment_terms_days)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
                   ON CONFLICT (order_id) DO NOTHING
                   RETURNING id, created_at`
	items, err := json.Marshal(inv.LineItems)
	if err != nil {
		return false, err
	}
	err = r.q.QueryRow(ctx, query, inv.OrderID, inv.Number, inv.ExternalReference, inv.Status, inv.Source,
		inv.Amount, inv.Subtotal, inv.Tax.Jurisdiction, inv.Tax.Primary, inv.Tax.Secondary, inv.Tax.Combined,
		inv.Tax.TotalTax, string(items), inv.IssueDate, inv.DueDate, inv.PaymentTermsDays).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if isUniqueViolation(err) {
			return false, domainErrors.Wrapf(domainErrors.ErrAlreadyExists, "invoice %s", inv.Number)
		}
		return false, dbError(err, "insert invoice")
	}
	return true, nil
}

func (r *invoiceRepository) GetByOrderID(ctx context.Context, orderID int64) (*model.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id=$1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NotFoundf("invoice for order %d not found", orderID)
		}
		return nil, dbError(err, "select invoice")
	}
	return inv, nil
}

func (r *invoiceRepository) GetByExternalReference(ctx context.Context, reference string) (*model.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE external_reference=$1`, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NotFoundf("invoice %q not found", reference)
		}
		return nil, dbError(err, "select invoice")
	}
	return inv, nil
}

// UpdateStatus stamps sent_at or paid_at according to the new status.
func (r *invoiceRepository) UpdateStatus(ctx context.Context, id int64, status model.InvoiceStatus, at time.Time) error {
	const query = `UPDATE invoices SET status=$1,
                   sent_at = CASE WHEN $1 = 'sent' THEN $2 ELSE sent_at END,
                   paid_at = CASE WHEN $1 = 'paid' THEN $2 ELSE paid_at END
                   WHERE id=$3`
	tag, err := r.q.Exec(ctx, query, status, at, id)
	if err != nil {
		return dbError(err, "update invoice status")
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.NotFoundf("invoice %d not found", id)
	}
	return nil
}

func (r *invoiceRepository) MarkSent(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `UPDATE invoices SET status='sent', sent_at=$1 WHERE id=$2 AND status='draft'`, at, id)
	if err != nil {
		return false, dbError(err, "mark invoice sent")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invoiceRepository) ListUnpaid(ctx context.Context) ([]model.Invoice, error) {
	rows, err := r.q.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE status IN ('draft', 'sent') ORDER BY issue_date, id`)
	if err != nil {
		return nil, dbError(err, "select unpaid invoices")
	}
	defer rows.Close()

	var result []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, dbError(err, "scan invoice")
		}
		result = append(result, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "iterate invoices")
	}
	return result, nil
}

// NextNumber draws from invoice_number_seq, which is atomic across sessions.
func (r *invoiceRepository) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return 0, dbError(err, "next invoice number")
	}
	return n, nil
}
