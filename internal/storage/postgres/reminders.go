package postgres

import (
	"context"

	"github.com/polkiloo/orderdesk/internal/domain/model"
)

type reminderRepository struct {
	q querier
}

func (r *reminderRepository) ListCandidates(ctx context.Context) ([]model.ReminderCandidate, error) {
	const query = `SELECT o.id, i.id, i.number, o.customer_name, o.customer_email, i.amount, i.due_date,
                          COALESCE(l.sent, 0), l.last_sent_at, (p.order_id IS NOT NULL)
                   FROM invoices i
                   JOIN orders o ON o.id = i.order_id
                   LEFT JOIN (
                       SELECT order_id, COUNT(*) AS sent, MAX(sent_at) AS last_sent_at
                       FROM reminder_logs WHERE success GROUP BY order_id
                   ) l ON l.order_id = o.id
                   LEFT JOIN reminder_pauses p ON p.order_id = o.id
                   WHERE i.status IN ('draft', 'sent') AND o.status NOT IN ('cancelled', 'delivered')
                   ORDER BY i.due_date, o.id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, dbError(err, "select reminder candidates")
	}
	defer rows.Close()

	var result []model.ReminderCandidate
	for rows.Next() {
		var c model.ReminderCandidate
		if err := rows.Scan(&c.OrderID, &c.InvoiceID, &c.InvoiceNumber, &c.CustomerName, &c.CustomerEmail,
			&c.Amount, &c.DueDate, &c.RemindersSent, &c.LastReminderAt, &c.Paused); err != nil {
			return nil, dbError(err, "scan reminder candidate")
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "iterate reminder candidates")
	}
	return result, nil
}

func (r *reminderRepository) LogAttempt(ctx context.Context, entry *model.ReminderLog) error {
	const query = `INSERT INTO reminder_logs (order_id, invoice_id, reminder_type, days_until_due, success, error, sent_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.q.QueryRow(ctx, query, entry.OrderID, entry.InvoiceID, entry.Type, entry.DaysUntilDue,
		entry.Success, entry.Error, entry.SentAt).Scan(&entry.ID)
	return dbError(err, "insert reminder log")
}

func (r *reminderRepository) SetPaused(ctx context.Context, orderID int64, paused bool, actorID string) error {
	var err error
	if paused {
		_, err = r.q.Exec(ctx, `INSERT INTO reminder_pauses (order_id, paused_by) VALUES ($1, $2) ON CONFLICT (order_id) DO NOTHING`, orderID, actorID)
	} else {
		_, err = r.q.Exec(ctx, `DELETE FROM reminder_pauses WHERE order_id=$1`, orderID)
	}
	return dbError(err, "set reminder pause")
}

func (r *reminderRepository) IsPaused(ctx context.Context, orderID int64) (bool, error) {
	var paused bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reminder_pauses WHERE order_id=$1)`, orderID).Scan(&paused)
	if err != nil {
		return false, dbError(err, "check reminder pause")
	}
	return paused, nil
}
