package notify

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/usecase"
)

const dateLayout = "January 2, 2006"

var funcs = template.FuncMap{
	"money": formatMoney,
	"date":  func(t time.Time) string { return t.Format(dateLayout) },
	"abs": func(n int) int {
		if n < 0 {
			return -n
		}
		return n
	},
}

var (
	invoiceTmpl = template.Must(template.New("invoice").Funcs(funcs).Parse(`Hello {{.Order.CustomerName}},

Your invoice {{.Invoice.Number}} for {{.Order.PackageName}} is ready.

Subtotal: {{money .Invoice.Subtotal}}
Tax ({{.Invoice.Tax.Jurisdiction}}): {{money .Invoice.Tax.TotalTax}}
Total due: {{money .Invoice.Amount}}
Due date: {{date .Invoice.DueDate}}

Payment reference: {{.Invoice.ExternalReference}}
`))

	receiptTmpl = template.Must(template.New("receipt").Funcs(funcs).Parse(`Hello {{.Order.CustomerName}},

We received your payment of {{money .Payment.Amount}} for invoice {{.Invoice.Number}}.
Reference: {{.Payment.ExternalReference}}
Date: {{date .Payment.PaidAt}}

Thank you for your order.
`))

	reminderTmpl = template.Must(template.New("reminder").Funcs(funcs).Parse(`Hello {{.CustomerName}},

{{if eq .Type "upcoming"}}This is a friendly reminder that invoice {{.InvoiceNumber}} is due in {{.DaysUntilDue}} day(s).
{{- else if eq .Type "due_today"}}Invoice {{.InvoiceNumber}} is due today.
{{- else}}Invoice {{.InvoiceNumber}} is {{abs .DaysUntilDue}} day(s) overdue.
{{- end}}

Amount due: {{money .Amount}}
Due date: {{date .DueDate}}
`))
)

// Mailer renders notification templates and hands them to a Sender.
type Mailer struct {
	sender Sender
}

var _ usecase.Notifier = (*Mailer)(nil)

// NewMailer constructs Mailer.
func NewMailer(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

// SendInvoice emails the invoice to the order customer.
func (m *Mailer) SendInvoice(ctx context.Context, order model.Order, invoice model.Invoice) error {
	text, err := render(invoiceTmpl, struct {
		Order   model.Order
		Invoice model.Invoice
	}{order, invoice})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Invoice %s", invoice.Number),
		Text:    text,
		Tag:     "invoice",
	})
}

// SendReceipt emails a payment confirmation.
func (m *Mailer) SendReceipt(ctx context.Context, order model.Order, invoice model.Invoice, payment model.Payment) error {
	text, err := render(receiptTmpl, struct {
		Order   model.Order
		Invoice model.Invoice
		Payment model.Payment
	}{order, invoice, payment})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Payment received for invoice %s", invoice.Number),
		Text:    text,
		Tag:     "receipt",
	})
}

// SendReminder emails a payment reminder.
func (m *Mailer) SendReminder(ctx context.Context, r model.Reminder) error {
	if r.CustomerEmail == "" {
		return fmt.Errorf("order %d has no customer email", r.OrderID)
	}
	text, err := render(reminderTmpl, r)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      r.CustomerEmail,
		Subject: reminderSubject(r),
		Text:    text,
		Tag:     "reminder." + string(r.Type),
	})
}

func reminderSubject(r model.Reminder) string {
	switch r.Type {
	case model.ReminderUpcoming:
		return fmt.Sprintf("Invoice %s is due soon", r.InvoiceNumber)
	case model.ReminderDueToday:
		return fmt.Sprintf("Invoice %s is due today", r.InvoiceNumber)
	default:
		return fmt.Sprintf("Invoice %s is overdue", r.InvoiceNumber)
	}
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return b.String(), nil
}

// formatMoney renders minor units as a dollar amount.
func formatMoney(minor int64) string {
	return "$" + decimal.New(minor, -2).StringFixed(2)
}
