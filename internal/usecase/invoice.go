package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
	"github.com/polkiloo/orderdesk/internal/domain/repository"
	"github.com/polkiloo/orderdesk/internal/tax"
)

// InvoiceOptions overrides invoice settings for one creation. Nil fields fall
// back to the stored settings.
type InvoiceOptions struct {
	SendEmail        *bool
	PaymentTermsDays *int
}

// PaymentDetails describes a payment recorded by staff.
type PaymentDetails struct {
	TransactionID string
	Amount        int64
	Method        model.PaymentMethod
	PaidAt        time.Time
	Notes         string
}

// Aging bucket labels in reporting order.
const (
	AgingCurrent = "current"
	Aging30To60  = "30-60"
	Aging60To90  = "60-90"
	Aging90Plus  = "90+"
)

// InvoiceUseCase creates invoices, reports aging and records payments.
type InvoiceUseCase struct {
	uow      repository.UnitOfWork
	repos    repository.Factory
	notifier Notifier
	audit    *Auditor
	clock    Clock
	logger   *slog.Logger
}

// NewInvoiceUseCase constructs InvoiceUseCase.
func NewInvoiceUseCase(uow repository.UnitOfWork, repos repository.Factory, notifier Notifier, audit *Auditor, clock Clock, logger *slog.Logger) *InvoiceUseCase {
	return &InvoiceUseCase{uow: uow, repos: repos, notifier: notifier, audit: audit, clock: clock, logger: logger}
}

// CreateInvoiceFromOrder issues the single invoice of an order. When one
// already exists it is returned with created=false and nothing is written.
func (u *InvoiceUseCase) CreateInvoiceFromOrder(ctx context.Context, orderID int64, opts InvoiceOptions, actor model.Actor) (*model.Invoice, bool, error) {
	if err := authorize(actor, writerRoles...); err != nil {
		return nil, false, err
	}
	if opts.PaymentTermsDays != nil && (*opts.PaymentTermsDays < 0 || *opts.PaymentTermsDays > maxPaymentTerms) {
		return nil, false, domainErrors.Validationf("payment terms must be between 0 and %d days", maxPaymentTerms)
	}

	var (
		invoice  *model.Invoice
		order    *model.Order
		created  bool
		settings model.InvoiceSettings
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		created = false
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		existing, err := tx.Invoices().GetByOrderID(ctx, orderID)
		switch {
		case err == nil:
			invoice = existing
			return nil
		case domainErrors.KindOf(err) != domainErrors.KindNotFound:
			return err
		}

		if err := checkInvoiceable(order); err != nil {
			return err
		}

		settings, err = loadInvoiceSettings(ctx, tx.Settings())
		if err != nil {
			return err
		}
		terms := settings.PaymentTermsDays
		if opts.PaymentTermsDays != nil {
			terms = *opts.PaymentTermsDays
		}
		engine, err := loadTaxEngine(ctx, tx.Settings())
		if err != nil {
			return err
		}
		breakdown, err := engine.CalculateTax(order.Subtotal, order.Jurisdiction)
		if err != nil {
			return err
		}

		invoice, err = insertInvoice(ctx, tx, u.clock, order, settings.NumberPrefix, terms, model.InvoiceSourceStandard, standardLineItems(order), breakdown)
		if err != nil {
			return err
		}
		if err := tx.Orders().UpdateTotals(ctx, order.ID, breakdown.TotalTax, breakdown.Total); err != nil {
			return err
		}
		if order.Status != model.OrderStatusInvoiced {
			if err := applyTransition(ctx, tx, order, model.OrderStatusInvoiced, actor, "invoice "+invoice.Number, u.clock); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		return invoice, false, nil
	}

	u.audit.Record(ctx, actor, "invoice.create", "invoice", invoice.ID, map[string]any{
		"order_id": orderID,
		"number":   invoice.Number,
		"amount":   invoice.Amount,
	})

	send := settings.SendOnCreate
	if opts.SendEmail != nil {
		send = *opts.SendEmail
	}
	if send {
		u.sendInvoice(ctx, *order, invoice)
	}
	return invoice, true, nil
}

func checkInvoiceable(order *model.Order) error {
	switch order.Status {
	case model.OrderStatusPaid, model.OrderStatusCompleted, model.OrderStatusDelivered:
		return domainErrors.Wrapf(domainErrors.ErrAlreadyPaid, "order %d is %s", order.ID, order.Status)
	case model.OrderStatusQuoted, model.OrderStatusQuoteViewed, model.OrderStatusQuoteAccepted, model.OrderStatusInvoiced:
		return nil
	default:
		return domainErrors.Validationf("order %d in status %s cannot be invoiced", order.ID, order.Status)
	}
}

func standardLineItems(order *model.Order) []model.LineItem {
	items := make([]model.LineItem, 0, len(order.AddOns)+1)
	items = append(items, model.LineItem{Description: order.PackageName, Amount: order.BasePrice})
	for _, a := range order.AddOns {
		items = append(items, model.LineItem{Description: a.Description, Amount: a.Amount})
	}
	return items
}

// insertInvoice allocates the next number and freezes the snapshot.
func insertInvoice(ctx context.Context, tx repository.Tx, clock Clock, order *model.Order, prefix string, terms int, source model.InvoiceSource, items []model.LineItem, b tax.Breakdown) (*model.Invoice, error) {
	seq, err := tx.Invoices().NextNumber(ctx)
	if err != nil {
		return nil, err
	}
	issue := clock.Today()
	inv := &model.Invoice{
		OrderID:           order.ID,
		Number:            formatInvoiceNumber(prefix, seq),
		ExternalReference: uuid.NewString(),
		Status:            model.InvoiceStatusDraft,
		Source:            source,
		Amount:            b.Total,
		Subtotal:          b.Subtotal,
		Tax:               b.Snapshot(),
		LineItems:         items,
		IssueDate:         issue,
		DueDate:           issue.AddDate(0, 0, terms),
		PaymentTermsDays:  terms,
	}
	ok, err := tx.Invoices().Create(ctx, inv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainErrors.Conflictf("order %d already has an invoice", order.ID)
	}
	return inv, nil
}

func formatInvoiceNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s%d", prefix, seq)
}

func (u *InvoiceUseCase) sendInvoice(ctx context.Context, order model.Order, invoice *model.Invoice) {
	if err := u.notifier.SendInvoice(ctx, order, *invoice); err != nil {
		u.logger.Warn("invoice email failed",
			slog.Int64("invoice_id", invoice.ID),
			slog.String("number", invoice.Number),
			slog.String("error", err.Error()),
		)
		return
	}
	sentAt := u.clock.Now()
	marked, err := u.repos.Invoices().MarkSent(ctx, invoice.ID, sentAt)
	if err != nil {
		u.logger.Warn("mark invoice sent failed", slog.Int64("invoice_id", invoice.ID), slog.String("error", err.Error()))
		return
	}
	if !marked {
		// settled while the email was in flight
		if current, err := u.repos.Invoices().GetByOrderID(ctx, order.ID); err == nil {
			*invoice = *current
		}
		return
	}
	invoice.Status = model.InvoiceStatusSent
	invoice.SentAt = &sentAt
}

// GetInvoice returns the invoice of an order.
func (u *InvoiceUseCase) GetInvoice(ctx context.Context, orderID int64) (*model.Invoice, error) {
	return u.repos.Invoices().GetByOrderID(ctx, orderID)
}

// Payments lists payments recorded against the invoice of an order.
func (u *InvoiceUseCase) Payments(ctx context.Context, orderID int64) ([]model.Payment, error) {
	inv, err := u.repos.Invoices().GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return u.repos.Payments().ListByInvoice(ctx, inv.ID)
}

// AgingSummary partitions unpaid invoices by days since issue.
func (u *InvoiceUseCase) AgingSummary(ctx context.Context) (*model.AgingSummary, error) {
	invoices, err := u.repos.Invoices().ListUnpaid(ctx)
	if err != nil {
		return nil, err
	}
	now := u.clock.Now()
	summary := &model.AgingSummary{
		Buckets: []model.AgingBucket{{Label: AgingCurrent}, {Label: Aging30To60}, {Label: Aging60To90}, {Label: Aging90Plus}},
		AsOf:    now,
	}
	for _, inv := range invoices {
		if !inv.Status.Unpaid() {
			continue
		}
		b := &summary.Buckets[agingBucket(daysBetween(inv.IssueDate, now, u.clock.Location()))]
		b.Count++
		b.Amount += inv.Amount
		summary.TotalCount++
		summary.TotalAmount += inv.Amount
	}
	return summary, nil
}

func agingBucket(days int) int {
	switch {
	case days < 30:
		return 0
	case days < 60:
		return 1
	case days < 90:
		return 2
	default:
		return 3
	}
}

// MarkInvoiceAsPaid settles the invoice of an order. Repeating the call with
// the same transaction id changes nothing and returns the current invoice,
// even if the order has moved on since.
func (u *InvoiceUseCase) MarkInvoiceAsPaid(ctx context.Context, orderID int64, details PaymentDetails, actor model.Actor) (*model.Invoice, error) {
	if err := authorize(actor, writerRoles...); err != nil {
		return nil, err
	}
	if details.Amount < 0 {
		return nil, domainErrors.Validationf("payment amount must not be negative")
	}
	if details.Method == "" {
		details.Method = model.PaymentMethodOther
	}
	if !validPaymentMethod(details.Method) {
		return nil, domainErrors.Validationf("unknown payment method %q", details.Method)
	}
	paidAt := details.PaidAt
	if paidAt.IsZero() {
		paidAt = u.clock.Now()
	}

	var (
		invoice   *model.Invoice
		duplicate bool
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		duplicate = false
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		invoice, err = tx.Invoices().GetByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if invoice.Status == model.InvoiceStatusCancelled {
			return domainErrors.Validationf("invoice %s is cancelled", invoice.Number)
		}
		if details.TransactionID != "" {
			amount := details.Amount
			if amount == 0 {
				amount = invoice.Amount
			}
			inserted, err := tx.Payments().Insert(ctx, &model.Payment{
				InvoiceID:         invoice.ID,
				ExternalReference: details.TransactionID,
				Amount:            amount,
				Status:            model.PaymentStatusSucceeded,
				Method:            details.Method,
				Source:            model.PaymentSourceAdmin,
				Notes:             details.Notes,
				PaidAt:            paidAt,
			})
			if err != nil {
				return err
			}
			if !inserted {
				duplicate = true
				return nil
			}
		}
		return settle(ctx, tx, order, invoice, paidAt, actor, details.Notes, u.clock)
	})
	if err != nil {
		return nil, err
	}
	if duplicate {
		return invoice, nil
	}

	u.audit.Record(ctx, actor, "invoice.mark_paid", "invoice", invoice.ID, map[string]any{
		"order_id":       orderID,
		"transaction_id": details.TransactionID,
	})
	return invoice, nil
}

// settle marks the invoice paid and moves the order to paid unless it is
// already paid or past it.
func settle(ctx context.Context, tx repository.Tx, order *model.Order, invoice *model.Invoice, at time.Time, actor model.Actor, notes string, clock Clock) error {
	if invoice.Status != model.InvoiceStatusPaid {
		if err := tx.Invoices().UpdateStatus(ctx, invoice.ID, model.InvoiceStatusPaid, at); err != nil {
			return err
		}
		invoice.Status = model.InvoiceStatusPaid
		invoice.PaidAt = &at
	}
	switch order.Status {
	case model.OrderStatusPaid, model.OrderStatusCompleted, model.OrderStatusDelivered:
		return nil
	}
	return applyTransition(ctx, tx, order, model.OrderStatusPaid, actor, notes, clock)
}

func validPaymentMethod(m model.PaymentMethod) bool {
	switch m {
	case model.PaymentMethodCard, model.PaymentMethodCash, model.PaymentMethodCheck, model.PaymentMethodWire, model.PaymentMethodOther:
		return true
	}
	return false
}
